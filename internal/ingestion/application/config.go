package application

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ingestion "energy-square/internal/ingestion/domain"
)

// Layout describes where the raw sources live and how to read them.
type Layout struct {
	DataDir               string   `yaml:"data_dir"`
	PUNFile               string   `yaml:"pun_file"`
	ZonalFile             string   `yaml:"zonal_file"`
	DemandFile            string   `yaml:"demand_file"`
	Plants                []string `yaml:"plants"`
	GenerationPattern     string   `yaml:"generation_pattern"`
	WeatherPattern        string   `yaml:"weather_pattern"`
	NationalZone          string   `yaml:"national_zone"`
	ZonalRegions          []string `yaml:"zonal_regions"`
	ArbitrageRegions      []string `yaml:"arbitrage_regions"`
	DemandRegions         []string `yaml:"demand_regions"`
	NationalDemandColumn  string   `yaml:"national_demand_column"`
	SampleIntervalMinutes int      `yaml:"sample_interval_minutes"`
	Schedule              string   `yaml:"schedule"`
	Timezone              string   `yaml:"timezone"`
}

// DefaultLayout returns the layout of the bundled data directory.
func DefaultLayout() Layout {
	return Layout{
		DataDir:               filepath.FromSlash("data/raw"),
		PUNFile:               "20251027_20251027_PUN.xlsx",
		ZonalFile:             "20251027_20251027_MGP_PrezziZonali.xlsx",
		DemandFile:            "20251027_20251027_MGP_Fabbisogno.xlsx",
		Plants:                []string{"1", "2"},
		GenerationPattern:     "Plant_%s_Generation_Data.csv",
		WeatherPattern:        "Plant_%s_Weather_Sensor_Data.csv",
		NationalZone:          ingestion.DefaultNationalZone,
		ZonalRegions:          append([]string(nil), ingestion.DefaultZonalRegions...),
		ArbitrageRegions:      append([]string(nil), ingestion.DefaultArbitrageRegions...),
		DemandRegions:         append([]string(nil), ingestion.DefaultDemandRegions...),
		NationalDemandColumn:  ingestion.DefaultNationalDemandColumn,
		SampleIntervalMinutes: 15,
		Schedule:              "@hourly",
		Timezone:              "UTC",
	}
}

// LoadLayout loads the layout from INGEST_CONFIG when set, then applies
// environment overrides.
func LoadLayout() (Layout, error) {
	cfg := DefaultLayout()

	if path := os.Getenv("INGEST_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if dir := os.Getenv("INGEST_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if schedule := os.Getenv("INGEST_SCHEDULE"); schedule != "" {
		cfg.Schedule = schedule
	}
	if tz := os.Getenv("DATA_TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}
	if plants := splitCSV(os.Getenv("INGEST_PLANTS")); len(plants) > 0 {
		cfg.Plants = plants
	}
	if minutes := getenvIntDefault("INGEST_SAMPLE_MINUTES", 0); minutes > 0 {
		cfg.SampleIntervalMinutes = minutes
	}
	return cfg, cfg.Validate()
}

// Validate checks that the layout can drive an ingestion run.
func (l Layout) Validate() error {
	if l.DataDir == "" {
		return errors.New("ingestion: data dir required")
	}
	if l.SampleIntervalMinutes <= 0 {
		return errors.New("ingestion: sample interval must be positive")
	}
	if l.GenerationPattern == "" || l.WeatherPattern == "" {
		return errors.New("ingestion: plant file patterns required")
	}
	if _, err := l.Location(); err != nil {
		return fmt.Errorf("ingestion: timezone: %w", err)
	}
	return nil
}

// Location resolves the data timezone.
func (l Layout) Location() (*time.Location, error) {
	if l.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(l.Timezone)
}

// SampleInterval is the spacing of plant log rows.
func (l Layout) SampleInterval() time.Duration {
	return time.Duration(l.SampleIntervalMinutes) * time.Minute
}

// PUNPath returns the national price workbook path.
func (l Layout) PUNPath() string { return filepath.Join(l.DataDir, l.PUNFile) }

// ZonalPath returns the zonal price workbook path.
func (l Layout) ZonalPath() string { return filepath.Join(l.DataDir, l.ZonalFile) }

// DemandPath returns the demand workbook path.
func (l Layout) DemandPath() string { return filepath.Join(l.DataDir, l.DemandFile) }

// GenerationPath returns the generation log path of a plant.
func (l Layout) GenerationPath(plantID string) string {
	return filepath.Join(l.DataDir, fmt.Sprintf(l.GenerationPattern, plantID))
}

// WeatherPath returns the weather log path of a plant.
func (l Layout) WeatherPath(plantID string) string {
	return filepath.Join(l.DataDir, fmt.Sprintf(l.WeatherPattern, plantID))
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
