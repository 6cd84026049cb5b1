package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	ingestion "energy-square/internal/ingestion/domain"
)

// Strict timestamp layouts of the two plant logs.
const (
	GenerationLayout = "02-01-2006 15:04"
	WeatherLayout    = "2006-01-02 15:04:05"
)

// ColumnDateTime is the timestamp column of both plant logs. The other
// columns keep their log names as field names.
const ColumnDateTime = "DATE_TIME"

var (
	generationColumns = []string{
		ingestion.FieldDCPower,
		ingestion.FieldACPower,
		ingestion.FieldDailyYield,
		ingestion.FieldTotalYield,
	}
	weatherColumns = []string{
		ingestion.FieldAmbientTemp,
		ingestion.FieldModuleTemp,
		ingestion.FieldIrradiation,
	}
	labelColumns = []string{ingestion.FieldPlantID, ingestion.FieldSourceKey}
)

// Reader reads solar plant generation and weather sensor logs.
type Reader struct {
	loc *time.Location
}

// NewReader constructs a log reader. Timestamps without zone are read in loc.
func NewReader(loc *time.Location) *Reader {
	if loc == nil {
		loc = time.UTC
	}
	return &Reader{loc: loc}
}

// GenerationSource names the generation source of a plant.
func GenerationSource(plantID string) string {
	return "solar_plant_" + plantID + "_generation"
}

// WeatherSource names the weather source of a plant.
func WeatherSource(plantID string) string {
	return "solar_plant_" + plantID + "_weather"
}

// ReadGeneration reads an inverter generation log.
func (r *Reader) ReadGeneration(ctx context.Context, plantID, path string) ingestion.SourceResult {
	return r.read(ctx, GenerationSource(plantID), path, GenerationLayout, generationColumns)
}

// ReadWeather reads a weather sensor log.
func (r *Reader) ReadWeather(ctx context.Context, plantID, path string) ingestion.SourceResult {
	return r.read(ctx, WeatherSource(plantID), path, WeatherLayout, weatherColumns)
}

func (r *Reader) read(ctx context.Context, source, path, layout string, numeric []string) ingestion.SourceResult {
	if r == nil {
		return ingestion.Unavailable(source, errors.New("csv reader: nil reader"))
	}
	if err := ctx.Err(); err != nil {
		return ingestion.Unavailable(source, err)
	}
	file, err := os.Open(path)
	if err != nil {
		return ingestion.Unavailable(source, err)
	}
	defer file.Close()

	records, skipped, err := r.decode(file, layout, numeric)
	if err != nil {
		return ingestion.Unavailable(source, fmt.Errorf("%s: %w", path, err))
	}
	return ingestion.SourceResult{Source: source, Records: records, Skipped: skipped}
}

func (r *Reader) decode(in io.Reader, layout string, numeric []string) ([]ingestion.TimestampedRecord, int, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, err
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	timeCol, ok := index[ColumnDateTime]
	if !ok {
		return nil, 0, fmt.Errorf("missing %s column", ColumnDateTime)
	}

	var (
		records []ingestion.TimestampedRecord
		skipped int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, 0, err
		}
		cell := func(name string) (string, bool) {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return "", false
			}
			return row[i], true
		}
		if timeCol >= len(row) {
			skipped++
			continue
		}
		ts, err := ingestion.ParseTime(row[timeCol], layout, r.loc)
		if err != nil {
			skipped++
			continue
		}
		fields := make(map[string]ingestion.Float, len(numeric))
		for _, name := range numeric {
			raw, _ := cell(name)
			fields[name] = ingestion.ParseNumber(raw)
		}
		labels := make(map[string]string, len(labelColumns))
		for _, name := range labelColumns {
			if raw, ok := cell(name); ok {
				labels[name] = strings.TrimSpace(raw)
			}
		}
		records = append(records, ingestion.TimestampedRecord{
			Stamp:  ingestion.NewStamp(ts),
			Fields: fields,
			Labels: labels,
		})
	}
	return records, skipped, nil
}
