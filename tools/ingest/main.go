package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"energy-square/internal/eventing"
	eventingkafka "energy-square/internal/eventing/infrastructure/kafka"
	ingestionapp "energy-square/internal/ingestion/application"
	ingestionevents "energy-square/internal/ingestion/application/events"
	"energy-square/internal/ingestion/infrastructure/csvsource"
	"energy-square/internal/ingestion/infrastructure/filestore"
	"energy-square/internal/ingestion/infrastructure/xlsx"
	"energy-square/internal/observability/metrics"
)

type config struct {
	dataDir      string
	snapshotPath string
	kafkaBrokers string
	kafkaTopic   string
	quiet        bool
}

func main() {
	cfg := parseFlags()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if cfg.quiet {
		logger.SetOutput(io.Discard)
	}

	layout, err := ingestionapp.LoadLayout()
	if err != nil {
		fmt.Fprintln(os.Stderr, "layout:", err)
		os.Exit(2)
	}
	if cfg.dataDir != "" {
		layout.DataDir = cfg.dataDir
	}
	loc, err := layout.Location()
	if err != nil {
		fmt.Fprintln(os.Stderr, "timezone:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init(nil, logger)

	repo, err := filestore.NewSnapshotRepository(cfg.snapshotPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshot repository:", err)
		os.Exit(2)
	}
	store := ingestionapp.NewSnapshotStore(repo, logger)

	bus := eventing.NewInMemoryBus()
	publisher, err := eventing.NewPublisher(bus, "ingest-cli", logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "publisher:", err)
		os.Exit(2)
	}
	if brokers := splitCSV(cfg.kafkaBrokers); len(brokers) > 0 {
		registry := eventing.NewRegistry()
		registry.Register(ingestionevents.DatasetPublished{})
		bridge, err := eventingkafka.NewBridge(eventingkafka.Config{
			Brokers: brokers,
			Topic:   cfg.kafkaTopic,
		}, publisher.Source(), eventing.NewDispatcher(bus, registry, nil), logger)
		if err != nil {
			fmt.Fprintln(os.Stderr, "kafka bridge:", err)
			os.Exit(2)
		}
		defer bridge.Close()
		publisher.SetOutbound(bridge)
	}

	runner, err := ingestionapp.NewRunner(layout, xlsx.NewReader(loc), csvsource.NewReader(loc), repo, store, publisher, logger,
		ingestionapp.WithSnapshotPath(cfg.snapshotPath),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "runner:", err)
		os.Exit(2)
	}

	report, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ingestion run:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(os.Stderr, "write report:", err)
		os.Exit(1)
	}
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.dataDir, "data-dir", "", "raw data directory (overrides INGEST_DATA_DIR)")
	flag.StringVar(&cfg.snapshotPath, "snapshot", getenvDefault("SNAPSHOT_PATH", "data/processed/transformed_data.json"), "snapshot output path")
	flag.StringVar(&cfg.kafkaBrokers, "kafka-brokers", os.Getenv("KAFKA_BROKERS"), "comma separated brokers to announce the new snapshot to")
	flag.StringVar(&cfg.kafkaTopic, "kafka-topic", getenvDefault("KAFKA_TOPIC", "energy-square.events"), "event topic")
	flag.BoolVar(&cfg.quiet, "quiet", false, "suppress log output")
	flag.Parse()
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
