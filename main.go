package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	apihttp "energy-square/internal/api/http"
	communityapp "energy-square/internal/community/application"
	communityevents "energy-square/internal/community/application/events"
	communitymemory "energy-square/internal/community/infrastructure/memory"
	communitypostgres "energy-square/internal/community/infrastructure/postgres"
	communityhttp "energy-square/internal/community/interfaces/http"
	dashboardapp "energy-square/internal/dashboard/application"
	dashboardmemory "energy-square/internal/dashboard/infrastructure/memory"
	dashboardpostgres "energy-square/internal/dashboard/infrastructure/postgres"
	dashboardhttp "energy-square/internal/dashboard/interfaces/http"
	deviceapp "energy-square/internal/devices/application"
	devicememory "energy-square/internal/devices/infrastructure/memory"
	devicepostgres "energy-square/internal/devices/infrastructure/postgres"
	devicehttp "energy-square/internal/devices/interfaces/http"
	energyapp "energy-square/internal/energy/application"
	"energy-square/internal/eventing"
	eventingkafka "energy-square/internal/eventing/infrastructure/kafka"
	eventingmemory "energy-square/internal/eventing/infrastructure/memory"
	eventingpostgres "energy-square/internal/eventing/infrastructure/postgres"
	ingestionapp "energy-square/internal/ingestion/application"
	ingestionevents "energy-square/internal/ingestion/application/events"
	ingestion "energy-square/internal/ingestion/domain"
	"energy-square/internal/ingestion/infrastructure/csvsource"
	"energy-square/internal/ingestion/infrastructure/filestore"
	"energy-square/internal/ingestion/infrastructure/xlsx"
	ingestionhttp "energy-square/internal/ingestion/interfaces/http"
	noticeapp "energy-square/internal/notices/application"
	noticememory "energy-square/internal/notices/infrastructure/memory"
	noticepostgres "energy-square/internal/notices/infrastructure/postgres"
	noticehttp "energy-square/internal/notices/interfaces/http"
	noticenotify "energy-square/internal/notices/notify"
	"energy-square/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout, err := ingestionapp.LoadLayout()
	if err != nil {
		logger.Fatalf("ingestion layout error: %v", err)
	}
	loc, err := layout.Location()
	if err != nil {
		logger.Fatalf("ingestion timezone error: %v", err)
	}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
	} else {
		logger.Printf("DATABASE_URL not set, using in-memory stores")
	}

	st, err := buildStores(ctx, db)
	if err != nil {
		logger.Fatalf("store setup error: %v", err)
	}
	metrics.Init(db, logger)

	bus := eventing.NewInMemoryBus()
	publisher, err := eventing.NewPublisher(bus, cfg.InstanceID, logger)
	if err != nil {
		logger.Fatalf("event publisher error: %v", err)
	}
	registry := eventing.NewRegistry()
	registry.Register(ingestionevents.DatasetPublished{})
	registry.Register(communityevents.ConfigUpdated{})
	dispatcher := eventing.NewDispatcher(bus, registry, st.dlq)

	if len(cfg.KafkaBrokers) > 0 {
		bridge, err := eventingkafka.NewBridge(eventingkafka.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, publisher.Source(), dispatcher, logger)
		if err != nil {
			logger.Fatalf("kafka bridge error: %v", err)
		}
		defer bridge.Close()
		publisher.SetOutbound(bridge)
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logger.Printf("kafka bridge stopped: %v", err)
			}
		}()
		logger.Printf("kafka bridge: brokers=%v topic=%s source=%s", cfg.KafkaBrokers, cfg.KafkaTopic, publisher.Source())
	}

	snapshotRepo, err := filestore.NewSnapshotRepository(cfg.SnapshotPath)
	if err != nil {
		logger.Fatalf("snapshot repository error: %v", err)
	}
	store := ingestionapp.NewSnapshotStore(snapshotRepo, logger)
	if err := store.Reload(ctx); err != nil && !errors.Is(err, ingestion.ErrSnapshotNotFound) {
		logger.Printf("snapshot reload error: %v", err)
	}

	provider, err := communityapp.NewProvider(st.config, logger,
		communityapp.WithCacheTTL(cfg.ConfigCacheTTL),
		communityapp.WithPublisher(publisher),
	)
	if err != nil {
		logger.Fatalf("community config provider error: %v", err)
	}

	eventing.Subscribe(bus, eventing.EventTypeOf[ingestionevents.DatasetPublished](), "engine.snapshot", func(ctx context.Context, event any) error {
		published, ok := event.(ingestionevents.DatasetPublished)
		if !ok {
			return nil
		}
		if eventing.IsRemote(ctx, publisher.Source()) {
			if err := store.Reload(ctx); err != nil {
				return err
			}
			logger.Printf("engine: reloaded snapshot run=%s from peer", published.RunID)
		}
		provider.Invalidate()
		return nil
	}, st.processed)
	eventing.Subscribe(bus, eventing.EventTypeOf[communityevents.ConfigUpdated](), "engine.config", func(ctx context.Context, event any) error {
		updated, ok := event.(communityevents.ConfigUpdated)
		if !ok {
			return nil
		}
		if eventing.IsRemote(ctx, publisher.Source()) {
			provider.Invalidate()
			logger.Printf("engine: config version=%d updated by peer, cache invalidated", updated.Version)
		}
		return nil
	}, st.processed)

	engine, err := energyapp.NewEngine(store, provider, logger, energyapp.WithLocation(loc))
	if err != nil {
		logger.Fatalf("metric engine error: %v", err)
	}

	var noticeOpts []noticeapp.ServiceOption
	if cfg.NoticeWebhookURL != "" {
		notifier, err := buildNoticeNotifier(cfg)
		if err != nil {
			logger.Fatalf("notice notifier error: %v", err)
		}
		noticeOpts = append(noticeOpts, noticeapp.WithNotifier(notifier))
	}
	noticeService, err := noticeapp.NewService(st.notices, logger, noticeOpts...)
	if err != nil {
		logger.Fatalf("notice service error: %v", err)
	}
	deviceService, err := deviceapp.NewService(st.devices, logger)
	if err != nil {
		logger.Fatalf("device service error: %v", err)
	}
	if cfg.SeedDevices && len(deviceService.ListAll(ctx)) == 0 {
		if _, err := deviceService.SeedSampleUsers(ctx); err != nil {
			logger.Printf("device seed error: %v", err)
		}
	}

	dashboardService, err := dashboardapp.NewService(dashboardapp.Deps{
		Engine:       engine,
		Config:       provider,
		Notices:      noticeService,
		Devices:      deviceService,
		Dataset:      store,
		Transactions: st.transactions,
		Programs:     st.programs,
	}, logger)
	if err != nil {
		logger.Fatalf("dashboard service error: %v", err)
	}

	runner, err := ingestionapp.NewRunner(layout, xlsx.NewReader(loc), csvsource.NewReader(loc), snapshotRepo, store, publisher, logger,
		ingestionapp.WithSnapshotPath(cfg.SnapshotPath),
	)
	if err != nil {
		logger.Fatalf("ingestion runner error: %v", err)
	}
	if cfg.ScheduleEnabled {
		scheduler, err := ingestionapp.NewScheduler(runner, layout.Schedule, logger)
		if err != nil {
			logger.Fatalf("ingestion scheduler error: %v", err)
		}
		if err := scheduler.Start(ctx); err != nil {
			logger.Fatalf("ingestion scheduler start error: %v", err)
		}
	}
	if cfg.IngestOnStart && store.Current().Metadata.RunID == "" {
		go func() {
			if _, err := runner.Run(ctx); err != nil {
				logger.Printf("initial ingestion error: %v", err)
			}
		}()
	}

	communityHandler, err := communityhttp.NewHandler(provider, logger)
	if err != nil {
		logger.Fatalf("config handler error: %v", err)
	}
	noticeHandler, err := noticehttp.NewHandler(noticeService, logger)
	if err != nil {
		logger.Fatalf("notice handler error: %v", err)
	}
	deviceHandler, err := devicehttp.NewHandler(deviceService)
	if err != nil {
		logger.Fatalf("device handler error: %v", err)
	}
	dashboardHandler, err := dashboardhttp.NewHandler(dashboardService, engine, logger)
	if err != nil {
		logger.Fatalf("dashboard handler error: %v", err)
	}
	ingestionHandler, err := ingestionhttp.NewHandler(runner, store, logger)
	if err != nil {
		logger.Fatalf("ingestion handler error: %v", err)
	}

	var pinger apihttp.Pinger
	if db != nil {
		pinger = db
	}
	router := apihttp.NewRouter(apihttp.NewHealthHandler(pinger, store),
		communityHandler,
		noticeHandler,
		deviceHandler,
		dashboardHandler,
		ingestionHandler,
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apihttp.Wrap(router, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("http shutdown error: %v", err)
		}
	}()

	logger.Printf("http listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(err)
	}
	logger.Printf("http server stopped")
}

func buildNoticeNotifier(cfg config) (*noticenotify.Notifier, error) {
	channel, err := noticenotify.NewWebhookChannel(cfg.NoticeWebhookURL)
	if err != nil {
		return nil, err
	}
	tpl, err := noticenotify.NewTemplate(cfg.NoticeNotifyTemplate)
	if err != nil {
		return nil, err
	}
	return noticenotify.NewNotifier(channel, tpl,
		noticenotify.WithMinSeverity(cfg.NoticeNotifyMinSeverity),
		noticenotify.WithDedupeWindow(cfg.NoticeNotifyDedupeWindow),
	)
}

type stores struct {
	config       communityapp.Repository
	notices      noticeapp.Repository
	devices      deviceapp.Repository
	programs     dashboardapp.ProgramRepository
	transactions dashboardapp.TransactionRepository
	processed    eventing.ProcessedStore
	dlq          eventing.DLQStore
}

type schemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// buildStores selects Postgres stores when a database is configured and
// in-memory stores otherwise.
func buildStores(ctx context.Context, db *sql.DB) (stores, error) {
	if db == nil {
		return stores{
			config:       communitymemory.NewConfigRepository(),
			notices:      noticememory.NewNoticeRepository(),
			devices:      devicememory.NewDeviceRepository(),
			programs:     dashboardmemory.NewProgramRepository(),
			transactions: dashboardmemory.NewTransactionRepository(),
			processed:    eventingmemory.NewProcessedStore(0),
		}, nil
	}

	configRepo := communitypostgres.NewConfigRepository(db)
	noticeRepo := noticepostgres.NewNoticeRepository(db)
	deviceRepo := devicepostgres.NewDeviceRepository(db)
	programRepo := dashboardpostgres.NewProgramRepository(db)
	transactionRepo := dashboardpostgres.NewTransactionRepository(db)
	processedStore := eventingpostgres.NewProcessedStore(db)
	dlqStore := eventingpostgres.NewDLQStore(db)

	for _, repo := range []schemaEnsurer{configRepo, noticeRepo, deviceRepo, programRepo, transactionRepo, processedStore, dlqStore} {
		if err := repo.EnsureSchema(ctx); err != nil {
			return stores{}, err
		}
	}
	return stores{
		config:       configRepo,
		notices:      noticeRepo,
		devices:      deviceRepo,
		programs:     programRepo,
		transactions: transactionRepo,
		processed:    processedStore,
		dlq:          dlqStore,
	}, nil
}

type config struct {
	HTTPAddr                 string
	DatabaseURL              string
	SnapshotPath             string
	InstanceID               string
	KafkaBrokers             []string
	KafkaTopic               string
	ConfigCacheTTL           time.Duration
	ShutdownTimeout          time.Duration
	ScheduleEnabled          bool
	IngestOnStart            bool
	SeedDevices              bool
	NoticeWebhookURL         string
	NoticeNotifyTemplate     string
	NoticeNotifyMinSeverity  string
	NoticeNotifyDedupeWindow time.Duration
}

func loadConfig() config {
	hostname, _ := os.Hostname()
	return config{
		HTTPAddr:                 getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:              getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		SnapshotPath:             getenvDefault("SNAPSHOT_PATH", "data/processed/transformed_data.json"),
		InstanceID:               getenvDefault("INSTANCE_ID", hostname),
		KafkaBrokers:             splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:               getenvDefault("KAFKA_TOPIC", "energy-square.events"),
		ConfigCacheTTL:           getenvDuration("CONFIG_CACHE_TTL", 30*time.Second),
		ShutdownTimeout:          getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		ScheduleEnabled:          getenvBoolDefault("INGEST_SCHEDULE_ENABLED", true),
		IngestOnStart:            getenvBoolDefault("INGEST_ON_START", true),
		SeedDevices:              getenvBoolDefault("SEED_SAMPLE_USERS", true),
		NoticeWebhookURL:         getenvDefault("NOTICE_WEBHOOK_URL", ""),
		NoticeNotifyTemplate:     getenvDefault("NOTICE_NOTIFY_TEMPLATE", ""),
		NoticeNotifyMinSeverity:  getenvDefault("NOTICE_NOTIFY_MIN_SEVERITY", "high"),
		NoticeNotifyDedupeWindow: getenvDuration("NOTICE_NOTIFY_DEDUPE_WINDOW", 10*time.Minute),
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
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
