package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	appcatalog "github.com/storefront/fulfillment/internal/application/catalog"
	"github.com/storefront/fulfillment/internal/application/checkout"
	appinventory "github.com/storefront/fulfillment/internal/application/inventory"
	"github.com/storefront/fulfillment/internal/application/notification"
	apporder "github.com/storefront/fulfillment/internal/application/order"
	appshipping "github.com/storefront/fulfillment/internal/application/shipping"
	"github.com/storefront/fulfillment/internal/application/webhook"
	"github.com/storefront/fulfillment/internal/domain/shipping"
	"github.com/storefront/fulfillment/internal/infrastructure/auth"
	"github.com/storefront/fulfillment/internal/infrastructure/billing"
	"github.com/storefront/fulfillment/internal/infrastructure/cache"
	"github.com/storefront/fulfillment/internal/infrastructure/carrier"
	"github.com/storefront/fulfillment/internal/infrastructure/config"
	"github.com/storefront/fulfillment/internal/infrastructure/event"
	"github.com/storefront/fulfillment/internal/infrastructure/logger"
	"github.com/storefront/fulfillment/internal/infrastructure/mailer"
	"github.com/storefront/fulfillment/internal/infrastructure/migration"
	"github.com/storefront/fulfillment/internal/infrastructure/persistence"
	"github.com/storefront/fulfillment/internal/infrastructure/scheduler"
	"github.com/storefront/fulfillment/internal/infrastructure/storage"
	"github.com/storefront/fulfillment/internal/infrastructure/telemetry"
	"github.com/storefront/fulfillment/internal/interfaces/http/handler"
	"github.com/storefront/fulfillment/internal/interfaces/http/middleware"
	"github.com/storefront/fulfillment/internal/interfaces/http/router"
	"github.com/storefront/fulfillment/migrations"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	shutdownTimeout     = 30 * time.Second
	startupProbeTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() { _ = log.Sync() }()

	log.Info("Starting fulfillment service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = telemetry.BridgeLogger(log, lp, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.PyroscopeAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.PyroscopeUser,
		BasicAuthPassword: cfg.Telemetry.PyroscopePassword,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tp.EnableSpanProfiles()
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	var (
		httpMeter metric.Meter
		metrics   *telemetry.FulfillmentMetrics
	)
	if mp.IsEnabled() {
		httpMeter = mp.Meter("http.server")
		metrics, err = telemetry.NewFulfillmentMetrics(mp.Meter("fulfillment"), log)
		if err != nil {
			log.Fatal("Failed to register fulfillment metrics", zap.Error(err))
		}
	}

	// Database
	if cfg.Database.AutoMigrate {
		if err := migrateSchema(&cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis backed state, with in-memory fallbacks outside production
	cacheFactory := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	if err := cacheFactory.Connect(ctx); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	redisClient := cacheFactory.Client()

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	}

	// Event bus, forwarded to Kafka when brokers are configured
	eventBus := event.NewInMemoryEventBus(log)
	if cfg.Kafka.Enabled() {
		forwarder := event.NewKafkaForwarder(
			event.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic),
			event.NewEventSerializer(),
			log,
		)
		eventBus.Subscribe(forwarder)
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Error("Error closing Kafka writer", zap.Error(err))
			}
		}()
		log.Info("Forwarding domain events to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	stockRepo := persistence.NewGormStockRepository(db.DB)
	inventoryTxRepo := persistence.NewGormInventoryTransactionRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)

	// Integrations
	gateway, err := billing.NewStripeAdapter(&billing.StripeConfig{
		SecretKey:       cfg.Stripe.SecretKey,
		DefaultCurrency: cfg.Stripe.Currency,
		SuccessURL:      cfg.Stripe.SuccessURL,
		CancelURL:       cfg.Stripe.CancelURL,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize Stripe", zap.Error(err))
	}

	rates, carriers := newRateProvider(ctx, cfg, log)

	var fetcher webhook.ShipmentFetcher
	if cfg.ShipStation.APIKey != "" && cfg.ShipStation.APISecret != "" {
		ss, err := carrier.NewShipStationAdapter(&carrier.ShipStationConfig{
			APIKey:    cfg.ShipStation.APIKey,
			APISecret: cfg.ShipStation.APISecret,
			BaseURL:   cfg.ShipStation.BaseURL,
			Timeout:   cfg.ShipStation.Timeout,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize ShipStation", zap.Error(err))
		}
		fetcher = ss
	} else {
		log.Warn("ShipStation credentials not set, SHIP_NOTIFY resource urls will not be fetched")
	}

	var archiver webhook.LabelArchiver
	if cfg.Storage.Enabled() {
		store, err := storage.NewS3LabelStore(ctx, cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize label storage", zap.Error(err))
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Warn("Label bucket check failed", zap.String("bucket", store.Bucket()), zap.Error(err))
		}
		archiver = store
	}

	mail, err := mailer.New(cfg.Email, log)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}

	// Application services
	ledger := appinventory.NewLedgerService(stockRepo, inventoryTxRepo, orderRepo, log)
	expiry := appinventory.NewReservationExpiryService(orderRepo, ledger, eventBus, log)
	expiry.SetBatchSize(cfg.Sweeper.BatchSize)
	saleWindows := appcatalog.NewSaleWindowService(productRepo, log)

	quotes := appshipping.NewQuoteService(productRepo, rates, appshipping.Config{
		Planner:          cfg.Shipping.PlannerConfig(),
		Formula:          cfg.Shipping.RateFormula(),
		ShipFrom:         cfg.Shipping.ShipFrom,
		CarrierIDs:       cfg.ShipEngine.CarrierIDs,
		CarrierID:        cfg.ShipEngine.CarrierID,
		FallbackCarriers: carriers,
		RateTimeout:      cfg.ShipEngine.Timeout,
	}, log)

	checkoutService := checkout.NewCheckoutService(productRepo, quotes, orderRepo, ledger, gateway, checkout.Config{
		Currency:       cfg.Stripe.Currency,
		ReservationTTL: cfg.Stripe.ReservationTTL,
		SuccessURL:     cfg.Stripe.SuccessURL,
		CancelURL:      cfg.Stripe.CancelURL,
	}, log)
	checkoutService.SetEventPublisher(eventBus)

	orderService := apporder.NewOrderService(orderRepo, ledger, log)
	orderService.SetEventPublisher(eventBus)

	confirmations := notification.NewConfirmationService(mail, cfg.Email.StoreName, log)

	webhookConfig := webhook.CheckoutWebhookServiceConfig{
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		OrderRepo:      orderRepo,
		CustomerRepo:   customerRepo,
		InvoiceRepo:    invoiceRepo,
		Gateway:        gateway,
		Ledger:         ledger,
		Expiry:         expiry,
		Idempotency:    cacheFactory.IdempotencyStore(),
		IdempotencyTTL: cfg.Webhook.IdempotencyTTL,
		Locker:         cacheFactory.KeyedLocker(cfg.Webhook.LockTTL),
		Confirmations:  confirmations,
		EventPublisher: eventBus,
		Logger:         log,
	}
	shipNotify := webhook.NewShipStationWebhookService(cfg.ShipStation.WebhookSecret, orderRepo, fetcher, archiver, log)
	shipNotify.SetEventPublisher(eventBus)
	tracking := webhook.NewTrackingWebhookService(cfg.Tracker.WebhookSecret, orderRepo, log)
	tracking.SetEventPublisher(eventBus)

	if metrics != nil {
		ledger.SetRecorder(metrics)
		quotes.SetRecorder(metrics)
		shipNotify.SetRecorder(metrics)
		tracking.SetRecorder(metrics)
		webhookConfig.Recorder = metrics
	}
	payments := webhook.NewCheckoutWebhookService(webhookConfig)

	// Background jobs
	var runner *scheduler.Runner
	if cfg.Sweeper.Enabled {
		runner = scheduler.NewRunner(scheduler.RunnerConfig{JobTimeout: cfg.Sweeper.JobTimeout}, log)
		if metrics != nil {
			runner.SetObserver(metrics)
		}
		if err := registerJobs(runner, cfg.Sweeper, saleWindows, expiry, log); err != nil {
			log.Fatal("Failed to register background jobs", zap.Error(err))
		}
		if err := runner.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
	}

	// HTTP
	jwtService := auth.NewJWTService(cfg.JWT)
	admin := auth.NewAdminAuthenticator(cfg.JWT.AdminUsername, cfg.JWT.AdminPasswordHash)
	if !admin.Enabled() {
		log.Warn("Admin password hash not set, token issuance is disabled")
	}

	checks := []handler.HealthCheck{{Name: "database", Check: db.Ping}}
	if redisClient != nil {
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	engine, err := router.NewEngine(router.Options{
		Logger:      log,
		HTTP:        cfg.HTTP,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     tp.IsEnabled(),
		Meter:       httpMeter,
		JWT: middleware.JWTMiddlewareConfig{
			JWTService: jwtService,
			Blacklist:  blacklist,
			Logger:     log,
		},
		Security: middleware.DefaultSecurityConfig(),
	}, router.Handlers{
		System:   handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, log, checks...),
		Auth:     handler.NewAuthHandler(jwtService, admin, blacklist, log),
		Shipping: handler.NewShippingHandler(quotes, log),
		Checkout: handler.NewCheckoutHandler(checkoutService, log),
		Order:    handler.NewOrderHandler(orderService, log),
		Webhook:  handler.NewWebhookHandler(payments, shipNotify, tracking, log),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if runner != nil {
		if err := runner.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracing", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}

	log.Info("Server exited")
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down log export", zap.Error(err))
	}
}

// migrateSchema applies the embedded migrations on a dedicated connection;
// the migrate driver closes the *sql.DB it is given.
func migrateSchema(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

// newRateProvider builds the ShipEngine client and loads the carrier accounts
// used when neither the request nor the configuration names carriers. Without
// an api key every quote is priced by the formula.
func newRateProvider(ctx context.Context, cfg *config.Config, log *zap.Logger) (shipping.RateProvider, []shipping.CarrierAccount) {
	if cfg.ShipEngine.APIKey == "" {
		log.Warn("ShipEngine api key not set, quotes use the rate formula only")
		return nil, nil
	}

	adapter, err := carrier.NewShipEngineAdapter(&carrier.ShipEngineConfig{
		APIKey:          cfg.ShipEngine.APIKey,
		BaseURL:         cfg.ShipEngine.BaseURL,
		Timeout:         cfg.ShipEngine.Timeout,
		RequestsPerSec:  cfg.ShipEngine.RequestsPerSec,
		CarrierCacheTTL: cfg.ShipEngine.CarrierCacheTTL,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize ShipEngine", zap.Error(err))
	}

	listCtx, cancel := context.WithTimeout(ctx, startupProbeTimeout)
	defer cancel()
	carriers, err := adapter.ListCarriers(listCtx)
	if err != nil {
		log.Warn("Failed to list ShipEngine carriers", zap.Error(err))
	}
	return adapter, carriers
}

func registerJobs(
	runner *scheduler.Runner,
	cfg config.SweeperConfig,
	saleWindows *appcatalog.SaleWindowService,
	expiry *appinventory.ReservationExpiryService,
	log *zap.Logger,
) error {
	for _, job := range []scheduler.Job{
		scheduler.SaleFlagJob(saleWindows, cfg.SaleInterval, log),
		scheduler.ReservationSweepJob(expiry, cfg.ReservationInterval, log),
	} {
		run, name := job.Run, job.Name
		job.Run = func(ctx context.Context) error {
			return telemetry.WithJobLabel(ctx, name, run)
		}
		if err := runner.Register(job); err != nil {
			return err
		}
	}
	return nil
}
