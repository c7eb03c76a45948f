package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	costingapp "github.com/sellerpnl/backend/internal/application/costing"
	financeapp "github.com/sellerpnl/backend/internal/application/finance"
	reportapp "github.com/sellerpnl/backend/internal/application/report"
	"github.com/sellerpnl/backend/internal/domain/report"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/infrastructure/cache"
	"github.com/sellerpnl/backend/internal/infrastructure/config"
	"github.com/sellerpnl/backend/internal/infrastructure/event"
	"github.com/sellerpnl/backend/internal/infrastructure/lock"
	"github.com/sellerpnl/backend/internal/infrastructure/logger"
	"github.com/sellerpnl/backend/internal/infrastructure/persistence"
	"github.com/sellerpnl/backend/internal/infrastructure/persistence/memory"
	"github.com/sellerpnl/backend/internal/infrastructure/scheduler"
	"github.com/sellerpnl/backend/internal/infrastructure/storage"
	"github.com/sellerpnl/backend/internal/infrastructure/strategy"
	"github.com/sellerpnl/backend/internal/infrastructure/telemetry"
	"github.com/sellerpnl/backend/internal/interfaces/http/handler"
	"github.com/sellerpnl/backend/internal/interfaces/http/middleware"
	"github.com/sellerpnl/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// backend is the storage wiring shared by the costing and report services
type backend struct {
	scope        costingapp.TransactionScope
	repos        costingapp.TransactionalRepositories
	reportRepos  reportapp.Repositories
	healthChecks map[string]handler.HealthChecker
	close        func() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting seller P&L backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	businessMetrics, err := telemetry.NewBusinessMetrics(mp.Meter(telemetry.TracerName))
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open storage", zap.Error(err))
	}
	defer func() {
		if err := be.close(); err != nil {
			log.Error("Error closing storage", zap.Error(err))
		}
	}()

	locker, closeLocker, err := lock.NewFactory(cfg.Costing, cfg.Redis,
		lock.WithLogger(log),
		lock.WithInMemoryFallback(cfg.App.Env != "production"),
	).Create()
	if err != nil {
		log.Fatal("Failed to create product locker", zap.Error(err))
	}
	defer func() {
		if err := closeLocker(); err != nil {
			log.Error("Error closing locker", zap.Error(err))
		}
	}()

	strategies, err := strategy.NewRegistryWithDefaults()
	if err != nil {
		log.Fatal("Failed to register strategies", zap.Error(err))
	}
	costStrategy, allocationStrategy, err := strategies.Select(cfg.Costing.CostStrategy, cfg.Report.AllocationStrategy)
	if err != nil {
		log.Fatal("Failed to resolve strategies", zap.Error(err))
	}
	log.Info("Strategies selected",
		zap.String("cost", costStrategy.Name()),
		zap.String("allocation", allocationStrategy.Name()),
	)

	// Application services
	costingService := costingapp.NewCostingService(
		be.scope,
		be.repos,
		be.reportRepos.Stores,
		locker,
		costStrategy,
		costingapp.Options{
			MaxConflictRetries: cfg.Costing.MaxConflictRetries,
			MaxReplayDays:      cfg.Costing.MaxReplayDays,
		},
		log.Named("costing"),
	)
	costingService.SetBusinessMetrics(businessMetrics)
	purchaseOrderService := costingapp.NewPurchaseOrderService(be.repos.PurchaseOrderRepo(), be.reportRepos.Stores, costingService, log.Named("purchase_order"))

	bus := event.NewInMemoryEventBus(log.Named("events"))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	purchaseOrderService.SetEventPublisher(bus)

	aggregator := reportapp.NewPeriodAggregator(
		be.reportRepos,
		report.NewDistributor(allocationStrategy),
		reportapp.Options{
			CargoInvoiceGraceDays: cfg.Report.CargoInvoiceGraceDays,
			DefaultLocation:       cfg.Report.Location(),
			MaxParallelBuckets:    cfg.Report.MaxParallelBuckets,
			MaxBuckets:            cfg.Report.MaxBuckets,
		},
		log.Named("report"),
	)
	aggregator.SetBusinessMetrics(businessMetrics)
	composer := reportapp.NewMultiPeriodComposer(aggregator)
	referenceService := reportapp.NewReferenceService(be.reportRepos, log.Named("report"))

	refreshHour, refreshMinute, err := scheduler.ParseCronSchedule(cfg.Report.RefreshCron)
	if err != nil {
		log.Fatal("Invalid report.refresh_cron", zap.Error(err))
	}
	refreshConfig := scheduler.DefaultReferenceRefreshConfig()
	refreshConfig.Enabled = cfg.Report.RefreshEnabled
	refreshConfig.CronHour, refreshConfig.CronMinute = refreshHour, refreshMinute
	refreshScheduler := scheduler.NewReferenceRefreshScheduler(refreshConfig, be.reportRepos.Stores, referenceService, log.Named("scheduler"))
	if err := refreshScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start reference refresh scheduler", zap.Error(err))
	}

	// Handlers
	reportHandler := handler.NewReportHandler(aggregator, composer, referenceService)
	costingHandler := handler.NewCostingHandler(costingService)
	purchaseOrderHandler := handler.NewPurchaseOrderHandler(purchaseOrderService)
	importService := financeapp.NewInvoiceImportService(
		be.reportRepos.Stores, be.reportRepos.Invoices, cfg.Import.MaxRows, log.Named("import"),
	)
	if cfg.Storage.Enabled {
		archive, err := openArchive(ctx, &cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to open upload archive", zap.Error(err))
		}
		importService.SetArchive(archive)
		be.healthChecks["storage"] = archive
	}
	invoiceHandler := handler.NewInvoiceHandler(importService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)
	for _, base := range []*handler.BaseHandler{
		&reportHandler.BaseHandler,
		&costingHandler.BaseHandler,
		&purchaseOrderHandler.BaseHandler,
		&invoiceHandler.BaseHandler,
		&systemHandler.BaseHandler,
	} {
		base.Logger = log
	}
	for name, check := range be.healthChecks {
		systemHandler.AddCheck(name, check)
	}

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Costing.LockBackend, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	engine := newEngine(cfg, log)
	engine.Use(middleware.Idempotency(idempotencyStore, cfg.HTTP.IdempotencyTTL, log))
	router.Mount(engine, router.Handlers{
		Report:        reportHandler,
		Costing:       costingHandler,
		PurchaseOrder: purchaseOrderHandler,
		Invoice:       invoiceHandler,
		System:        systemHandler,
	}, router.WithAPIVersion("v1"))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := refreshScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping reference refresh scheduler", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}

	log.Info("Server exited")
}

// newEngine builds the gin engine with the global middleware chain
func newEngine(cfg *config.Config, log *zap.Logger) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes, middleware.RouteBodyLimit{
		Suffix:   router.InvoiceImportPath,
		MaxBytes: cfg.Import.MaxFileBytes,
	}))
	return engine
}

// openArchive connects the upload archive and creates its bucket
func openArchive(ctx context.Context, cfg *config.StorageConfig, log *zap.Logger) (*storage.S3Archive, error) {
	archive, err := storage.NewS3Archive(cfg, storage.WithLogger(log.Named("storage")))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("Upload archive ready", zap.String("bucket", archive.Bucket()))
	return archive, nil
}

// openBackend connects the configured storage driver. The memory driver seeds one
// store so a development server is usable without a database.
func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error) {
	if cfg.Database.Driver == "memory" {
		mem := memory.New()
		store, err := seller.NewStore(cfg.App.Name, cfg.Report.DefaultTimezone)
		if err != nil {
			return nil, err
		}
		if err := mem.Stores().Save(ctx, store); err != nil {
			return nil, err
		}
		log.Warn("Using in-memory storage; data is lost on exit",
			zap.String("store_id", store.ID.String()),
		)
		return &backend{
			scope: mem,
			repos: mem.Repositories(),
			reportRepos: reportapp.Repositories{
				Stores:     mem.Stores(),
				Orders:     mem.Orders(),
				Returns:    mem.Returns(),
				Invoices:   mem.Invoices(),
				Expenses:   mem.Expenses(),
				References: mem.References(),
				AdMetrics:  mem.AdMetrics(),
				Lots:       mem.Lots(),
			},
			healthChecks: map[string]handler.HealthChecker{},
			close:        func() error { return nil },
		}, nil
	}

	db, err := persistence.NewDatabase(&cfg.Database, log.Named("gorm"), logger.GormLevel(cfg.Log.Level))
	if err != nil {
		return nil, err
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// postgres schemas come from cmd/migrate
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterGormTracing(db.DB, cfg.Database.DBName); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &backend{
		scope: persistence.NewGormTransactionScope(db.DB),
		repos: persistence.NewGormTransactionalRepositories(db.DB),
		reportRepos: reportapp.Repositories{
			Stores:     persistence.NewGormStoreRepository(db.DB),
			Orders:     persistence.NewGormOrderRepository(db.DB),
			Returns:    persistence.NewGormReturnClaimRepository(db.DB),
			Invoices:   persistence.NewGormInvoiceRepository(db.DB),
			Expenses:   persistence.NewGormExpenseRepository(db.DB),
			References: persistence.NewGormProductReferenceRepository(db.DB),
			AdMetrics:  persistence.NewGormAdMetricRepository(db.DB),
			Lots:       persistence.NewGormCostLotRepository(db.DB),
		},
		healthChecks: map[string]handler.HealthChecker{
			"database": handler.HealthCheckFunc(func(context.Context) error { return db.Ping() }),
		},
		close: db.Close,
	}, nil
}
