package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/chemstock/chemstock/internal/alerts"
	"github.com/chemstock/chemstock/internal/app"
	"github.com/chemstock/chemstock/internal/auth"
	"github.com/chemstock/chemstock/internal/authz"
	"github.com/chemstock/chemstock/internal/invoices"
	"github.com/chemstock/chemstock/internal/masterdata/locations"
	"github.com/chemstock/chemstock/internal/masterdata/suppliers"
	"github.com/chemstock/chemstock/internal/movements"
	"github.com/chemstock/chemstock/internal/notifications"
	"github.com/chemstock/chemstock/internal/observability"
	"github.com/chemstock/chemstock/internal/platform/cache"
	"github.com/chemstock/chemstock/internal/platform/db"
	"github.com/chemstock/chemstock/internal/platform/migrate"
	"github.com/chemstock/chemstock/internal/platform/storage"
	"github.com/chemstock/chemstock/internal/products"
	"github.com/chemstock/chemstock/internal/reports"
	"github.com/chemstock/chemstock/internal/shared"
	"github.com/chemstock/chemstock/internal/users"
	"github.com/chemstock/chemstock/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := migrate.Up(cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	docStore, err := storage.New(ctx, storage.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		logger.Error("connect minio", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "chemstock_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	authzRepo := authz.NewRepository(pool)
	authzCache := authz.NewStateCache(redisClient, cfg.AuthzCacheTTL)
	authzService := authz.NewService(authzRepo, authzCache, logger)
	authzMiddleware := authz.Middleware{Service: authzService, Logger: logger}
	authzHandler := authz.NewHandler(logger, authzService, auditLogger, authzMiddleware)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, authzService)
	usersHandler := users.NewHandler(logger, usersService, authzMiddleware, auditLogger)

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo, auditLogger)
	productsHandler := products.NewHandler(logger, productsService, authzMiddleware)

	invoicesRepo := invoices.NewRepository(pool)
	invoicesService := invoices.NewService(invoicesRepo, docStore, auditLogger)
	invoicesHandler := invoices.NewHandler(logger, invoicesService, authzMiddleware)

	movementsRepo := movements.NewRepository(pool)
	movementsService := movements.NewService(movementsRepo, auditLogger, idempotencyStore)
	movementsHandler := movements.NewHandler(logger, movementsService, authzMiddleware)

	suppliersService := suppliers.NewService(suppliers.NewRepository(pool))
	suppliersHandler := suppliers.NewHandler(logger, suppliersService, authzMiddleware)

	locationsService := locations.NewService(locations.NewRepository(pool))
	locationsHandler := locations.NewHandler(logger, locationsService, authzMiddleware)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	notificationsRepo := notifications.NewRepository(pool)
	notificationsService := notifications.NewService(notificationsRepo, jobClient, logger)
	notificationsHandler := notifications.NewHandler(logger, notificationsService)

	alertsRepo := alerts.NewRepository(pool)
	alertsService := alerts.NewService(alertsRepo, productsService, notificationsService, redisClient, logger, alerts.Thresholds{
		ExpiryDays: cfg.ExpiryDaysDefault,
		LowStock:   float64(cfg.LowStockDefault),
	})
	alertsHandler := alerts.NewHandler(logger, alertsService, authzMiddleware)

	reportsService := reports.NewService(reports.NewRepository(pool), redisClient, logger)
	reportsHandler := reports.NewHandler(logger, reportsService, authzMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		AuthHandler:          authHandler,
		AuthzHandler:         authzHandler,
		UsersHandler:         usersHandler,
		ProductsHandler:      productsHandler,
		InvoicesHandler:      invoicesHandler,
		MovementsHandler:     movementsHandler,
		SuppliersHandler:     suppliersHandler,
		LocationsHandler:     locationsHandler,
		AlertsHandler:        alertsHandler,
		NotificationsHandler: notificationsHandler,
		ReportsHandler:       reportsHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
