package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	billingapp "github.com/gestionet/backend/internal/application/billing"
	partnerapp "github.com/gestionet/backend/internal/application/partner"
	"github.com/gestionet/backend/internal/application/verisync"
	"github.com/gestionet/backend/internal/infrastructure/config"
	"github.com/gestionet/backend/internal/infrastructure/logger"
	"github.com/gestionet/backend/internal/infrastructure/persistence"
	"github.com/gestionet/backend/internal/infrastructure/verifactu"
	"github.com/gestionet/backend/internal/interfaces/http/handler"
	"github.com/gestionet/backend/internal/interfaces/http/middleware"
	"github.com/gestionet/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Gestionet backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("verifactu_mode", string(cfg.Verifactu.Mode())),
	)

	// Create GORM logger backed by zap
	zapLevel, parseErr := zapcore.ParseLevel(cfg.Log.Level)
	if parseErr != nil {
		zapLevel = zapcore.InfoLevel
	}
	gormLog := logger.NewGormLogger(log).LogMode(logger.MapGormLogLevel(zapLevel))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Initialize repositories
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)

	// Tax authority gateway: live client or simulator, decided by config
	gateway := verifactu.New(&cfg.Verifactu, log)
	orchestrator := verisync.NewOrchestrator(customerRepo, invoiceRepo, gateway, log)

	// Background poller for invoices awaiting a verdict
	poller := verisync.NewPoller(invoiceRepo, orchestrator, cfg.Verifactu.PollInterval, log)
	pollCtx, stopPolling := context.WithCancel(context.Background())
	poller.Start(pollCtx)
	defer func() {
		stopPolling()
		poller.Stop()
	}()

	// Initialize application services
	customerService := partnerapp.NewCustomerService(customerRepo, orchestrator, log)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, customerRepo, orchestrator, log)

	// Setup gin engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))

	// Register routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewCustomerHandler(customerService)).
		Register(handler.NewInvoiceHandler(invoiceService)).
		Register(handler.NewFiscalHandler()).
		Register(handler.NewHealthHandler(db, gateway.Simulated()))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopPolling()
	poller.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
