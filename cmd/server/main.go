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

	fulfillmentapp "github.com/shopkart/fulfillment/internal/application/fulfillment"
	"github.com/shopkart/fulfillment/internal/infrastructure/cache"
	"github.com/shopkart/fulfillment/internal/infrastructure/carrier"
	"github.com/shopkart/fulfillment/internal/infrastructure/config"
	"github.com/shopkart/fulfillment/internal/infrastructure/logger"
	"github.com/shopkart/fulfillment/internal/infrastructure/persistence"
	"github.com/shopkart/fulfillment/internal/interfaces/http/handler"
	"github.com/shopkart/fulfillment/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(cfg.Log)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting fulfillment service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("carrier_enabled", cfg.Carrier.Enabled),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.AutoMigrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected")

	// Token store: Redis when reachable so all instances share one carrier
	// session. Outside production an in-memory store is an acceptable
	// fallback; in production Redis is required.
	tokenStore, err := cache.NewTokenStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create carrier token store", zap.Error(err))
	}

	orderRepo := persistence.NewGormOrderRepository(db.DB)
	auditLogger := persistence.NewGormAuditLogger(db.DB)

	carrierConfig := &carrier.Config{
		Email:          cfg.Carrier.Email,
		Password:       cfg.Carrier.Password,
		BaseURL:        cfg.Carrier.BaseURL,
		AuthURL:        cfg.Carrier.AuthURL,
		CreateOrderURL: cfg.Carrier.CreateOrderURL,
		TimeoutSeconds: cfg.Carrier.TimeoutSeconds,
	}

	var fulfillmentService *fulfillmentapp.Service
	if cfg.Carrier.Enabled {
		tokenManager, err := carrier.NewTokenManager(carrierConfig, tokenStore, log)
		if err != nil {
			log.Fatal("Invalid carrier configuration", zap.Error(err))
		}
		carrierClient, err := carrier.NewClient(carrierConfig, tokenManager, log)
		if err != nil {
			log.Fatal("Failed to create carrier client", zap.Error(err))
		}
		rateCalculator := carrier.NewRateCalculator(carrierClient, cfg.Shipping.PickupPincode, log)

		fulfillmentService = fulfillmentapp.NewService(
			orderRepo, auditLogger, carrierClient, rateCalculator,
			true, cfg.Shipping, log)
	} else {
		// Fail closed: attempts are recorded as failures until the
		// integration is switched on.
		log.Warn("Carrier integration is disabled, shipment attempts will fail closed")
		fulfillmentService = fulfillmentapp.NewService(
			orderRepo, auditLogger, nil, nil,
			false, cfg.Shipping, log)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		logger.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
	)

	handler.NewHealthHandler(db, version).Register(engine)
	router.NewRouter(engine).
		Register(handler.NewFulfillmentHandler(fulfillmentService)).
		Setup()

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
