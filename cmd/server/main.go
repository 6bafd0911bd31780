package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/auth"
	"github.com/ukydev/fleet-ops/internal/config"
	"github.com/ukydev/fleet-ops/internal/db"
	"github.com/ukydev/fleet-ops/internal/events"
	"github.com/ukydev/fleet-ops/internal/handlers"
	"github.com/ukydev/fleet-ops/internal/logging"
	"github.com/ukydev/fleet-ops/internal/storage"
	"github.com/ukydev/fleet-ops/internal/trips"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("MongoDB disconnect failed")
		}
	}()
	log.Info("Connected to MongoDB successfully")

	database := client.Database(cfg.MongoDB)
	store := db.NewStore(database)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.WithError(err).Warn("Failed to create indexes")
	}
	cancel()

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		log.Fatalf("Failed to create auth service: %v", err)
	}
	if cfg.AdminPassword != "" {
		if err := authService.ValidatePassword(cfg.AdminPassword); err != nil {
			log.Fatalf("Invalid ADMIN_PASSWORD: %v", err)
		}
	}
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureAdmin(ctx, store.Users, authService, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}
	cancel()

	receipts, err := storage.NewLocalStore(cfg.ReceiptsDir)
	if err != nil {
		log.Fatalf("Failed to prepare receipts directory: %v", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.MQTTBroker != "" {
		mqttPublisher, err := events.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			log.WithError(err).Warn("MQTT unavailable, trip events disabled")
		} else {
			publisher = mqttPublisher
		}
	}
	defer publisher.Close()

	tripService := trips.NewService(trips.Deps{
		Trips:          store.Trips,
		Expenses:       store.Expenses,
		DriverPayments: store.DriverPayments,
		Vehicles:       store.Vehicles,
		Audit:          store.Audit,
		Receipts:       receipts,
		Events:         publisher,
	})

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:    authService,
		Users:   store.Users,
		Trips:   tripService,
		Reports: store.Reports,
		Audit:   store.Audit,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
		AlertDueSoon:    cfg.AlertDueSoon,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
