package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage/internal/auth"
	"github.com/ukydev/garage/internal/config"
	"github.com/ukydev/garage/internal/db"
	"github.com/ukydev/garage/internal/fleet"
	"github.com/ukydev/garage/internal/handlers"
	"github.com/ukydev/garage/internal/middleware"
	"github.com/ukydev/garage/internal/notify"
)

const (
	noticeHistory   = 200
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	cfg.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Garage API stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer client.Disconnect(context.Background())
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	database := client.Database(cfg.MongoDB)
	users := &db.MongoUserCollection{Collection: database.Collection("users")}
	if err := users.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("Failed to create user indexes")
	}
	vehicles := &db.MongoCollection{Collection: database.Collection("vehicles")}

	recorder := notify.NewRecorder(noticeHistory)
	sink, closeSink := buildSink(cfg, recorder)
	defer closeSink()

	garageFleet := fleet.New(vehicles, sink, fleet.WithPersistTimeout(cfg.PersistTimeout))
	if err := garageFleet.Load(ctx); err != nil {
		return err
	}

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return err
	}
	authHandler := handlers.NewAuthHandler(authService, users)
	if cfg.BootstrapOwner() {
		if err := authHandler.EnsureOwner(ctx, cfg.OwnerUsername, cfg.OwnerEmail, cfg.OwnerPassword); err != nil {
			return err
		}
	}

	limiter := middleware.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst,
		middleware.TrustProxyHeaders(cfg.TrustProxy))
	go sweepLimiter(ctx, limiter, sweepInterval)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handlers.NewRouter(
			authHandler,
			handlers.NewVehicleHandler(garageFleet, recorder),
			middleware.NewAuthMiddleware(authService),
			limiter,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv)
}

// buildSink always logs and records notices; MQTT is added when configured
// and reachable.
func buildSink(cfg *config.Config, recorder *notify.Recorder) (notify.Sink, func()) {
	sinks := notify.Multi{notify.LogSink{}, recorder}
	if !cfg.MQTTEnabled() {
		return sinks, func() {}
	}

	mq, err := notify.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
	if err != nil {
		log.WithError(err).WithField("broker", cfg.MQTTBroker).Warn("MQTT unavailable, continuing without it")
		return sinks, func() {}
	}
	log.WithFields(log.Fields{"broker": cfg.MQTTBroker, "prefix": cfg.MQTTTopicPrefix}).Info("Publishing notices to MQTT")
	return append(sinks, mq), mq.Close
}

func sweepLimiter(ctx context.Context, limiter *middleware.RateLimitMiddleware, every time.Duration) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			if n := limiter.Sweep(now); n > 0 {
				log.WithField("clients", n).Debug("Dropped idle rate limiters")
			}
		}
	}
}

// serve runs srv until it fails or ctx is cancelled, then shuts it down
// gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
