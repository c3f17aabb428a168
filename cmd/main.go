package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-rental/internal/auth"
	"github.com/ukydev/vehicle-rental/internal/config"
	"github.com/ukydev/vehicle-rental/internal/db"
	"github.com/ukydev/vehicle-rental/internal/events"
	"github.com/ukydev/vehicle-rental/internal/handlers"
	"github.com/ukydev/vehicle-rental/internal/lock"
	"github.com/ukydev/vehicle-rental/internal/middleware"
	rentalredis "github.com/ukydev/vehicle-rental/internal/redis"
	"github.com/ukydev/vehicle-rental/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.Log)
	if err := checkJWTSecret(cfg.JWT, logger); err != nil {
		logger.WithError(err).Fatal("Refusing to start")
	}

	ctx := context.Background()

	nrApp := newRelicApp(cfg.NewRelic, logger)
	if nrApp != nil {
		defer nrApp.Shutdown(5 * time.Second)
	}

	client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()
	database := client.Database(cfg.Mongo.Database)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		logger.WithError(err).Fatal("Failed to create indexes")
	}
	logger.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")

	store := service.Store{
		Vehicles:  &db.MongoVehicleCollection{Collection: database.Collection(db.VehiclesCollection)},
		Locations: &db.MongoLocationCollection{Collection: database.Collection(db.LocationsCollection)},
		Bookings:  &db.MongoBookingCollection{Collection: database.Collection(db.BookingsCollection)},
	}

	var locker lock.Locker = lock.NewKeyedMutex(cfg.Lock.Wait)
	var responses middleware.ResponseCache
	if cfg.Redis.Enabled() {
		redisClient, err := rentalredis.NewClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisClient.Close()
		locker = rentalredis.NewLockStore(redisClient, cfg.Lock.TTL, cfg.Lock.Wait)
		responses = rentalredis.NewResponseStore(redisClient)
		logger.WithField("addr", cfg.Redis.Addr).Info("Using Redis for vehicle locks and idempotency keys")
	} else {
		logger.Warn("REDIS_ADDR not set, vehicle locks are process-local")
	}

	publisher := newPublisher(cfg.MQTT, logger)
	defer publisher.Close()

	authService := auth.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	router := handlers.NewRouter(handlers.RouterConfig{
		Bookings:      service.NewBookingService(store, locker, publisher, logger),
		Vehicles:      service.NewVehicleService(store, locker, logger),
		Locations:     service.NewLocationService(store, locker, logger),
		Auth:          middleware.NewAuthMiddleware(authService),
		RateLimiter:   middleware.NewRateLimitMiddleware(),
		QuoteLimit:    cfg.Quote.RateLimit,
		QuoteWindow:   cfg.Quote.RateWindow,
		ResponseCache: responses,
		CORSOrigins:   cfg.Server.CORSOrigins,
		NewRelic:      nrApp,
		Ping:          pinger(client),
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-stop
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

// checkJWTSecret fails when tokens would be signed with the public default
// secret, unless JWT_ALLOW_DEFAULT_SECRET opts in for local use.
func checkJWTSecret(cfg config.JWTConfig, logger log.FieldLogger) error {
	if !cfg.UsesDefaultSecret() {
		return nil
	}
	if !cfg.AllowDefaultSecret {
		return errors.New("JWT_SECRET is unset or uses the default value; set it or JWT_ALLOW_DEFAULT_SECRET=true")
	}
	logger.Warn("JWT_SECRET uses the default value, anyone can mint tokens")
	return nil
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
// Unknown levels fall back to info.
func newLogger(cfg config.LogConfig) *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stdout)
	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// newRelicApp starts the New Relic agent when enabled and licensed.
func newRelicApp(cfg config.NewRelicConfig, logger log.FieldLogger) *newrelic.Application {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return nil
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		logger.WithError(err).Warn("New Relic disabled")
		return nil
	}
	return app
}

// newPublisher connects to the MQTT broker. Without a broker, or when the
// broker is unreachable, events are dropped.
func newPublisher(cfg config.MQTTConfig, logger log.FieldLogger) events.Publisher {
	if cfg.Broker == "" {
		return events.NopPublisher{}
	}
	publisher, err := events.Connect(cfg.Broker, cfg.ClientID, cfg.TopicPrefix)
	if err != nil {
		logger.WithError(err).Warn("MQTT unavailable, booking events will not be published")
		return events.NopPublisher{}
	}
	logger.WithField("broker", cfg.Broker).Info("Publishing booking events over MQTT")
	return publisher
}

func pinger(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
}
