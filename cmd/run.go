package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"rifei/api"
	"rifei/application"
	"rifei/config"
	"rifei/database"
	"rifei/domain/clock"
	"rifei/domain/events"
	"rifei/infrastructure"
	"rifei/infrastructure/discord"
	"rifei/infrastructure/mercadopago"
	"rifei/infrastructure/observability"
	"rifei/infrastructure/redislock"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// SetupLogging configures logrus from the environment: JSON in production, text otherwise
func SetupLogging(cfg *config.Config) {
	log.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// Run initializes and starts the application
func Run(ctx context.Context, cfg *config.Config) error {
	log.Info("Starting rifei...")

	// Initialize metrics
	log.WithField("exporter", cfg.OTelExporter).Info("Initializing metrics...")
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	log.Info("Metrics initialized successfully")

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event publishing
	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			db.Close()
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("NATS connection established successfully")
	} else {
		log.Warn("NATS_SERVERS not set, domain events stay in process")
	}

	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
	if natsClient != nil {
		if err := eventPublisher.EnsureDomainEventStream(); err != nil {
			log.WithError(err).Warn("Failed to ensure domain event stream")
		}
	}

	// Initialize unit of work factory
	log.Info("Initializing unit of work factory...")
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)
	metricsHandler := observability.GetMetrics().EventHandler()
	for _, eventType := range events.AllEventTypes() {
		uowFactory.RegisterLocalHandler(eventType, metricsHandler)
	}
	log.Info("Unit of work factory initialized successfully")

	// Initialize webhook lock
	var (
		locker      application.WebhookLocker
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		log.Info("Connecting to Redis...")
		redisClient, err = redislock.Open(ctx, cfg.RedisURL)
		if err != nil {
			closeNATS(natsClient)
			db.Close()
			return err
		}
		locker = redislock.NewLocker(redisClient)
		log.Info("Redis connection established successfully")
	} else {
		log.Warn("REDIS_URL not set, webhook locks are local to this process")
		locker = application.NewLocalLocker()
	}

	// Initialize Discord announcements
	var announcer application.DrawAnnouncer
	if cfg.DiscordToken != "" {
		log.Info("Initializing Discord announcer...")
		session, err := discord.Open(cfg.DiscordToken)
		if err != nil {
			log.WithError(err).Warn("Discord announcements disabled")
		} else {
			announcer = discord.NewAnnouncer(session, cfg.DiscordChannelID)
			log.Info("Discord announcer initialized successfully")
		}
	}

	// Initialize application layer
	clk := clock.NewSystem()
	gateway := mercadopago.NewClient(cfg)
	verifier := mercadopago.NewSignatureVerifier(cfg.MercadoPagoWebhookSecret)

	raffles := application.NewRaffleHandler(uowFactory, announcer, clk, cfg)
	reservations := application.NewReservationHandler(uowFactory, clk, cfg)
	checkout := application.NewCheckoutHandler(uowFactory, gateway, clk, cfg)
	payments := application.NewPaymentHandler(uowFactory, gateway, clk, cfg)
	webhooks := application.NewWebhookHandler(uowFactory, gateway, verifier, locker, clk, cfg)

	// Start background workers
	log.Info("Starting background workers...")
	stopExpiry := application.NewReservationExpiryWorker(uowFactory, clk, cfg).Start(ctx)
	stopDraws := application.NewRaffleDrawWorker(uowFactory, announcer, clk, cfg).Start(ctx)
	log.Info("Background workers started")

	server := api.NewServer(cfg, api.Services{
		Raffles:      raffles,
		Reservations: reservations,
		Checkout:     checkout,
		Payments:     payments,
		Webhooks:     webhooks,
		Database:     db,
	})

	log.WithField("environment", cfg.Environment).Info("rifei is running")
	serveErr := server.Run(ctx)

	// Cleanup resources
	log.Info("Shutting down...")
	stopDraws()
	stopExpiry()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Warn("Error closing Redis client")
		}
	}
	closeNATS(natsClient)

	log.Info("Closing database connection...")
	db.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Warn("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return serveErr
}

func closeNATS(client *infrastructure.NATSClient) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.WithError(err).Warn("Error closing NATS connection")
		return
	}
	log.Info("NATS connection closed")
}
