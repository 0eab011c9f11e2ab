package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/api"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/config"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/database"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/domain"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/events"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/flow"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/logging"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/metrics"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/repository"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/service"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/wa"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/worker"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger := logging.New(cfg.Logging, cfg.App)
	logger := logging.Component(baseLogger, "engine-main")

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	dbLogger := logging.Component(baseLogger, "database")
	db, err := database.NewDB(cfg.Database.Path, &dbLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SeedCatalog(ctx, cfg.Resources, cfg.Services); err != nil {
		return err
	}

	if cfg.Backup.Enabled {
		backupLogger := logging.Component(baseLogger, "backup")
		go database.NewBackupService(cfg.Database.Path, cfg.Backup, &backupLogger).Start(ctx)
	}

	sessions := initSessionRepository(ctx, cfg, baseLogger)

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, baseLogger)

	retryPolicy := worker.RetryPolicy{
		MaxAttempts:   cfg.Booking.RetryAttempts,
		BaseDelay:     cfg.Booking.RetryBaseDelay,
		MaxDelay:      cfg.Booking.RetryMaxDelay,
		BackoffFactor: 2,
	}

	svcLogger := logging.Component(baseLogger, "booking-service")
	bookingService := service.NewBookingService(db, eventBus, retryPolicy, loc, &svcLogger)
	validator := service.NewSlotValidator(db.Now, loc)
	slotSource := service.NewScheduleSlotSource(db, cfg.Booking, loc, db.Now)

	sessLogger := logging.Component(baseLogger, "session-service")
	sessionService := service.NewSessionService(sessions, &sessLogger)

	senderLogger := logging.Component(baseLogger, "wa-sender")
	sender := wa.NewClient(cfg.WhatsApp.BaseURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.AccessToken, &senderLogger)
	builder := wa.NewBuilder(cfg.Resources, loc)

	flowLogger := logging.Component(baseLogger, "flow")
	controller := flow.NewController(
		slotSource,
		validator,
		bookingService,
		sessionService,
		builder,
		sender,
		cfg.Booking.RateLimitMessages,
		cfg.Booking.RateLimitWindow,
		&flowLogger,
	)

	apiLogger := logging.Component(baseLogger, "api")
	server := api.NewServer(cfg.API, cfg.WhatsApp, controller, &apiLogger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("api server error")
			stop()
		}
	}()

	logger.Info().Msg("booking engine started")
	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func initSessionRepository(ctx context.Context, cfg *config.Config, baseLogger zerolog.Logger) domain.SessionRepository {
	logger := logging.Component(baseLogger, "session-store")

	memory := repository.NewMemorySessionRepository(cfg.Session.TTL, cfg.Session.SweepInterval)
	go memory.StartSweeper(ctx)

	if cfg.Redis.Address == "" {
		logger.Warn().Msg("redis address not configured, using in-memory sessions")
		return memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Error().Err(err).Msg("redis unreachable at startup, failover will probe it")
	}
	primary := repository.NewRedisSessionRepository(client, cfg.Session.TTL)
	return repository.NewFailoverSessionRepository(primary, memory, &logger)
}

func subscribeBookingEvents(bus *events.EventBus, baseLogger zerolog.Logger) {
	logger := logging.Component(baseLogger, "booking-events")

	logEvent := func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			logger.Warn().Err(err).Str("type", event.Type).Msg("undecodable event payload")
			return nil
		}
		logger.Info().
			Str("type", event.Type).
			Str("booking_id", payload.BookingID).
			Str("resource_id", payload.ResourceID).
			Str("status", payload.Status).
			Msg("booking event")
		return nil
	}

	bus.Subscribe(events.EventBookingCreated, logEvent)
	bus.Subscribe(events.EventBookingConfirmed, logEvent)
	bus.Subscribe(events.EventBookingConflict, logEvent)
	bus.Subscribe(events.EventBookingCancelled, logEvent)
}
