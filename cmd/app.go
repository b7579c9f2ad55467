package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"teenpatti/application"
	"teenpatti/config"
	"teenpatti/database"
	"teenpatti/domain/services"
	"teenpatti/infrastructure"
	"teenpatti/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// App holds the wired components shared by every subcommand
type App struct {
	Config     *config.Config
	DB         *database.DB
	NATS       *infrastructure.NATSClient
	Publisher  *infrastructure.NATSEventPublisher
	UnitOfWork *infrastructure.UnitOfWorkFactory
	Settler    *application.RoundSettler
	Engine     *application.RoundEngine
}

// ConfigureLogging sets the logrus level and formatter from config
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// NewApp connects to the database and NATS and wires the engine.
// Nothing starts running until the caller starts the engine.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connection established successfully")

	if cfg.NATSEnabled() {
		log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
		app.NATS = infrastructure.NewNATSClient(cfg.NATSServers)

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := app.NATS.Connect(connectCtx)
		cancel()
		if err != nil {
			app.Close()
			return nil, err
		}
	} else {
		log.Info("NATS disabled, events stay in process")
	}

	// A nil client keeps publishing to local handlers only
	app.Publisher = infrastructure.NewNATSEventPublisher(app.NATS, infrastructure.NewEventSubjectMapper())
	if err := app.Publisher.EnsureEventStream(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.WithError(err).Warn("Metrics disabled, failed to initialize")
	}

	mode, err := services.ParseDealMode(cfg.DealMode)
	if err != nil {
		app.Close()
		return nil, err
	}
	rng := services.NewRandomSource()
	dealer := services.NewDealer(rng, services.NewOfficialResolver(rng), mode)

	app.UnitOfWork = infrastructure.NewUnitOfWorkFactory(db, app.Publisher)
	app.Settler = application.NewRoundSettler(app.UnitOfWork, app.Publisher, cfg.ReturnRatio)
	app.Engine = application.NewRoundEngine(
		application.EngineConfigFrom(cfg),
		application.SystemClock{},
		dealer,
		app.UnitOfWork,
		app.Settler,
		app.Publisher,
	)
	if metrics := observability.GetMetrics(); metrics != nil {
		app.Engine.WithMetrics(metrics)
	}

	log.WithFields(log.Fields{
		"deal_mode":    mode,
		"return_ratio": cfg.ReturnRatio.String(),
		"environment":  cfg.Environment,
	}).Info("Round engine wired")
	return app, nil
}

// Close releases connections in reverse order of creation
func (a *App) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Warn("Error shutting down metrics")
	}
	if a.NATS != nil && a.NATS.IsConnected() {
		if err := a.NATS.Close(); err != nil {
			log.WithError(err).Warn("Error closing NATS connection")
		}
	}
	if a.DB != nil {
		log.Info("Closing database connection...")
		a.DB.Close()
	}
}
