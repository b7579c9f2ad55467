package cmd

import (
	"context"
	"time"

	"teenpatti/config"

	log "github.com/sirupsen/logrus"
)

// Run starts the round engine and blocks until ctx is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.Info("Starting teen patti round engine...")

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Engine.Start(ctx)

	log.Infof("Round engine is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down round engine...")

	// The loop's parent ctx is already cancelled, so settlement gets its own budget
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.FinalizeTimeout+5*time.Second)
	defer cancel()

	if err := app.Engine.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Round engine did not stop cleanly")
		return err
	}

	log.Info("Shutdown completed")
	return nil
}
