package cmd

import (
	"context"
	"os"
	"time"

	"teenpatti/cmd/console"
	"teenpatti/config"
	"teenpatti/domain/entities"
	"teenpatti/repository"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Play runs the engine in process with an interactive console on stdin
func Play(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	// Keep engine logs from interleaving with the console
	if log.GetLevel() > log.WarnLevel {
		log.SetLevel(log.WarnLevel)
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	console.WatchEvents(app.Publisher)
	app.Engine.Start(ctx)

	seed := func(ctx context.Context, userID int64, username string, balance decimal.Decimal) (*entities.User, error) {
		return repository.SeedUser(ctx, app.DB, userID, username, balance)
	}
	shellErr := console.NewShell(app.Engine, seed).Run(ctx, os.Stdin)

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.FinalizeTimeout+5*time.Second)
	defer cancel()
	if err := app.Engine.Stop(stopCtx); err != nil {
		log.WithError(err).Error("Round engine did not stop cleanly")
	}
	return shellErr
}
