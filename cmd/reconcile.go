package cmd

import (
	"context"
	"fmt"
	"strconv"

	"teenpatti/config"

	log "github.com/sirupsen/logrus"
)

const defaultReconcileLimit = 100

// Reconcile settles finished rounds whose bets are still open.
// args may carry a round limit.
func Reconcile(ctx context.Context, args []string) error {
	limit := defaultReconcileLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid round limit %q", args[0])
		}
		limit = n
	}

	cfg := config.Get()
	ConfigureLogging(cfg)

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	processed, err := app.Settler.Reconcile(ctx, limit)
	if err != nil {
		return fmt.Errorf("reconciliation finished with errors after %d rounds: %w", processed, err)
	}

	log.WithField("rounds", processed).Info("Reconciliation completed")
	return nil
}
