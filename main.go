package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"teenpatti/cmd"
	"teenpatti/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	var err error
	command := ""
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "migrate":
		err = handleMigrationCommand()
	case "reconcile":
		err = cmd.Reconcile(ctx, os.Args[2:])
	case "play":
		err = cmd.Play(ctx)
	case "", "run":
		err = cmd.Run(ctx)
	default:
		err = fmt.Errorf("unknown command %q, expected run, play, reconcile or migrate", command)
	}

	if err != nil {
		log.Fatalf("%s error: %v", commandName(command), err)
	}
}

func commandName(command string) string {
	if command == "" {
		return "run"
	}
	return command
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: teenpatti migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}
