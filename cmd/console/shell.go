package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"teenpatti/application/dto"
	"teenpatti/domain/entities"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
)

// Engine is the part of the round engine the console drives
type Engine interface {
	Snapshot(ctx context.Context) (*dto.RoundSnapshot, error)
	PlaceBet(ctx context.Context, req dto.PlaceBetRequest) (*entities.BetReceipt, error)
	Profile(ctx context.Context, userID int64) (*entities.UserProfile, error)
	RecentRounds(ctx context.Context, limit int) ([]entities.RoundResult, error)
	UserBets(ctx context.Context, userID int64, limit int) ([]*entities.Bet, error)
}

// UserSeeder creates a funded user for local play
type UserSeeder func(ctx context.Context, userID int64, username string, balance decimal.Decimal) (*entities.User, error)

// Shell is an interactive console over a running engine
type Shell struct {
	engine   Engine
	seedUser UserSeeder
	commands map[string]Command
	running  bool
}

// Command is one console command
type Command struct {
	Handler     CommandHandler
	Description string
	Usage       string
}

// CommandHandler handles a console command
type CommandHandler func(ctx context.Context, s *Shell, args []string) error

// NewShell creates a console bound to engine. seedUser may be nil to disable seed-user.
func NewShell(engine Engine, seedUser UserSeeder) *Shell {
	s := &Shell{
		engine:   engine,
		seedUser: seedUser,
		running:  true,
	}
	s.initializeCommands()
	return s
}

// Run reads commands from in until exit, EOF or ctx cancellation
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)

	pterm.DefaultHeader.WithFullWidth().Println("Teen Patti T20")
	pterm.Info.Println("Type 'help' for available commands")

	for s.running {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		pterm.Print("\ntpt20> ")
		if !scanner.Scan() {
			break
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		if err := s.Execute(ctx, parts[0], parts[1:]); err != nil {
			pterm.Error.Println(err.Error())
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// Execute runs a single command by name
func (s *Shell) Execute(ctx context.Context, name string, args []string) error {
	switch name {
	case "exit", "quit":
		s.running = false
		pterm.Info.Println("Bye")
		return nil
	case "help":
		s.printHelp()
		return nil
	}

	cmd, ok := s.commands[name]
	if !ok {
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", name)
	}
	return cmd.Handler(ctx, s, args)
}

func (s *Shell) printHelp() {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := pterm.TableData{{"Command", "Usage", "Description"}}
	for _, name := range names {
		cmd := s.commands[name]
		rows = append(rows, []string{name, cmd.Usage, cmd.Description})
	}
	rows = append(rows, []string{"exit", "exit", "Leave the console"})
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
