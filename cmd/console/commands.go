package console

import (
	"context"
	"fmt"
	"strconv"

	"teenpatti/application/dto"
	"teenpatti/domain/entities"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
)

const defaultListLimit = 10

func (s *Shell) initializeCommands() {
	s.commands = map[string]Command{
		"round": {
			Handler:     handleRound,
			Description: "Show the current round",
			Usage:       "round",
		},
		"bet": {
			Handler:     handleBet,
			Description: "Stake on a side of the current round",
			Usage:       "bet <user_id> <A|B> <amount>",
		},
		"profile": {
			Handler:     handleProfile,
			Description: "Show balance and open stake",
			Usage:       "profile <user_id>",
		},
		"history": {
			Handler:     handleHistory,
			Description: "Show finished rounds",
			Usage:       "history [n]",
		},
		"bets": {
			Handler:     handleBets,
			Description: "Show a user's recent bets",
			Usage:       "bets <user_id> [n]",
		},
	}

	if s.seedUser != nil {
		s.commands["seed-user"] = Command{
			Handler:     handleSeedUser,
			Description: "Create a funded user",
			Usage:       "seed-user <user_id> <name> <balance>",
		}
	}
}

func handleRound(ctx context.Context, s *Shell, args []string) error {
	snap, err := s.engine.Snapshot(ctx)
	if err != nil {
		return err
	}
	pterm.Println(renderRound(snap))
	return nil
}

func handleBet(ctx context.Context, s *Shell, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: bet <user_id> <A|B> <amount>")
	}
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	side, err := entities.ParseSide(args[1])
	if err != nil {
		return err
	}
	stake, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	snap, err := s.engine.Snapshot(ctx)
	if err != nil {
		return err
	}

	receipt, err := s.engine.PlaceBet(ctx, dto.PlaceBetRequest{
		RoundID: snap.RoundID,
		UserID:  userID,
		Side:    side,
		Stake:   stake,
	})
	if err != nil {
		return err
	}

	pterm.Success.Printfln("Bet %d: %s on %s in round %s, balance %s",
		receipt.BetID,
		money(receipt.Stake),
		receipt.Side,
		receipt.RoundID,
		money(receipt.NewBalance))
	return nil
}

func handleProfile(ctx context.Context, s *Shell, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: profile <user_id>")
	}
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}

	profile, err := s.engine.Profile(ctx, userID)
	if err != nil {
		return err
	}
	pterm.Println(renderProfile(profile))
	return nil
}

func handleHistory(ctx context.Context, s *Shell, args []string) error {
	limit, err := parseLimit(args, 0)
	if err != nil {
		return err
	}

	results, err := s.engine.RecentRounds(ctx, limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		pterm.Info.Println("No finished rounds yet")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(historyTable(results)).Render()
}

func handleBets(ctx context.Context, s *Shell, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: bets <user_id> [n]")
	}
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	limit, err := parseLimit(args, 1)
	if err != nil {
		return err
	}
	if limit == 0 {
		limit = defaultListLimit
	}

	bets, err := s.engine.UserBets(ctx, userID, limit)
	if err != nil {
		return err
	}
	if len(bets) == 0 {
		pterm.Info.Printfln("User %d has no bets", userID)
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(betsTable(bets)).Render()
}

func handleSeedUser(ctx context.Context, s *Shell, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: seed-user <user_id> <name> <balance>")
	}
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	balance, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("invalid balance: %w", err)
	}

	user, err := s.seedUser(ctx, userID, args[1], balance)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Created user %d (%s) with %s", user.ID, user.Username, money(user.Balance))
	return nil
}

func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user ID: %s", arg)
	}
	return id, nil
}

// parseLimit reads an optional positive count at args[pos]; 0 means not given
func parseLimit(args []string, pos int) (int, error) {
	if len(args) <= pos {
		return 0, nil
	}
	n, err := strconv.Atoi(args[pos])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid count: %s", args[pos])
	}
	return n, nil
}
