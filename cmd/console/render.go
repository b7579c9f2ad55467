package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"teenpatti/application/dto"
	"teenpatti/domain/entities"
	"teenpatti/domain/events"
	"teenpatti/infrastructure"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(entities.MoneyPlaces)
}

func renderCards(cards []string) string {
	out := make([]string, len(cards))
	for i, c := range cards {
		if c == entities.FaceDown {
			out[i] = pterm.Gray("??")
		} else {
			out[i] = pterm.LightCyan(c)
		}
	}
	return strings.Join(out, " ")
}

func renderRound(snap *dto.RoundSnapshot) string {
	box := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)

	phase := pterm.LightGreen(string(snap.Phase))
	if snap.Phase == entities.PhaseRevealing {
		phase = pterm.LightYellow(fmt.Sprintf("%s %d/%d", snap.Phase, snap.RevealStep, entities.RevealSteps))
	}

	winner := "-"
	if snap.Winner != nil {
		winner = pterm.LightGreen("Player " + string(*snap.Winner))
	}

	body := pterm.Sprintfln("Phase:    %s (%ds left)", phase, snap.SecondsLeft) +
		pterm.Sprintfln("Player A: %s", renderCards(snap.PlayerA)) +
		pterm.Sprintfln("Player B: %s", renderCards(snap.PlayerB)) +
		pterm.Sprintfln("Winner:   %s", winner) +
		pterm.Sprintf("Last:     %s", recentStrip(snap.RecentResults))

	return box.WithTitle(pterm.LightYellow("|ROUND " + snap.RoundID + "|")).WithTitleTopCenter().Sprint(body)
}

// recentStrip renders recent winners newest first, e.g. "A B B A"
func recentStrip(results []entities.RoundResult) string {
	if len(results) == 0 {
		return "-"
	}
	sides := make([]string, len(results))
	for i, r := range results {
		sides[i] = string(r.Winner)
	}
	return strings.Join(sides, " ")
}

func renderProfile(p *entities.UserProfile) string {
	box := pterm.DefaultBox.WithHorizontalPadding(4)
	round := p.RoundID
	if round == "" {
		round = "-"
	}
	body := pterm.Sprintfln("Balance:  %s", money(p.Balance)) +
		pterm.Sprintfln("Exposure: %s", money(p.Exposure)) +
		pterm.Sprintf("Round:    %s", round)
	return box.WithTitle("User " + strconv.FormatInt(p.UserID, 10)).WithTitleTopLeft().Sprint(body)
}

func historyTable(results []entities.RoundResult) pterm.TableData {
	rows := pterm.TableData{{"Round", "Player A", "Player B", "Winner", "Ended"}}
	for _, r := range results {
		ended := "-"
		if r.EndedAt != nil {
			ended = r.EndedAt.Format("15:04:05")
		}
		rows = append(rows, []string{
			r.RoundID,
			strings.Join(r.PlayerA, " "),
			strings.Join(r.PlayerB, " "),
			string(r.Winner),
			ended,
		})
	}
	return rows
}

func betsTable(bets []*entities.Bet) pterm.TableData {
	rows := pterm.TableData{{"Bet", "Round", "Side", "Stake", "Status", "Payout", "Net"}}
	for _, b := range bets {
		rows = append(rows, []string{
			strconv.FormatInt(b.ID, 10),
			b.RoundID,
			string(b.Side),
			money(b.Stake),
			string(b.Status),
			money(b.Payout),
			money(b.Net),
		})
	}
	return rows
}

// EventSource lets the console subscribe to in-process events
type EventSource interface {
	RegisterLocalHandler(eventType events.EventType, handler infrastructure.LocalHandler)
}

// WatchEvents prints round results and profile pushes as they happen
func WatchEvents(source EventSource) {
	source.RegisterLocalHandler(events.EventTypeRoundFinalized, func(ctx context.Context, e events.Event) error {
		ev, ok := e.(events.RoundFinalizedEvent)
		if !ok {
			return nil
		}
		pterm.Info.Printfln("Round %s: %s vs %s, Player %s wins",
			ev.RoundID, strings.Join(ev.PlayerA, " "), strings.Join(ev.PlayerB, " "), ev.Winner)
		return nil
	})

	source.RegisterLocalHandler(events.EventTypeUserProfileUpdated, func(ctx context.Context, e events.Event) error {
		ev, ok := e.(events.UserProfileUpdatedEvent)
		if !ok {
			return nil
		}
		pterm.Info.Printfln("User %d: balance %s, exposure %s", ev.UserID, money(ev.Balance), money(ev.Exposure))
		return nil
	})
}
