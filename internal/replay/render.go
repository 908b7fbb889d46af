package replay

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/deck"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	handStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	seatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	boardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

// RenderText renders a replay as a human-readable hand history.
func RenderText(rep *Replay) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Game %s", rep.GameID)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf(
		"blinds %d/%d, %d hands, %d actions, seed %d",
		rep.Config.SmallBlind, rep.Config.BigBlind,
		rep.Metadata.HandCount, rep.Metadata.TotalActions, rep.Seed)))
	b.WriteString("\n")

	for _, ae := range rep.Events {
		line := renderEvent(rep, ae)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(rep.Metadata.FinalChips) > 0 {
		b.WriteString(titleStyle.Render("Final stacks"))
		b.WriteString("\n")
		for seatID, chips := range rep.Metadata.FinalChips {
			b.WriteString(fmt.Sprintf("  %s: %d\n", seatStyle.Render(rep.name(seatID)), chips))
		}
	}
	return b.String()
}

func renderEvent(rep *Replay, ae AnnotatedEvent) string {
	ev := ae.Event
	switch ev.Type {
	case EventGameStarted:
		return dimStyle.Render("--- recording started ---")
	case EventGameEnded:
		return dimStyle.Render("--- recording ended ---")
	case game.EventPlayerJoined:
		return fmt.Sprintf("%s joins", seatStyle.Render(ev.SeatName))
	case game.EventPlayerLeft:
		if ev.Reason != "" {
			return fmt.Sprintf("%s leaves (%s)", seatStyle.Render(rep.name(ev.SeatID)), ev.Reason)
		}
		return fmt.Sprintf("%s leaves", seatStyle.Render(rep.name(ev.SeatID)))
	case game.EventHandStarted:
		return handStyle.Render(fmt.Sprintf("=== Hand #%d ===", ev.HandNumber))
	case game.EventBlindsPosted:
		if ev.Blinds == nil {
			return ""
		}
		return fmt.Sprintf("%s posts %d, %s posts %d",
			seatStyle.Render(rep.name(ev.Blinds.SmallBlindSeat)), ev.Blinds.SmallBlindAmount,
			seatStyle.Render(rep.name(ev.Blinds.BigBlindSeat)), ev.Blinds.BigBlindAmount)
	case game.EventActionTaken:
		if ev.Action == nil {
			return ""
		}
		line := fmt.Sprintf("%s %s", seatStyle.Render(rep.name(ev.SeatID)), ev.Action.Type)
		if ev.Action.Amount > 0 {
			line += fmt.Sprintf(" %d", ev.Action.Amount)
		}
		if ev.Action.AllIn {
			line += dimStyle.Render(" (all-in)")
		}
		return line
	case game.EventFlopDealt, game.EventTurnDealt, game.EventRiverDealt:
		return boardStyle.Render(fmt.Sprintf("%s: %s  (pot %d)", ev.Phase, renderCards(ev.Cards), ev.PotTotal))
	case game.EventShowdownComplete:
		var parts []string
		for _, sh := range ev.Showdown {
			parts = append(parts, fmt.Sprintf("%s shows %s (%s)",
				rep.name(sh.SeatID), renderCards(sh.HoleCards), sh.Description))
		}
		return strings.Join(parts, "; ")
	case game.EventHandComplete:
		var parts []string
		for _, w := range ev.Winners {
			parts = append(parts, winStyle.Render(fmt.Sprintf("%s wins %d", rep.name(w.SeatID), w.Amount)))
		}
		return strings.Join(parts, ", ")
	case game.EventPlayerTimeout:
		return dimStyle.Render(fmt.Sprintf("%s timed out", rep.name(ev.SeatID)))
	case game.EventTableQuarantined:
		return dimStyle.Render(fmt.Sprintf("table quarantined: %s", ev.Reason))
	default:
		return ""
	}
}

func renderCards(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func (rep *Replay) name(seatID string) string {
	if name, ok := rep.PlayerNames[seatID]; ok && name != "" {
		return name
	}
	return seatID
}
