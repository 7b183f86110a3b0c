package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/BioHazard786/Warpchat/internal/signaling"
)

// RoomsView renders the rooms of a snapshot with lipgloss/table
func RoomsView(rooms []signaling.RoomInfo) string {
	if len(rooms) == 0 {
		return MutedStyle.Render("No rooms")
	}

	rows := make([][]string, 0, len(rooms))
	for _, r := range rooms {
		rows = append(rows, []string{r.ID, r.Kind, fmt.Sprintf("%d", r.Members)})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Room", "Kind", "Members").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// CallsView renders tracked calls with go-pretty
func CallsView(calls []signaling.Call, now time.Time) string {
	if len(calls) == 0 {
		return MutedStyle.Render("No calls in progress")
	}

	tw := prettytable.NewWriter()
	tw.SetStyle(prettytable.StyleRounded)
	tw.AppendHeader(prettytable.Row{"Call", "State", "Offers", "Answers", "Candidates", "Last From", "Age"})
	for _, c := range calls {
		state := c.State.String()
		if style, ok := callStateStyles[state]; ok {
			state = style.Render(state)
		}
		tw.AppendRow(prettytable.Row{
			strings.TrimPrefix(c.RoomID, "call:"),
			state,
			c.Offers,
			c.Answers,
			c.Candidates,
			c.LastFrom,
			now.Sub(c.StartedAt).Truncate(time.Second).String(),
		})
	}
	return tw.Render()
}

// SummaryView renders connection and relay counters in a box
func SummaryView(s signaling.Snapshot) string {
	content := fmt.Sprintf("%s Connections: %s\n%s Rooms:       %s\n%s Calls:       %s\n\n%s",
		IconConnect, BoldStyle.Render(fmt.Sprintf("%d", s.Connections)),
		IconRoom, BoldStyle.Render(fmt.Sprintf("%d", len(s.Rooms))),
		IconCall, BoldStyle.Render(fmt.Sprintf("%d", len(s.Calls))),
		MutedStyle.Render(fmt.Sprintf("relayed %d · delivered %d · absorbed %d · rejected %d · evicted %d",
			s.Stats.Relayed, s.Stats.Delivered, s.Stats.Absorbed, s.Stats.Rejected, s.Stats.Evicted)),
	)
	return InfoBoxStyle.Render(content)
}

// SnapshotView is the full report printed by `warpchat rooms`
func SnapshotView(s signaling.Snapshot, now time.Time) string {
	return strings.Join([]string{
		SummaryView(s),
		TitleStyle.Render("Rooms"),
		RoomsView(s.Rooms),
		TitleStyle.Render("Calls"),
		CallsView(s.Calls, now),
	}, "\n")
}

func RenderSnapshot(s signaling.Snapshot) {
	fmt.Println(SnapshotView(s, time.Now()))
}
