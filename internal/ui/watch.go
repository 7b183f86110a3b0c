package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/BioHazard786/Warpchat/internal/signaling"
)

// FetchFunc loads the current snapshot of a server
type FetchFunc func(ctx context.Context) (signaling.Snapshot, error)

// Poll results and refresh ticks carry the generation of the poll chain that
// produced them. Pressing r starts a new generation and the old chain dies
// at its next message.
type snapshotMsg struct {
	gen  int
	snap signaling.Snapshot
	err  error
	at   time.Time
}

type refreshMsg struct {
	gen int
}

// watchModel polls a server and redraws its rooms and calls
type watchModel struct {
	target   string
	fetch    FetchFunc
	interval time.Duration
	spinner  spinner.Model
	gen      int

	snap     *signaling.Snapshot
	err      error
	updated  time.Time
	quitting bool
}

func newWatchModel(target string, interval time.Duration, fetch FetchFunc) watchModel {
	return watchModel{
		target:   target,
		fetch:    fetch,
		interval: interval,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m watchModel) poll() tea.Cmd {
	fetch, timeout, gen := m.fetch, m.interval, m.gen
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap, err := fetch(ctx)
		return snapshotMsg{gen: gen, snap: snap, err: err, at: time.Now()}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.gen++
			return m, m.poll()
		}

	case snapshotMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.updated = msg.at
		m.err = msg.err
		if msg.err == nil {
			snap := msg.snap
			m.snap = &snap
		}
		gen := m.gen
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return refreshMsg{gen: gen} })

	case refreshMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m, m.poll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.quitting {
		return ""
	}

	header := fmt.Sprintf("%s Watching %s", m.spinner.View(), BoldStyle.Render(m.target))
	if !m.updated.IsZero() {
		header += MutedStyle.Render(fmt.Sprintf("  (updated %s)", m.updated.Format(time.TimeOnly)))
	}

	body := MutedStyle.Render("Loading...")
	switch {
	case m.err != nil:
		body = ErrorStyle.Render(fmt.Sprintf("%s %v", IconError, m.err))
		if m.snap != nil {
			body += "\n\n" + SnapshotView(*m.snap, m.updated)
		}
	case m.snap != nil:
		body = SnapshotView(*m.snap, m.updated)
	}

	return header + "\n\n" + body + "\n\n" + MutedStyle.Render("r refresh • q quit") + "\n"
}

// RunWatch shows a live view of target until the user quits
func RunWatch(target string, interval time.Duration, fetch FetchFunc) error {
	_, err := tea.NewProgram(newWatchModel(target, interval, fetch)).Run()
	return err
}
