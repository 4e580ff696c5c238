package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cdnbench/internal/runner"
	"cdnbench/internal/source"
	"cdnbench/internal/tui/components"
	"cdnbench/internal/tui/styles"
)

const recentDiscards = 5

// EventMsg wraps a runner event.
type EventMsg runner.Event

// DoneMsg is sent once the runner closed its update channel.
type DoneMsg struct{}

type Model struct {
	Kind    string
	Cfg     runner.Config
	Updates runner.EventChan

	Progress progress.Model
	Spinner  spinner.Model
	Table    table.Model
	EdgeLine components.Sparkline

	Attempts  int
	Rows      []runner.ReportRow
	Discarded []string

	StartTime time.Time
	Finished  bool
	Quitting  bool

	Width  int
	Height int
}

func NewModel(kind string, cfg runner.Config, updates runner.EventChan) Model {
	columns := []table.Column{
		{Title: kind, Width: 16},
		{Title: source.EdgeA.Name, Width: 12},
		{Title: source.EdgeB.Name, Width: 12},
		{Title: source.Origin.Name, Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(maxInt(cfg.MaxSamples, 1)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.ColorPrimary)
	s.Selected = s.Cell
	t.SetStyles(s)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Active

	return Model{
		Kind:      kind,
		Cfg:       cfg,
		Updates:   updates,
		Progress:  progress.New(progress.WithDefaultGradient()),
		Spinner:   sp,
		Table:     t,
		EdgeLine:  components.NewSparkline(40, source.EdgeA.Name+" KB/s", styles.Value),
		StartTime: time.Now(),
	}
}

func waitForEvent(sub runner.EventChan) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return DoneMsg{}
		}
		return EventMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.Spinner.Tick,
		waitForEvent(m.Updates),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		m = m.apply(runner.Event(msg))
		return m, tea.Batch(m.Progress.SetPercent(m.percent()), waitForEvent(m.Updates))

	case DoneMsg:
		m.Finished = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.Quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = maxInt(msg.Width-4, 10)
		m.EdgeLine.Width = maxInt(msg.Width/2-4, 10)
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) apply(ev runner.Event) Model {
	m.Attempts = ev.Attempt

	if ev.Row != nil {
		m.Rows = append(m.Rows, *ev.Row)
		m.EdgeLine.Add(ev.Row.EdgeAKBps)

		rows := make([]table.Row, 0, len(m.Rows))
		for _, r := range m.Rows {
			rows = append(rows, table.Row{
				r.Label,
				fmt.Sprintf("%d", r.EdgeAKBps),
				fmt.Sprintf("%d", r.EdgeBKBps),
				fmt.Sprintf("%d", r.OriginKBps),
			})
		}
		m.Table.SetRows(rows)
		return m
	}

	m.Discarded = append(m.Discarded, fmt.Sprintf("%s: %s", ev.Step.Label, ev.DiscardReason()))
	if len(m.Discarded) > recentDiscards {
		m.Discarded = m.Discarded[len(m.Discarded)-recentDiscards:]
	}
	return m
}

// percent is how close the run is to either budget.
func (m Model) percent() float64 {
	return m.Cfg.Progress(m.Attempts, len(m.Rows))
}

func (m Model) View() string {
	if m.Quitting {
		return "Stopping after the current download...\n"
	}

	s := strings.Builder{}

	s.WriteString(styles.Title.Render("cdnbench"))
	s.WriteString("\n\n")

	counters := fmt.Sprintf(
		"Attempts: %d/%d   Samples: %d/%d   Elapsed: %s",
		m.Attempts, m.Cfg.MaxAttempts,
		len(m.Rows), m.Cfg.MaxSamples,
		time.Since(m.StartTime).Round(time.Second),
	)
	s.WriteString(styles.Text.Render(counters))
	s.WriteString("\n")

	if m.Finished {
		s.WriteString(styles.Success.Render("done"))
	} else {
		s.WriteString(m.Spinner.View() + styles.Subtle.Render(" downloading next step"))
	}
	s.WriteString("\n\n")

	s.WriteString(styles.Box.Render(m.Table.View()))
	s.WriteString("\n")

	discards := styles.Subtle.Render("no discarded steps")
	if len(m.Discarded) > 0 {
		discards = styles.Warn.Render(strings.Join(m.Discarded, "\n"))
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.EdgeLine.View()),
		styles.Box.Render(discards),
	))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.View())
	s.WriteString("\n")
	s.WriteString(styles.Subtle.Render("Press q to stop"))

	return s.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
