// Package tui provides the terminal dashboard for watching a live pool.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/swarmq/swarmq/internal/swarm"
	"github.com/swarmq/swarmq/pkg/models"
)

const maxLogLines = 100

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

// tickMsg drives the periodic snapshot refresh.
type tickMsg time.Time

// poolEventMsg wraps one pool lifecycle event for the dashboard.
type poolEventMsg swarm.Event

// eventsClosedMsg signals that the pool's event channel closed.
type eventsClosedMsg struct{}

// Dashboard is the bubbletea model for `swarmq watch`. It renders pool
// status, per-worker state, and a rolling event log.
type Dashboard struct {
	pool    *swarm.Pool
	events  <-chan swarm.Event
	refresh time.Duration

	workers table.Model
	status  swarm.PoolStatus
	logs    []string

	width    int
	height   int
	quitting bool
	done     bool
}

// NewDashboard creates a dashboard over a live pool.
func NewDashboard(pool *swarm.Pool, refresh time.Duration) *Dashboard {
	if refresh <= 0 {
		refresh = 500 * time.Millisecond
	}

	columns := []table.Column{
		{Title: "Worker", Width: 15},
		{Title: "Status", Width: 12},
		{Title: "Done", Width: 6},
		{Title: "Fail", Width: 6},
		{Title: "Perf", Width: 6},
	}
	workers := table.New(
		table.WithColumns(columns),
		table.WithHeight(10),
	)

	return &Dashboard{
		pool:    pool,
		events:  pool.Events(),
		refresh: refresh,
		workers: workers,
	}
}

// Init implements tea.Model.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.tick(), d.waitForEvent())
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (d *Dashboard) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-d.events
		if !ok {
			return eventsClosedMsg{}
		}
		return poolEventMsg(ev)
	}
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			d.quitting = true
			return d, tea.Quit
		}
		var cmd tea.Cmd
		d.workers, cmd = d.workers.Update(msg)
		return d, cmd

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height

	case tickMsg:
		d.refreshSnapshot()
		return d, d.tick()

	case poolEventMsg:
		d.appendLog(swarm.Event(msg))
		return d, d.waitForEvent()

	case eventsClosedMsg:
		d.done = true
	}

	return d, nil
}

// refreshSnapshot pulls fresh pool state into the model.
func (d *Dashboard) refreshSnapshot() {
	d.status = d.pool.Status()

	metrics := d.pool.Metrics()
	rows := make([]table.Row, 0, len(metrics.Workers))
	for _, w := range metrics.Workers {
		rows = append(rows, table.Row{
			w.ID,
			string(w.Status),
			fmt.Sprintf("%d", w.Completed),
			fmt.Sprintf("%d", w.Failed),
			fmt.Sprintf("%.2f", w.Performance),
		})
	}
	d.workers.SetRows(rows)
}

// appendLog adds one event to the rolling log.
func (d *Dashboard) appendLog(ev swarm.Event) {
	line := fmt.Sprintf("%s %-14s", ev.Timestamp.Format("15:04:05"), ev.Type)
	if ev.TaskID != "" {
		line += " task=" + shortID(ev.TaskID)
	}
	if ev.WorkerID != "" {
		line += " worker=" + ev.WorkerID
	}
	if ev.Err != "" {
		line += " " + failStyle.Render(ev.Err)
	}
	d.logs = append(d.logs, line)
	if len(d.logs) > maxLogLines {
		d.logs = d.logs[len(d.logs)-maxLogLines:]
	}
}

// View implements tea.Model.
func (d *Dashboard) View() string {
	if d.quitting {
		return ""
	}

	header := titleStyle.Render("swarmq pool")
	status := statusStyle.Render(fmt.Sprintf(
		"workers %d (idle %d, working %d, maintenance %d) | queued %d | held %d | completed %d | failed %d",
		d.status.TotalWorkers, d.status.Idle, d.status.Working, d.status.Maintenance,
		d.status.QueuedTotal, d.status.Held,
		d.status.CompletedTasks, d.status.FailedTasks,
	))

	queues := statusStyle.Render(d.queueLine())

	logView := ""
	start := 0
	visible := 12
	if len(d.logs) > visible {
		start = len(d.logs) - visible
	}
	for _, line := range d.logs[start:] {
		logView += line + "\n"
	}

	footer := statusStyle.Render("q to quit")
	if d.done {
		footer = statusStyle.Render("pool stopped | q to quit")
	}

	return fmt.Sprintf("%s\n%s\n%s\n\n%s\n\n%s\n%s",
		header, status, queues, tableStyle.Render(d.workers.View()), logView, footer)
}

// queueLine renders per-level queue depths in dispatch order.
func (d *Dashboard) queueLine() string {
	if d.status.QueueDepths == nil {
		return "queues: -"
	}
	line := "queues:"
	for _, level := range models.Levels {
		line += fmt.Sprintf(" %s=%d", level, d.status.QueueDepths[level])
	}
	return line
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Run starts the dashboard over a live pool and blocks until it exits.
func Run(pool *swarm.Pool, refresh time.Duration) error {
	p := tea.NewProgram(NewDashboard(pool, refresh), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
