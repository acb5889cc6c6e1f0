// Package tui provides the interactive terminal dashboard for the daemon.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tunewise/tunewise/internal/controlplane"
	"github.com/tunewise/tunewise/internal/models"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	okStyle   = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(warningColor)
	badStyle  = lipgloss.NewStyle().Foreground(errorColor)
)

const refreshInterval = 2 * time.Second

var tabNames = []string{"STATUS", "AGENTS", "RECOMMENDATIONS", "RESULTS"}

// App is the main dashboard model.
type App struct {
	client   *Client
	viewport viewport.Model
	width    int
	height   int
	tab      int
	online   bool
	message  string

	status  *controlplane.StatusReport
	agents  []models.AgentStatus
	recs    []models.AgentRecommendation
	results []models.ConfigurationResult
}

// New creates a new dashboard over the daemon API.
func New(apiAddr string) *App {
	return &App{
		client:   NewClient(apiAddr),
		viewport: viewport.New(80, 20),
	}
}

// Run starts the dashboard.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type refreshMsg struct {
	online  bool
	status  *controlplane.StatusReport
	agents  []models.AgentStatus
	recs    []models.AgentRecommendation
	results []models.ConfigurationResult
	err     error
}

type tickMsg time.Time

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		msg := refreshMsg{online: a.client.CheckHealth()}
		if !msg.online {
			return msg
		}
		var err error
		if msg.status, err = a.client.Status(); err != nil {
			msg.err = err
		}
		if msg.agents, err = a.client.Agents(); err != nil {
			msg.err = err
		}
		if msg.recs, err = a.client.Recommendations(); err != nil {
			msg.err = err
		}
		if msg.results, err = a.client.Results(10); err != nil {
			msg.err = err
		}
		return msg
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.refresh(), tick())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "tab", "right", "l":
			a.tab = (a.tab + 1) % len(tabNames)
			a.syncViewport()
		case "shift+tab", "left", "h":
			a.tab = (a.tab + len(tabNames) - 1) % len(tabNames)
			a.syncViewport()
		case "r":
			return a, a.refresh()
		case "up", "k":
			a.viewport.LineUp(1)
		case "down", "j":
			a.viewport.LineDown(1)
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = msg.Width - 4
		a.viewport.Height = msg.Height - 6
		a.syncViewport()

	case refreshMsg:
		a.online = msg.online
		if msg.status != nil {
			a.status = msg.status
		}
		if msg.agents != nil {
			a.agents = msg.agents
		}
		if msg.recs != nil {
			a.recs = msg.recs
		}
		if msg.results != nil {
			a.results = msg.results
		}
		if msg.err != nil {
			a.message = msg.err.Error()
		} else {
			a.message = ""
		}
		a.syncViewport()

	case tickMsg:
		return a, tea.Batch(a.refresh(), tick())
	}

	return a, nil
}

func (a *App) syncViewport() {
	switch a.tab {
	case 0:
		a.viewport.SetContent(a.renderStatus())
	case 1:
		a.viewport.SetContent(a.renderAgents())
	case 2:
		a.viewport.SetContent(a.renderRecommendations())
	case 3:
		a.viewport.SetContent(a.renderResults())
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("tunewise"))
	b.WriteString("  ")
	if a.online {
		b.WriteString(okStyle.Render("● daemon online"))
	} else {
		b.WriteString(badStyle.Render("● daemon offline"))
	}
	b.WriteString("\n")

	for i, name := range tabNames {
		if i == a.tab {
			b.WriteString(activeTabStyle.Render(name))
		} else {
			b.WriteString(tabStyle.Render(name))
		}
	}
	b.WriteString("\n")

	b.WriteString(panelStyle.Render(a.viewport.View()))
	b.WriteString("\n")

	if a.message != "" {
		b.WriteString(statusBarStyle.Render(a.message))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab: switch pane | j/k: scroll | r: refresh | q: quit"))

	return b.String()
}

func (a *App) renderStatus() string {
	if a.status == nil {
		return "waiting for daemon..."
	}
	s := a.status
	var b strings.Builder

	fmt.Fprintf(&b, "Uptime:          %s\n", s.Uptime)
	profile := s.ActiveProfile
	if profile == "" {
		profile = "(none)"
	}
	fmt.Fprintf(&b, "Active profile:  %s\n\n", profile)

	snap := s.Snapshot
	fmt.Fprintf(&b, "CPU     %s\n", gauge(snap.CPUPercent))
	fmt.Fprintf(&b, "GPU     %s\n", gauge(snap.GPUPercent))
	fmt.Fprintf(&b, "RAM     %s\n", gauge(snap.RAMPercent))
	fmt.Fprintf(&b, "Disk    %s\n", gauge(snap.DiskPercent))
	fmt.Fprintf(&b, "Net     %s\n\n", gauge(snap.NetworkPercent))

	if snap.IsUserActive {
		fmt.Fprintf(&b, "User:   %s\n", okStyle.Render("active"))
	} else {
		fmt.Fprintf(&b, "User:   %s\n", tabStyle.Render("away"))
	}
	fmt.Fprintf(&b, "Processes: %d tracked\n", len(snap.Processes))

	return b.String()
}

func (a *App) renderAgents() string {
	if len(a.agents) == 0 {
		return "no agents registered"
	}
	var b strings.Builder
	for _, ag := range a.agents {
		state := string(ag.State)
		switch ag.State {
		case models.AgentStateError:
			state = badStyle.Render(state)
		case models.AgentStatePaused:
			state = warnStyle.Render(state)
		default:
			if ag.State.Runnable() {
				state = okStyle.Render(state)
			}
		}
		fmt.Fprintf(&b, "%-14s %-12s  confidence %.2f\n", ag.Name, state, ag.Confidence)
	}
	return b.String()
}

func (a *App) renderRecommendations() string {
	if len(a.recs) == 0 {
		return "no recommendations this round"
	}
	var b strings.Builder
	for _, rec := range a.recs {
		auto := ""
		if rec.AutoApply {
			auto = okStyle.Render(" [auto]")
		}
		fmt.Fprintf(&b, "%s (%.0f%%)%s\n", rec.Title, rec.Confidence*100, auto)
		if rec.Reasoning != "" {
			fmt.Fprintf(&b, "  %s\n", tabStyle.Render(rec.Reasoning))
		}
		for _, act := range rec.Actions {
			fmt.Fprintf(&b, "  - %s\n", act.Name)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) renderResults() string {
	if len(a.results) == 0 {
		return "no results yet"
	}
	var b strings.Builder
	for _, res := range a.results {
		mark := okStyle.Render("✓")
		if !res.Success {
			mark = badStyle.Render("✗")
		}
		name := res.RecipeName
		if name == "" {
			name = "(agent plan)"
		}
		fmt.Fprintf(&b, "%s %-20s %s  %d changes\n",
			mark, name, res.Timestamp.Format("15:04:05"), len(res.Changes))
		if res.Message != "" {
			fmt.Fprintf(&b, "  %s\n", tabStyle.Render(res.Message))
		}
	}
	return b.String()
}

func gauge(pct float64) string {
	const width = 24
	filled := int(pct / 100 * width)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	style := okStyle
	switch {
	case pct >= 90:
		style = badStyle
	case pct >= 70:
		style = warnStyle
	}
	return fmt.Sprintf("%s %5.1f%%", style.Render(bar), pct)
}
