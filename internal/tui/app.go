package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/raainshe/animedash/internal/core"
	"github.com/raainshe/animedash/internal/logging"
	"github.com/raainshe/animedash/internal/tui/models"
	"github.com/raainshe/animedash/internal/tui/styles"
)

// ViewType represents different TUI views
type ViewType int

const (
	DashboardView ViewType = iota
	LibraryView
)

// viewCount is the number of views cycled by tab
const viewCount = 2

// String returns the string representation of ViewType
func (v ViewType) String() string {
	switch v {
	case DashboardView:
		return "dashboard"
	case LibraryView:
		return "library"
	default:
		return "unknown"
	}
}

// Messages for the TUI
type (
	// Clock tick for the status bar
	tickMsg time.Time

	// Published by the dashboard view model after a successful cycle
	dashboardUpdatedMsg struct {
		view *core.DashboardView
	}

	// Published by the library view model after every cycle
	libraryUpdatedMsg struct {
		view *core.LibraryView
		err  error
	}

	// Result of a manual refresh
	refreshDoneMsg struct {
		err error
	}
)

// DashboardRefresher runs one dashboard cycle on demand
type DashboardRefresher interface {
	Refresh(ctx context.Context) error
}

// LibraryRefresher runs one library cycle on demand
type LibraryRefresher interface {
	Refresh(ctx context.Context) (*core.LibraryView, error)
}

// navItems lists the sidebar entries in key order
var navItems = []struct {
	view ViewType
	icon string
	name string
	key  string
}{
	{DashboardView, "📊", "Dashboard", "1"},
	{LibraryView, "📚", "Library", "2"},
}

// AppModel is the main TUI model
type AppModel struct {
	ctx              context.Context
	dashboardRefresh DashboardRefresher
	libraryRefresh   LibraryRefresher

	currentView ViewType
	width       int
	height      int
	ready       bool

	updatesPaused bool
	now           time.Time

	dashboard models.DashboardModel
	library   models.LibraryModel

	lastError      error
	errorDisplayed time.Time
}

// NewAppModel creates a new TUI application model. The refreshers back the
// manual refresh key; periodic updates arrive as messages.
func NewAppModel(ctx context.Context, dashboard DashboardRefresher, library LibraryRefresher) AppModel {
	return AppModel{
		ctx:              ctx,
		dashboardRefresh: dashboard,
		libraryRefresh:   library,
		currentView:      DashboardView,
		now:              time.Now(),
		dashboard:        models.NewDashboardModel(),
		library:          models.NewLibraryModel(),
	}
}

// Init implements tea.Model
func (m AppModel) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		w, h := m.contentSize()
		m.dashboard = m.dashboard.SetSize(w, h)
		m.library = m.library.SetSize(w, h)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "p":
			m.updatesPaused = !m.updatesPaused
			logging.GetTUILogger().WithField("paused", m.updatesPaused).Debug("Live updates toggled")
			return m, nil
		case "r":
			if m.updatesPaused {
				return m, nil
			}
			return m, m.refreshCmd()
		case "1":
			m.currentView = DashboardView
			return m, nil
		case "2":
			m.currentView = LibraryView
			return m, nil
		case "tab":
			m.currentView = ViewType((int(m.currentView) + 1) % viewCount)
			return m, nil
		}

	case tickMsg:
		m.now = time.Time(msg)
		cmds = append(cmds, tickCmd())

	case dashboardUpdatedMsg:
		if !m.updatesPaused {
			m.dashboard = m.dashboard.SetView(msg.view)
		}

	case libraryUpdatedMsg:
		if !m.updatesPaused {
			m.library = m.library.SetResult(msg.view, msg.err)
		}

	case refreshDoneMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.errorDisplayed = m.now
		}
	}

	var cmd tea.Cmd
	switch m.currentView {
	case DashboardView:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case LibraryView:
		m.library, cmd = m.library.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View implements tea.Model
func (m AppModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.renderContent())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		main,
		m.renderStatusBar(),
	)
}

// contentSize returns the area left for the current view
func (m AppModel) contentSize() (int, int) {
	sidebarWidth := lipgloss.Width(m.renderSidebar())
	// Content padding and the header and status bar lines
	return m.width - sidebarWidth - 4, m.height - 4
}

func (m AppModel) renderHeader() string {
	title := "🎌 Animedash"

	var status string
	if m.updatesPaused {
		status = lipgloss.NewStyle().Foreground(styles.Warning).Render("⏸️  PAUSED")
	} else {
		status = lipgloss.NewStyle().Foreground(styles.Success).Render("🔄 LIVE")
	}

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(status) - 4
	if gap < 1 {
		gap = 1
	}

	headerContent := lipgloss.JoinHorizontal(lipgloss.Center,
		title,
		lipgloss.NewStyle().Width(gap).Render(""),
		status,
	)

	return styles.HeaderStyle.Width(m.width).Render(headerContent)
}

func (m AppModel) renderSidebar() string {
	var items []string
	for _, v := range navItems {
		item := fmt.Sprintf("[%s] %s %s", v.key, v.icon, v.name)
		if m.currentView == v.view {
			item = styles.NavItemSelectedStyle.Render(item)
		} else {
			item = styles.NavItemStyle.Render(item)
		}
		items = append(items, item)
	}

	height := m.height - 4
	if height < 0 {
		height = 0
	}
	return styles.SidebarStyle.Height(height).Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m AppModel) renderContent() string {
	width, height := m.contentSize()

	var content string
	switch m.currentView {
	case DashboardView:
		content = m.dashboard.View()
	case LibraryView:
		content = m.library.View()
	default:
		content = "Unknown view"
	}

	return styles.ContentStyle.Width(width).Height(height).Render(content)
}

func (m AppModel) renderStatusBar() string {
	parts := []string{m.now.Format("15:04:05")}

	if m.updatesPaused {
		parts = append(parts, "Updates: PAUSED")
	} else if view := m.dashboard.Current(); view != nil {
		parts = append(parts, fmt.Sprintf("Last update: %s ago",
			m.now.Sub(view.RefreshedAt).Truncate(time.Second)))
	}

	if m.lastError != nil && m.now.Sub(m.errorDisplayed) < 5*time.Second {
		parts = append(parts, styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.lastError)))
	}

	left := lipgloss.JoinHorizontal(lipgloss.Left, joinParts(parts)...)
	help := styles.HelpStyle.Render("Tab: Switch • P: Pause • R: Refresh • Q: Quit • ↑/↓: Scroll")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(help) - 2
	if gap < 1 {
		gap = 1
	}

	statusContent := lipgloss.JoinHorizontal(lipgloss.Center,
		left,
		lipgloss.NewStyle().Width(gap).Render(""),
		help,
	)

	return styles.StatusBarStyle.Width(m.width).Render(statusContent)
}

func joinParts(parts []string) []string {
	joined := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			joined = append(joined, " • ")
		}
		joined = append(joined, part)
	}
	return joined
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshCmd refreshes the current view. Results reach the model through the
// view model sinks; only the error is returned here.
func (m AppModel) refreshCmd() tea.Cmd {
	ctx := m.ctx
	switch m.currentView {
	case LibraryView:
		if m.libraryRefresh == nil {
			return nil
		}
		refresher := m.libraryRefresh
		return func() tea.Msg {
			_, err := refresher.Refresh(ctx)
			return refreshDoneMsg{err: err}
		}
	default:
		if m.dashboardRefresh == nil {
			return nil
		}
		refresher := m.dashboardRefresh
		return func() tea.Msg {
			return refreshDoneMsg{err: refresher.Refresh(ctx)}
		}
	}
}
