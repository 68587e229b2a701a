package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/raainshe/animedash/internal/animeapi"
	"github.com/raainshe/animedash/internal/core"
	"github.com/raainshe/animedash/internal/tui/styles"
)

// DashboardModel represents the dashboard view
type DashboardModel struct {
	view         *core.DashboardView
	width    int
	height   int
	scroller scroller
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel() DashboardModel {
	return DashboardModel{scroller: newScroller()}
}

// SetView replaces the displayed dashboard
func (m DashboardModel) SetView(view *core.DashboardView) DashboardModel {
	m.view = view
	m.scroller = m.scroller.setContent(m.content())
	return m
}

// SetSize sets the area the dashboard renders into
func (m DashboardModel) SetSize(width, height int) DashboardModel {
	m.width = width
	m.height = height
	m.scroller = m.scroller.resize(width, height).setContent(m.content())
	return m
}

// Current returns the displayed dashboard, nil before the first refresh
func (m DashboardModel) Current() *core.DashboardView {
	return m.view
}

// Update handles scrolling keys
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	var cmd tea.Cmd
	m.scroller, cmd = m.scroller.update(msg)
	return m, cmd
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.view == nil {
		return "Loading dashboard data..."
	}
	return m.scroller.view(m.content())
}

func (m DashboardModel) content() string {
	if m.view == nil {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStats(),
		"",
		m.renderActiveJobs(),
		"",
		m.renderRecent(),
	)
}

func (m DashboardModel) renderStats() string {
	stats := m.view.Stats

	lines := []string{
		styles.SectionTitleStyle.Render("📊 Library Overview"),
		fmt.Sprintf("📚 Total Anime: %s", styles.StatValueStyle.Render(strconv.Itoa(stats.TotalAnime))),
		fmt.Sprintf("🎬 Total Episodes: %s", styles.StatValueStyle.Render(strconv.Itoa(stats.TotalEpisodes))),
		fmt.Sprintf("💾 Total Size: %s", styles.StatValueStyle.Render(m.view.TotalSize)),
		fmt.Sprintf("📥 Active Downloads: %s", styles.StatusStyle(animeapi.StatusDownloading).Render(strconv.Itoa(m.view.ActiveCount))),
	}
	return strings.Join(lines, "\n")
}

func (m DashboardModel) renderActiveJobs() string {
	lines := []string{styles.SectionTitleStyle.Render("⬇️  Active Downloads")}

	if len(m.view.ActiveJobs) == 0 {
		lines = append(lines, styles.MutedStyle.Render(core.NoActiveDownloads))
		return strings.Join(lines, "\n")
	}

	barWidth := m.width / 3
	if barWidth > 40 {
		barWidth = 40
	}
	if barWidth < 10 {
		barWidth = 10
	}

	for _, job := range m.view.ActiveJobs {
		badge := styles.StatusStyle(job.Status).Render("[" + job.StatusLabel + "]")
		title := truncate(job.Title, m.width-lipgloss.Width(badge)-2)
		lines = append(lines, fmt.Sprintf("%s %s", title, badge))

		bar := progressBar(job.Progress, barWidth, styles.StatusColor(job.Status))
		lines = append(lines, fmt.Sprintf("%s %5.1f%%", bar, job.Progress))

		lines = append(lines, styles.MutedStyle.Render(job.EpisodePrefix+job.EpisodeCount()))
		if detail := jobDetail(job); detail != "" {
			lines = append(lines, styles.MutedStyle.Render(detail))
		}
		lines = append(lines, "")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// jobDetail returns the optional season and elapsed time line of a job
func jobDetail(job core.JobView) string {
	var parts []string
	if job.Season != nil {
		parts = append(parts, fmt.Sprintf("Season %d", *job.Season))
	}
	if job.ElapsedSeconds != nil {
		elapsed := time.Duration(*job.ElapsedSeconds) * time.Second
		parts = append(parts, "Elapsed "+elapsed.String())
	}
	return strings.Join(parts, " • ")
}

func (m DashboardModel) renderRecent() string {
	lines := []string{styles.SectionTitleStyle.Render("🕒 Recent Downloads")}

	if len(m.view.Recent) == 0 {
		lines = append(lines, styles.MutedStyle.Render(core.NoRecentDownloads))
		return strings.Join(lines, "\n")
	}

	for _, item := range m.view.Recent {
		stats := fmt.Sprintf("🎬 %d episodes  💾 %s", item.Episodes, core.FormatMB(item.SizeMB))
		name := truncate(item.Name, m.width-lipgloss.Width(stats)-3)
		lines = append(lines, fmt.Sprintf("%s  %s", name, styles.MutedStyle.Render(stats)))
	}

	return strings.Join(lines, "\n")
}
