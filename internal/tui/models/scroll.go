package models

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/raainshe/animedash/internal/tui/styles"
)

// footerLines is the space kept below the viewport for the scroll position
const footerLines = 1

// scroller shows content through a viewport once it outgrows its area
type scroller struct {
	viewport viewport.Model
}

func newScroller() scroller {
	return scroller{viewport: viewport.New(0, 0)}
}

// resize sets the full area, footer included
func (s scroller) resize(width, height int) scroller {
	s.viewport.Width = width
	s.viewport.Height = height - footerLines
	if s.viewport.Height < 1 {
		s.viewport.Height = 1
	}
	s.viewport.SetYOffset(s.viewport.YOffset)
	return s
}

// setContent replaces the content and keeps the offset inside it
func (s scroller) setContent(content string) scroller {
	s.viewport.SetContent(content)
	s.viewport.SetYOffset(s.viewport.YOffset)
	return s
}

func (s scroller) overflows() bool {
	return s.viewport.TotalLineCount() > s.viewport.Height
}

// offset returns the first visible line
func (s scroller) offset() int {
	return s.viewport.YOffset
}

// update handles scroll keys. Line and page keys go to the viewport.
func (s scroller) update(msg tea.Msg) (scroller, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "home", "g", "ctrl+home":
			s.viewport.GotoTop()
			return s, nil
		case "end", "G", "ctrl+end":
			s.viewport.GotoBottom()
			return s, nil
		}
	}

	var cmd tea.Cmd
	s.viewport, cmd = s.viewport.Update(msg)
	return s, cmd
}

// view renders content unchanged when it fits, else the viewport and a footer
func (s scroller) view(content string) string {
	if !s.overflows() {
		return content
	}

	footer := styles.MutedStyle.Render(fmt.Sprintf("Scroll: %d/%d %3.0f%% (↑/↓ PgUp/PgDn Home/End)",
		s.viewport.YOffset+1, s.viewport.TotalLineCount(), s.viewport.ScrollPercent()*100))
	return lipgloss.JoinVertical(lipgloss.Left, s.viewport.View(), footer)
}

// truncate shortens s to maxLen display cells
func truncate(s string, maxLen int) string {
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}

	runes := []rune(s)
	for i := len(runes) - 1; i >= 0; i-- {
		if lipgloss.Width(string(runes[:i])) <= maxLen-3 {
			return string(runes[:i]) + "..."
		}
	}
	return "..."
}

// progressBar renders a bar of width cells filled to percentage
func progressBar(percentage float64, width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithoutPercentage(),
		progress.WithWidth(width),
	)
	return bar.ViewAs(percentage / 100)
}
