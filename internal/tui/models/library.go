package models

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/raainshe/animedash/internal/core"
	"github.com/raainshe/animedash/internal/tui/styles"
)

// LibraryModel represents the library browser view
type LibraryModel struct {
	view         *core.LibraryView
	err          error
	loaded       bool
	width    int
	height   int
	scroller scroller
}

// NewLibraryModel creates a new library model
func NewLibraryModel() LibraryModel {
	return LibraryModel{scroller: newScroller()}
}

// SetResult replaces the displayed library with the outcome of a refresh
func (m LibraryModel) SetResult(view *core.LibraryView, err error) LibraryModel {
	m.view = view
	m.err = err
	m.loaded = true
	m.scroller = m.scroller.setContent(m.content())
	return m
}

// SetSize sets the area the library renders into
func (m LibraryModel) SetSize(width, height int) LibraryModel {
	m.width = width
	m.height = height
	m.scroller = m.scroller.resize(width, height).setContent(m.content())
	return m
}

// Err returns the error of the last refresh, if it failed
func (m LibraryModel) Err() error {
	return m.err
}

// Update handles scrolling keys
func (m LibraryModel) Update(msg tea.Msg) (LibraryModel, tea.Cmd) {
	var cmd tea.Cmd
	m.scroller, cmd = m.scroller.update(msg)
	return m, cmd
}

// View renders the library
func (m LibraryModel) View() string {
	if !m.loaded {
		return "Loading library..."
	}
	return m.scroller.view(m.content())
}

func (m LibraryModel) content() string {
	if !m.loaded {
		return ""
	}

	title := styles.SectionTitleStyle.Render("📚 Anime Library")

	switch {
	case m.err != nil || m.view == nil:
		return lipgloss.JoinVertical(lipgloss.Left, title, styles.ErrorStyle.Render(core.LibraryLoadFailure))
	case m.view.Empty():
		return lipgloss.JoinVertical(lipgloss.Left, title, styles.MutedStyle.Render(core.LibraryEmpty))
	}

	sections := []string{
		title,
		styles.MutedStyle.Render(fmt.Sprintf("%d anime • %d files", len(m.view.Cards), m.view.FileCount())),
	}
	for _, card := range m.view.Cards {
		sections = append(sections, m.renderCard(card))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m LibraryModel) renderCard(card core.AnimeCard) string {
	// Border and padding take four cells
	inner := m.width - 4
	if inner < 20 {
		inner = 20
	}

	lines := []string{
		styles.StatValueStyle.Render(truncate(card.Name, inner)),
		styles.MutedStyle.Render(fmt.Sprintf("🎬 %d files  💾 %s", card.TotalFiles, card.TotalSize())),
	}

	for _, file := range card.Files {
		size := file.Size()
		name := truncate(file.Name, inner-lipgloss.Width(size)-2)
		gap := inner - lipgloss.Width(name) - lipgloss.Width(size)
		if gap < 1 {
			gap = 1
		}
		lines = append(lines, name+strings.Repeat(" ", gap)+styles.MutedStyle.Render(size))
	}

	return styles.CardStyle.Width(inner + 2).Render(strings.Join(lines, "\n"))
}
