package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/raainshe/animedash/internal/animeapi"
	"github.com/raainshe/animedash/internal/core"
)

func intPtr(n int) *int { return &n }

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Frieren", truncate("Frieren", 10))
	assert.Equal(t, "Frie...", truncate("Frieren: Beyond", 7))
	assert.Equal(t, "...", truncate("Frieren", 2))
}

func TestScroller(t *testing.T) {
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = "row"
	}
	lines[0] = "first"
	lines[19] = "last"
	content := strings.Join(lines, "\n")

	s := newScroller().resize(40, 10).setContent(content)
	top := s.view(content)
	assert.Contains(t, top, "first")
	assert.NotContains(t, top, "last")
	assert.Contains(t, top, "Scroll: 1/20")

	s, _ = s.update(tea.KeyMsg{Type: tea.KeyEnd})
	bottom := s.view(content)
	assert.Contains(t, bottom, "last")
	assert.NotContains(t, bottom, "first")

	// Shrinking content pulls the offset back inside it
	short := strings.Join(lines[:12], "\n")
	s = s.setContent(short)
	assert.Equal(t, 3, s.offset())

	s, _ = s.update(tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 0, s.offset())

	roomy := newScroller().resize(40, 40).setContent(content)
	assert.Equal(t, content, roomy.view(content))
}

func TestProgressBar(t *testing.T) {
	half := progressBar(50, 10, "#FFFFFF")
	assert.Equal(t, 5, strings.Count(half, "█"))
	assert.Equal(t, 5, strings.Count(half, "░"))

	full := progressBar(150, 10, "#FFFFFF")
	assert.Equal(t, 10, strings.Count(full, "█"))

	assert.Equal(t, "", progressBar(50, 0, "#FFFFFF"))
}

func TestDashboardModel_View(t *testing.T) {
	seconds := int64(95)
	jobs := []animeapi.DownloadJob{
		{JobID: 1, AnimeTitle: "Frieren", Status: animeapi.StatusMerging, Progress: 90,
			CompletedEpisodes: 12, TotalEpisodes: 12, Season: intPtr(2), ElapsedSeconds: &seconds},
		{JobID: 2, Status: animeapi.StatusInitializing},
	}
	view := core.BuildDashboard(animeapi.NewMapSnapshot(), jobs, time.Now())

	m := NewDashboardModel().SetSize(120, 60).SetView(view)
	out := m.View()

	assert.Contains(t, out, "Total Anime: 0")
	assert.Contains(t, out, "Active Downloads: 1")
	assert.Contains(t, out, "Frieren [merging]")
	assert.Contains(t, out, "12/12 episodes")
	assert.Contains(t, out, "Season 2 • Elapsed 1m35s")
	assert.Contains(t, out, core.TitlePlaceholder+" [initializing]")
	assert.Contains(t, out, core.NoRecentDownloads)
}

func TestDashboardModel_Empty(t *testing.T) {
	m := NewDashboardModel()
	assert.Equal(t, "Loading dashboard data...", m.View())

	m = m.SetSize(120, 60).SetView(core.BuildDashboard(animeapi.NewListSnapshot(), nil, time.Now()))
	assert.Contains(t, m.View(), core.NoActiveDownloads)
}

func TestDashboardModel_ScrollKeys(t *testing.T) {
	items := make([]animeapi.LibraryEntry, 5)
	for i := range items {
		items[i] = animeapi.LibraryEntry{Name: "Anime", TotalFiles: 1}
	}
	view := core.BuildDashboard(animeapi.NewListSnapshot(items...), nil, time.Now())
	m := NewDashboardModel().SetSize(120, 8).SetView(view)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.scroller.offset())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	end := m.scroller.offset()
	assert.Greater(t, end, 1)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, end-1, m.scroller.offset())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 0, m.scroller.offset())
}

func TestLibraryModel_View(t *testing.T) {
	snapshot := animeapi.NewMapSnapshot(animeapi.LibraryEntry{
		Name:        "Frieren",
		TotalFiles:  2,
		TotalSizeMB: 700.5,
		Files: []animeapi.FileEntry{
			{Name: "Frieren 01.mp4", SizeMB: 350},
			{Name: "Frieren 02.mp4", SizeMB: 350.5},
		},
	})

	m := NewLibraryModel()
	assert.Equal(t, "Loading library...", m.View())

	m = m.SetSize(100, 60).SetResult(core.BuildLibrary(snapshot, time.Now()), nil)
	out := m.View()

	assert.Contains(t, out, "1 anime • 2 files")
	assert.Contains(t, out, "Frieren")
	assert.Contains(t, out, "2 files  💾 700.50 MB")
	assert.Contains(t, out, "Frieren 01.mp4")
	assert.Contains(t, out, "350.5 MB")
	assert.NoError(t, m.Err())
}

func TestLibraryModel_EmptyAndError(t *testing.T) {
	m := NewLibraryModel().SetSize(100, 60)

	m = m.SetResult(core.BuildLibrary(animeapi.NewMapSnapshot(), time.Now()), nil)
	assert.Contains(t, m.View(), core.LibraryEmpty)

	m = m.SetResult(nil, errors.New("timeout"))
	assert.Contains(t, m.View(), core.LibraryLoadFailure)
	assert.Error(t, m.Err())
}
