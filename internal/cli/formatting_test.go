package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raainshe/animedash/internal/animeapi"
	"github.com/raainshe/animedash/internal/core"
)

func init() {
	color.NoColor = true
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  int64
		expected string
	}{
		{0, "0s"},
		{45, "45s"},
		{95, "1m 35s"},
		{3660, "1h 1m"},
		{90000, "1d 1h"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDuration(tt.seconds))
	}
}

func TestCreateProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░ 50.0%", CreateProgressBar(50, 10))
	assert.Equal(t, "░░░░░░░░░░ 0.0%", CreateProgressBar(-5, 10))
	assert.Equal(t, "██████████ 100.0%", CreateProgressBar(130, 10))
}

func TestGetStatusColorAndIcon(t *testing.T) {
	assert.Equal(t, ColorDownloading, GetStatusColor(animeapi.StatusDownloading))
	assert.Equal(t, ColorFetching, GetStatusColor(animeapi.StatusFetchingEpisodes))
	assert.Equal(t, ColorError, GetStatusColor(animeapi.StatusFailed))
	assert.Equal(t, "🧩", GetStatusIcon(animeapi.StatusMerging))
	assert.Equal(t, "❓", GetStatusIcon(animeapi.JobStatus("paused")))
}

func TestConvertJobToRow(t *testing.T) {
	episode := "7"
	elapsed := int64(125)
	job := core.NewJobView(animeapi.DownloadJob{
		JobID:             3,
		Status:            animeapi.StatusFetchingInfo,
		Progress:          12.5,
		CurrentEpisode:    &episode,
		CompletedEpisodes: 6,
		TotalEpisodes:     24,
		ElapsedSeconds:    &elapsed,
	})

	row := ConvertJobToRow(job)
	assert.Equal(t, 3, row.JobID)
	assert.Equal(t, core.TitlePlaceholder, row.Title)
	assert.Equal(t, "fetching info", row.Status)
	assert.Equal(t, "Episode 7 • 6/24 episodes", row.Episodes)
	assert.Equal(t, "2m 5s", row.Elapsed)
}

func sampleDashboard() *core.DashboardView {
	snapshot := animeapi.NewListSnapshot(
		animeapi.LibraryEntry{Name: "Frieren", TotalFiles: 12, TotalSizeMB: 2048},
		animeapi.LibraryEntry{Name: "Bocchi the Rock", TotalFiles: 3, TotalSizeMB: 512},
	)
	jobs := []animeapi.DownloadJob{
		{JobID: 1, AnimeTitle: "Dungeon Meshi", Status: animeapi.StatusDownloading, Progress: 40,
			CompletedEpisodes: 2, TotalEpisodes: 24},
		{JobID: 2, AnimeTitle: "Done", Status: animeapi.StatusCompleted},
	}
	return core.BuildDashboard(snapshot, jobs, time.Now())
}

func TestPrintDashboard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintDashboard(&buf, sampleDashboard(), false))

	out := buf.String()
	assert.Contains(t, out, "Total Anime: 2")
	assert.Contains(t, out, "Total Episodes: 15")
	assert.Contains(t, out, "Total Size: 2.50 GB")
	assert.Contains(t, out, "Active Downloads: 1")
	assert.Contains(t, out, "Dungeon Meshi")
	assert.Contains(t, out, "████████░░░░░░░░░░░░ 40.0%")
	assert.Contains(t, out, "2/24 episodes")
	assert.NotContains(t, out, "Done")
	assert.Contains(t, out, "Bocchi the Rock")
	assert.Contains(t, out, "3 episodes  💾 512.00 MB")
}

func TestPrintDashboard_Empty(t *testing.T) {
	var buf bytes.Buffer
	view := core.BuildDashboard(animeapi.NewMapSnapshot(), nil, time.Now())
	require.NoError(t, PrintDashboard(&buf, view, false))

	assert.Contains(t, buf.String(), core.NoActiveDownloads)
	assert.Contains(t, buf.String(), core.NoRecentDownloads)
	assert.Contains(t, buf.String(), "Total Size: 0.00 GB")
}

func TestPrintDashboard_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintDashboard(&buf, sampleDashboard(), true))

	var decoded core.DashboardView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.ActiveCount)
	assert.Len(t, decoded.Recent, 2)
}

func TestPrintLibrary(t *testing.T) {
	snapshot := animeapi.NewMapSnapshot(
		animeapi.LibraryEntry{
			Name:        "Frieren",
			TotalFiles:  1,
			TotalSizeMB: 350.5,
			Files:       []animeapi.FileEntry{{Name: "Frieren 01.mp4", SizeMB: 350.5}},
		},
		animeapi.LibraryEntry{Name: "Empty Show"},
	)

	var buf bytes.Buffer
	require.NoError(t, PrintLibrary(&buf, core.BuildLibrary(snapshot, time.Now()), nil, false))

	out := buf.String()
	assert.Contains(t, out, "Frieren 01.mp4")
	assert.Contains(t, out, "350.5 MB")
	assert.Contains(t, out, "/api/download/file/Frieren%2001.mp4")
	assert.Contains(t, out, "Empty Show")
	assert.Contains(t, out, "Summary: 2 anime • 1 files")
}

func TestPrintLibrary_EmptyAndError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintLibrary(&buf, core.BuildLibrary(animeapi.NewMapSnapshot(), time.Now()), nil, false))
	assert.Contains(t, buf.String(), core.LibraryEmpty)

	buf.Reset()
	require.NoError(t, PrintLibrary(&buf, nil, errors.New("refused"), true))
	assert.Equal(t, core.LibraryLoadFailure+"\n", buf.String())
}
