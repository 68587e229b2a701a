package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLibrary_MapShape(t *testing.T) {
	snapshot := decodeSnapshot(t, `{
		"Frieren": {
			"total_files": 2,
			"total_size_mb": 700.5,
			"files": [
				{"name": "Frieren 01.mp4", "size": 367001600, "size_mb": 350.0, "modified": "2024-01-01T00:00:00"},
				{"name": "Frieren 02.mp4", "size": 367479604, "size_mb": 350.46, "modified": "2024-01-02T00:00:00"}
			]
		},
		"Bocchi": {"total_files": 0, "total_size_mb": 0, "files": []}
	}`)

	view := BuildLibrary(snapshot, time.Now())

	require.Len(t, view.Cards, 2)
	assert.False(t, view.Empty())
	assert.Equal(t, 2, view.FileCount())

	card := view.Cards[0]
	assert.Equal(t, "Frieren", card.Name)
	assert.Equal(t, 2, card.TotalFiles)
	assert.Equal(t, "700.50 MB", card.TotalSize())
	require.Len(t, card.Files, 2)
	assert.Equal(t, "Frieren 01.mp4", card.Files[0].Name)
	assert.Equal(t, "/api/download/file/Frieren%2001.mp4", card.Files[0].DownloadPath)
	assert.Equal(t, "350 MB", card.Files[0].Size())
	assert.Equal(t, "350.46 MB", card.Files[1].Size())

	assert.Equal(t, "Bocchi", view.Cards[1].Name)
	assert.Empty(t, view.Cards[1].Files)
}

func TestBuildLibrary_ListShapeHasNoFileRows(t *testing.T) {
	snapshot := decodeSnapshot(t, `[{"name": "A", "total_files": 3, "total_size_mb": 100}]`)

	view := BuildLibrary(snapshot, time.Now())

	require.Len(t, view.Cards, 1)
	assert.Equal(t, "A", view.Cards[0].Name)
	assert.Empty(t, view.Cards[0].Files)
}

func TestBuildLibrary_Empty(t *testing.T) {
	view := BuildLibrary(decodeSnapshot(t, `{}`), time.Now())
	assert.True(t, view.Empty())
	assert.Equal(t, 0, view.FileCount())

	var missing *LibraryView
	assert.True(t, missing.Empty())
}

func TestFileRow_EscapesReservedCharacters(t *testing.T) {
	snapshot := decodeSnapshot(t, `{"A": {"total_files": 1, "total_size_mb": 1, "files": [{"name": "a&b?#1.mkv", "size_mb": 1}]}}`)

	view := BuildLibrary(snapshot, time.Now())

	assert.Equal(t, "/api/download/file/a&b%3F%231.mkv", view.Cards[0].Files[0].DownloadPath)
}
