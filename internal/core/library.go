package core

import (
	"strconv"
	"time"

	"github.com/raainshe/animedash/internal/animeapi"
)

// FileRow is one downloadable file of an anime card
type FileRow struct {
	Name         string  `json:"name"`
	SizeMB       float64 `json:"size_mb"`
	DownloadPath string  `json:"download_path"`
}

// Size returns the file size exactly as the backend rounded it
func (f FileRow) Size() string {
	return strconv.FormatFloat(f.SizeMB, 'f', -1, 64) + " MB"
}

// AnimeCard is one anime of the library browser
type AnimeCard struct {
	Name        string    `json:"name"`
	TotalFiles  int       `json:"total_files"`
	TotalSizeMB float64   `json:"total_size_mb"`
	Files       []FileRow `json:"files"`
}

// TotalSize returns the card size with two decimals
func (c AnimeCard) TotalSize() string {
	return FormatMB(c.TotalSizeMB)
}

// LibraryView is everything the library browser shows after one successful cycle
type LibraryView struct {
	Cards       []AnimeCard `json:"cards"`
	RefreshedAt time.Time   `json:"refreshed_at"`
}

// Empty reports whether the library has no anime
func (v *LibraryView) Empty() bool {
	return v == nil || len(v.Cards) == 0
}

// FileCount returns the number of file rows across all cards
func (v *LibraryView) FileCount() int {
	if v == nil {
		return 0
	}
	count := 0
	for _, card := range v.Cards {
		count += len(card.Files)
	}
	return count
}

// BuildLibrary turns a library snapshot into browser cards in snapshot order
func BuildLibrary(snapshot animeapi.LibrarySnapshot, now time.Time) *LibraryView {
	entries := Normalize(snapshot)
	cards := make([]AnimeCard, 0, len(entries))

	for _, entry := range entries {
		rows := make([]FileRow, 0, len(entry.Files))
		for _, file := range entry.Files {
			rows = append(rows, FileRow{
				Name:         file.Name,
				SizeMB:       file.SizeMB,
				DownloadPath: animeapi.FilePath(file.Name),
			})
		}

		cards = append(cards, AnimeCard{
			Name:        entry.Name,
			TotalFiles:  entry.TotalFiles,
			TotalSizeMB: entry.TotalSizeMB,
			Files:       rows,
		})
	}

	return &LibraryView{Cards: cards, RefreshedAt: now}
}
