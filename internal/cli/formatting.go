package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/raainshe/animedash/internal/animeapi"
	"github.com/raainshe/animedash/internal/core"
)

// Colors for different job states
var (
	ColorPending     = color.New(color.FgWhite)
	ColorFetching    = color.New(color.FgYellow, color.Bold)
	ColorDownloading = color.New(color.FgBlue, color.Bold)
	ColorMerging     = color.New(color.FgMagenta, color.Bold)
	ColorCompleted   = color.New(color.FgGreen, color.Bold)
	ColorError       = color.New(color.FgRed, color.Bold)
	ColorHeader      = color.New(color.FgWhite, color.Bold)
	ColorMuted       = color.New(color.FgHiBlack)
)

// Progress bar characters
const (
	ProgressFull  = "█"
	ProgressEmpty = "░"
	ProgressWidth = 20
)

// JobRow represents a row in the active downloads table
type JobRow struct {
	JobID    int     `json:"job_id"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Episodes string  `json:"episodes"`
	Elapsed  string  `json:"elapsed,omitempty"`
}

// FormatDuration converts seconds to human readable duration
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}

	duration := time.Duration(seconds) * time.Second

	switch {
	case duration < time.Minute:
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	case duration < time.Hour:
		return fmt.Sprintf("%dm %ds", int(duration.Minutes()), int(duration.Seconds())%60)
	case duration < 24*time.Hour:
		return fmt.Sprintf("%dh %dm", int(duration.Hours()), int(duration.Minutes())%60)
	default:
		return fmt.Sprintf("%dd %dh", int(duration.Hours())/24, int(duration.Hours())%24)
	}
}

// CreateProgressBar creates a Unicode progress bar for a percentage in [0, 100]
func CreateProgressBar(percentage float64, width int) string {
	if percentage < 0 {
		percentage = 0
	} else if percentage > 100 {
		percentage = 100
	}

	filled := int(percentage / 100 * float64(width))
	bar := strings.Repeat(ProgressFull, filled) + strings.Repeat(ProgressEmpty, width-filled)
	return fmt.Sprintf("%s %.1f%%", bar, percentage)
}

// GetStatusColor returns the color of a job status
func GetStatusColor(status animeapi.JobStatus) *color.Color {
	switch status {
	case animeapi.StatusInitializing:
		return ColorPending
	case animeapi.StatusFetchingInfo, animeapi.StatusFetchingEpisodes:
		return ColorFetching
	case animeapi.StatusDownloading:
		return ColorDownloading
	case animeapi.StatusMerging:
		return ColorMerging
	case animeapi.StatusCompleted:
		return ColorCompleted
	case animeapi.StatusFailed:
		return ColorError
	default:
		return color.New(color.Reset)
	}
}

// GetStatusIcon returns the emoji of a job status
func GetStatusIcon(status animeapi.JobStatus) string {
	switch status {
	case animeapi.StatusInitializing:
		return "⏳"
	case animeapi.StatusFetchingInfo, animeapi.StatusFetchingEpisodes:
		return "🔎"
	case animeapi.StatusDownloading:
		return "⬇️"
	case animeapi.StatusMerging:
		return "🧩"
	case animeapi.StatusCompleted:
		return "✅"
	case animeapi.StatusFailed:
		return "❌"
	default:
		return "❓"
	}
}

// ConvertJobToRow prepares one active job for the table
func ConvertJobToRow(job core.JobView) JobRow {
	row := JobRow{
		JobID:    job.JobID,
		Title:    job.Title,
		Status:   job.StatusLabel,
		Progress: job.Progress,
		Episodes: job.EpisodePrefix + job.EpisodeCount(),
	}
	if job.ElapsedSeconds != nil {
		row.Elapsed = FormatDuration(*job.ElapsedSeconds)
	}
	return row
}

func truncateName(name string, max int) string {
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	return string(runes[:max-3]) + "..."
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// PrintDashboard prints the library overview, active downloads and recent feed
func PrintDashboard(w io.Writer, view *core.DashboardView, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, view)
	}

	fmt.Fprintf(w, "📊 %s\n\n", ColorHeader.Sprint("Library Overview"))
	fmt.Fprintf(w, "📚 Total Anime: %d  🎬 Total Episodes: %d  💾 Total Size: %s  📥 Active Downloads: %s\n\n",
		view.Stats.TotalAnime,
		view.Stats.TotalEpisodes,
		view.TotalSize,
		ColorDownloading.Sprint(strconv.Itoa(view.ActiveCount)))

	fmt.Fprintf(w, "⬇️  %s\n", ColorHeader.Sprint("Active Downloads"))
	if len(view.ActiveJobs) == 0 {
		fmt.Fprintf(w, "%s\n\n", ColorMuted.Sprint(core.NoActiveDownloads))
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("ID", "Title", "Status", "Progress", "Episodes", "Elapsed")
		for _, job := range view.ActiveJobs {
			row := ConvertJobToRow(job)
			if err := table.Append([]string{
				strconv.Itoa(row.JobID),
				truncateName(row.Title, 40),
				GetStatusIcon(job.Status) + " " + GetStatusColor(job.Status).Sprint(row.Status),
				CreateProgressBar(row.Progress, ProgressWidth),
				row.Episodes,
				row.Elapsed,
			}); err != nil {
				return fmt.Errorf("failed to add job row: %w", err)
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render jobs table: %w", err)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "🕒 %s\n", ColorHeader.Sprint("Recent Downloads"))
	if len(view.Recent) == 0 {
		fmt.Fprintf(w, "%s\n", ColorMuted.Sprint(core.NoRecentDownloads))
		return nil
	}
	for _, item := range view.Recent {
		fmt.Fprintf(w, "  %s  %s\n",
			truncateName(item.Name, 50),
			ColorMuted.Sprintf("🎬 %d episodes  💾 %s", item.Episodes, core.FormatMB(item.SizeMB)))
	}
	return nil
}

// PrintLibrary prints every anime of the library with its files. A failed
// refresh prints the load failure message instead.
func PrintLibrary(w io.Writer, view *core.LibraryView, loadErr error, jsonOutput bool) error {
	if loadErr != nil || view == nil {
		fmt.Fprintf(w, "%s\n", ColorError.Sprint(core.LibraryLoadFailure))
		return nil
	}

	if jsonOutput {
		return writeJSON(w, view)
	}

	if view.Empty() {
		fmt.Fprintf(w, "📭 %s\n", core.LibraryEmpty)
		return nil
	}

	fmt.Fprintf(w, "📚 %s\n\n", ColorHeader.Sprint("Anime Library"))

	for _, card := range view.Cards {
		fmt.Fprintf(w, "🎞️  %s  %s\n",
			ColorHeader.Sprint(card.Name),
			ColorMuted.Sprintf("🎬 %d files  💾 %s", card.TotalFiles, card.TotalSize()))

		if len(card.Files) == 0 {
			fmt.Fprintln(w)
			continue
		}

		table := tablewriter.NewWriter(w)
		table.Header("File", "Size", "Download")
		for _, file := range card.Files {
			if err := table.Append([]string{truncateName(file.Name, 60), file.Size(), file.DownloadPath}); err != nil {
				return fmt.Errorf("failed to add file row: %w", err)
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render files table: %w", err)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "📊 %s: %d anime • %d files\n", ColorHeader.Sprint("Summary"), len(view.Cards), view.FileCount())
	return nil
}
