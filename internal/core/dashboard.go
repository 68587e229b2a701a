package core

import (
	"fmt"
	"time"

	"github.com/raainshe/animedash/internal/animeapi"
)

// Placeholder and empty-state text shared by every renderer
const (
	TitlePlaceholder   = "Loading..."
	NoActiveDownloads  = "No active downloads"
	NoRecentDownloads  = "No downloads yet. Start downloading anime!"
	LibraryEmpty       = "Your library is empty. Download some anime to get started!"
	LibraryLoadFailure = "Error loading library. Please try again."
)

// RecentFeedLimit caps the recent downloads feed
const RecentFeedLimit = 5

// countedStatuses drive the active downloads counter
var countedStatuses = map[animeapi.JobStatus]bool{
	animeapi.StatusDownloading:      true,
	animeapi.StatusFetchingInfo:     true,
	animeapi.StatusFetchingEpisodes: true,
	animeapi.StatusMerging:          true,
}

// listedStatuses drive the active downloads feed. Unlike the counter it also
// lists jobs that are still initializing.
var listedStatuses = map[animeapi.JobStatus]bool{
	animeapi.StatusDownloading:      true,
	animeapi.StatusFetchingInfo:     true,
	animeapi.StatusFetchingEpisodes: true,
	animeapi.StatusMerging:          true,
	animeapi.StatusInitializing:     true,
}

// LibraryStats holds the aggregate library figures
type LibraryStats struct {
	TotalAnime    int     `json:"total_anime"`
	TotalEpisodes int     `json:"total_episodes"`
	TotalSizeMB   float64 `json:"total_size_mb"`
}

// TotalSize returns the total library size as displayed, in gigabytes
func (s LibraryStats) TotalSize() string {
	return FormatGB(s.TotalSizeMB)
}

// RecentItem is one row of the recent downloads feed
type RecentItem struct {
	Name     string  `json:"name"`
	Episodes int     `json:"episodes"`
	SizeMB   float64 `json:"size_mb"`
}

// JobView is one card of the active downloads feed
type JobView struct {
	JobID             int                `json:"job_id"`
	Title             string             `json:"title"`
	Status            animeapi.JobStatus `json:"status"`
	StatusLabel       string             `json:"status_label"`
	Progress          float64            `json:"progress"`
	EpisodePrefix     string             `json:"episode_prefix"`
	CompletedEpisodes int                `json:"completed_episodes"`
	TotalEpisodes     int                `json:"total_episodes"`
	Season            *int               `json:"season,omitempty"`
	ElapsedSeconds    *int64             `json:"elapsed_seconds,omitempty"`
}

// EpisodeCount returns the "completed/total episodes" line
func (j JobView) EpisodeCount() string {
	return fmt.Sprintf("%d/%d episodes", j.CompletedEpisodes, j.TotalEpisodes)
}

// DashboardView is everything the dashboard shows after one successful cycle
type DashboardView struct {
	Stats       LibraryStats `json:"stats"`
	TotalSize   string       `json:"total_size"`
	ActiveCount int          `json:"active_count"`
	ActiveJobs  []JobView    `json:"active_jobs"`
	Recent      []RecentItem `json:"recent"`
	RefreshedAt time.Time    `json:"refreshed_at"`
}

// Normalize flattens a library snapshot of either shape into ordered entries
func Normalize(snapshot animeapi.LibrarySnapshot) []animeapi.LibraryEntry {
	return snapshot.Entries()
}

// Summarize folds entries into library stats and the unsorted recent items list
func Summarize(entries []animeapi.LibraryEntry) (LibraryStats, []RecentItem) {
	stats := LibraryStats{}
	items := make([]RecentItem, 0, len(entries))

	for _, entry := range entries {
		stats.TotalAnime++
		stats.TotalEpisodes += entry.TotalFiles
		stats.TotalSizeMB += entry.TotalSizeMB

		items = append(items, RecentItem{
			Name:     entry.Name,
			Episodes: entry.TotalFiles,
			SizeMB:   entry.TotalSizeMB,
		})
	}

	return stats, items
}

// CountActive counts jobs that are actively working. Initializing jobs are not counted.
func CountActive(jobs []animeapi.DownloadJob) int {
	count := 0
	for _, job := range jobs {
		if countedStatuses[job.Status] {
			count++
		}
	}
	return count
}

// ActiveJobs returns the jobs listed in the active downloads feed, in input order
func ActiveJobs(jobs []animeapi.DownloadJob) []animeapi.DownloadJob {
	active := make([]animeapi.DownloadJob, 0, len(jobs))
	for _, job := range jobs {
		if listedStatuses[job.Status] {
			active = append(active, job)
		}
	}
	return active
}

// RecentFeed returns at most RecentFeedLimit items, keeping their order
func RecentFeed(items []RecentItem) []RecentItem {
	if len(items) > RecentFeedLimit {
		items = items[:RecentFeedLimit]
	}
	recent := make([]RecentItem, len(items))
	copy(recent, items)
	return recent
}

// NewJobView prepares one download job for display
func NewJobView(job animeapi.DownloadJob) JobView {
	title := job.AnimeTitle
	if title == "" {
		title = TitlePlaceholder
	}

	return JobView{
		JobID:             job.JobID,
		Title:             title,
		Status:            job.Status,
		StatusLabel:       StatusLabel(job.Status),
		Progress:          job.Progress,
		EpisodePrefix:     EpisodePrefix(job),
		CompletedEpisodes: job.CompletedEpisodes,
		TotalEpisodes:     job.TotalEpisodes,
		Season:            job.Season,
		ElapsedSeconds:    job.ElapsedSeconds,
	}
}

// BuildDashboard aggregates one library snapshot and one download list into a view
func BuildDashboard(snapshot animeapi.LibrarySnapshot, jobs []animeapi.DownloadJob, now time.Time) *DashboardView {
	stats, items := Summarize(Normalize(snapshot))

	active := ActiveJobs(jobs)
	views := make([]JobView, 0, len(active))
	for _, job := range active {
		views = append(views, NewJobView(job))
	}

	return &DashboardView{
		Stats:       stats,
		TotalSize:   stats.TotalSize(),
		ActiveCount: CountActive(jobs),
		ActiveJobs:  views,
		Recent:      RecentFeed(items),
		RefreshedAt: now,
	}
}

// FormatGB renders a megabyte amount as gigabytes with two decimals
func FormatGB(mb float64) string {
	return fmt.Sprintf("%.2f GB", mb/1024)
}

// FormatMB renders a megabyte amount with two decimals
func FormatMB(mb float64) string {
	return fmt.Sprintf("%.2f MB", mb)
}

// StatusLabel returns the badge text of a job status
func StatusLabel(status animeapi.JobStatus) string {
	return status.Label()
}

// EpisodePrefix returns "Episode N • " when the current episode is known
func EpisodePrefix(job animeapi.DownloadJob) string {
	if !job.HasEpisode() {
		return ""
	}
	return "Episode " + *job.CurrentEpisode + " • "
}
