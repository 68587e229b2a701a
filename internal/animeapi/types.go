package animeapi

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// JobStatus represents the state of a download job
type JobStatus string

const (
	StatusInitializing     JobStatus = "initializing"      // Job created, worker not started yet
	StatusFetchingInfo     JobStatus = "fetching_info"     // Resolving anime id and title
	StatusFetchingEpisodes JobStatus = "fetching_episodes" // Listing episodes of the anime
	StatusDownloading      JobStatus = "downloading"       // Episodes are being downloaded
	StatusMerging          JobStatus = "merging"           // Downloaded episodes are being merged
	StatusCompleted        JobStatus = "completed"         // Job finished
	StatusFailed           JobStatus = "failed"            // Job aborted with an error
)

// Label returns the status with underscores replaced by spaces
func (s JobStatus) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// FileEntry represents one downloadable file of an anime
type FileEntry struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`     // bytes
	SizeMB   float64 `json:"size_mb"`  // pre-rounded by the backend
	Modified string  `json:"modified"` // ISO-8601 as sent by the backend
}

// LibraryEntry represents one anime's aggregate record
type LibraryEntry struct {
	Name        string      `json:"name"`
	TotalFiles  int         `json:"total_files"`
	TotalSizeMB float64     `json:"total_size_mb"`
	Files       []FileEntry `json:"files,omitempty"`
}

// LogEntry represents one line of a job's log tail
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// DownloadJob represents a snapshot of one download task
type DownloadJob struct {
	JobID             int        `json:"job_id"`
	AnimeURL          string     `json:"anime_url"`
	AnimeTitle        string     `json:"anime_title"`
	Season            *int       `json:"season"`
	Status            JobStatus  `json:"status"`
	Progress          float64    `json:"progress"` // percent, 0-100
	CurrentEpisode    *string    `json:"current_episode"` // episode id as sent, e.g. "12.5"
	TotalEpisodes     int        `json:"total_episodes"`
	CompletedEpisodes int        `json:"completed_episodes"`
	Logs              []LogEntry `json:"logs"`
	Error             string     `json:"error"`
	DownloadedFiles   []string   `json:"downloaded_files"`
	MergedFile        string     `json:"merged_file"`
	ElapsedSeconds    *int64     `json:"elapsed_seconds"`
	StartTime         string     `json:"start_time"`
	EndTime           string     `json:"end_time"`
}

// UnmarshalJSON accepts current_episode as a number or a string and keeps
// its text as sent. Values that cannot be shown are treated as absent.
func (j *DownloadJob) UnmarshalJSON(data []byte) error {
	type plain DownloadJob
	aux := struct {
		*plain
		CurrentEpisode json.RawMessage `json:"current_episode"`
	}{plain: (*plain)(j)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	j.CurrentEpisode = parseEpisode(aux.CurrentEpisode)
	return nil
}

// parseEpisode maps null, false, "", and 0 to nil. Anything else that has a
// plain text form is kept verbatim, so "0", "08" and "12.5" survive.
func parseEpisode(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil
	}

	switch v := value.(type) {
	case nil:
		return nil
	case bool:
		if !v {
			return nil
		}
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return nil
		}
	case map[string]interface{}, []interface{}:
		return nil
	}

	episode, err := cast.ToStringE(value)
	if err != nil || episode == "" {
		return nil
	}
	return &episode
}

// HasEpisode reports whether the current episode is known
func (j DownloadJob) HasEpisode() bool {
	return j.CurrentEpisode != nil
}
