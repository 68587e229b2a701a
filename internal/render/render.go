// Package render turns dashboard and library views into the HTML fragments
// of their page elements.
package render

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/raainshe/animedash/internal/core"
	"github.com/raainshe/animedash/internal/logging"
	"github.com/raainshe/animedash/internal/page"
)

var funcs = template.FuncMap{
	"mb":                func(mb float64) string { return core.FormatMB(mb) },
	"noActiveDownloads": func() string { return core.NoActiveDownloads },
	"noRecentDownloads": func() string { return core.NoRecentDownloads },
	"libraryEmpty":      func() string { return core.LibraryEmpty },
}

var fragments = template.Must(template.New("fragments").Funcs(funcs).Parse(`
{{define "emptyState"}}<div class="empty-state">{{.}}</div>{{end}}

{{define "activeJobs"}}
{{- if not . -}}
{{template "emptyState" noActiveDownloads}}
{{- else -}}
{{- range . -}}
<div class="job-card" data-job-id="{{.JobID}}">
<div class="job-header">
<div class="job-title">{{.Title}}</div>
<span class="status-badge status-{{.Status}}">{{.StatusLabel}}</span>
</div>
<div class="progress-bar"><div class="progress-fill" style="width: {{.Progress}}%"></div></div>
<div class="job-meta">{{.EpisodePrefix}}{{.EpisodeCount}}</div>
</div>
{{- end -}}
{{- end -}}
{{end}}

{{define "recent"}}
{{- if not . -}}
{{template "emptyState" noRecentDownloads}}
{{- else -}}
{{- range . -}}
<div class="anime-card">
<div class="anime-title">{{.Name}}</div>
<div class="anime-stats"><span>🎬 {{.Episodes}} episodes</span><span>💾 {{mb .SizeMB}}</span></div>
</div>
{{- end -}}
{{- end -}}
{{end}}

{{define "library"}}
{{- if not .Cards -}}
{{template "emptyState" libraryEmpty}}
{{- else -}}
<div class="anime-grid">
{{- range .Cards -}}
<div class="anime-card">
<div class="anime-title">{{.Name}}</div>
<div class="anime-stats"><span>🎬 {{.TotalFiles}} files</span><span>💾 {{.TotalSize}}</span></div>
<div class="file-list">
{{- range .Files -}}
<div class="file-item">
<span class="file-name" title="{{.Name}}">{{.Name}}</span>
<span class="file-size">{{.Size}}</span>
<a href="{{.DownloadPath}}" class="btn btn-success">⬇️ Download</a>
</div>
{{- end -}}
</div>
</div>
{{- end -}}
</div>
{{- end -}}
{{end}}
`))

func execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DashboardFragments renders every dashboard element of one view
func DashboardFragments(view *core.DashboardView) (map[string]string, error) {
	jobs, err := execute("activeJobs", view.ActiveJobs)
	if err != nil {
		return nil, err
	}
	recent, err := execute("recent", view.Recent)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		page.ElementTotalAnime:          strconv.Itoa(view.Stats.TotalAnime),
		page.ElementTotalEpisodes:       strconv.Itoa(view.Stats.TotalEpisodes),
		page.ElementTotalSize:           template.HTMLEscapeString(view.TotalSize),
		page.ElementActiveDownloads:     strconv.Itoa(view.ActiveCount),
		page.ElementActiveDownloadsList: jobs,
		page.ElementRecentList:          recent,
	}, nil
}

// LibraryFragments renders the library container for a view or a failed refresh
func LibraryFragments(view *core.LibraryView, loadErr error) (map[string]string, error) {
	if loadErr != nil || view == nil {
		html, err := execute("emptyState", core.LibraryLoadFailure)
		if err != nil {
			return nil, err
		}
		return map[string]string{page.ElementLibraryContainer: html}, nil
	}

	html, err := execute("library", view)
	if err != nil {
		return nil, err
	}
	return map[string]string{page.ElementLibraryContainer: html}, nil
}

// InitialElements returns the content pages show before the first refresh
func InitialElements() map[string]string {
	return map[string]string{
		page.ElementTotalAnime:          "0",
		page.ElementTotalEpisodes:       "0",
		page.ElementTotalSize:           core.FormatGB(0),
		page.ElementActiveDownloads:     "0",
		page.ElementActiveDownloadsList: "",
		page.ElementRecentList:          "",
		page.ElementLibraryContainer:    "",
	}
}

// HTMLRenderer applies rendered fragments to a page store
type HTMLRenderer struct {
	store  *page.Store
	logger *logging.Logger
}

// NewHTMLRenderer creates a renderer writing to store
func NewHTMLRenderer(store *page.Store) *HTMLRenderer {
	return &HTMLRenderer{
		store:  store,
		logger: logging.GetServerLogger(),
	}
}

// RenderDashboard implements core.DashboardSink
func (r *HTMLRenderer) RenderDashboard(view *core.DashboardView) {
	elements, err := DashboardFragments(view)
	if err != nil {
		r.logger.WithError(err).Error("Failed to render dashboard")
		return
	}
	r.store.Apply(elements)
}

// RenderLibrary implements core.LibrarySink
func (r *HTMLRenderer) RenderLibrary(view *core.LibraryView, loadErr error) {
	elements, err := LibraryFragments(view, loadErr)
	if err != nil {
		r.logger.WithError(err).Error("Failed to render library")
		return
	}
	r.store.Apply(elements)
}
