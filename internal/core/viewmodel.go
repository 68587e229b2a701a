package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raainshe/animedash/internal/animeapi"
	"github.com/raainshe/animedash/internal/logging"
	"github.com/raainshe/animedash/internal/metrics"
)

// View names used in logs and metrics
const (
	ViewDashboard = "dashboard"
	ViewLibrary   = "library"
)

// LibrarySource provides library snapshots
type LibrarySource interface {
	ListLibrary(ctx context.Context) (animeapi.LibrarySnapshot, error)
}

// DashboardSource provides both snapshots the dashboard aggregates
type DashboardSource interface {
	LibrarySource
	ListDownloads(ctx context.Context) ([]animeapi.DownloadJob, error)
}

// DashboardSink receives every successfully built dashboard view
type DashboardSink interface {
	RenderDashboard(view *DashboardView)
}

// LibrarySink receives the outcome of every library refresh. Exactly one of
// view and err is non-nil.
type LibrarySink interface {
	RenderLibrary(view *LibraryView, err error)
}

// DashboardSinkFunc adapts a function to DashboardSink
type DashboardSinkFunc func(view *DashboardView)

// RenderDashboard implements DashboardSink
func (f DashboardSinkFunc) RenderDashboard(view *DashboardView) { f(view) }

// LibrarySinkFunc adapts a function to LibrarySink
type LibrarySinkFunc func(view *LibraryView, err error)

// RenderLibrary implements LibrarySink
func (f LibrarySinkFunc) RenderLibrary(view *LibraryView, err error) { f(view, err) }

// DashboardViewModel polls both backend lists and publishes dashboard views.
// A failed cycle is logged and leaves every sink untouched.
type DashboardViewModel struct {
	source DashboardSource
	sinks  []DashboardSink
	poller *Poller
	logger *logging.Logger
	now    func() time.Time

	mutex sync.RWMutex
	last  *DashboardView
}

// NewDashboardViewModel creates a dashboard view model refreshing every interval
func NewDashboardViewModel(source DashboardSource, interval time.Duration, sinks ...DashboardSink) *DashboardViewModel {
	vm := &DashboardViewModel{
		source: source,
		sinks:  sinks,
		logger: logging.GetDashboardLogger(),
		now:    time.Now,
	}
	vm.poller = NewPoller(ViewDashboard, interval, func(ctx context.Context) {
		_ = vm.Refresh(ctx)
	}, vm.logger)
	return vm
}

// Start refreshes once and then on every tick
func (vm *DashboardViewModel) Start(ctx context.Context) error {
	return vm.poller.Start(ctx)
}

// Stop halts the refresh loop
func (vm *DashboardViewModel) Stop() {
	vm.poller.Stop()
}

// Refresh runs one cycle. Both lists are fetched in parallel and the view is
// published only if both succeed.
func (vm *DashboardViewModel) Refresh(ctx context.Context) error {
	start := time.Now()

	var (
		snapshot animeapi.LibrarySnapshot
		jobs     []animeapi.DownloadJob
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshot, err = vm.source.ListLibrary(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		jobs, err = vm.source.ListDownloads(gctx)
		return err
	})

	err := g.Wait()
	metrics.ObserveRefresh(ViewDashboard, time.Since(start).Seconds(), err)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logging.LogError(logging.ComponentDashboard, "refresh", err, nil)
		}
		return err
	}

	view := BuildDashboard(snapshot, jobs, vm.now())

	vm.mutex.Lock()
	vm.last = view
	vm.mutex.Unlock()

	for _, sink := range vm.sinks {
		sink.RenderDashboard(view)
	}

	metrics.LibraryAnime.Set(float64(view.Stats.TotalAnime))
	metrics.LibraryEpisodes.Set(float64(view.Stats.TotalEpisodes))
	metrics.LibrarySizeMB.Set(view.Stats.TotalSizeMB)
	metrics.ActiveDownloads.Set(float64(view.ActiveCount))
	metrics.ListedJobs.Set(float64(len(view.ActiveJobs)))

	logging.LogRefresh(logging.ComponentDashboard, time.Since(start), map[string]interface{}{
		"anime":  view.Stats.TotalAnime,
		"active": view.ActiveCount,
		"listed": len(view.ActiveJobs),
	})

	return nil
}

// Current returns the last successfully built view, or nil before the first success
func (vm *DashboardViewModel) Current() *DashboardView {
	vm.mutex.RLock()
	defer vm.mutex.RUnlock()
	return vm.last
}

// LibraryViewModel polls the library and publishes browser views. A failed
// cycle is published as an error so the browser can replace its content.
type LibraryViewModel struct {
	source LibrarySource
	sinks  []LibrarySink
	poller *Poller
	logger *logging.Logger
	now    func() time.Time

	mutex   sync.RWMutex
	last    *LibraryView
	lastErr error
}

// NewLibraryViewModel creates a library view model refreshing every interval
func NewLibraryViewModel(source LibrarySource, interval time.Duration, sinks ...LibrarySink) *LibraryViewModel {
	vm := &LibraryViewModel{
		source: source,
		sinks:  sinks,
		logger: logging.GetLibraryLogger(),
		now:    time.Now,
	}
	vm.poller = NewPoller(ViewLibrary, interval, func(ctx context.Context) {
		_, _ = vm.Refresh(ctx)
	}, vm.logger)
	return vm
}

// Start refreshes once and then on every tick
func (vm *LibraryViewModel) Start(ctx context.Context) error {
	return vm.poller.Start(ctx)
}

// Stop halts the refresh loop
func (vm *LibraryViewModel) Stop() {
	vm.poller.Stop()
}

// Refresh runs one cycle and publishes either the new view or the failure
func (vm *LibraryViewModel) Refresh(ctx context.Context) (*LibraryView, error) {
	start := time.Now()

	snapshot, err := vm.source.ListLibrary(ctx)
	metrics.ObserveRefresh(ViewLibrary, time.Since(start).Seconds(), err)
	if err != nil {
		// Shutting down is not a load failure
		if ctx.Err() != nil {
			return nil, err
		}
		logging.LogError(logging.ComponentLibrary, "refresh", err, nil)
		vm.publish(nil, err)
		return nil, err
	}

	view := BuildLibrary(snapshot, vm.now())
	vm.publish(view, nil)

	logging.LogRefresh(logging.ComponentLibrary, time.Since(start), map[string]interface{}{
		"anime": len(view.Cards),
		"files": view.FileCount(),
	})

	return view, nil
}

func (vm *LibraryViewModel) publish(view *LibraryView, err error) {
	vm.mutex.Lock()
	vm.last = view
	vm.lastErr = err
	vm.mutex.Unlock()

	for _, sink := range vm.sinks {
		sink.RenderLibrary(view, err)
	}
}

// Current returns the outcome of the last finished cycle
func (vm *LibraryViewModel) Current() (*LibraryView, error) {
	vm.mutex.RLock()
	defer vm.mutex.RUnlock()
	return vm.last, vm.lastErr
}
