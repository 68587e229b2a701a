package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/raainshe/animedash/internal/config"
	"github.com/raainshe/animedash/internal/core"
	"github.com/raainshe/animedash/internal/logging"
)

// Cache keys for the last published views
const (
	KeyDashboardView = "view:dashboard"
	KeyLibraryView   = "view:library"
)

// CacheManager wraps go-cache with typed methods and statistics. It keeps the
// last published view of each page so late readers see what the page shows.
// Views never expire; ViewTTL only decides when an entry is reported stale.
type CacheManager struct {
	cache  *cache.Cache
	config *config.CacheConfig
	logger *logging.Logger
	stats  *CacheStats
	mutex  sync.RWMutex
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Sets      int64     `json:"sets"`
	Deletes   int64     `json:"deletes"`
	Evictions int64     `json:"evictions"`
	ItemCount int       `json:"item_count"`
	LastReset time.Time `json:"last_reset"`
}

// DashboardEntry is the cached dashboard view
type DashboardEntry struct {
	View      *core.DashboardView `json:"view"`
	UpdatedAt time.Time           `json:"updated_at"`
	Stale     bool                `json:"stale"`
}

// LibraryEntry is the cached outcome of the last library refresh. A failed
// refresh replaces the view with its error message.
type LibraryEntry struct {
	View      *core.LibraryView `json:"view,omitempty"`
	Error     string            `json:"error,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
	Stale     bool              `json:"stale"`
}

// cacheInstance holds the global cache manager
var cacheInstance *CacheManager

// Initialize creates and configures the cache manager
func Initialize(cfg *config.CacheConfig) (*CacheManager, error) {
	if cfg.ViewTTL < 0 {
		return nil, fmt.Errorf("view TTL must not be negative, got: %s", cfg.ViewTTL)
	}

	logger := logging.GetCacheLogger()

	c := cache.New(cfg.ViewTTL, cfg.CleanupInterval)

	manager := &CacheManager{
		cache:  c,
		config: cfg,
		logger: logger,
		stats: &CacheStats{
			LastReset: time.Now(),
		},
	}

	// Track evictions
	c.OnEvicted(func(key string, value interface{}) {
		manager.mutex.Lock()
		manager.stats.Evictions++
		manager.mutex.Unlock()
	})

	// Set global instance
	cacheInstance = manager

	logger.WithFields(map[string]interface{}{
		"view_ttl":         cfg.ViewTTL,
		"cleanup_interval": cfg.CleanupInterval,
	}).Info("Cache manager initialized successfully")

	return manager, nil
}

// GetManager returns the global cache manager instance
func GetManager() *CacheManager {
	return cacheInstance
}

// Dashboard View Caching

// SetDashboardView stores the last successfully built dashboard view
func (cm *CacheManager) SetDashboardView(view *core.DashboardView) {
	cm.set(KeyDashboardView, &DashboardEntry{View: view, UpdatedAt: time.Now()})
}

// GetDashboardView retrieves the cached dashboard view
func (cm *CacheManager) GetDashboardView() (*DashboardEntry, bool) {
	value, found := cm.get(KeyDashboardView)
	if !found {
		return nil, false
	}

	entry, ok := value.(*DashboardEntry)
	if !ok {
		cm.logger.WithField("key", KeyDashboardView).Warn("Invalid dashboard view type in cache")
		cm.delete(KeyDashboardView)
		return nil, false
	}

	result := *entry
	result.Stale = cm.isStale(entry.UpdatedAt)
	return &result, true
}

// RenderDashboard implements core.DashboardSink
func (cm *CacheManager) RenderDashboard(view *core.DashboardView) {
	cm.SetDashboardView(view)
}

// Library View Caching

// SetLibraryView stores the outcome of the last library refresh
func (cm *CacheManager) SetLibraryView(view *core.LibraryView, err error) {
	entry := &LibraryEntry{View: view, UpdatedAt: time.Now()}
	if err != nil {
		entry.View = nil
		entry.Error = core.LibraryLoadFailure
	}
	cm.set(KeyLibraryView, entry)
}

// GetLibraryView retrieves the cached library outcome
func (cm *CacheManager) GetLibraryView() (*LibraryEntry, bool) {
	value, found := cm.get(KeyLibraryView)
	if !found {
		return nil, false
	}

	entry, ok := value.(*LibraryEntry)
	if !ok {
		cm.logger.WithField("key", KeyLibraryView).Warn("Invalid library view type in cache")
		cm.delete(KeyLibraryView)
		return nil, false
	}

	result := *entry
	result.Stale = cm.isStale(entry.UpdatedAt)
	return &result, true
}

// RenderLibrary implements core.LibrarySink
func (cm *CacheManager) RenderLibrary(view *core.LibraryView, err error) {
	cm.SetLibraryView(view, err)
}

func (cm *CacheManager) set(key string, value interface{}) {
	cm.mutex.Lock()
	cm.stats.Sets++
	cm.mutex.Unlock()

	// The last good view must outlive any run of failed cycles
	cm.cache.Set(key, value, cache.NoExpiration)

	cm.logger.WithField("key", key).Debug("View cached")
}

// isStale reports whether a view written at updatedAt is older than ViewTTL
func (cm *CacheManager) isStale(updatedAt time.Time) bool {
	return cm.config.ViewTTL > 0 && time.Since(updatedAt) > cm.config.ViewTTL
}

func (cm *CacheManager) get(key string) (interface{}, bool) {
	value, found := cm.cache.Get(key)

	cm.mutex.Lock()
	if found {
		cm.stats.Hits++
	} else {
		cm.stats.Misses++
	}
	cm.mutex.Unlock()

	if !found {
		cm.logger.WithField("key", key).Debug("View cache miss")
	}
	return value, found
}

func (cm *CacheManager) delete(key string) {
	cm.mutex.Lock()
	cm.stats.Deletes++
	cm.mutex.Unlock()

	cm.cache.Delete(key)
	cm.logger.WithField("key", key).Debug("View cache deleted")
}

// Cache Management Methods

// GetStats returns current cache statistics
func (cm *CacheManager) GetStats() *CacheStats {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	// Return a copy to avoid race conditions
	return &CacheStats{
		Hits:      cm.stats.Hits,
		Misses:    cm.stats.Misses,
		Sets:      cm.stats.Sets,
		Deletes:   cm.stats.Deletes,
		Evictions: cm.stats.Evictions,
		ItemCount: cm.cache.ItemCount(),
		LastReset: cm.stats.LastReset,
	}
}

// GetHitRatio returns the cache hit ratio as a percentage
func (cm *CacheManager) GetHitRatio() float64 {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	total := cm.stats.Hits + cm.stats.Misses
	if total == 0 {
		return 0.0
	}
	return (float64(cm.stats.Hits) / float64(total)) * 100.0
}

// ResetStats resets cache statistics
func (cm *CacheManager) ResetStats() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.stats = &CacheStats{
		LastReset: time.Now(),
	}
	cm.logger.Info("Cache statistics reset")
}

// Clear removes all items from the cache
func (cm *CacheManager) Clear() {
	cm.cache.Flush()
	cm.ResetStats()
	cm.logger.Info("Cache cleared")
}

// LogStats logs current cache statistics
func (cm *CacheManager) LogStats() {
	stats := cm.GetStats()
	hitRatio := cm.GetHitRatio()

	cm.logger.WithFields(map[string]interface{}{
		"hits":       stats.Hits,
		"misses":     stats.Misses,
		"sets":       stats.Sets,
		"deletes":    stats.Deletes,
		"evictions":  stats.Evictions,
		"item_count": stats.ItemCount,
		"hit_ratio":  fmt.Sprintf("%.2f%%", hitRatio),
		"uptime":     time.Since(stats.LastReset).String(),
	}).Info("Cache statistics")
}

// Shutdown gracefully shuts down the cache manager
func (cm *CacheManager) Shutdown() {
	cm.logger.Info("Shutting down cache manager")
	cm.LogStats()
	cm.Clear()
}
