// Package page holds the rendered content of every page element and fans
// element updates out to live subscribers.
package page

import (
	"sync"
)

// Element identifiers of the dashboard and library pages
const (
	ElementTotalAnime          = "totalAnime"
	ElementTotalEpisodes       = "totalEpisodes"
	ElementTotalSize           = "totalSize"
	ElementActiveDownloads     = "activeDownloads"
	ElementActiveDownloadsList = "activeDownloadsList"
	ElementRecentList          = "recentList"
	ElementLibraryContainer    = "libraryContainer"
)

// DashboardElements lists the elements one dashboard cycle updates
var DashboardElements = []string{
	ElementTotalAnime,
	ElementTotalEpisodes,
	ElementTotalSize,
	ElementActiveDownloads,
	ElementActiveDownloadsList,
	ElementRecentList,
}

// Update is one atomic change to a set of elements
type Update struct {
	Version  uint64            `json:"version"`
	Elements map[string]string `json:"elements"`
}

// Store keeps the current HTML of each element. Applying an update replaces
// all of its elements at once, so readers never observe half a cycle.
type Store struct {
	mutex       sync.RWMutex
	elements    map[string]string
	version     uint64
	subscribers map[chan Update]struct{}
}

// New creates a store with the given initial element content
func New(initial map[string]string) *Store {
	elements := make(map[string]string, len(initial))
	for id, html := range initial {
		elements[id] = html
	}
	return &Store{
		elements:    elements,
		subscribers: make(map[chan Update]struct{}),
	}
}

// Apply replaces the given elements and notifies subscribers. A subscriber
// that is not keeping up gets its pending updates folded into one.
func (s *Store) Apply(elements map[string]string) Update {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.version++
	update := Update{Version: s.version, Elements: make(map[string]string, len(elements))}
	for id, html := range elements {
		s.elements[id] = html
		update.Elements[id] = html
	}

	for ch := range s.subscribers {
		deliver(ch, update)
	}

	return update
}

// deliver sends update to ch. When ch is full, every pending update is
// drained and merged with update, so the single update left in ch carries
// the latest content of each element it touched. Only Apply sends, under the
// store lock, so the drained channel has room for the merged update.
func deliver(ch chan Update, update Update) {
	select {
	case ch <- update:
		return
	default:
	}

	merged := Update{Version: update.Version, Elements: make(map[string]string)}
	for drained := false; !drained; {
		select {
		case pending := <-ch:
			for id, html := range pending.Elements {
				merged.Elements[id] = html
			}
		default:
			drained = true
		}
	}
	for id, html := range update.Elements {
		merged.Elements[id] = html
	}

	ch <- merged
}

// Get returns the current content of one element
func (s *Store) Get(id string) (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	html, ok := s.elements[id]
	return html, ok
}

// Snapshot returns a consistent copy of every element
func (s *Store) Snapshot() Update {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	elements := make(map[string]string, len(s.elements))
	for id, html := range s.elements {
		elements[id] = html
	}
	return Update{Version: s.version, Elements: elements}
}

// Subscribe registers a listener for future updates. The returned function
// unsubscribes and closes the channel. buffer is at least 1.
func (s *Store) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Update, buffer)

	s.mutex.Lock()
	s.subscribers[ch] = struct{}{}
	s.mutex.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mutex.Lock()
			delete(s.subscribers, ch)
			s.mutex.Unlock()
			close(ch)
		})
	}
}
