package animeapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Shape identifies which wire layout a library snapshot arrived in
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeList          // [{"name": ..., "total_files": ...}, ...]
	ShapeMap           // {"<name>": {"total_files": ..., "files": [...]}, ...}
)

// String returns the string representation of Shape
func (s Shape) String() string {
	switch s {
	case ShapeList:
		return "list"
	case ShapeMap:
		return "map"
	default:
		return "unknown"
	}
}

// ErrUnexpectedPayload is returned when the library payload is neither an
// array nor an object
var ErrUnexpectedPayload = errors.New("unexpected library payload")

// LibrarySnapshot is a point-in-time read of the library in either wire shape.
// Decoding normalizes both shapes into entries with Name populated, in
// document order, so nothing downstream needs to know the shape.
type LibrarySnapshot struct {
	shape   Shape
	entries []LibraryEntry
}

// NewListSnapshot builds a snapshot as if it had arrived in the list shape
func NewListSnapshot(entries ...LibraryEntry) LibrarySnapshot {
	return LibrarySnapshot{shape: ShapeList, entries: append([]LibraryEntry(nil), entries...)}
}

// NewMapSnapshot builds a snapshot as if it had arrived in the map shape,
// keyed by each entry's name in the given order
func NewMapSnapshot(entries ...LibraryEntry) LibrarySnapshot {
	return LibrarySnapshot{shape: ShapeMap, entries: append([]LibraryEntry(nil), entries...)}
}

// UnmarshalJSON implements json.Unmarshaler
func (s *LibrarySnapshot) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ErrUnexpectedPayload
	}

	switch trimmed[0] {
	case '[':
		var entries []LibraryEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return fmt.Errorf("decode library list: %w", err)
		}
		s.shape = ShapeList
		s.entries = entries
		return nil
	case '{':
		entries, err := decodeOrderedMap(trimmed)
		if err != nil {
			return fmt.Errorf("decode library map: %w", err)
		}
		s.shape = ShapeMap
		s.entries = entries
		return nil
	default:
		return fmt.Errorf("%w: starts with %q", ErrUnexpectedPayload, trimmed[0])
	}
}

// decodeOrderedMap walks the object token by token so key order survives
func decodeOrderedMap(data []byte) ([]LibraryEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	entries := []LibraryEntry{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", tok)
		}

		var entry LibraryEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("entry %q: %w", key, err)
		}
		// The key is authoritative in this shape
		entry.Name = key
		entries = append(entries, entry)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Shape returns the wire shape the snapshot was decoded from
func (s LibrarySnapshot) Shape() Shape {
	return s.shape
}

// Len returns the number of anime in the snapshot
func (s LibrarySnapshot) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the normalized entries in snapshot order
func (s LibrarySnapshot) Entries() []LibraryEntry {
	out := make([]LibraryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
