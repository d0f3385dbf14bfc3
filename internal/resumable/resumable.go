// Package resumable implements the resumable-data store described in spec
// §4.7: on a recoverable data-loading failure past a source that advertised
// Accept-Ranges: bytes, the bytes received so far and the source's cache
// validator (ETag or Last-Modified) are retained keyed by URL, so a
// subsequent fetch can resume with a Range + If-Range request instead of
// restarting from zero.
package resumable

import "sync"

// Entry is what's retained for one partially-downloaded URL.
type Entry struct {
	Validator string
	Data      []byte
}

// Store is a concurrency-safe map from cache key to [Entry]. The zero value
// is ready to use.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// Save retains data under key with the given validator, replacing any
// prior entry. A caller should only do this after a recoverable failure on
// a source that advertised range support; Store itself doesn't enforce
// that precondition.
func (s *Store) Save(key, validator string, data []byte) {
	if validator == "" || len(data) == 0 {
		return
	}
	s.mu.Lock()
	if s.entries == nil {
		s.entries = make(map[string]Entry)
	}
	// copy, since the caller's buffer may be reused after this call.
	cp := make([]byte, len(data))
	copy(cp, data)
	s.entries[key] = Entry{Validator: validator, Data: cp}
	s.mu.Unlock()
}

// Resume returns the retained entry for key, if any, removing it from the
// store: a resume attempt is one-shot, whether or not it ultimately
// succeeds the retained bytes are either consumed into a fresh fetch or
// discarded.
func (s *Store) Resume(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return e, ok
}

// Discard removes any retained entry for key without returning it. The
// pipeline itself never calls it; Resume already removes the entry it
// returns.
func (s *Store) Discard(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len reports the number of retained entries, for diagnostics/tests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
