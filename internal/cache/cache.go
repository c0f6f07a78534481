// Package cache is the process-wide, read-mostly key/value store described
// in spec.md §4.5: a single mutex guarding a map, deep-copy-out semantics,
// and colon-namespaced keys (setting:, redirect:, route:, auth:).
package cache

import (
	"strings"
	"sync"

	"github.com/tryteex/fcgiapp/internal/cacheval"
)

// Store is safe for concurrent use by every worker.
type Store struct {
	mu sync.Mutex
	m  map[string]cacheval.Entry
}

func New() *Store {
	return &Store{m: make(map[string]cacheval.Entry)}
}

// Get returns a deep copy of the stored entry, if any. No reference into
// the internal map escapes the mutex (spec.md §8 invariant on concurrent
// set/get), except that a lang_vector's copy is documented as view-only.
func (s *Store) Get(key string) (cacheval.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return cacheval.Entry{}, false
	}
	return v.Clone(), true
}

// Has reports presence without paying for a clone.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[key]
	return ok
}

// Set stores a deep copy of v under key.
func (s *Store) Set(key string, v cacheval.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = v.Clone()
}

// Del removes every key beginning with prefix. This is the "delete all keys
// beginning with the given prefix" behavior spec.md mandates, deliberately
// NOT the recursive-on-itself version found in original_source (see
// DESIGN.md Open Questions).
func (s *Store) Del(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.m {
		if strings.HasPrefix(k, prefix) {
			delete(s.m, k)
		}
	}
}

// Clear empties the store. Supported but unused during normal operation
// (spec.md §3 cache entry lifecycle).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[string]cacheval.Entry)
}
