package polytlai

import "sync"

// ResultSink is the keyed collection of one run's results. Upserts are
// atomic: concurrent completions for different keys never lose an entry and
// a repeated key replaces the previous entry in place.
type ResultSink struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]ResultEntry
}

// NewResultSink creates an empty sink.
func NewResultSink() *ResultSink {
	return &ResultSink{entries: make(map[string]ResultEntry)}
}

// Upsert stores entry under entry.Key. It returns true when an existing entry
// was replaced.
func (s *ResultSink) Upsert(entry ResultEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.entries[entry.Key]
	if !exists {
		s.order = append(s.order, entry.Key)
	}
	s.entries[entry.Key] = entry
	return exists
}

// Get returns the entry stored under key.
func (s *ResultSink) Get(key string) (ResultEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Entries returns a snapshot in first-insertion order.
func (s *ResultSink) Entries() []ResultEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ResultEntry, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.entries[key])
	}
	return out
}

// Len returns the number of keys in the sink.
func (s *ResultSink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Successes returns the successful provider entries (the analysis entry is
// excluded) in first-insertion order.
func (s *ResultSink) Successes() []ResultEntry {
	var out []ResultEntry
	for _, e := range s.Entries() {
		if !e.Analysis && e.IsSuccess() {
			out = append(out, e)
		}
	}
	return out
}

// Analysis returns the judge entry if one was written.
func (s *ResultSink) Analysis() (ResultEntry, bool) {
	return s.Get(AnalysisKey)
}
