package params

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrUnknownParameter indicates a write targeting an identifier absent
// from the catalog.
var ErrUnknownParameter = errors.New("parameter not in catalog")

// Reading is the read-side view of one parameter.
type Reading struct {
	Name      string
	Value     Value
	Unit      string
	Validity  Validity
	Timestamp time.Time
}

// Metrics receives store-level write outcomes. Implementations must be
// safe for concurrent use.
type Metrics interface {
	RecordWrite(sub Subsystem)
	RecordStaleWrite(sub Subsystem)
}

// Store is the concurrent parameter store. The entry map is built once
// from the catalog and never changes afterwards, so lookups take no
// store-wide lock; each entry carries its own RWMutex. A reader of
// parameter A therefore never blocks behind a writer of parameter B.
type Store struct {
	window  time.Duration
	entries map[string]*entry
	bySub   map[Subsystem][]string
	now     func() time.Time
	metrics Metrics
}

type entry struct {
	mu       sync.RWMutex
	def      Definition
	value    Value
	validity Validity
	updated  time.Time
	written  bool
	// forced pins validity against nominal generator writes until the
	// fault condition is explicitly cleared.
	forced bool
}

// StoreOption customises Store construction.
type StoreOption func(*Store)

// WithClock overrides the wall clock used for lazy staleness checks.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithMetrics attaches an optional recorder for write outcomes.
func WithMetrics(m Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore builds a store over the given catalog. Parameters start out
// with no value; they report STALE until first written (the catalog
// entry exists, it has just never been updated).
func NewStore(catalog []Definition, stalenessWindow time.Duration, opts ...StoreOption) *Store {
	s := &Store{
		window:  stalenessWindow,
		entries: make(map[string]*entry, len(catalog)),
		bySub:   make(map[Subsystem][]string),
		now:     time.Now,
	}
	for _, def := range catalog {
		s.entries[def.Name] = &entry{def: def, validity: Stale}
		s.bySub[def.Subsystem] = append(s.bySub[def.Subsystem], def.Name)
	}
	for _, names := range s.bySub {
		sort.Strings(names)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// StalenessWindow reports the configured staleness window.
func (s *Store) StalenessWindow() time.Duration { return s.window }

// Identifiers returns all catalog identifiers, sorted.
func (s *Store) Identifiers() []string {
	out := make([]string, 0, len(s.entries))
	for name := range s.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IdentifiersFor returns the identifiers owned by a subsystem, sorted.
func (s *Store) IdentifiersFor(sub Subsystem) []string {
	names := s.bySub[sub]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Definition returns the catalog definition for an identifier.
func (s *Store) Definition(id string) (Definition, bool) {
	e, ok := s.entries[id]
	if !ok {
		return Definition{}, false
	}
	return e.def, true
}

// Get reads the current state of the requested identifiers. Identifiers
// absent from the catalog are reported with validity UNKNOWN rather
// than dropped. Each lookup takes exactly one entry read lock.
func (s *Store) Get(ids ...string) map[string]Reading {
	now := s.now()
	out := make(map[string]Reading, len(ids))
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok {
			out[id] = Reading{Name: id, Validity: Unknown}
			continue
		}
		e.mu.RLock()
		r := Reading{
			Name:      id,
			Value:     e.value,
			Unit:      e.def.Unit,
			Validity:  e.validity,
			Timestamp: e.updated,
		}
		e.mu.RUnlock()

		// Staleness is computed lazily on read; no background sweep.
		if r.Validity == Valid && now.Sub(r.Timestamp) > s.window {
			r.Validity = Stale
		}
		out[id] = r
	}
	return out
}

// Update writes a value under the monotonic-write rule: a timestamp
// older than the stored one is silently ignored, preserving ordering
// under concurrent generator and command writers. The return value
// reports whether the write was applied.
func (s *Store) Update(id string, v Value, validity Validity, ts time.Time) (bool, error) {
	e, ok := s.entries[id]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}

	e.mu.Lock()
	if e.written && ts.Before(e.updated) {
		e.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordStaleWrite(e.def.Subsystem)
		}
		return false, nil
	}
	e.value = v
	if !e.forced {
		e.validity = validity
	}
	e.updated = ts
	e.written = true
	e.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordWrite(e.def.Subsystem)
	}
	return true, nil
}

// ForceValidity overrides the stored validity without touching value or
// timestamp and pins it against nominal updates until ClearForced is
// called. Used by the telecommand handler to force fault conditions.
func (s *Store) ForceValidity(id string, validity Validity) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	e.mu.Lock()
	e.validity = validity
	e.forced = true
	e.mu.Unlock()
	return nil
}

// ClearForced lifts a forced validity; the next nominal update restores
// the parameter to VALID.
func (s *Store) ClearForced(id string) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	e.mu.Lock()
	e.forced = false
	e.mu.Unlock()
	return nil
}
