// Package glyph implements the generation-based glyph cache and render
// pipeline described by spec §4.3: a mapping from a text-independent
// key (glyph id, font, size, sub-pixel offset, blur sigma) to an
// immutable rendered bitmap, with LRU-by-generation trimming.
package glyph

import (
	"fmt"

	"github.com/rs/zerolog"
)

// CacheConfiguration governs glyph-cache trimming. The zero value is
// invalid; callers must supply a non-zero threshold and at least one
// kept generation, or use DefaultCacheConfiguration.
type CacheConfiguration struct {
	// TrimMemoryThreshold is the approximate total memory footprint (in
	// bytes) at which AdvanceGeneration trims the cache.
	TrimMemoryThreshold uint64

	// TrimKeptGenerations is how many of the most recent generations
	// survive a trim.
	TrimKeptGenerations uint32
}

// DefaultCacheConfiguration is a reasonable default: 16 MiB, keeping
// the last 2 generations (the current frame plus the previous one, so
// glyphs reused across a single unchanged-interval boundary survive).
var DefaultCacheConfiguration = CacheConfiguration{
	TrimMemoryThreshold: 16 << 20,
	TrimKeptGenerations: 2,
}

// Validate reports whether c is usable.
func (c CacheConfiguration) Validate() error {
	if c.TrimMemoryThreshold == 0 {
		return fmt.Errorf("glyph: CacheConfiguration.TrimMemoryThreshold must be non-zero")
	}
	if c.TrimKeptGenerations < 1 {
		return fmt.Errorf("glyph: CacheConfiguration.TrimKeptGenerations must be >= 1")
	}
	return nil
}

// Value is anything the cache can store: it must be able to report its
// own approximate memory footprint so the cache can track the total
// and trim against TrimMemoryThreshold.
type Value interface {
	MemoryFootprint() uint64
}

// CacheStats summarizes a cache's current state, for diagnostics and
// tests.
type CacheStats struct {
	TotalMemoryFootprint uint64
	TotalEntries         int
	Generation           uint32
	Hits                 uint64
	Misses               uint64
	Evictions            uint64
}

type slotState int

const (
	stateUninit slotState = iota
	stateInit
	stateFailed
)

type slot[V Value] struct {
	generation   uint32
	state        slotState
	initializing bool
	value        V
}

// Cache is a generation-based LRU cache keyed by K, storing values of
// type V. It is not safe for concurrent use — subray's renderer owns
// its cache exclusively per spec §5.
type Cache[K comparable, V Value] struct {
	config         CacheConfiguration
	log            zerolog.Logger
	generation     uint32
	totalFootprint uint64
	entries        map[K]*slot[V]

	hits, misses, evictions uint64
}

// NewCache returns an empty Cache governed by config. config must
// already have passed Validate.
func NewCache[K comparable, V Value](config CacheConfiguration, log zerolog.Logger) *Cache[K, V] {
	return &Cache[K, V]{
		config:  config,
		log:     log,
		entries: make(map[K]*slot[V]),
	}
}

// CyclicCacheInitError is returned (via panic, matching the spec's
// "programmer error, must abort" contract) when a cache slot is
// accessed re-entrantly while its builder is still running.
type CyclicCacheInitError struct {
	ValueType string
}

func (e *CyclicCacheInitError) Error() string {
	return fmt.Sprintf("glyph: cache slot for %s accessed cyclically during initialization", e.ValueType)
}

// GetOrTryInsertWith returns the cached value for key, touching its
// generation to the cache's current one. If absent (or previously
// Failed), insert is invoked exactly once to build it; insert's error,
// if any, is propagated and the slot is left Failed so it is retried
// on the next access rather than poisoning the cache permanently.
//
// Re-entrant calls for the same key while insert is still running for
// that key panic with *CyclicCacheInitError: this is a programmer
// error (a builder that recursively needs its own output), not a
// recoverable runtime condition.
func (c *Cache[K, V]) GetOrTryInsertWith(key K, insert func() (V, error)) (V, error) {
	s, ok := c.entries[key]
	if !ok {
		s = &slot[V]{generation: c.generation, state: stateUninit}
		c.entries[key] = s
	} else {
		s.generation = c.generation
	}

	switch s.state {
	case stateUninit:
		if s.initializing {
			var zero V
			panic(&CyclicCacheInitError{ValueType: fmt.Sprintf("%T", zero)})
		}
		c.misses++
		return c.initSlot(s, insert)
	case stateFailed:
		// Reset to Uninit and retry: transient faults must not poison
		// the cache permanently.
		c.misses++
		s.state = stateUninit
		return c.initSlot(s, insert)
	default: // stateInit
		c.hits++
		return s.value, nil
	}
}

func (c *Cache[K, V]) initSlot(s *slot[V], insert func() (V, error)) (V, error) {
	s.initializing = true
	value, err := insert()
	s.initializing = false
	if err != nil {
		s.state = stateFailed
		var zero V
		return zero, err
	}
	s.state = stateInit
	s.value = value
	c.totalFootprint += value.MemoryFootprint()
	return value, nil
}

// AdvanceGeneration is called once per frame. If the cache's total
// memory footprint is at or above TrimMemoryThreshold, every slot whose
// generation falls outside the last TrimKeptGenerations generations (or
// whose generation has wrapped past the current one) is evicted. Slots
// created in the generation just ended are never evicted by this call.
func (c *Cache[K, V]) AdvanceGeneration() {
	last := c.generation

	if c.totalFootprint >= c.config.TrimMemoryThreshold {
		var newFootprint uint64
		evicted := 0
		for key, s := range c.entries {
			if s.state != stateInit {
				delete(c.entries, key)
				continue
			}
			// The <= last check ensures pre-wrap slots are disposed of
			// correctly once generation wraps around.
			retained := s.generation <= last && last-s.generation < c.config.TrimKeptGenerations
			if retained {
				newFootprint += s.value.MemoryFootprint()
			} else {
				delete(c.entries, key)
				evicted++
			}
		}
		c.totalFootprint = newFootprint
		c.evictions += uint64(evicted)
		if evicted > 0 {
			c.log.Debug().Int("evicted", evicted).Uint64("footprint", c.totalFootprint).Msg("glyph cache trimmed")
		}
	}

	c.generation = last + 1
}

// Stats returns a snapshot of the cache's current state.
func (c *Cache[K, V]) Stats() CacheStats {
	return CacheStats{
		TotalMemoryFootprint: c.totalFootprint,
		TotalEntries:         len(c.entries),
		Generation:           c.generation,
		Hits:                 c.hits,
		Misses:               c.misses,
		Evictions:            c.evictions,
	}
}
