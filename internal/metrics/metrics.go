package metrics

import (
	"sync/atomic"
)

// Interface is the set of counters the matching engine reports.
type Interface interface {
	IncCacheHit()
	IncStoreHit()
	IncMiss()
	IncMatch()
	IncCollision()
	IncSkipped()
	AddEvicted(n int)
	IncArchived()
	SetCacheSize(n int)
	SetSegments(n int)
}

// Noop discards every update.
type Noop struct{}

func (Noop) IncCacheHit()       {}
func (Noop) IncStoreHit()       {}
func (Noop) IncMiss()           {}
func (Noop) IncMatch()          {}
func (Noop) IncCollision()      {}
func (Noop) IncSkipped()        {}
func (Noop) AddEvicted(_ int)   {}
func (Noop) IncArchived()       {}
func (Noop) SetCacheSize(_ int) {}
func (Noop) SetSegments(_ int)  {}

// Simple keeps the counters in atomics. Tests read the fields directly.
type Simple struct {
	CacheHits  atomic.Uint64
	StoreHits  atomic.Uint64
	Misses     atomic.Uint64
	Matches    atomic.Uint64
	Collisions atomic.Uint64
	Skipped    atomic.Uint64
	Evicted    atomic.Uint64
	Archived   atomic.Uint64
	CacheSize  atomic.Uint64
	Segments   atomic.Uint64
}

func NewSimple() *Simple { return &Simple{} }

func (m *Simple) IncCacheHit()  { m.CacheHits.Add(1) }
func (m *Simple) IncStoreHit()  { m.StoreHits.Add(1) }
func (m *Simple) IncMiss()      { m.Misses.Add(1) }
func (m *Simple) IncMatch()     { m.Matches.Add(1) }
func (m *Simple) IncCollision() { m.Collisions.Add(1) }
func (m *Simple) IncSkipped()   { m.Skipped.Add(1) }
func (m *Simple) IncArchived()  { m.Archived.Add(1) }

func (m *Simple) AddEvicted(n int) {
	if n > 0 {
		m.Evicted.Add(uint64(n))
	}
}

func (m *Simple) SetCacheSize(n int) {
	if n >= 0 {
		m.CacheSize.Store(uint64(n))
	}
}

func (m *Simple) SetSegments(n int) {
	if n >= 0 {
		m.Segments.Store(uint64(n))
	}
}
