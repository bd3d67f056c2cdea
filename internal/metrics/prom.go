package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prom exports the engine counters through Prometheus.
type Prom struct {
	cacheHits  prometheus.Counter
	storeHits  prometheus.Counter
	misses     prometheus.Counter
	matches    prometheus.Counter
	collisions prometheus.Counter
	skipped    prometheus.Counter
	evicted    prometheus.Counter
	archived   prometheus.Counter
	cacheSize  prometheus.Gauge
	segments   prometheus.Gauge
}

// NewProm creates the collectors and registers them with reg. Call it once
// per registry; a second registration panics.
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	makeC := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}
	makeG := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	p := &Prom{
		cacheHits:  makeC("cache_hit_total", "Candidates whose signature was found in the cache"),
		storeHits:  makeC("store_hit_total", "Candidates whose signature was found in the segment store"),
		misses:     makeC("miss_total", "Candidates with a previously unseen signature"),
		matches:    makeC("match_total", "Confirmed anagram pairs"),
		collisions: makeC("collision_total", "Signature matches that failed anagram verification"),
		skipped:    makeC("skipped_total", "Candidates skipped as too short or duplicate"),
		evicted:    makeC("evicted_total", "Cache entries moved to the segment store"),
		archived:   makeC("archived_segments_total", "Segments detached by maintenance"),
		cacheSize:  makeG("cache_entries", "Current number of cached candidates"),
		segments:   makeG("active_segments", "Current number of searchable segments"),
	}

	reg.MustRegister(
		p.cacheHits, p.storeHits, p.misses, p.matches, p.collisions,
		p.skipped, p.evicted, p.archived, p.cacheSize, p.segments,
	)
	return p
}

func (p *Prom) IncCacheHit()  { p.cacheHits.Inc() }
func (p *Prom) IncStoreHit()  { p.storeHits.Inc() }
func (p *Prom) IncMiss()      { p.misses.Inc() }
func (p *Prom) IncMatch()     { p.matches.Inc() }
func (p *Prom) IncCollision() { p.collisions.Inc() }
func (p *Prom) IncSkipped()   { p.skipped.Inc() }
func (p *Prom) IncArchived()  { p.archived.Inc() }

func (p *Prom) AddEvicted(n int) {
	if n > 0 {
		p.evicted.Add(float64(n))
	}
}

func (p *Prom) SetCacheSize(n int) {
	if n >= 0 {
		p.cacheSize.Set(float64(n))
	}
}

func (p *Prom) SetSegments(n int) {
	if n >= 0 {
		p.segments.Set(float64(n))
	}
}
