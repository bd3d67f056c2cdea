package anagram

import "sync/atomic"

type engineStats struct {
	handled    atomic.Uint64
	cacheHits  atomic.Uint64
	storeHits  atomic.Uint64
	misses     atomic.Uint64
	matches    atomic.Uint64
	collisions atomic.Uint64
	skipped    atomic.Uint64
	evicted    atomic.Uint64
	archived   atomic.Uint64
}

func (s *engineStats) record(st Status) {
	switch st {
	case StatusCollision, StatusOverwritten:
		s.collisions.Add(1)
	case StatusSkipped:
		s.skipped.Add(1)
	}
}

// Stats menyimpan statistik engine.
// HitRatio dalam persentase (0-100): kandidat yang signature-nya sudah dikenal
// (cache atau store) dibanding seluruh kandidat yang diproses.
type Stats struct {
	Handled    uint64  `json:"handled"`
	CacheHits  uint64  `json:"cache_hits"`
	StoreHits  uint64  `json:"store_hits"`
	Misses     uint64  `json:"misses"`
	Matches    uint64  `json:"matches"`
	Collisions uint64  `json:"collisions"`
	Skipped    uint64  `json:"skipped"`
	Evicted    uint64  `json:"evicted"`
	Archived   uint64  `json:"archived"`
	HitRatio   float64 `json:"hit_ratio"`

	CacheSize           int        `json:"cache_size"`
	MaintenanceRequired bool       `json:"maintenance_required"`
	Store               StoreStats `json:"store"`
}

// Stats mengambil snapshot statistik engine beserta ukuran cache dan store.
func (e *Engine) Stats() Stats {
	st := Stats{
		Handled:    e.stats.handled.Load(),
		CacheHits:  e.stats.cacheHits.Load(),
		StoreHits:  e.stats.storeHits.Load(),
		Misses:     e.stats.misses.Load(),
		Matches:    e.stats.matches.Load(),
		Collisions: e.stats.collisions.Load(),
		Skipped:    e.stats.skipped.Load(),
		Evicted:    e.stats.evicted.Load(),
		Archived:   e.stats.archived.Load(),
	}
	if st.Handled > 0 {
		st.HitRatio = float64(st.CacheHits+st.StoreHits) / float64(st.Handled) * 100.0
	}

	e.mu.Lock()
	st.CacheSize = e.cache.Size()
	st.MaintenanceRequired = e.maintenance
	e.mu.Unlock()

	st.Store = e.store.Stats()
	return st
}
