package anagram

import (
	"cmp"
	"fmt"

	"golang.org/x/exp/slices"
)

const maxTrimBatch = 10000

// candidateSetter is the store side of a trim.
type candidateSetter interface {
	Set(sig string, c Candidate) error
}

// MatchCache is the bounded in-memory tier: signature -> {candidate, collisions}.
//
// MatchCache is not safe for concurrent use; Engine serializes access.
type MatchCache struct {
	entries  map[string]*CacheEntry
	capacity int
	batch    int
}

// NewMatchCache creates a cache holding about capacity entries. trimBatch of
// zero selects min(10000, capacity/10).
func NewMatchCache(capacity, trimBatch int) *MatchCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &MatchCache{
		entries:  make(map[string]*CacheEntry, capacity+1),
		capacity: capacity,
		batch:    trimBatch,
	}
}

// Lookup returns a copy of the entry for sig.
func (c *MatchCache) Lookup(sig string) (CacheEntry, bool) {
	e, ok := c.entries[sig]
	if !ok {
		return CacheEntry{}, false
	}
	return *e, true
}

// Insert adds a fresh entry with zero collisions. It reports false, leaving
// the cache unchanged, when sig is already present.
func (c *MatchCache) Insert(sig string, cand Candidate) bool {
	if _, ok := c.entries[sig]; ok {
		return false
	}
	c.entries[sig] = &CacheEntry{Candidate: cand}
	return true
}

// Replace overwrites the occupant of sig and counts one more collision.
func (c *MatchCache) Replace(sig string, cand Candidate) bool {
	e, ok := c.entries[sig]
	if !ok {
		return false
	}
	e.Candidate = cand
	e.Collisions++
	return true
}

// Remove drops sig from the cache.
func (c *MatchCache) Remove(sig string) bool {
	if _, ok := c.entries[sig]; !ok {
		return false
	}
	delete(c.entries, sig)
	return true
}

func (c *MatchCache) Size() int     { return len(c.entries) }
func (c *MatchCache) Capacity() int { return c.capacity }

// DefaultTrim is the batch used when the cache grows past capacity. It is
// never below 1, so a small cache still sheds an entry.
func (c *MatchCache) DefaultTrim() int {
	n := c.batch
	if n <= 0 {
		n = min(maxTrimBatch, c.capacity/10)
	}
	return max(n, 1)
}

// Trim moves up to n entries into store, fewest collisions first and, among
// equals, smallest candidate id first. Entries are removed from the cache only
// after the store accepted them. It returns the number moved.
func (c *MatchCache) Trim(n int, store candidateSetter) (int, error) {
	if n <= 0 || len(c.entries) == 0 {
		return 0, nil
	}
	victims := c.rank()
	if n < len(victims) {
		victims = victims[:n]
	}
	for i, sig := range victims {
		if err := store.Set(sig, c.entries[sig].Candidate); err != nil {
			return i, fmt.Errorf("evict %q: %w", sig, err)
		}
		delete(c.entries, sig)
	}
	return len(victims), nil
}

// rank orders signatures by ascending (collisions, id).
func (c *MatchCache) rank() []string {
	sigs := make([]string, 0, len(c.entries))
	for sig := range c.entries {
		sigs = append(sigs, sig)
	}
	slices.SortFunc(sigs, func(a, b string) int {
		ea, eb := c.entries[a], c.entries[b]
		if d := cmp.Compare(ea.Collisions, eb.Collisions); d != 0 {
			return d
		}
		return cmp.Compare(ea.Candidate.ID, eb.Candidate.ID)
	})
	return sigs
}

// Snapshot returns the cached candidates without their collision counts.
func (c *MatchCache) Snapshot() []Candidate {
	out := make([]Candidate, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Candidate)
	}
	slices.SortFunc(out, func(a, b Candidate) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Restore replaces the cache contents with cands, collisions reset to zero.
// Later candidates win when two share a signature.
func (c *MatchCache) Restore(cands []Candidate) {
	c.entries = make(map[string]*CacheEntry, max(len(cands), c.capacity)+1)
	for _, cand := range cands {
		c.entries[cand.Signature] = &CacheEntry{Candidate: cand}
	}
}
