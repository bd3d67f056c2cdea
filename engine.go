package anagram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luhtfiimanal/anagram-archive/internal/metrics"
)

// Backlog reports how many candidates the upstream producer has buffered but
// not yet delivered.
type Backlog interface {
	Pending() int
}

// HitSink receives confirmed pairs and owns them from then on.
type HitSink interface {
	NewHit(ctx context.Context, hit HitPair) error
}

// Status describes what Handle did with a candidate.
type Status int

const (
	// StatusCached: the signature was new and the candidate now occupies it in the cache.
	StatusCached Status = iota
	// StatusCollision: a non-matching cache occupant was replaced.
	StatusCollision
	// StatusOverwritten: a non-matching store occupant was replaced.
	StatusOverwritten
	// StatusMatched: the candidate completed a HitPair.
	StatusMatched
	// StatusSkipped: the candidate was too short or a redelivery of the occupant.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusCached:
		return "cached"
	case StatusCollision:
		return "collision"
	case StatusOverwritten:
		return "overwritten"
	case StatusMatched:
		return "matched"
	case StatusSkipped:
		return "skipped"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is the result of handling one candidate. When
// MaintenanceRequired is set the caller must stop delivering input and call
// PerformMaintenance before the next Handle.
type Outcome struct {
	Status              Status
	Hit                 *HitPair
	MaintenanceRequired bool
}

// MaintenanceReport describes one completed maintenance pass.
type MaintenanceReport struct {
	Archived string
	Segments int
}

// Engine matches incoming candidates against the cache and the store.
//
// Handle is meant to be driven by a single consumer goroutine. A background
// goroutine, started when FlushInterval > 0, syncs segments and writes the
// cache snapshot.
type Engine struct {
	mu          sync.Mutex // guards cache, maintenance and closed
	cache       *MatchCache
	store       *Store
	maintenance bool
	closed      bool

	flushMu sync.Mutex  // one persistence pass at a time
	writing atomic.Bool // a persistence pass is in progress
	stopCh  chan struct{}
	wg      sync.WaitGroup

	opts         Options
	snapshotPath string
	log          logLike
	metrics      metrics.Interface

	stats engineStats
}

// Open opens the store under dir, restores the cache snapshot and starts the
// background flusher.
func Open(dir string, opts Options) (*Engine, error) {
	opts = opts.withDefaults()

	store, err := OpenStore(dir, opts)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cache:        NewMatchCache(opts.CacheCapacity, opts.TrimBatch),
		store:        store,
		opts:         opts,
		snapshotPath: filepath.Join(dir, snapshotFile),
		log:          opts.Logger,
		metrics:      opts.Metrics,
	}
	e.restore()
	e.metrics.SetCacheSize(e.cache.Size())
	e.metrics.SetSegments(store.SegmentCount())

	if opts.FlushInterval > 0 {
		e.stopCh = make(chan struct{})
		e.wg.Add(1)
		go e.flushLoop(opts.FlushInterval)
	}
	return e, nil
}

// restore loads the previous cache snapshot. A missing or unreadable
// snapshot leaves the cache empty.
func (e *Engine) restore() {
	cands, err := loadSnapshot(e.snapshotPath)
	switch {
	case os.IsNotExist(err):
		e.log.Info("snapshot.none", "path", e.snapshotPath)
		return
	case err != nil:
		e.log.Warn("snapshot.unreadable", "path", e.snapshotPath, "err", err)
		return
	}

	// a candidate that was pushed into the store after this snapshot was
	// written must not occupy a second slot
	kept := cands[:0]
	for _, c := range cands {
		if !e.store.Contains(c.Signature) {
			kept = append(kept, c)
		}
	}
	e.cache.Restore(kept)
	e.log.Info("snapshot.restored", "candidates", e.cache.Size(), "dropped", len(cands)-len(kept))
}

// Handle runs one candidate through the cache -> store -> insert state
// machine and then checks backpressure.
func (e *Engine) Handle(ctx context.Context, c Candidate) (Outcome, error) {
	if err := c.Validate(); err != nil {
		return Outcome{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return Outcome{}, ErrClosed
	}
	if e.maintenance {
		return Outcome{}, ErrMaintenancePending
	}

	e.stats.handled.Add(1)
	out, err := e.route(ctx, c)
	if err != nil {
		return Outcome{}, err
	}
	e.stats.record(out.Status)
	if out.Status == StatusSkipped {
		e.metrics.IncSkipped()
	}
	e.metrics.SetCacheSize(e.cache.Size())

	out.MaintenanceRequired = e.checkBackpressureLocked()
	return out, nil
}

func (e *Engine) route(ctx context.Context, c Candidate) (Outcome, error) {
	if e.opts.MinTextLength > 0 && letterCount(c.Text) < e.opts.MinTextLength {
		return Outcome{Status: StatusSkipped}, nil
	}
	sig := c.Signature

	if ent, ok := e.cache.Lookup(sig); ok {
		e.stats.cacheHits.Add(1)
		e.metrics.IncCacheHit()
		if ent.Candidate.ID == c.ID {
			return Outcome{Status: StatusSkipped}, nil
		}
		if IsAnagram(ent.Candidate.Text, c.Text) {
			hit := HitPair{A: ent.Candidate, B: c}
			if err := e.emit(ctx, hit); err != nil {
				return Outcome{}, err
			}
			e.cache.Remove(sig)
			return Outcome{Status: StatusMatched, Hit: &hit}, nil
		}
		e.cache.Replace(sig, c)
		e.metrics.IncCollision()
		return Outcome{Status: StatusCollision}, nil
	}

	stored, err := e.store.Get(sig)
	switch {
	case err == nil:
		e.stats.storeHits.Add(1)
		e.metrics.IncStoreHit()
		if stored.ID == c.ID {
			return Outcome{Status: StatusSkipped}, nil
		}
		if IsAnagram(stored.Text, c.Text) {
			// remove before delivering so a delivered pair can never be
			// emitted a second time
			if err := e.store.Delete(sig); err != nil {
				return Outcome{}, fmt.Errorf("delete matched %q: %w", sig, err)
			}
			hit := HitPair{A: stored, B: c}
			if err := e.emit(ctx, hit); err != nil {
				if rerr := e.store.Set(sig, stored); rerr != nil {
					return Outcome{}, errors.Join(err, fmt.Errorf("restore %q: %w", sig, rerr))
				}
				return Outcome{}, err
			}
			return Outcome{Status: StatusMatched, Hit: &hit}, nil
		}
		if err := e.store.Set(sig, c); err != nil {
			return Outcome{}, err
		}
		e.metrics.IncCollision()
		return Outcome{Status: StatusOverwritten}, nil
	case !errors.Is(err, ErrNotFound):
		return Outcome{}, err
	}

	e.stats.misses.Add(1)
	e.metrics.IncMiss()
	e.cache.Insert(sig, c)
	if e.cache.Size() > e.cache.Capacity() {
		if err := e.trimLocked(e.cache.DefaultTrim()); err != nil {
			return Outcome{}, err
		}
	}
	return Outcome{Status: StatusCached}, nil
}

// emit hands a pair to the sink. Callers keep both candidates when it fails.
func (e *Engine) emit(ctx context.Context, hit HitPair) error {
	if e.opts.HitSink != nil {
		if err := e.opts.HitSink.NewHit(ctx, hit); err != nil {
			return fmt.Errorf("deliver hit %d/%d: %w", hit.A.ID, hit.B.ID, err)
		}
	}
	e.stats.matches.Add(1)
	e.metrics.IncMatch()
	e.log.Debug("engine.match", "a", hit.A.ID, "b", hit.B.ID)
	return nil
}

func (e *Engine) trimLocked(n int) error {
	moved, err := e.cache.Trim(n, e.store)
	e.stats.evicted.Add(uint64(moved))
	e.metrics.AddEvicted(moved)
	e.metrics.SetCacheSize(e.cache.Size())
	e.metrics.SetSegments(e.store.SegmentCount())
	if err != nil {
		return fmt.Errorf("trim cache: %w", err)
	}
	e.log.Debug("cache.trimmed", "evicted", moved, "size", e.cache.Size())
	return nil
}

func (e *Engine) checkBackpressureLocked() bool {
	if e.maintenance {
		return true
	}
	if e.opts.Backlog == nil || e.opts.BacklogThreshold <= 0 {
		return false
	}
	pending := e.opts.Backlog.Pending()
	if pending <= e.opts.BacklogThreshold {
		return false
	}
	e.maintenance = true
	e.log.Warn("engine.backpressure", "pending", pending, "threshold", e.opts.BacklogThreshold)
	return true
}

// CheckBackpressure compares the upstream backlog with the threshold. Once it
// reports true, Handle refuses input until PerformMaintenance completes.
func (e *Engine) CheckBackpressure() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkBackpressureLocked()
}

// PerformMaintenance archives the oldest store segment. The cache is left
// alone. Call it after input delivery has been paused.
func (e *Engine) PerformMaintenance() (MaintenanceReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return MaintenanceReport{}, ErrClosed
	}

	name, err := e.store.Archive()
	if err != nil {
		return MaintenanceReport{}, fmt.Errorf("archive segment: %w", err)
	}
	e.maintenance = false

	rep := MaintenanceReport{Archived: name, Segments: e.store.SegmentCount()}
	e.stats.archived.Add(1)
	e.metrics.IncArchived()
	e.metrics.SetSegments(rep.Segments)
	e.log.Info("maintenance.done", "segment", rep.Archived, "segments", rep.Segments)
	return rep, nil
}

// Flush syncs the store and writes the cache snapshot. If the snapshot cannot
// be written a trim batch is pushed into the store instead.
func (e *Engine) Flush() error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()
	e.writing.Store(true)
	defer e.writing.Store(false)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	cands := e.cache.Snapshot()
	e.mu.Unlock()

	if err := e.store.Flush(); err != nil {
		return err
	}
	if err := saveSnapshot(e.snapshotPath, cands); err != nil {
		e.log.Error("snapshot.save", "err", err)
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.trimLocked(e.cache.DefaultTrim())
	}
	e.log.Debug("snapshot.saved", "candidates", len(cands))
	return nil
}

func (e *Engine) flushLoop(every time.Duration) {
	defer e.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := e.Flush(); err != nil && !errors.Is(err, ErrClosed) {
				e.log.Error("engine.flush", "err", err)
			}
		case <-e.stopCh:
			return
		}
	}
}

// Writing reports whether a background persistence pass is running.
func (e *Engine) Writing() bool { return e.writing.Load() }

// Close waits for an in-flight flush, persists the cache snapshot and closes
// the store. When the snapshot cannot be written the whole cache is pushed
// into the store so nothing is lost.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	if e.stopCh != nil {
		close(e.stopCh)
		e.wg.Wait()
	}
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	var errs []error
	e.mu.Lock()
	cands := e.cache.Snapshot()
	if err := saveSnapshot(e.snapshotPath, cands); err != nil {
		e.log.Error("snapshot.save", "err", err)
		if err := e.trimLocked(e.cache.Size()); err != nil {
			errs = append(errs, err)
		}
		// an older snapshot would resurrect candidates now in the store
		if err := os.Remove(e.snapshotPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove stale snapshot: %w", err))
		}
	} else {
		e.log.Info("snapshot.saved", "candidates", len(cands))
	}
	e.mu.Unlock()

	if err := e.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Store exposes the underlying segment store.
func (e *Engine) Store() *Store { return e.store }
