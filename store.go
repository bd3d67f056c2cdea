package anagram

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	segmentDir    = "segments"
	archiveDir    = "archive"
	segmentPrefix = "seg-"
	segmentSuffix = ".db"
)

// Store is a chronologically sharded key/value archive of candidates.
//
// Reads consult every active segment, oldest first. A new key goes to the
// newest ("current") segment; an existing key is rewritten in the segment that
// already holds it, so a signature is never present in two segments. Archive
// detaches the oldest segment to keep the number of segments searched by
// Contains and Get small.
//
// All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex // guards segments, meta and closed
	metaMu   sync.Mutex   // serializes meta file writes
	segments []*segment   // oldest -> newest
	meta     storeMeta
	nextSeq  uint64
	closed   bool

	dir      string
	segDir   string
	archDir  string
	capacity int
	syncW    bool
	bufs     bufPool
	lock     *dirLock
	log      logLike
}

// StoreStats is a point-in-time view of store counters.
type StoreStats struct {
	Segments    int `json:"segments"`
	Total       int `json:"total"`
	CurrentSize int `json:"current_size"`
	Capacity    int `json:"segment_capacity"`
	Dead        int `json:"dead_records"`
}

// OpenStore opens (or creates) the store rooted at dir. Failure to create or
// open a segment file is returned; a segment that fails to decode is skipped
// with a warning.
func OpenStore(dir string, opts Options) (*Store, error) {
	opts = opts.withDefaults()

	segDir := filepath.Join(dir, segmentDir)
	archDir := filepath.Join(dir, archiveDir)
	for _, d := range []string{dir, segDir, archDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	lock, err := lockDir(dir)
	if err != nil {
		return nil, err
	}
	if err := verifyOrWriteConfig(filepath.Join(dir, configFile), &opts); err != nil {
		lock.release()
		return nil, err
	}

	s := &Store{
		dir:      dir,
		segDir:   segDir,
		archDir:  archDir,
		capacity: opts.SegmentCapacity,
		syncW:    opts.SyncWrites,
		bufs:     newBufPool(opts.BufferPoolSize),
		lock:     lock,
		log:      opts.Logger,
	}
	if err := s.load(); err != nil {
		for _, seg := range s.segments {
			seg.close()
		}
		lock.release()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	names, maxActive, err := listSegments(s.segDir)
	if err != nil {
		return err
	}
	_, maxArchived, err := listSegments(s.archDir)
	if err != nil {
		return err
	}
	s.nextSeq = max(maxActive, maxArchived) + 1

	live := 0
	for _, name := range names {
		seg, err := openSegment(filepath.Join(s.segDir, name), s.syncW, s.bufs, s.log)
		if errors.Is(err, ErrCorruptSegment) {
			s.log.Warn("segment.skip_corrupt", "segment", name, "err", err)
			continue
		}
		if err != nil {
			return err
		}
		s.segments = append(s.segments, seg)
		live += seg.size
	}

	m, err := loadMeta(filepath.Join(s.dir, metaFile))
	switch {
	case err == nil:
		if m.total != live {
			s.log.Warn("meta.stale", "recorded", m.total, "found", live)
		}
	case os.IsNotExist(err):
		if len(s.segments) > 0 {
			s.log.Warn("meta.missing", "segments", len(s.segments))
		}
	default:
		s.log.Warn("meta.corrupt", "err", err)
		m = storeMeta{}
	}

	s.meta.total = live
	if n := len(s.segments); n > 0 {
		// the fill counter is not reduced by deletes, so it can only be
		// at least the live size of the current segment
		s.meta.current = max(m.current, s.segments[n-1].size)
	} else if err := s.addSegmentLocked(); err != nil {
		return err
	}

	s.log.Info("store.open", "dir", s.dir, "segments", len(s.segments), "total", s.meta.total)
	return nil
}

// listSegments returns segment file names in dir sorted oldest first, plus the
// highest sequence number seen.
func listSegments(dir string) ([]string, uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("list segments: %w", err)
	}
	var (
		names  []string
		maxSeq uint64
	)
	for _, e := range entries {
		seq, ok := parseSegmentName(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		names = append(names, e.Name())
		maxSeq = max(maxSeq, seq)
	}
	sort.Strings(names)
	return names, maxSeq, nil
}

func segmentName(seq uint64) string {
	return fmt.Sprintf("%s%010d%s", segmentPrefix, seq, segmentSuffix)
}

func parseSegmentName(name string) (uint64, bool) {
	if !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, segmentSuffix) {
		return 0, false
	}
	seq, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, segmentPrefix), segmentSuffix), 10, 64)
	return seq, err == nil
}

func (s *Store) addSegmentLocked() error {
	name := segmentName(s.nextSeq)
	seg, err := createSegment(s.segDir, name, s.syncW, s.bufs)
	if err != nil {
		return err
	}
	s.nextSeq++
	s.segments = append(s.segments, seg)
	s.meta.current = 0
	s.log.Debug("segment.added", "segment", name, "segments", len(s.segments))
	return nil
}

// Contains reports whether any active segment holds sig.
func (s *Store) Contains(sig string) bool {
	if !validKey(sig) {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && s.findSegment(sig) != nil
}

// Get returns the candidate stored under sig, or ErrNotFound.
func (s *Store) Get(sig string) (Candidate, error) {
	if !validKey(sig) {
		return Candidate{}, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Candidate{}, ErrClosed
	}
	seg := s.findSegment(sig)
	if seg == nil {
		return Candidate{}, ErrNotFound
	}
	return seg.get(sig)
}

// Set stores c under sig. An existing key is overwritten in place; a new key
// goes to the current segment, which is rotated first when full.
func (s *Store) Set(sig string, c Candidate) error {
	if !validKey(sig) {
		return fmt.Errorf("%w: signature %q", ErrInvalidCandidate, sig)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if seg := s.findSegment(sig); seg != nil {
		return seg.put(sig, c)
	}

	if len(s.segments) == 0 || s.meta.current >= s.capacity {
		if err := s.addSegmentLocked(); err != nil {
			return err
		}
	}
	cur := s.segments[len(s.segments)-1]
	if err := cur.put(sig, c); err != nil {
		return err
	}
	s.meta.current++
	s.meta.total++
	return nil
}

// Delete removes sig from whichever segment holds it.
func (s *Store) Delete(sig string) error {
	if !validKey(sig) {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	seg := s.findSegment(sig)
	if seg == nil {
		return ErrNotFound
	}
	if err := seg.del(sig); err != nil {
		return err
	}
	s.meta.total--
	return nil
}

// Archive detaches the oldest segment, moves its file into the archive
// directory and returns its identifier. The oldest segment is archived
// regardless of how full it is. SegmentCount drops by one, except when the
// oldest was the only segment: a fresh current segment then replaces it, so
// the count stays at 1 and writes always have a target.
func (s *Store) Archive() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	if len(s.segments) == 0 {
		return "", ErrNotFound
	}

	oldest := s.segments[0]
	if err := oldest.sync(); err != nil {
		return "", err
	}
	dest := filepath.Join(s.archDir, oldest.name)
	if err := os.Rename(oldest.path, dest); err != nil {
		return "", fmt.Errorf("move segment %s to archive: %w", oldest.name, err)
	}
	oldest.path = dest
	if err := oldest.close(); err != nil {
		s.log.Warn("segment.close", "segment", oldest.name, "err", err)
	}

	s.segments = s.segments[1:]
	s.meta.total -= oldest.size
	s.log.Info("segment.archived", "segment", oldest.name, "dest", dest, "segments", len(s.segments))

	if len(s.segments) == 0 {
		if err := s.addSegmentLocked(); err != nil {
			return oldest.name, err
		}
	}
	return oldest.name, nil
}

// SegmentCount returns the number of active (searchable) segments.
func (s *Store) SegmentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// Len returns the number of live keys across active segments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta.total
}

// Stats returns the current store counters.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := StoreStats{
		Segments:    len(s.segments),
		Total:       s.meta.total,
		CurrentSize: s.meta.current,
		Capacity:    s.capacity,
	}
	for _, seg := range s.segments {
		st.Dead += seg.dead
	}
	return st
}

// Reorganize rewrites every segment in which dead records outnumber live
// ones and returns how many segments were compacted.
func (s *Store) Reorganize() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	n := 0
	for _, seg := range s.segments {
		if !seg.needsCompaction() {
			continue
		}
		dead := seg.dead
		if err := seg.compact(); err != nil {
			return n, err
		}
		n++
		s.log.Info("segment.compacted", "segment", seg.name, "dropped", dead)
	}
	return n, nil
}

// PurgeShort deletes every live candidate whose text has fewer than
// minLetters letters and returns how many were removed. Use it after raising
// the minimum text length on an existing store.
func (s *Store) PurgeShort(minLetters int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	n := 0
	for _, seg := range s.segments {
		for _, key := range seg.keys() {
			c, err := seg.get(key)
			if err != nil {
				return n, err
			}
			if letterCount(c.Text) >= minLetters {
				continue
			}
			if err := seg.del(key); err != nil {
				return n, err
			}
			s.meta.total--
			n++
		}
	}
	if n > 0 {
		s.log.Info("store.purged_short", "removed", n, "min_letters", minLetters)
	}
	return n, nil
}
