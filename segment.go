package anagram

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// slot locates a live value inside a segment file.
type slot struct {
	off int64
	n   int
}

// segment adalah satu file key/value append-only milik Store.
//
// Setiap Set menambahkan record baru di akhir file; indeks di memori menunjuk
// ke record terakhir untuk setiap key sehingga lookup cukup satu ReadAt.
// Record yang tertimpa atau terhapus dihitung di `dead` dan baru dibuang saat
// compact.
//
// segment tidak aman dipakai bersamaan untuk tulis; Store memegang mutex.
type segment struct {
	file  *os.File
	name  string          // identifier, also stored under sentinelKey
	path  string          // current location on disk
	index map[string]slot // live keys, sentinel included
	size  int             // live keys, sentinel excluded
	dead  int             // records on disk no longer reachable
	end   int64           // next append offset

	syncWrites bool
	bufs       bufPool
}

// createSegment makes a new, empty segment file that records its own name.
func createSegment(dir, name string, syncWrites bool, bufs bufPool) (*segment, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create segment %s: %w", name, err)
	}
	if _, err := f.WriteAt(encodeSegmentHeader(), 0); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write segment header %s: %w", name, err)
	}

	s := &segment{
		file:       f,
		name:       name,
		path:       path,
		index:      make(map[string]slot),
		end:        segHeaderSize,
		syncWrites: syncWrites,
		bufs:       bufs,
	}
	if err := s.write(opPut, sentinelKey, []byte(name)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return s, nil
}

// openSegment replays an existing segment file into a fresh index. A torn
// final record is cut off; any other damage yields ErrCorruptSegment.
func openSegment(path string, syncWrites bool, bufs bufPool, log logLike) (*segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open segment %s: %w", path, err)
	}

	hdr := make([]byte, segHeaderSize)
	if _, err := f.ReadAt(hdr, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: short header", ErrCorruptSegment, path)
	}
	if err := checkSegmentHeader(hdr); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s := &segment{
		file:       f,
		path:       path,
		index:      make(map[string]slot),
		end:        segHeaderSize,
		syncWrites: syncWrites,
		bufs:       bufs,
	}

	r := bufio.NewReader(io.NewSectionReader(f, segHeaderSize, math.MaxInt64-segHeaderSize))
	for {
		rec, err := readRecord(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, errTornRecord) {
			log.Warn("segment.torn_tail", "segment", path, "offset", s.end)
			if err := f.Truncate(s.end); err != nil {
				f.Close()
				return nil, fmt.Errorf("truncate torn segment %s: %w", path, err)
			}
			break
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s at offset %d: %w", path, s.end, err)
		}
		if rec.op == opPut && rec.key == sentinelKey {
			s.name = string(rec.val)
		}
		s.apply(rec.op, rec.key, s.end+rec.valOff, len(rec.val))
		s.end += rec.size
	}

	if s.name == "" {
		f.Close()
		return nil, fmt.Errorf("%w: %s: missing name record", ErrCorruptSegment, path)
	}
	return s, nil
}

// apply updates the index for one record whose value starts at valOff.
func (s *segment) apply(op byte, key string, valOff int64, valLen int) {
	_, existed := s.index[key]
	switch op {
	case opPut:
		s.index[key] = slot{off: valOff, n: valLen}
		if existed {
			s.dead++
		} else if key != sentinelKey {
			s.size++
		}
	case opDelete:
		s.dead++ // the tombstone itself
		if existed {
			delete(s.index, key)
			s.dead++
			if key != sentinelKey {
				s.size--
			}
		}
	}
}

func (s *segment) write(op byte, key string, val []byte) error {
	buf := s.bufs.get()
	defer s.bufs.put(buf)

	rec, err := appendRecord(*buf, op, key, val)
	if err != nil {
		return err
	}
	*buf = rec

	if _, err := s.file.WriteAt(rec, s.end); err != nil {
		return fmt.Errorf("write segment %s: %w", s.name, err)
	}
	s.apply(op, key, s.end+int64(recHeaderSize+len(key)), len(val))
	s.end += int64(len(rec))

	if s.syncWrites {
		return s.sync()
	}
	return nil
}

func (s *segment) has(key string) bool {
	_, ok := s.index[key]
	return ok
}

func (s *segment) get(key string) (Candidate, error) {
	sl, ok := s.index[key]
	if !ok || key == sentinelKey {
		return Candidate{}, ErrNotFound
	}
	buf := make([]byte, sl.n)
	if _, err := s.file.ReadAt(buf, sl.off); err != nil {
		return Candidate{}, fmt.Errorf("read segment %s: %w", s.name, err)
	}
	return decodeCandidate(buf)
}

func (s *segment) put(key string, c Candidate) error {
	return s.write(opPut, key, c.encode())
}

func (s *segment) del(key string) error {
	if !s.has(key) {
		return ErrNotFound
	}
	return s.write(opDelete, key, nil)
}

// keys returns the live signatures held by the segment.
func (s *segment) keys() []string {
	out := make([]string, 0, s.size)
	for k := range s.index {
		if k != sentinelKey {
			out = append(out, k)
		}
	}
	return out
}

// sync flushes file data to stable storage.
func (s *segment) sync() error {
	if err := unix.Fdatasync(int(s.file.Fd())); err != nil {
		return fmt.Errorf("fdatasync segment %s: %w", s.name, err)
	}
	return nil
}

// needsCompaction reports whether more than half of the records on disk are dead.
func (s *segment) needsCompaction() bool {
	return s.dead > 0 && s.dead > len(s.index)
}

// compact rewrites the segment with only its live records. The original file
// is replaced atomically; on failure it is left untouched.
func (s *segment) compact() error {
	tmpPath := s.path + ".compact"
	f, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create compaction file: %w", err)
	}
	fail := func(err error) error {
		f.Close()
		os.Remove(tmpPath)
		return err
	}

	out := encodeSegmentHeader()
	index := make(map[string]slot, len(s.index))
	for key, sl := range s.index {
		val := make([]byte, sl.n)
		if _, err := s.file.ReadAt(val, sl.off); err != nil {
			return fail(fmt.Errorf("read segment %s: %w", s.name, err))
		}
		start := int64(len(out))
		if out, err = appendRecord(out, opPut, key, val); err != nil {
			return fail(err)
		}
		index[key] = slot{off: start + int64(recHeaderSize+len(key)), n: sl.n}
	}

	if _, err := f.WriteAt(out, 0); err != nil {
		return fail(fmt.Errorf("write compaction file: %w", err))
	}
	if err := f.Sync(); err != nil {
		return fail(fmt.Errorf("sync compaction file: %w", err))
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fail(fmt.Errorf("replace segment %s: %w", s.name, err))
	}

	old := s.file
	s.file = f
	s.index = index
	s.dead = 0
	s.end = int64(len(out))
	return old.Close()
}

func (s *segment) close() error {
	return s.file.Close()
}
