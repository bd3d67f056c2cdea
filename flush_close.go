package anagram

import (
	"fmt"
	"path/filepath"
)

// Flush memaksa semua segment aktif tersimpan ke disk lalu menulis file meta.
//
// Segment di-sync sambil memegang read lock sehingga Archive tidak dapat
// menutup file di tengah proses.
func (s *Store) Flush() error {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	var firstErr error
	for i, seg := range s.segments {
		if err := seg.sync(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("gagal sync segment %d: %w", i, err)
		}
	}
	m := s.meta
	s.mu.RUnlock()

	if err := saveMeta(filepath.Join(s.dir, metaFile), m); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("save meta: %w", err)
	}
	return firstErr
}

// Close menulis meta, menutup semua segment dan melepas lock direktori.
func (s *Store) Close() error {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if err := saveMeta(filepath.Join(s.dir, metaFile), s.meta); err != nil {
		firstErr = fmt.Errorf("save meta: %w", err)
	}
	for i, seg := range s.segments {
		if err := seg.sync(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("gagal sync segment %d: %w", i, err)
		}
		if err := seg.close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("gagal menutup segment %d: %w", i, err)
		}
	}
	if err := s.lock.release(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.log.Info("store.closed", "segments", len(s.segments), "total", s.meta.total)
	return firstErr
}
