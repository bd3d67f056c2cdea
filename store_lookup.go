package anagram

import (
	"fmt"
	"path/filepath"
)

// findSegment menentukan segment aktif mana yang memegang sig.
//
// Biaya pencarian linear terhadap jumlah segment (lookup per segment O(1)),
// karena itu jumlah segment dijaga kecil melalui Archive. Pemanggil harus
// memegang s.mu.
func (s *Store) findSegment(sig string) *segment {
	for _, seg := range s.segments {
		if seg.has(sig) {
			return seg
		}
	}
	return nil
}

// ArchivedSegments lists the identifiers of archived segments, oldest first.
func (s *Store) ArchivedSegments() ([]string, error) {
	names, _, err := listSegments(s.archDir)
	return names, err
}

// LookupArchived reads sig directly from an archived segment. Archived
// candidates no longer take part in matching but remain retrievable.
func (s *Store) LookupArchived(name, sig string) (Candidate, error) {
	if filepath.Base(name) != name {
		return Candidate{}, fmt.Errorf("invalid segment name %q", name)
	}
	if _, ok := parseSegmentName(name); !ok {
		return Candidate{}, fmt.Errorf("invalid segment name %q", name)
	}
	seg, err := openSegment(filepath.Join(s.archDir, name), false, s.bufs, s.log)
	if err != nil {
		return Candidate{}, err
	}
	defer seg.close()
	return seg.get(sig)
}
