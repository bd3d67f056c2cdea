package anagram

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
)

const (
	snapshotFile    = "cache.snapshot"
	snapshotVersion = 1
)

// snapshot is the on-disk form of the cache. Collision counts are left out on
// purpose: after a restart no candidate starts out hot.
type snapshot struct {
	Version    int         `json:"version"`
	SavedAt    time.Time   `json:"saved_at"`
	Candidates []Candidate `json:"candidates"`
}

// saveSnapshot writes cands to path through a temporary file and rename.
func saveSnapshot(path string, cands []Candidate) error {
	data, err := json.Marshal(snapshot{
		Version:    snapshotVersion,
		SavedAt:    time.Now().UTC(),
		Candidates: cands,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// loadSnapshot reads a snapshot. Invalid candidates are dropped.
func loadSnapshot(path string) ([]Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snap.Version, snapshotVersion)
	}
	out := snap.Candidates[:0]
	for _, c := range snap.Candidates {
		if c.Validate() == nil {
			out = append(out, c)
		}
	}
	return out, nil
}
