package anagram

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

const configFile = "config.json"

// persistedConfig captures the subset of Options that affects file layout.
type persistedConfig struct {
	FormatVersion   int `json:"format_version"`
	SegmentCapacity int `json:"segment_capacity"`
}

func newPersistedConfig(opts Options) persistedConfig {
	return persistedConfig{
		FormatVersion:   segmentVersion,
		SegmentCapacity: opts.SegmentCapacity,
	}
}

// verifyOrWriteConfig loads an existing config file if present and syncs the
// supplied options with it. If the file does not exist, it is created.
// A format version mismatch is an error: the files on disk cannot be read.
func verifyOrWriteConfig(path string, opts *Options) error {
	want := newPersistedConfig(*opts)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// first time: write file
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create config file: %w", err)
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(want); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()
	var have persistedConfig
	if err := json.NewDecoder(f).Decode(&have); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if have.FormatVersion != want.FormatVersion {
		return fmt.Errorf("store format version %d, this build reads %d", have.FormatVersion, want.FormatVersion)
	}

	// persisted layout wins over supplied options
	if have.SegmentCapacity > 0 {
		opts.SegmentCapacity = have.SegmentCapacity
	}
	return nil
}
