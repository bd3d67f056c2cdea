package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")
	var _ Logger = l

	l.Info("hidden")
	l.Warn("segment.skip_corrupt", "segment", "seg-0000000001.db")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "segment.skip_corrupt")
	assert.Contains(t, out, "segment=seg-0000000001.db")
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug").With("component", "engine")
	l.Debug("cache.trimmed", "evicted", 3)
	assert.Contains(t, buf.String(), "component=engine")
	assert.Contains(t, buf.String(), "evicted=3")
}
