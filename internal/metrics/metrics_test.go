package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimple(t *testing.T) {
	m := NewSimple()
	var _ Interface = m

	m.IncCacheHit()
	m.IncMatch()
	m.AddEvicted(3)
	m.AddEvicted(-1)
	m.SetCacheSize(42)
	m.SetSegments(-5)

	assert.Equal(t, uint64(1), m.CacheHits.Load())
	assert.Equal(t, uint64(1), m.Matches.Load())
	assert.Equal(t, uint64(3), m.Evicted.Load())
	assert.Equal(t, uint64(42), m.CacheSize.Load())
	assert.Equal(t, uint64(0), m.Segments.Load())
}

func TestProm(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm("test", reg)
	var _ Interface = p

	p.IncMiss()
	p.IncMiss()
	p.AddEvicted(5)
	p.SetSegments(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.misses))
	assert.Equal(t, 5.0, testutil.ToFloat64(p.evicted))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.segments))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}
