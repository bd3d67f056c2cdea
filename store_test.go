package anagram

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to open a store in a temporary directory with a small segment capacity
func newTestStore(t *testing.T, segCap int) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := OpenStore(dir, Options{SegmentCapacity: segCap, BufferPoolSize: 4})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func cand(id int64, text string) Candidate {
	return Candidate{ID: id, Signature: Signature(text), Text: text}
}

func TestStoreSetGetDelete(t *testing.T) {
	s, _ := newTestStore(t, 10)

	c := cand(1, "listen")
	require.NoError(t, s.Set(c.Signature, c))
	assert.True(t, s.Contains(c.Signature))

	got, err := s.Get(c.Signature)
	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(c.Signature))
	assert.False(t, s.Contains(c.Signature))
	_, err = s.Get(c.Signature)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(c.Signature), ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestStoreTextWithSeparator(t *testing.T) {
	s, _ := newTestStore(t, 10)

	c := Candidate{ID: 7, Signature: "abc", Text: "a\x0fb\x0fc"}
	require.NoError(t, s.Set(c.Signature, c))
	got, err := s.Get(c.Signature)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestStoreRejectsReservedKey(t *testing.T) {
	s, _ := newTestStore(t, 10)

	require.NoError(t, s.Set("k", cand(1, "k")))

	err := s.Set(sentinelKey, cand(2, "x"))
	assert.ErrorIs(t, err, ErrInvalidCandidate)
	assert.False(t, s.Contains(sentinelKey))
	_, err = s.Get(sentinelKey)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(sentinelKey), ErrNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestStoreSentinelSurvivesReorganize(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStore(dir, Options{SegmentCapacity: 10})
	require.NoError(t, err)
	require.NoError(t, s.Set("k", cand(1, "k")))
	_ = s.Delete(sentinelKey)
	for i := int64(2); i <= 5; i++ {
		require.NoError(t, s.Set("k", cand(i, "k")))
	}
	_, err = s.Reorganize()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenStore(dir, Options{})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 1, s.SegmentCount())
	assert.True(t, s.Contains("k"))
	assert.Equal(t, 1, s.Len())
}

func TestStoreRotation(t *testing.T) {
	s, _ := newTestStore(t, 3)
	require.Equal(t, 1, s.SegmentCount())

	for i := int64(1); i <= 7; i++ {
		require.NoError(t, s.Set(fmt.Sprintf("k%02d", i), cand(i, "t")))
	}
	// 3 + 3 + 1
	assert.Equal(t, 3, s.SegmentCount())
	assert.Equal(t, 7, s.Len())

	st := s.Stats()
	assert.Equal(t, 1, st.CurrentSize)
	assert.Equal(t, 3, st.Capacity)
}

func TestStoreUpdateStaysInOwningSegment(t *testing.T) {
	s, _ := newTestStore(t, 2)

	require.NoError(t, s.Set("a", cand(1, "a")))
	require.NoError(t, s.Set("b", cand(2, "b")))
	require.NoError(t, s.Set("c", cand(3, "c")))
	require.Equal(t, 2, s.SegmentCount())

	// "a" lives in the first, full segment; overwriting it must not rotate
	// nor duplicate it in the current one
	require.NoError(t, s.Set("a", cand(4, "a")))
	assert.Equal(t, 2, s.SegmentCount())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.Stats().CurrentSize)

	s.mu.RLock()
	holders := 0
	for _, seg := range s.segments {
		if seg.has("a") {
			holders++
		}
	}
	s.mu.RUnlock()
	assert.Equal(t, 1, holders)

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.ID)
}

func TestStoreArchive(t *testing.T) {
	s, dir := newTestStore(t, 2)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, s.Set(fmt.Sprintf("k%d", i), cand(i, "t")))
	}
	require.Equal(t, 3, s.SegmentCount())

	name, err := s.Archive()
	require.NoError(t, err)
	assert.Equal(t, segmentName(1), name)
	assert.Equal(t, 2, s.SegmentCount())
	assert.Equal(t, 3, s.Len())

	// archived keys no longer take part in lookups
	assert.False(t, s.Contains("k1"))
	assert.False(t, s.Contains("k2"))
	assert.True(t, s.Contains("k3"))

	_, err = os.Stat(filepath.Join(dir, archiveDir, name))
	require.NoError(t, err, "segment file should be moved to archive/")
	_, err = os.Stat(filepath.Join(dir, segmentDir, name))
	assert.True(t, os.IsNotExist(err))

	archived, err := s.ArchivedSegments()
	require.NoError(t, err)
	assert.Equal(t, []string{name}, archived)

	got, err := s.LookupArchived(name, "k2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
	_, err = s.LookupArchived(name, "k3")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.LookupArchived("../meta", "k3")
	assert.Error(t, err)
}

func TestStorePurgeShort(t *testing.T) {
	s, _ := newTestStore(t, 2)
	texts := []string{"hi", "hello there", "ok", "a longer sentence"}
	for i, txt := range texts {
		c := cand(int64(i+1), txt)
		require.NoError(t, s.Set(c.Signature, c))
	}
	require.Equal(t, 2, s.SegmentCount())

	n, err := s.PurgeShort(5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Contains(Signature("hi")))
	assert.False(t, s.Contains(Signature("ok")))
	assert.True(t, s.Contains(Signature("hello there")))

	n, err = s.PurgeShort(5)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStoreArchiveOnlySegment(t *testing.T) {
	s, _ := newTestStore(t, 10)
	require.NoError(t, s.Set("k", cand(1, "t")))

	name, err := s.Archive()
	require.NoError(t, err)
	assert.Equal(t, 1, s.SegmentCount(), "a fresh current segment replaces the archived one")
	assert.False(t, s.Contains("k"))
	assert.Equal(t, 0, s.Len())

	// new writes go to the fresh segment, not the archived file
	require.NoError(t, s.Set("k", cand(2, "t")))
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)

	old, err := s.LookupArchived(name, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), old.ID)
}

func TestStoreReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStore(dir, Options{SegmentCapacity: 2})
	require.NoError(t, err)
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, s.Set(fmt.Sprintf("k%d", i), cand(i, "t")))
	}
	require.NoError(t, s.Delete("k4"))
	_, err = s.Archive()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// the persisted segment capacity overrides the supplied one
	s, err = OpenStore(dir, Options{SegmentCapacity: 100})
	require.NoError(t, err)
	defer s.Close()

	st := s.Stats()
	assert.Equal(t, 2, st.Capacity)
	assert.Equal(t, 2, st.Segments)
	assert.Equal(t, 2, st.Total)
	assert.True(t, s.Contains("k3"))
	assert.False(t, s.Contains("k4"))
	assert.True(t, s.Contains("k5"))

	// sequence numbers continue after the archived segment
	require.NoError(t, s.Set("k6", cand(6, "t")))
	require.NoError(t, s.Set("k7", cand(7, "t")))
	s.mu.RLock()
	last := s.segments[len(s.segments)-1].name
	s.mu.RUnlock()
	assert.Equal(t, segmentName(4), last)
}

func TestStoreSkipsCorruptSegment(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStore(dir, Options{SegmentCapacity: 1})
	require.NoError(t, err)
	require.NoError(t, s.Set("a", cand(1, "t")))
	require.NoError(t, s.Set("b", cand(2, "t")))
	require.NoError(t, s.Close())

	// flip a byte inside the first record of the first segment
	path := filepath.Join(dir, segmentDir, segmentName(1))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[segHeaderSize+recHeaderSize] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err = OpenStore(dir, Options{})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 1, s.SegmentCount())
	assert.False(t, s.Contains("a"))
	assert.True(t, s.Contains("b"))
}

func TestStoreDirectoryLock(t *testing.T) {
	s, dir := newTestStore(t, 10)
	_ = s

	_, err := OpenStore(dir, Options{})
	assert.Error(t, err, "second open of a locked store must fail")
}

func TestStoreClosed(t *testing.T) {
	s, _ := newTestStore(t, 10)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Set("a", cand(1, "t")), ErrClosed)
	_, err := s.Get("a")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Archive()
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close())
}

func TestStoreReorganize(t *testing.T) {
	s, _ := newTestStore(t, 100)

	for i := int64(1); i <= 10; i++ {
		require.NoError(t, s.Set("hot", cand(i, "t")))
	}
	require.NoError(t, s.Set("cold", cand(11, "t")))
	require.Greater(t, s.Stats().Dead, 0)

	n, err := s.Reorganize()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, s.Stats().Dead)

	got, err := s.Get("hot")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.ID)
	assert.True(t, s.Contains("cold"))

	n, err = s.Reorganize()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
