package anagram_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	anagram "github.com/luhtfiimanal/anagram-archive"
)

type printSink struct{}

func (printSink) NewHit(_ context.Context, h anagram.HitPair) error {
	fmt.Printf("%s <-> %s\n", h.A.Text, h.B.Text)
	return nil
}

func Example() {
	dir, err := os.MkdirTemp("", "anagram-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	eng, err := anagram.Open(dir, anagram.Options{CacheCapacity: 1000, HitSink: printSink{}})
	if err != nil {
		panic(err)
	}
	defer eng.Close()

	for i, text := range []string{"Dormitory", "listen", "dirty room", "silent"} {
		c, err := anagram.NewCandidate(int64(i+1), anagram.Signature(text), text)
		if err != nil {
			panic(err)
		}
		if _, err := eng.Handle(context.Background(), c); err != nil {
			panic(err)
		}
	}
	// Output:
	// Dormitory <-> dirty room
	// listen <-> silent
}

func TestReopenAfterMaintenance(t *testing.T) {
	dir := t.TempDir()
	opts := anagram.Options{CacheCapacity: 2, SegmentCapacity: 2}

	eng, err := anagram.Open(dir, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i, text := range []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"} {
		if _, err := eng.Handle(context.Background(), anagram.Candidate{ID: int64(i + 1), Signature: anagram.Signature(text), Text: text}); err != nil {
			t.Fatalf("handle %q: %v", text, err)
		}
	}
	rep, err := eng.PerformMaintenance()
	if err != nil {
		t.Fatalf("maintenance: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	eng, err = anagram.Open(dir, opts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer eng.Close()

	archived, err := eng.Store().ArchivedSegments()
	if err != nil {
		t.Fatalf("list archive: %v", err)
	}
	if len(archived) != 1 || archived[0] != rep.Archived {
		t.Fatalf("expected archive [%s], got %v", rep.Archived, archived)
	}
	if got := eng.Store().SegmentCount(); got != rep.Segments {
		t.Fatalf("segment count after reopen %d, want %d", got, rep.Segments)
	}
}
