package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/goccy/go-json"

	anagram "github.com/luhtfiimanal/anagram-archive"
	ilog "github.com/luhtfiimanal/anagram-archive/internal/log"
)

const maxLineSize = 1 << 20

// source yields an NDJSON stream of candidates.
type source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Reconnects reports whether Open may be called again after the stream
	// ends or is closed for maintenance.
	Reconnects() bool
	String() string
}

type readerSource struct {
	name string
	r    io.Reader
}

func (s readerSource) Open(context.Context) (io.ReadCloser, error) { return io.NopCloser(s.r), nil }
func (s readerSource) Reconnects() bool                             { return false }
func (s readerSource) String() string                               { return s.name }

type fileSource struct{ path string }

func (s fileSource) Open(context.Context) (io.ReadCloser, error) { return os.Open(s.path) }
func (s fileSource) Reconnects() bool                             { return false }
func (s fileSource) String() string                               { return s.path }

type tcpSource struct {
	addr   string
	dialer net.Dialer
}

func (s *tcpSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.dialer.DialContext(ctx, "tcp", s.addr)
}
func (s *tcpSource) Reconnects() bool { return true }
func (s *tcpSource) String() string   { return "tcp://" + s.addr }

func parseSource(input string) source {
	switch {
	case input == "" || input == "-":
		return readerSource{name: "stdin", r: os.Stdin}
	case strings.HasPrefix(input, "tcp://"):
		return &tcpSource{addr: strings.TrimPrefix(input, "tcp://")}
	default:
		return fileSource{path: input}
	}
}

// feed is the bounded buffer between the upstream reader and the engine. Its
// fill level is the backlog the engine watches.
type feed struct {
	ch chan anagram.Candidate
}

func newFeed(size int) *feed {
	return &feed{ch: make(chan anagram.Candidate, size)}
}

func (f *feed) Pending() int { return len(f.ch) }

// decodeLine parses one NDJSON candidate. A missing signature is derived
// from the text.
func decodeLine(line []byte) (anagram.Candidate, error) {
	var c anagram.Candidate
	if err := json.Unmarshal(line, &c); err != nil {
		return anagram.Candidate{}, fmt.Errorf("decode candidate: %w", err)
	}
	if c.Signature == "" {
		c.Signature = anagram.Signature(c.Text)
	}
	if err := c.Validate(); err != nil {
		return anagram.Candidate{}, err
	}
	return c, nil
}

// pump copies candidates from r into the feed until r ends or ctx is done.
// Malformed lines are logged and dropped. It returns nil at a clean EOF.
func (f *feed) pump(ctx context.Context, r io.Reader, log ilog.Logger) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		c, err := decodeLine(line)
		if err != nil {
			log.Warn("feed.bad_line", "err", err)
			continue
		}
		select {
		case f.ch <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
