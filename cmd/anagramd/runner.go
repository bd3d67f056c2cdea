package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	anagram "github.com/luhtfiimanal/anagram-archive"
	ilog "github.com/luhtfiimanal/anagram-archive/internal/log"
)

// matcher is the engine surface the runner drives.
type matcher interface {
	Handle(ctx context.Context, c anagram.Candidate) (anagram.Outcome, error)
	PerformMaintenance() (anagram.MaintenanceReport, error)
}

var (
	errMaintenance = errors.New("maintenance required")
	errDrained     = errors.New("input drained")
)

// pumpEnded carries the result of a finished upstream reader.
type pumpEnded struct{ err error }

func (p pumpEnded) Error() string {
	if p.err == nil {
		return "upstream ended"
	}
	return "upstream ended: " + p.err.Error()
}

func (p pumpEnded) Unwrap() error { return p.err }

// runner moves candidates from the upstream source through the engine. On
// backpressure it stops consuming, runs maintenance and, for a reconnecting
// source, reopens the upstream.
type runner struct {
	eng     matcher
	src     source
	feed    *feed
	backoff time.Duration
	log     ilog.Logger

	stop      context.CancelFunc
	done      chan error // result of the running pump, nil if none
	exhausted bool       // a non-reconnecting source reached its end
}

func (r *runner) Run(ctx context.Context) error {
	defer func() {
		if r.stop != nil {
			r.stop()
		}
	}()

	for {
		if r.done == nil && !r.exhausted {
			if err := r.startPump(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if !r.src.Reconnects() {
					return err
				}
				r.log.Warn("upstream.open", "source", r.src.String(), "err", err, "retry_in", r.backoff)
				if !sleep(ctx, r.backoff) {
					return nil
				}
				continue
			}
		}

		err := r.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}

		var ended pumpEnded
		switch {
		case errors.Is(err, errMaintenance):
			if r.src.Reconnects() {
				r.stopPump()
			}
			rep, err := r.eng.PerformMaintenance()
			if err != nil {
				return err
			}
			r.log.Info("maintenance.done", "segment", rep.Archived, "segments", rep.Segments, "pending", r.feed.Pending())
		case errors.As(err, &ended):
			if !r.src.Reconnects() {
				if ended.err != nil {
					return fmt.Errorf("read %s: %w", r.src, ended.err)
				}
				r.exhausted = true
				continue
			}
			r.log.Warn("upstream.lost", "source", r.src.String(), "err", ended.err, "retry_in", r.backoff)
			if !sleep(ctx, r.backoff) {
				return nil
			}
		case errors.Is(err, errDrained):
			r.log.Info("upstream.done", "source", r.src.String())
			return nil
		default:
			return err
		}
	}
}

func (r *runner) startPump(ctx context.Context) error {
	pctx, cancel := context.WithCancel(ctx)
	rc, err := r.src.Open(pctx)
	if err != nil {
		cancel()
		return err
	}
	// closing the stream unblocks a pending read
	context.AfterFunc(pctx, func() { rc.Close() })

	done := make(chan error, 1)
	go func() {
		defer rc.Close()
		done <- r.feed.pump(pctx, rc, r.log)
	}()
	r.stop, r.done = cancel, done
	r.log.Info("upstream.open", "source", r.src.String())
	return nil
}

// stopPump closes the upstream and waits for its reader. Candidates already
// buffered stay in the feed.
func (r *runner) stopPump() {
	if r.done == nil {
		return
	}
	r.stop()
	<-r.done
	r.stop, r.done = nil, nil
}

// consume handles buffered candidates until maintenance is needed, the
// upstream ends, or a fatal engine error occurs.
func (r *runner) consume(ctx context.Context) error {
	for {
		if r.done == nil {
			// no reader left: finish what is buffered
			select {
			case c := <-r.feed.ch:
				if err := r.handle(ctx, c); err != nil {
					return err
				}
				continue
			default:
				return errDrained
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-r.feed.ch:
			if err := r.handle(ctx, c); err != nil {
				return err
			}
		case err := <-r.done:
			r.stop()
			r.stop, r.done = nil, nil
			if !r.src.Reconnects() && err == nil {
				// the rest of the buffer is drained by the next loop
				r.exhausted = true
				continue
			}
			return pumpEnded{err: err}
		}
	}
}

func (r *runner) handle(ctx context.Context, c anagram.Candidate) error {
	out, err := r.eng.Handle(ctx, c)
	switch {
	case errors.Is(err, anagram.ErrInvalidCandidate):
		r.log.Warn("candidate.invalid", "id", c.ID, "err", err)
		return nil
	case errors.Is(err, anagram.ErrMaintenancePending):
		return errMaintenance
	case err != nil:
		return fmt.Errorf("handle candidate %d: %w", c.ID, err)
	}
	if out.Hit != nil {
		r.log.Info("hit", "a", out.Hit.A.ID, "b", out.Hit.B.ID)
	}
	if out.MaintenanceRequired {
		return errMaintenance
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
