// Command anagramd reads candidate texts as NDJSON, pairs up anagrams and
// records every confirmed pair in a SQLite hit log.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	anagram "github.com/luhtfiimanal/anagram-archive"
	"github.com/luhtfiimanal/anagram-archive/hits"
	apphttp "github.com/luhtfiimanal/anagram-archive/internal/api/http"
	ilog "github.com/luhtfiimanal/anagram-archive/internal/log"
	"github.com/luhtfiimanal/anagram-archive/internal/metrics"
)

func main() {
	cfg, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	log := ilog.New()
	if err := run(cfg, log); err != nil {
		log.Error("anagramd.exit", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config, log *ilog.Slog) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	hitLog, err := hits.Open(cfg.HitsDB)
	if err != nil {
		return err
	}
	defer hitLog.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	fd := newFeed(cfg.BacklogSize)
	opts := anagram.Options{
		CacheCapacity:    cfg.CacheCapacity,
		SegmentCapacity:  cfg.SegmentCapacity,
		BacklogThreshold: cfg.BacklogThreshold,
		MinTextLength:    cfg.MinTextLength,
		FlushInterval:    cfg.FlushInterval,
		SyncWrites:       cfg.SyncWrites,
		BufferPoolSize:   64,
		Logger:           log.With("component", "engine"),
		Metrics:          metrics.NewProm("anagram", reg),
		HitSink:          hitLog,
		Backlog:          fd,
	}
	eng, err := anagram.Open(cfg.DataDir, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Error("engine.close", "err", err)
			return
		}
		log.Info("engine.closed")
	}()

	if cfg.Reorganize {
		if cfg.PurgeShort > 0 {
			n, err := eng.Store().PurgeShort(cfg.PurgeShort)
			if err != nil {
				return err
			}
			log.Info("store.purged", "removed", n, "min_letters", cfg.PurgeShort)
		}
		n, err := eng.Store().Reorganize()
		if err != nil {
			return err
		}
		log.Info("store.reorganized", "segments", n)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	r := &runner{
		eng:     eng,
		src:     parseSource(cfg.Input),
		feed:    fd,
		backoff: cfg.Backoff,
		log:     log.With("component", "runner"),
	}
	g.Go(func() error {
		// input exhaustion shuts the daemon down too
		defer stop()
		return r.Run(gctx)
	})

	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: apphttp.NewRouter(apphttp.Deps{
				Engine:   eng,
				Hits:     hitLog,
				Gatherer: reg,
				Logger:   log.With("component", "http"),
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("http.listen", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			apphttp.SetDraining(true)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
