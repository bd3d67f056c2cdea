// Package http serves the daemon's read-only status API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	anagram "github.com/luhtfiimanal/anagram-archive"
	"github.com/luhtfiimanal/anagram-archive/hits"
	ilog "github.com/luhtfiimanal/anagram-archive/internal/log"
)

// StatsSource is the engine side of /info.
type StatsSource interface {
	Stats() anagram.Stats
}

// HitLister is the hit log side of /hits.
type HitLister interface {
	List(ctx context.Context, status hits.Status, limit int) ([]hits.Hit, error)
	Count(ctx context.Context, status hits.Status) (int, error)
}

// Deps wires the router. Hits and Gatherer may be nil.
type Deps struct {
	Engine   StatsSource
	Hits     HitLister
	Gatherer prometheus.Gatherer
	Logger   ilog.Logger
}

const maxListLimit = 500

var draining atomic.Bool

// SetDraining makes /health report 503 while the daemon shuts down.
func SetDraining(v bool) {
	draining.Store(v)
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(AccessLog(d.Logger))
	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/info", HandlerFunc(infoHandler(d.Engine)))
	if d.Hits != nil {
		r.Method(http.MethodGet, "/hits", HandlerFunc(hitsHandler(d.Hits)))
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	if draining.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func infoHandler(src StatsSource) HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) error {
		if src == nil {
			return NewAppError(http.StatusServiceUnavailable, CodeUnavailable, "engine not ready", nil)
		}
		writeSuccess(w, http.StatusOK, src.Stats())
		return nil
	}
}

type hitsResponse struct {
	Status hits.Status `json:"status"`
	Total  int         `json:"total"`
	Hits   []hits.Hit  `json:"hits"`
}

func hitsHandler(l HitLister) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		status := hits.Status(r.URL.Query().Get("status"))
		if status == "" {
			status = hits.StatusReview
		}
		if !status.Valid() {
			return BadRequest("unknown status " + strconv.Quote(string(status)))
		}
		limit := 50
		if v := r.URL.Query().Get("count"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return BadRequest("count must be a positive integer")
			}
			limit = min(n, maxListLimit)
		}

		list, err := l.List(r.Context(), status, limit)
		if err != nil {
			return err
		}
		total, err := l.Count(r.Context(), status)
		if err != nil {
			return err
		}
		if list == nil {
			list = []hits.Hit{}
		}
		writeSuccess(w, http.StatusOK, hitsResponse{Status: status, Total: total, Hits: list})
		return nil
	}
}
