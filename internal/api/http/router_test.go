package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anagram "github.com/luhtfiimanal/anagram-archive"
	"github.com/luhtfiimanal/anagram-archive/hits"
)

type stubStats struct{ st anagram.Stats }

func (s stubStats) Stats() anagram.Stats { return s.st }

type stubHits struct {
	list   []hits.Hit
	total  int
	err    error
	status hits.Status
	limit  int
}

func (s *stubHits) List(_ context.Context, status hits.Status, limit int) ([]hits.Hit, error) {
	s.status, s.limit = status, limit
	return s.list, s.err
}

func (s *stubHits) Count(context.Context, hits.Status) (int, error) { return s.total, s.err }

func newTestServer(h HitLister) *httptest.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"}))
	return httptest.NewServer(NewRouter(Deps{
		Engine:   stubStats{st: anagram.Stats{Handled: 9, CacheSize: 3}},
		Hits:     h,
		Gatherer: reg,
	}))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(&stubHits{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	SetDraining(true)
	defer SetDraining(false)
	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestInfo(t *testing.T) {
	ts := newTestServer(&stubHits{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data anagram.Stats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, uint64(9), body.Data.Handled)
	assert.Equal(t, 3, body.Data.CacheSize)
}

func TestHits(t *testing.T) {
	stub := &stubHits{
		list:  []hits.Hit{{ID: "h1", Status: hits.StatusSeen}},
		total: 7,
	}
	ts := newTestServer(stub)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/hits?status=seen&count=1000")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data hitsResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 7, body.Data.Total)
	require.Len(t, body.Data.Hits, 1)
	assert.Equal(t, "h1", body.Data.Hits[0].ID)
	assert.Equal(t, hits.StatusSeen, stub.status)
	assert.Equal(t, maxListLimit, stub.limit)
}

func TestHitsErrors(t *testing.T) {
	stub := &stubHits{}
	ts := newTestServer(stub)
	defer ts.Close()

	for _, q := range []string{"?status=bogus", "?count=-1", "?count=abc"} {
		resp, err := http.Get(ts.URL + "/hits" + q)
		require.NoError(t, err)
		var body errorEnvelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		assert.Equal(t, CodeBadRequest, body.Err.Code, q)
	}

	stub.err = errors.New("database is locked")
	resp, err := http.Get(ts.URL + "/hits")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, hits.StatusReview, stub.status)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "probe_total")

	// no hit log wired
	resp2, err := http.Get(ts.URL + "/hits")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestFromStdError(t *testing.T) {
	assert.Nil(t, FromStdError(nil))
	assert.Equal(t, CodeTimeout, FromStdError(context.DeadlineExceeded).Code)
	assert.Equal(t, CodeCanceled, FromStdError(context.Canceled).Code)
	app := NotFound("gone")
	assert.Same(t, app, FromStdError(app))
	assert.Equal(t, CodeInternalError, FromStdError(errors.New("x")).Code)
}
