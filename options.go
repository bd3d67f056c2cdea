package anagram

import (
	"time"

	"github.com/luhtfiimanal/anagram-archive/internal/metrics"
)

// Options menyediakan opsi konfigurasi untuk Engine dan Store.
//
//   - CacheCapacity:    jumlah entri maksimal di cache memori
//   - SegmentCapacity:  jumlah key baru per segment sebelum rotasi
//   - BacklogThreshold: ambang buffer upstream; di atasnya Engine meminta maintenance
//   - MinTextLength:    minimal jumlah huruf agar kandidat diproses
//   - TrimBatch:        jumlah entri yang dipindah ke store per trim
//   - FlushInterval:    interval flush segment + snapshot di latar belakang
//
// Bidang kapasitas bernilai 0 diganti default saat Open; MinTextLength,
// BacklogThreshold dan FlushInterval bernilai 0 berarti fitur nonaktif.
// Lihat DefaultOptions() untuk nilai bawaan.
type Options struct {
	CacheCapacity    int           // entri di cache (default 200000)
	SegmentCapacity  int           // key per segment (default 2000000)
	BacklogThreshold int           // 0 = tanpa backpressure
	MinTextLength    int           // 0 = semua kandidat diterima
	TrimBatch        int           // 0 = min(10000, CacheCapacity/10), minimal 1
	FlushInterval    time.Duration // 0 = tanpa flush latar belakang
	SyncWrites       bool          // fdatasync setelah setiap tulis segment
	BufferPoolSize   int           // 0 = pool buffer nonaktif

	Logger  logLike
	Metrics metrics.Interface
	HitSink HitSink
	Backlog Backlog
}

// DefaultOptions mengembalikan konfigurasi yang dipakai anagramd.
func DefaultOptions() Options {
	return Options{
		CacheCapacity:    200000,
		SegmentCapacity:  2000000,
		BacklogThreshold: 5000,
		MinTextLength:    20,
		FlushInterval:    5 * time.Minute,
		BufferPoolSize:   64,
	}
}

func (o Options) withDefaults() Options {
	if o.CacheCapacity <= 0 {
		o.CacheCapacity = 200000
	}
	if o.SegmentCapacity <= 0 {
		o.SegmentCapacity = 2000000
	}
	if o.Logger == nil {
		o.Logger = nopLogger{}
	}
	if o.Metrics == nil {
		o.Metrics = metrics.Noop{}
	}
	return o
}

type logLike interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
