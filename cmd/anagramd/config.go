package main

import (
	"flag"
	"os"
	"strconv"
	"time"
)

type config struct {
	DataDir          string
	HTTPAddr         string
	Input            string
	HitsDB           string
	CacheCapacity    int
	SegmentCapacity  int
	BacklogThreshold int
	BacklogSize      int
	MinTextLength    int
	FlushInterval    time.Duration
	Backoff          time.Duration
	SyncWrites       bool
	Reorganize       bool
	PurgeShort       int
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func loadConfig(fs *flag.FlagSet, args []string) (*config, error) {
	var c config

	fs.StringVar(&c.DataDir, "data", envOr("ANAGRAM_DATA_DIR", "./data"), "store directory")
	fs.StringVar(&c.HTTPAddr, "http", envOr("ANAGRAM_HTTP_ADDR", ":8080"), "status API address, empty to disable")
	fs.StringVar(&c.Input, "input", envOr("ANAGRAM_INPUT", "-"), `NDJSON candidates: "-" for stdin, a file path, or tcp://host:port`)
	fs.StringVar(&c.HitsDB, "hits-db", envOr("ANAGRAM_HITS_DB", ""), "SQLite hit log (default <data>/hits.db)")
	fs.IntVar(&c.CacheCapacity, "cache", parseIntEnv("ANAGRAM_CACHE_CAPACITY", 200000), "cache capacity")
	fs.IntVar(&c.SegmentCapacity, "segment", parseIntEnv("ANAGRAM_SEGMENT_CAPACITY", 2000000), "keys per store segment (fixed when the store is created)")
	fs.IntVar(&c.BacklogThreshold, "backlog-threshold", parseIntEnv("ANAGRAM_BACKLOG_THRESHOLD", 5000), "buffered candidates that trigger maintenance, 0 to disable")
	fs.IntVar(&c.BacklogSize, "backlog-size", parseIntEnv("ANAGRAM_BACKLOG_SIZE", 10000), "upstream buffer size")
	fs.IntVar(&c.MinTextLength, "min-length", parseIntEnv("ANAGRAM_MIN_LENGTH", 20), "minimum letters per candidate")
	fs.DurationVar(&c.FlushInterval, "flush-interval", parseDurationEnv("ANAGRAM_FLUSH_INTERVAL", 5*time.Minute), "background flush interval, 0 to disable")
	fs.DurationVar(&c.Backoff, "backoff", parseDurationEnv("ANAGRAM_BACKOFF", 30*time.Second), "wait after an upstream failure")
	fs.BoolVar(&c.SyncWrites, "sync", false, "fdatasync after every segment write")
	fs.BoolVar(&c.Reorganize, "reorganize", false, "compact store segments before starting")
	fs.IntVar(&c.PurgeShort, "purge-short", 0, "with -reorganize, first delete stored candidates with fewer letters than this")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.HitsDB == "" {
		c.HitsDB = c.DataDir + "/hits.db"
	}
	if c.BacklogSize <= c.BacklogThreshold {
		c.BacklogSize = c.BacklogThreshold + 1
	}
	return &c, nil
}
