// Package anagram matches a stream of short texts into letter-for-letter
// anagram pairs using a two-tier store: a bounded in-memory cache in front of
// a chronologically sharded on-disk archive.
//
// The library is organised into several files for clarity:
//
//	options.go      – configuration struct & defaults
//	config.go       – persisted layout config (config.json)
//	candidate.go    – Candidate, CacheEntry, HitPair & value encoding
//	verify.go       – anagram verification & reference signature
//	segment.go      – one append-only key/value segment file
//	io.go           – segment record framing & CRC integrity
//	buffer.go       – pooled record buffers
//	store.go        – Store: routing, rotation & archival
//	store_lookup.go – segment lookup & archived reads
//	meta.go         – store metadata file
//	lock.go         – exclusive lock on the store directory
//	flush_close.go  – flush & close helpers
//	cache.go        – MatchCache & collision-ranked trim
//	snapshot.go     – cache snapshot file
//	engine.go       – Engine: matching, backpressure & maintenance
//	stats.go        – lightweight stats accessors
//
// A store directory looks like:
//
//	config.json      layout options fixed at creation
//	meta             total / current-segment counters
//	cache.snapshot   cached candidates from the last flush or close
//	segments/        active segments, oldest first
//	archive/         segments detached by maintenance
//	LOCK             held while the store is open
package anagram
