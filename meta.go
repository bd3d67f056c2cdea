package anagram

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
)

// meta file layout: 28 bytes (little-endian)
// 0..3   : magic "ANMT"
// 4..5   : uint16 format version
// 6..7   : reserved
// 8..15  : uint64 total live entries across active segments
// 16..23 : uint64 new keys written to the current segment
// 24..27 : crc32 of bytes 0..23
const (
	metaMagic   = "ANMT"
	metaVersion = 1
	metaSize    = 28
	metaFile    = "meta"
)

// storeMeta is the single authoritative record of store counters.
type storeMeta struct {
	total   int
	current int
}

func saveMeta(path string, m storeMeta) error {
	buf := make([]byte, metaSize)
	copy(buf[0:4], metaMagic)
	binary.LittleEndian.PutUint16(buf[4:6], metaVersion)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(m.total))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(m.current))
	binary.LittleEndian.PutUint32(buf[24:28], crc32.ChecksumIEEE(buf[:24]))

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync meta: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func loadMeta(path string) (storeMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return storeMeta{}, err
	}
	if len(data) < metaSize {
		return storeMeta{}, fmt.Errorf("meta file too small")
	}
	if string(data[0:4]) != metaMagic {
		return storeMeta{}, fmt.Errorf("meta file has bad magic")
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != metaVersion {
		return storeMeta{}, fmt.Errorf("meta file version %d, want %d", v, metaVersion)
	}
	if crc32.ChecksumIEEE(data[:24]) != binary.LittleEndian.Uint32(data[24:28]) {
		return storeMeta{}, fmt.Errorf("meta file CRC mismatch")
	}
	return storeMeta{
		total:   int(binary.LittleEndian.Uint64(data[8:16])),
		current: int(binary.LittleEndian.Uint64(data[16:24])),
	}, nil
}
