package anagram

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// segment file layout
//
//	header : 8 bytes  magic "ANSG" | uint16 version | 2 reserved
//	record : 11 bytes crc32 | op | uint16 key length | uint32 value length
//	         followed by key and value bytes
//
// The CRC covers everything in the record after the CRC itself. All integers
// are little-endian.
const (
	segmentMagic   = "ANSG"
	segmentVersion = 1
	segHeaderSize  = 8
	recHeaderSize  = 11

	opPut    byte = 1
	opDelete byte = 2

	maxKeyLen   = 1<<16 - 1
	maxValueLen = 1 << 20
)

// errTornRecord means the file ended in the middle of a record, the usual
// result of a crash during an append.
var errTornRecord = errors.New("torn record")

type record struct {
	op  byte
	key string
	val []byte
	// valOff is the offset of the value bytes relative to the record start.
	valOff int64
	size   int64
}

func encodeSegmentHeader() []byte {
	buf := make([]byte, segHeaderSize)
	copy(buf[0:4], segmentMagic)
	binary.LittleEndian.PutUint16(buf[4:6], segmentVersion)
	return buf
}

func checkSegmentHeader(buf []byte) error {
	if len(buf) < segHeaderSize || string(buf[0:4]) != segmentMagic {
		return fmt.Errorf("%w: bad magic", ErrCorruptSegment)
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != segmentVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptSegment, v)
	}
	return nil
}

// appendRecord encodes one record onto dst and returns the extended slice.
func appendRecord(dst []byte, op byte, key string, val []byte) ([]byte, error) {
	if len(key) > maxKeyLen {
		return dst, fmt.Errorf("key too long: %d bytes", len(key))
	}
	if len(val) > maxValueLen {
		return dst, fmt.Errorf("value too long: %d bytes", len(val))
	}
	start := len(dst)
	dst = append(dst, make([]byte, recHeaderSize)...)
	hdr := dst[start:]
	hdr[4] = op
	binary.LittleEndian.PutUint16(hdr[5:7], uint16(len(key)))
	binary.LittleEndian.PutUint32(hdr[7:11], uint32(len(val)))
	dst = append(dst, key...)
	dst = append(dst, val...)
	crc := crc32.ChecksumIEEE(dst[start+4:])
	binary.LittleEndian.PutUint32(dst[start:start+4], crc)
	return dst, nil
}

// readRecord decodes the next record from r. It returns io.EOF at a clean
// record boundary, errTornRecord for a truncated tail and ErrCorruptSegment
// for a checksum or length mismatch.
func readRecord(r io.Reader) (record, error) {
	var hdr [recHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return record{}, errTornRecord
		}
		return record{}, err
	}
	op := hdr[4]
	if op != opPut && op != opDelete {
		return record{}, fmt.Errorf("%w: unknown op %d", ErrCorruptSegment, op)
	}
	keyLen := int(binary.LittleEndian.Uint16(hdr[5:7]))
	valLen := int(binary.LittleEndian.Uint32(hdr[7:11]))
	if valLen > maxValueLen {
		return record{}, fmt.Errorf("%w: value length %d", ErrCorruptSegment, valLen)
	}

	body := make([]byte, keyLen+valLen)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return record{}, errTornRecord
		}
		return record{}, err
	}

	h := crc32.NewIEEE()
	h.Write(hdr[4:])
	h.Write(body)
	if h.Sum32() != binary.LittleEndian.Uint32(hdr[0:4]) {
		return record{}, fmt.Errorf("%w: CRC mismatch", ErrCorruptSegment)
	}

	return record{
		op:     op,
		key:    string(body[:keyLen]),
		val:    body[keyLen:],
		valOff: int64(recHeaderSize + keyLen),
		size:   int64(recHeaderSize + keyLen + valLen),
	}, nil
}
