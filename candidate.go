package anagram

import (
	"fmt"
	"strconv"
	"strings"
)

// fieldSep joins the fields of a candidate inside a segment value.
const fieldSep = "\x0f"

// sentinelKey names the record holding a segment's own file name. Signatures
// may not contain NUL, so it never collides with a real key.
const sentinelKey = "\x00segment"

// Candidate is one input text waiting for an anagram partner.
//
// ID is assigned upstream and only orders candidates by recency. Signature is
// a bucketing hint: true anagrams very likely share it, but sharing it proves
// nothing.
type Candidate struct {
	ID        int64  `json:"id"`
	Signature string `json:"signature"`
	Text      string `json:"text"`
}

// NewCandidate validates and builds a Candidate.
func NewCandidate(id int64, signature, text string) (Candidate, error) {
	c := Candidate{ID: id, Signature: signature, Text: text}
	if err := c.Validate(); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

// Validate reports whether c carries every required field.
func (c Candidate) Validate() error {
	switch {
	case c.ID <= 0:
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidCandidate, c.ID)
	case c.Signature == "":
		return fmt.Errorf("%w: empty signature", ErrInvalidCandidate)
	case !validKey(c.Signature):
		return fmt.Errorf("%w: signature %q contains reserved bytes", ErrInvalidCandidate, c.Signature)
	}
	return nil
}

func validKey(sig string) bool {
	return sig != "" && !strings.ContainsAny(sig, "\x00"+fieldSep)
}

// encode renders c as "id \x0f signature \x0f text".
func (c Candidate) encode() []byte {
	id := strconv.FormatInt(c.ID, 10)
	b := make([]byte, 0, len(id)+len(c.Signature)+len(c.Text)+2)
	b = append(b, id...)
	b = append(b, fieldSep...)
	b = append(b, c.Signature...)
	b = append(b, fieldSep...)
	b = append(b, c.Text...)
	return b
}

// decodeCandidate is the inverse of encode. The text is the remainder after
// the second separator, so it may itself contain the separator.
func decodeCandidate(b []byte) (Candidate, error) {
	parts := strings.SplitN(string(b), fieldSep, 3)
	if len(parts) != 3 {
		return Candidate{}, fmt.Errorf("%w: value has %d fields", ErrCorruptSegment, len(parts))
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: bad id %q", ErrCorruptSegment, parts[0])
	}
	return Candidate{ID: id, Signature: parts[1], Text: parts[2]}, nil
}

// CacheEntry is a cached candidate plus the number of non-matching candidates
// that have displaced an earlier occupant of the same signature.
type CacheEntry struct {
	Candidate  Candidate
	Collisions int
}

// HitPair is a confirmed anagram match. A is the earlier occupant, B the
// newcomer that matched it.
type HitPair struct {
	A Candidate `json:"a"`
	B Candidate `json:"b"`
}
