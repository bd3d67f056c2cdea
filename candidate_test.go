package anagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCandidate(t *testing.T) {
	c, err := NewCandidate(1, "eilnst", "listen")
	require.NoError(t, err)
	assert.Equal(t, Candidate{ID: 1, Signature: "eilnst", Text: "listen"}, c)

	_, err = NewCandidate(0, "x", "x")
	assert.ErrorIs(t, err, ErrInvalidCandidate)
	_, err = NewCandidate(1, "", "x")
	assert.ErrorIs(t, err, ErrInvalidCandidate)
	_, err = NewCandidate(1, "a\x00b", "x")
	assert.ErrorIs(t, err, ErrInvalidCandidate)
	_, err = NewCandidate(1, "a\x0fb", "x")
	assert.ErrorIs(t, err, ErrInvalidCandidate)
}

func TestCandidateEncoding(t *testing.T) {
	c := Candidate{ID: 42, Signature: "abc", Text: "c\x0fab"}
	assert.Equal(t, "42\x0fabc\x0fc\x0fab", string(c.encode()))

	got, err := decodeCandidate(c.encode())
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = decodeCandidate([]byte("42\x0fabc"))
	assert.ErrorIs(t, err, ErrCorruptSegment)
	_, err = decodeCandidate([]byte("x\x0fabc\x0ftext"))
	assert.ErrorIs(t, err, ErrCorruptSegment)
}
