// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package schedule implements the Rijndael key schedule.
//
// Only the 128 bit key size matches FIPS-197.  The 192 and 256 bit variants
// scale the word length with the key (6 and 8 byte words) instead of running
// the standard 4 byte word recurrence, and are provided as non-conformant
// extensions.
package schedule

import (
	"errors"

	"gitlab.com/yawning/rijndael.git/internal/api"
	"gitlab.com/yawning/rijndael.git/internal/tables"
)

const (
	// Size128 is the 128 bit key length in bytes.
	Size128 = 16

	// Size192 is the 192 bit key length in bytes.
	Size192 = 24

	// Size256 is the 256 bit key length in bytes.
	Size256 = 32
)

var (
	// ErrInvalidKey is the error returned when the key length does not
	// match the key size and can not be padded.
	ErrInvalidKey = errors.New("rijndael: invalid key length")

	// ErrInvalidKeySize is the error returned for an unknown key size.
	ErrInvalidKeySize = errors.New("rijndael: invalid key size")
)

// Schedule is an expanded key schedule.  It is immutable once built.
type Schedule struct {
	key    []byte
	rk     []byte
	rounds int
}

// Rounds returns the number of rounds.
func (s *Schedule) Rounds() int {
	return s.rounds
}

// KeySize returns the raw key length in bytes.
func (s *Schedule) KeySize() int {
	return len(s.key)
}

// Key returns the raw key the schedule was derived from.
func (s *Schedule) Key() []byte {
	return s.key
}

// Bytes returns the expanded schedule.  The caller must not modify it.
func (s *Schedule) Bytes() []byte {
	return s.rk
}

// Subkey returns the 16 byte subkey of round.
func (s *Schedule) Subkey(round int) []byte {
	off := round * api.BlockSize
	return s.rk[off : off+api.BlockSize]
}

// Reset clears the schedule of sensitive data.
func (s *Schedule) Reset() {
	for i := range s.key {
		s.key[i] = 0
	}
	for i := range s.rk {
		s.rk[i] = 0
	}
}

// Rounds returns the number of rounds for a key size in bytes.
func Rounds(size int) (int, error) {
	switch size {
	case Size128:
		return 10, nil
	case Size192:
		return 12, nil
	case Size256:
		return 14, nil
	default:
		return 0, ErrInvalidKeySize
	}
}

// Len returns the expanded schedule length in bytes for a key size.
func Len(size int) (int, error) {
	rounds, err := Rounds(size)
	if err != nil {
		return 0, err
	}
	return api.BlockSize * (rounds + 1), nil
}

// PadKey resolves the key padding policy, returning a fresh copy of key
// zero-extended to size when allowed.
func PadKey(key []byte, size int, allowPadding bool) ([]byte, error) {
	if _, err := Rounds(size); err != nil {
		return nil, err
	}

	switch {
	case len(key) == size:
	case len(key) < size && allowPadding:
	default:
		return nil, ErrInvalidKey
	}

	padded := make([]byte, size)
	copy(padded, key)
	return padded, nil
}

// Expand derives the key schedule for key, which must be exactly size
// bytes long.
func Expand(key []byte, size int) (*Schedule, error) {
	rounds, err := Rounds(size)
	if err != nil {
		return nil, err
	}
	if len(key) != size {
		return nil, ErrInvalidKey
	}

	targetLen := api.BlockSize * (rounds + 1)
	wordLen := size / 4

	// The 192 bit recurrence overshoots the target by a partial word, so
	// leave room for it and truncate afterwards.
	rk := make([]byte, targetLen+wordLen)
	copy(rk, key)

	word := make([]byte, wordLen)
	iteration := 1
	for n := size; n < targetLen; n += wordLen {
		copy(word, rk[n-wordLen:n])

		if n%size == 0 {
			expandCore(word, iteration)
			iteration++
		}

		for i := 0; i < wordLen; i++ {
			rk[n+i] = word[i] ^ rk[n+i-size]
		}
	}

	return &Schedule{
		key:    append([]byte{}, key...),
		rk:     rk[:targetLen:targetLen],
		rounds: rounds,
	}, nil
}

// expandCore rotates word left by one byte, substitutes every byte, and
// mixes in the round constant.
func expandCore(word []byte, iteration int) {
	first := word[0]
	copy(word, word[1:])
	word[len(word)-1] = first

	for i, v := range word {
		word[i] = tables.SBox[v]
	}

	word[0] ^= tables.Rcon[iteration]
}
