// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package mode drives a block core across whole messages, with optional
// CBC chaining and PKCS#7 style length padding.
package mode

import (
	"errors"

	"gitlab.com/yawning/slice.git"

	"gitlab.com/yawning/rijndael.git/internal/api"
)

// WarnDroppedTail is the warning emitted when padding is disabled and the
// plaintext ends in a partial block.
const WarnDroppedTail = "padding disabled and input is not block aligned, dropping final partial block"

var (
	// ErrMalformedInput is the error returned when the ciphertext is not a
	// multiple of the block size.
	ErrMalformedInput = errors.New("rijndael: ciphertext is not a multiple of the block size")

	// ErrInvalidPadding is the error returned when the decrypted padding is
	// malformed.
	ErrInvalidPadding = errors.New("rijndael: invalid padding")
)

// Params are the per-message mode parameters.
type Params struct {
	// Instance is the keyed block core.
	Instance api.Instance

	// IV is the initialization vector, used when Chaining is set.
	IV api.Block

	// Chaining enables CBC.
	Chaining bool

	// Padding enables length padding.
	Padding bool

	// Trace enables emitting block and chaining events to Observer.
	Trace bool

	// Observer receives trace events and warnings.  It may be nil.
	Observer api.Observer
}

// Encrypt encrypts plaintext and appends the ciphertext to dst, returning
// the updated slice.
//
// With padding enabled a final padded block is always produced, even for
// block aligned input.  With padding disabled a trailing partial block is
// dropped.
func Encrypt(dst, plaintext []byte, p *Params) []byte {
	nFull := len(plaintext) / api.BlockSize
	tail := len(plaintext) % api.BlockSize

	nBlocks := nFull
	switch {
	case p.Padding:
		nBlocks++
	case tail != 0:
		api.Emit(p.Observer, api.EventWarning, 0, WarnDroppedTail, plaintext[nFull*api.BlockSize:])
	}

	ret, out := slice.ForAppend(dst, nBlocks*api.BlockSize)

	prev := p.IV
	for i := 0; i < nBlocks; i++ {
		off := i * api.BlockSize

		var b api.Block
		if i < nFull {
			copy(b[:], plaintext[off:off+api.BlockSize])
		} else {
			b = pad(plaintext[off:])
		}
		p.trace(api.EventBlock, i, "Block", b[:])

		if p.Chaining {
			p.trace(api.EventChain, i, "Chain", prev[:])
			b = xorBlock(b, &prev)
			p.trace(api.EventState, i, "Chained", b[:])
		}

		b = p.Instance.EncryptBlock(b)
		copy(out[off:], b[:])
		prev = b
	}

	return ret
}

// Decrypt decrypts ciphertext and appends the plaintext to dst, returning
// the updated slice.  Padding is only removed when padding is enabled.
func Decrypt(dst, ciphertext []byte, p *Params) ([]byte, error) {
	if len(ciphertext)%api.BlockSize != 0 {
		return nil, ErrMalformedInput
	}
	if p.Padding && len(ciphertext) == 0 {
		return nil, ErrInvalidPadding
	}

	ret, out := slice.ForAppend(dst, len(ciphertext))

	prev := p.IV
	for off := 0; off < len(ciphertext); off += api.BlockSize {
		var c api.Block
		copy(c[:], ciphertext[off:off+api.BlockSize])
		p.trace(api.EventBlock, off/api.BlockSize, "Block", c[:])

		b := p.Instance.DecryptBlock(c)
		if p.Chaining {
			p.trace(api.EventChain, off/api.BlockSize, "Chain", prev[:])
			b = xorBlock(b, &prev)
			p.trace(api.EventState, off/api.BlockSize, "Chained", b[:])
			prev = c
		}

		copy(out[off:], b[:])
	}

	if !p.Padding {
		return ret, nil
	}

	n, err := padLen(out)
	if err != nil {
		for i := range out {
			out[i] = 0
		}
		return nil, err
	}

	return ret[:len(ret)-n], nil
}

func (p *Params) trace(kind api.EventKind, round int, label string, data []byte) {
	if p.Trace {
		api.Emit(p.Observer, kind, round, label, data)
	}
}

// pad fills the final partial chunk with n copies of n.
func pad(chunk []byte) api.Block {
	var b api.Block
	n := api.BlockSize - len(chunk)
	copy(b[:], chunk)
	for i := len(chunk); i < api.BlockSize; i++ {
		b[i] = byte(n)
	}
	return b
}

func padLen(b []byte) (int, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > api.BlockSize {
		return 0, ErrInvalidPadding
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return 0, ErrInvalidPadding
		}
	}
	return n, nil
}

func xorBlock(b api.Block, x *api.Block) api.Block {
	for i := range b {
		b[i] ^= x[i]
	}
	return b
}
