// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package api provides the Rijndael block core abstract interface.
package api

import "errors"

// BlockSize is the Rijndael/AES block size in bytes.
const BlockSize = 16

// ErrUnsupported is the error returned by a Factory that can not service
// the requested key schedule or observer configuration.
var ErrUnsupported = errors.New("rijndael: configuration not supported by implementation")

// Block is the 16 byte working unit of every round transform, laid out
// column-major.
type Block [BlockSize]byte

// KeySchedule is the subset of an expanded key schedule that a block core
// needs.
type KeySchedule interface {
	// Rounds returns the number of rounds (10/12/14).
	Rounds() int

	// KeySize returns the canonical raw key length in bytes.
	KeySize() int

	// Key returns the (possibly zero-extended) raw key.
	Key() []byte

	// Subkey returns the 16 byte subkey for the given round.
	Subkey(round int) []byte
}

// EventKind identifies what an Event carries.
type EventKind int

const (
	// EventExpandedKey carries the full expanded key schedule.
	EventExpandedKey EventKind = iota

	// EventSubkey carries the subkey used by a round.
	EventSubkey

	// EventState carries the block state after a primitive.
	EventState

	// EventBlock carries a fresh input block before any transform.
	EventBlock

	// EventChain carries the chaining material XORed into a block.
	EventChain

	// EventWarning carries a non-fatal configuration warning in Label.
	EventWarning
)

func (k EventKind) String() string {
	switch k {
	case EventExpandedKey:
		return "expanded-key"
	case EventSubkey:
		return "subkey"
	case EventState:
		return "state"
	case EventBlock:
		return "block"
	case EventChain:
		return "chain"
	case EventWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Event is a single labeled trace event.  Data is a copy and may be
// retained by the receiver.
type Event struct {
	Kind  EventKind
	Round int
	Label string
	Data  []byte
}

// Observer receives trace events.  It is purely observational.
type Observer interface {
	Observe(ev *Event)
}

// Emit sends an event to obs if it is non-nil.
func Emit(obs Observer, kind EventKind, round int, label string, data []byte) {
	if obs == nil {
		return
	}
	var cpy []byte
	if data != nil {
		cpy = append([]byte{}, data...)
	}
	obs.Observe(&Event{
		Kind:  kind,
		Round: round,
		Label: label,
		Data:  cpy,
	})
}

// Factory is a Instance factory.
type Factory interface {
	// Name returns the name of the implementation.
	Name() string

	// New constructs a new keyed instance, or returns ErrUnsupported.
	New(ks KeySchedule, obs Observer) (Instance, error)
}

// Instance is a keyed Rijndael block core.
type Instance interface {
	// Reset attempts to clear the instance of sensitive data.
	Reset()

	// EncryptBlock runs the forward round pipeline over a single block.
	EncryptBlock(b Block) Block

	// DecryptBlock runs the inverse round pipeline over a single block.
	DecryptBlock(b Block) Block
}
