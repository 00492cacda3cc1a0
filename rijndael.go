// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package rijndael implements the Rijndael/AES block cipher with optional
// CBC chaining and length padding over complete in-memory messages.
//
// Only the 128 bit key size is FIPS-197 AES.  The 192 and 256 bit key sizes
// use a non-standard key schedule and will not interoperate with other AES
// implementations.
//
// A Cipher is safe for concurrent Encrypt/Decrypt calls, however SetKey and
// Reset require exclusive access.
package rijndael

import (
	"errors"

	"gitlab.com/yawning/rijndael.git/internal/api"
	"gitlab.com/yawning/rijndael.git/internal/hardware"
	"gitlab.com/yawning/rijndael.git/internal/mode"
	"gitlab.com/yawning/rijndael.git/internal/ref"
	"gitlab.com/yawning/rijndael.git/internal/schedule"
)

// BlockSize is the block size in bytes.
const BlockSize = api.BlockSize

// KeySize is a Rijndael key size in bits.
type KeySize int

const (
	// KeySize128 is the standard AES-128 key size.
	KeySize128 KeySize = 128

	// KeySize192 is the non-standard 192 bit key size.
	KeySize192 KeySize = 192

	// KeySize256 is the non-standard 256 bit key size.
	KeySize256 KeySize = 256
)

// Bytes returns the raw key length in bytes.
func (s KeySize) Bytes() int {
	return int(s) / 8
}

// Rounds returns the number of rounds, or 0 for an invalid key size.
func (s KeySize) Rounds() int {
	r, _ := schedule.Rounds(s.Bytes())
	return r
}

// WarnDefaultIV is the warning emitted when chaining is enabled without a
// usable initialization vector.
const WarnDefaultIV = "chaining enabled but initialization vector missing or too short, using default"

// WarnDroppedTail is the warning emitted when padding is disabled and the
// plaintext ends in a partial block.
const WarnDroppedTail = mode.WarnDroppedTail

var (
	// ErrNoImplementations is the error returned when there are no working
	// implementations.
	ErrNoImplementations = errors.New("rijndael: no working implementations")

	// ErrInvalidKey is the error returned when the key length does not
	// match the key size and key padding is not allowed.
	ErrInvalidKey = schedule.ErrInvalidKey

	// ErrInvalidKeySize is the error returned for an unknown key size.
	ErrInvalidKeySize = schedule.ErrInvalidKeySize

	// ErrMalformedInput is the error returned when the ciphertext is not a
	// multiple of BlockSize.
	ErrMalformedInput = mode.ErrMalformedInput

	// ErrInvalidPadding is the error returned when padding is enabled and
	// the decrypted padding is malformed.
	ErrInvalidPadding = mode.ErrInvalidPadding

	defaultIV = []byte("1234567890123456")

	supportedFactories []api.Factory
)

// Observer receives trace events and warnings.
type Observer = api.Observer

// Event is a single labeled trace event.
type Event = api.Event

// EventKind identifies what an Event carries.
type EventKind = api.EventKind

// The trace event kinds.
const (
	EventExpandedKey = api.EventExpandedKey
	EventSubkey      = api.EventSubkey
	EventState       = api.EventState
	EventBlock       = api.EventBlock
	EventChain       = api.EventChain
	EventWarning     = api.EventWarning
)

// Config is the cipher configuration.
type Config struct {
	// KeySize is the key size, the zero value is treated as KeySize128.
	KeySize KeySize

	// Chaining enables CBC mode.
	Chaining bool

	// Padding enables length padding on encrypt and its removal on
	// decrypt.
	Padding bool

	// AllowKeyPadding zero-extends keys shorter than KeySize.
	AllowKeyPadding bool

	// IV is the initialization vector.  Only the first BlockSize bytes are
	// used, and a default is substituted if it is shorter.
	IV []byte

	// Trace enables emitting subkeys and intermediate block states to
	// Observer.
	Trace bool

	// Observer receives warnings, and trace events if Trace is set.
	Observer Observer

	// Accelerated allows a hardware backed block core to be used for
	// untraced 128 bit keys.  By default the reference core is used.
	Accelerated bool
}

// DefaultConfig returns a configuration with CBC, padding and key padding
// enabled, and 128 bit keys.
func DefaultConfig() *Config {
	return &Config{
		KeySize:         KeySize128,
		Chaining:        true,
		Padding:         true,
		AllowKeyPadding: true,
	}
}

// Cipher is a keyed Rijndael instance.
type Cipher struct {
	cfg  Config
	iv   api.Block
	ks   *schedule.Schedule
	inst api.Instance
	impl string
	obs  api.Observer
}

// New creates a new Cipher with the provided key and configuration.  A nil
// cfg is equivalent to DefaultConfig().
func New(key []byte, cfg *Config) (*Cipher, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	c := &Cipher{
		cfg: *cfg,
		obs: &warnLogger{next: cfg.Observer},
	}
	c.cfg.IV = nil

	if err := c.SetKey(key, cfg.KeySize); err != nil {
		return nil, err
	}
	c.setIV(cfg.IV)

	return c, nil
}

// SetKey replaces the key and key size, deriving a new key schedule.  On
// failure the Cipher is left unaltered.
func (c *Cipher) SetKey(key []byte, size KeySize) error {
	if size == 0 {
		size = KeySize128
	}

	padded, err := schedule.PadKey(key, size.Bytes(), c.cfg.AllowKeyPadding)
	if err != nil {
		return err
	}
	ks, err := schedule.Expand(padded, size.Bytes())
	if err != nil {
		return err
	}
	inst, impl, err := newInstance(ks, c.traceObserver(), c.cfg.Accelerated)
	if err != nil {
		return err
	}

	if c.inst != nil {
		c.inst.Reset()
		c.ks.Reset()
	}
	c.ks, c.inst, c.impl = ks, inst, impl
	c.cfg.KeySize = size

	log.Debugf("Derived %d byte schedule for %d bit key (%d rounds), implementation: %s",
		len(ks.Bytes()), int(size), ks.Rounds(), impl)
	if obs := c.traceObserver(); obs != nil {
		api.Emit(obs, api.EventExpandedKey, 0, "Expanded key", ks.Bytes())
	}

	return nil
}

// Encrypt encrypts plaintext, returning the ciphertext.
func (c *Cipher) Encrypt(plaintext []byte) []byte {
	return mode.Encrypt(nil, plaintext, c.params())
}

// Decrypt decrypts ciphertext, returning the plaintext.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	return mode.Decrypt(nil, ciphertext, c.params())
}

// KeySize returns the current key size.
func (c *Cipher) KeySize() KeySize {
	return c.cfg.KeySize
}

// Key returns a copy of the (possibly zero-extended) key.
func (c *Cipher) Key() []byte {
	return append([]byte{}, c.ks.Key()...)
}

// ExpandedKey returns a copy of the expanded key schedule.
func (c *Cipher) ExpandedKey() []byte {
	return append([]byte{}, c.ks.Bytes()...)
}

// IV returns a copy of the initialization vector in use.
func (c *Cipher) IV() []byte {
	return append([]byte{}, c.iv[:]...)
}

// Implementation returns the name of the block core implementation in use.
func (c *Cipher) Implementation() string {
	return c.impl
}

// Reset attempts to clear the instance of sensitive data.  The Cipher
// should not be used afterwards, it will not panic but the output is
// meaningless until SetKey is called.
func (c *Cipher) Reset() {
	c.inst.Reset()
	c.ks.Reset()
	c.iv = api.Block{}
}

func (c *Cipher) params() *mode.Params {
	return &mode.Params{
		Instance: c.inst,
		IV:       c.iv,
		Chaining: c.cfg.Chaining,
		Padding:  c.cfg.Padding,
		Trace:    c.traceObserver() != nil,
		Observer: c.obs,
	}
}

func (c *Cipher) traceObserver() api.Observer {
	if !c.cfg.Trace || c.cfg.Observer == nil {
		return nil
	}
	return c.cfg.Observer
}

func (c *Cipher) setIV(iv []byte) {
	if len(iv) < BlockSize {
		iv = defaultIV
		if c.cfg.Chaining {
			api.Emit(c.obs, api.EventWarning, 0, WarnDefaultIV, nil)
		}
	}
	copy(c.iv[:], iv)
}

func newInstance(ks api.KeySchedule, obs api.Observer, accelerated bool) (api.Instance, string, error) {
	for _, f := range supportedFactories {
		if f == hardware.Factory && !accelerated {
			continue
		}
		inst, err := f.New(ks, obs)
		switch err {
		case nil:
			return inst, f.Name(), nil
		case api.ErrUnsupported:
		default:
			return nil, "", err
		}
	}

	return nil, "", ErrNoImplementations
}

// warnLogger logs warnings before handing every event to the caller's
// observer.
type warnLogger struct {
	next api.Observer
}

func (w *warnLogger) Observe(ev *api.Event) {
	if ev.Kind == api.EventWarning {
		log.Warnf("%s", ev.Label)
	}
	if w.next != nil {
		w.next.Observe(ev)
	}
}

func init() {
	supportedFactories = append(supportedFactories, ref.Factory)
	if hardware.Factory != nil {
		supportedFactories = append([]api.Factory{hardware.Factory}, supportedFactories...)
	}
}
