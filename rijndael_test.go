// Copryright (C) 2019 Yawning Angel
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package rijndael

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/btcsuite/btclog/v2"
	"github.com/stretchr/testify/require"

	"gitlab.com/yawning/rijndael.git/internal/api"
	"gitlab.com/yawning/rijndael.git/internal/hardware"
)

type recorder struct {
	events []*Event
}

func (r *recorder) Observe(ev *Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) warnings() []string {
	var w []string
	for _, ev := range r.events {
		if ev.Kind == EventWarning {
			w = append(w, ev.Label)
		}
	}
	return w
}

func withFactory(factory api.Factory, fn func()) {
	oldFactories := supportedFactories
	supportedFactories = []api.Factory{factory}
	defer func() {
		supportedFactories = oldFactories
	}()

	fn()
}

func mustDecodeHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err, "hex.DecodeString(%s)", s)
	return b
}

func TestBasic(t *testing.T) {
	for _, v := range supportedFactories {
		t.Run("Impl_"+v.Name(), func(t *testing.T) {
			withFactory(v, func() { doTestBasic(t, v) })
		})
	}
}

func doTestBasic(t *testing.T, factory api.Factory) {
	require := require.New(t)

	// Short key should fail without key padding.
	cfg := DefaultConfig()
	cfg.AllowKeyPadding = false
	_, err := New([]byte("short key"), cfg)
	require.Equal(ErrInvalidKey, err, "New() - short key")

	// Construct a random keyed instance to test things.
	key := make([]byte, KeySize128.Bytes())
	_, err = rand.Read(key)
	require.NoError(err, "Generate random key")
	iv := make([]byte, BlockSize)
	_, err = rand.Read(iv)
	require.NoError(err, "Generate random iv")

	cfg = DefaultConfig()
	cfg.IV = iv
	cfg.Accelerated = true
	c, err := New(key, cfg)
	require.NoError(err, "New()")
	require.Equal(factory.Name(), c.Implementation(), "Implementation()")
	require.Equal(KeySize128, c.KeySize(), "KeySize()")
	require.Equal(iv, c.IV(), "IV()")
	require.Len(c.ExpandedKey(), 176, "ExpandedKey()")
	require.Equal(key, c.ExpandedKey()[:16], "ExpandedKey() - key prefix")

	plaintext := make([]byte, 73)
	_, err = rand.Read(plaintext)
	require.NoError(err, "Generate random plaintext")

	// Ensure it round trips.
	ciphertext := c.Encrypt(plaintext)
	require.Len(ciphertext, 80, "Encrypt() - length")
	opened, err := c.Decrypt(ciphertext)
	require.NoError(err, "Decrypt()")
	require.EqualValues(plaintext, opened, "Encrypt()/Decrypt() - round trips")

	// Determinism.
	require.Equal(ciphertext, c.Encrypt(plaintext), "Encrypt() - deterministic")

	// Ensure it fails on truncated ciphertext.
	_, err = c.Decrypt(ciphertext[:len(ciphertext)-1])
	require.Equal(ErrMalformedInput, err, "Decrypt() - truncated ciphertext")

	c.Reset()
	require.Equal(make([]byte, 176), c.ExpandedKey(), "Reset() - schedule")
	require.NotPanics(func() { c.Encrypt(plaintext) }, "Encrypt() - after Reset()")
	require.NotEqual(ciphertext, c.Encrypt(plaintext), "Encrypt() - after Reset()")
}

func TestVectors(t *testing.T) {
	require := require.New(t)

	testVectors, err := loadTestVectors()
	require.NoError(err, "Load test vector file")

	for _, v := range supportedFactories {
		t.Run("Impl_"+v.Name(), func(t *testing.T) {
			withFactory(v, func() { doTestVectors(t, testVectors) })
		})
	}
}

type testVector struct {
	Name       string
	Key        []byte
	IV         []byte
	Chaining   bool
	Plaintext  []byte
	Ciphertext []byte
}

func loadTestVectors() ([]*testVector, error) {
	type hexVector struct {
		Name       string
		Key        string
		IV         string
		Chaining   bool
		Plaintext  string
		Ciphertext string
	}

	b, err := os.ReadFile("testdata/test-vectors.json")
	if err != nil {
		return nil, err
	}

	var hexVectors []*hexVector
	if err = json.Unmarshal(b, &hexVectors); err != nil {
		return nil, err
	}

	testVectors := make([]*testVector, 0, len(hexVectors))
	for _, v := range hexVectors {
		var b [][]byte
		for _, vv := range []string{
			v.Key,
			v.IV,
			v.Plaintext,
			v.Ciphertext,
		} {
			bb, err := hex.DecodeString(vv)
			if err != nil {
				return nil, err
			}
			b = append(b, bb)
		}
		testVectors = append(testVectors, &testVector{v.Name, b[0], b[1], v.Chaining, b[2], b[3]})
	}

	return testVectors, nil
}

func doTestVectors(t *testing.T, vectors []*testVector) {
	require := require.New(t)

	for _, v := range vectors {
		c, err := New(v.Key, &Config{
			KeySize:     KeySize128,
			Chaining:    v.Chaining,
			IV:          v.IV,
			Accelerated: true,
		})
		require.NoError(err, "New(%s)", v.Name)

		ciphertext := c.Encrypt(v.Plaintext)
		require.EqualValues(v.Ciphertext, ciphertext, "Encrypt(%s)", v.Name)

		plaintext, err := c.Decrypt(v.Ciphertext)
		require.NoError(err, "Decrypt(%s)", v.Name)
		require.EqualValues(v.Plaintext, plaintext, "Decrypt(%s)", v.Name)
	}
}

func TestKnownAnswer(t *testing.T) {
	require := require.New(t)

	key := mustDecodeHex(t, "000102030405060708090a0b0c0d0e0f")
	pt := mustDecodeHex(t, "00112233445566778899aabbccddeeff")
	ct := mustDecodeHex(t, "69c4e0d86a7b0430d8cdb78070b4c55a")

	cfg := DefaultConfig()
	cfg.Chaining = false
	c, err := New(key, cfg)
	require.NoError(err, "New()")

	// Padding always appends a block of 0x10 to aligned input.
	out := c.Encrypt(pt)
	require.Len(out, 2*BlockSize, "Encrypt() - padded length")
	require.Equal(ct, out[:BlockSize], "Encrypt() - first block")

	cfg.Padding = false
	raw, err := New(key, cfg)
	require.NoError(err, "New() - unpadded")
	require.Equal(ct, raw.Encrypt(pt), "Encrypt() - unpadded")

	tail, err := raw.Decrypt(out[BlockSize:])
	require.NoError(err, "Decrypt() - padding block")
	require.Equal(bytes.Repeat([]byte{0x10}, BlockSize), tail, "Decrypt() - padding block contents")

	opened, err := c.Decrypt(out)
	require.NoError(err, "Decrypt()")
	require.Equal(pt, opened, "Decrypt()")
}

func TestMatchesCryptoCBC(t *testing.T) {
	for _, v := range supportedFactories {
		t.Run("Impl_"+v.Name(), func(t *testing.T) {
			withFactory(v, func() { doTestMatchesCryptoCBC(t) })
		})
	}
}

func doTestMatchesCryptoCBC(t *testing.T) {
	require := require.New(t)

	key, iv := make([]byte, 16), make([]byte, 16)
	_, _ = rand.Read(key)
	_, _ = rand.Read(iv)

	cfg := DefaultConfig()
	cfg.IV = iv
	cfg.Accelerated = true
	c, err := New(key, cfg)
	require.NoError(err, "New()")

	blk, err := aes.NewCipher(key)
	require.NoError(err, "aes.NewCipher()")

	for _, sz := range []int{0, 1, 15, 16, 17, 31, 32, 100} {
		pt := make([]byte, sz)
		_, _ = rand.Read(pt)

		n := BlockSize - sz%BlockSize
		padded := append(append([]byte{}, pt...), bytes.Repeat([]byte{byte(n)}, n)...)
		expected := make([]byte, len(padded))
		cipher.NewCBCEncrypter(blk, iv).CryptBlocks(expected, padded)

		require.Equal(expected, c.Encrypt(pt), "Encrypt(%d)", sz)
	}
}

func TestAccelerated(t *testing.T) {
	require := require.New(t)

	key := make([]byte, KeySize128.Bytes())
	_, _ = rand.Read(key)
	pt := []byte("The quick brown fox jumps over the lazy dog")

	c, err := New(key, nil)
	require.NoError(err, "New()")
	require.Equal("ref", c.Implementation(), "Implementation() - default")

	cfg := DefaultConfig()
	cfg.Accelerated = true
	accel, err := New(key, cfg)
	require.NoError(err, "New() - accelerated")
	expected := "ref"
	if hardware.Factory != nil {
		expected = hardware.Factory.Name()
	}
	require.Equal(expected, accel.Implementation(), "Implementation() - accelerated")
	require.Equal(c.Encrypt(pt), accel.Encrypt(pt), "Encrypt() - accelerated")

	// Only the reference core serves the extended key sizes and tracing.
	cfg.KeySize = KeySize256
	wide, err := New(make([]byte, KeySize256.Bytes()), cfg)
	require.NoError(err, "New() - accelerated, 256 bit key")
	require.Equal("ref", wide.Implementation(), "Implementation() - accelerated, 256 bit key")

	cfg.KeySize = KeySize128
	cfg.Trace = true
	cfg.Observer = &recorder{}
	traced, err := New(key, cfg)
	require.NoError(err, "New() - accelerated, traced")
	require.Equal("ref", traced.Implementation(), "Implementation() - accelerated, traced")

	// Without opting in, a hardware only factory list has nothing to offer.
	if hardware.Factory != nil {
		withFactory(hardware.Factory, func() {
			_, err = New(key, nil)
			require.Equal(ErrNoImplementations, err, "New() - hardware only")
		})
	}
}

func TestKeySizes(t *testing.T) {
	for _, v := range []struct {
		size   KeySize
		rounds int
		length int
	}{
		{KeySize128, 10, 176},
		{KeySize192, 12, 208},
		{KeySize256, 14, 240},
	} {
		t.Run(fmt.Sprintf("Key%d", int(v.size)), func(t *testing.T) {
			require := require.New(t)

			key := make([]byte, v.size.Bytes())
			_, _ = rand.Read(key)

			cfg := DefaultConfig()
			cfg.KeySize = v.size
			cfg.IV = []byte("0123456789abcdef")
			c, err := New(key, cfg)
			require.NoError(err, "New()")
			require.Equal(v.rounds, v.size.Rounds(), "Rounds()")
			require.Len(c.ExpandedKey(), v.length, "ExpandedKey()")
			require.Equal(key, c.ExpandedKey()[:len(key)], "ExpandedKey() - key prefix")

			for _, sz := range []int{0, 5, 16, 47, 64} {
				pt := make([]byte, sz)
				_, _ = rand.Read(pt)
				out, err := c.Decrypt(c.Encrypt(pt))
				require.NoError(err, "Decrypt(%d)", sz)
				require.Equal(len(pt), len(out), "Decrypt(%d) - length", sz)
				require.True(bytes.Equal(pt, out), "Decrypt(%d) - round trips", sz)
			}
		})
	}
}

func TestKeyPadding(t *testing.T) {
	require := require.New(t)

	key := []byte("0123456789")

	c, err := New(key, DefaultConfig())
	require.NoError(err, "New() - key padding allowed")
	padded := append(append([]byte{}, key...), make([]byte, 6)...)
	require.Equal(padded, c.Key(), "Key() - zero extended")
	require.Equal(padded, c.ExpandedKey()[:16], "ExpandedKey() - zero extended prefix")

	exact, err := New(padded, DefaultConfig())
	require.NoError(err, "New() - explicit padding")
	require.Equal(exact.ExpandedKey(), c.ExpandedKey(), "ExpandedKey() - equivalent")

	cfg := DefaultConfig()
	cfg.AllowKeyPadding = false
	_, err = New(key, cfg)
	require.Equal(ErrInvalidKey, err, "New() - key padding disallowed")

	_, err = New(make([]byte, 17), DefaultConfig())
	require.Equal(ErrInvalidKey, err, "New() - long key")

	cfg = DefaultConfig()
	cfg.KeySize = 64
	_, err = New(make([]byte, 8), cfg)
	require.Equal(ErrInvalidKeySize, err, "New() - bad key size")
}

func TestSetKey(t *testing.T) {
	require := require.New(t)

	c, err := New([]byte("YELLOW SUBMARINE"), DefaultConfig())
	require.NoError(err, "New()")
	oldSchedule := c.ExpandedKey()
	pt := []byte("attack at dawn")
	ct := c.Encrypt(pt)

	err = c.SetKey(make([]byte, 33), KeySize256)
	require.Equal(ErrInvalidKey, err, "SetKey() - invalid")
	require.Equal(oldSchedule, c.ExpandedKey(), "SetKey() - unaltered on failure")
	require.Equal(KeySize128, c.KeySize(), "KeySize() - unaltered on failure")

	err = c.SetKey([]byte("a 256 bit key, padded"), KeySize256)
	require.NoError(err, "SetKey() - 256")
	require.Equal(KeySize256, c.KeySize(), "KeySize()")
	require.Len(c.ExpandedKey(), 240, "ExpandedKey()")
	require.NotEqual(ct, c.Encrypt(pt), "Encrypt() - new key")

	err = c.SetKey([]byte("YELLOW SUBMARINE"), KeySize128)
	require.NoError(err, "SetKey() - first key")
	require.Equal(oldSchedule, c.ExpandedKey(), "ExpandedKey() - re-derived")
	require.Equal(ct, c.Encrypt(pt), "Encrypt() - first key")
}

func TestDefaultIV(t *testing.T) {
	require := require.New(t)

	key := make([]byte, 16)

	rec := &recorder{}
	cfg := DefaultConfig()
	cfg.Observer = rec
	cfg.IV = []byte("short")
	c, err := New(key, cfg)
	require.NoError(err, "New()")
	require.Equal(defaultIV, c.IV(), "IV() - default")
	require.Equal([]string{WarnDefaultIV}, rec.warnings(), "New() - warning")

	explicit, err := New(key, &Config{Chaining: true, Padding: true, IV: defaultIV})
	require.NoError(err, "New() - explicit default")
	require.Equal(explicit.Encrypt([]byte("hello")), c.Encrypt([]byte("hello")), "Encrypt() - default IV")

	rec = &recorder{}
	cfg.Observer = rec
	cfg.Chaining = false
	_, err = New(key, cfg)
	require.NoError(err, "New() - no chaining")
	require.Len(rec.warnings(), 0, "New() - no chaining, no warning")

	cfg.IV = []byte("0123456789abcdef-and-then-some")
	c, err = New(key, cfg)
	require.NoError(err, "New() - long IV")
	require.Equal([]byte("0123456789abcdef"), c.IV(), "IV() - truncated")
}

func TestDroppedTail(t *testing.T) {
	require := require.New(t)

	rec := &recorder{}
	cfg := DefaultConfig()
	cfg.Padding = false
	cfg.IV = []byte("0123456789abcdef")
	cfg.Observer = rec
	c, err := New(make([]byte, 16), cfg)
	require.NoError(err, "New()")

	ct := c.Encrypt(make([]byte, 20))
	require.Len(ct, BlockSize, "Encrypt() - tail dropped")
	require.Equal([]string{WarnDroppedTail}, rec.warnings(), "Encrypt() - warning")

	// Without padding, decrypt must not strip a trailing small byte.
	pt := append(make([]byte, 15), 0x01)
	out, err := c.Decrypt(c.Encrypt(pt))
	require.NoError(err, "Decrypt()")
	require.Equal(pt, out, "Decrypt() - unpadded data preserved")
}

func TestTrace(t *testing.T) {
	require := require.New(t)

	key := mustDecodeHex(t, "000102030405060708090a0b0c0d0e0f")
	pt := []byte("The quick brown fox jumps over the lazy dog")

	plain, err := New(key, DefaultConfig())
	require.NoError(err, "New()")

	rec := &recorder{}
	cfg := DefaultConfig()
	cfg.Trace = true
	cfg.Observer = rec
	traced, err := New(key, cfg)
	require.NoError(err, "New() - traced")
	require.Equal("ref", traced.Implementation(), "Implementation() - traced")

	require.NotEmpty(rec.events, "New() - events")
	require.Equal(EventExpandedKey, rec.events[0].Kind, "first event")
	require.Equal(traced.ExpandedKey(), rec.events[0].Data, "first event - schedule")

	ct := traced.Encrypt(pt)
	require.Equal(plain.Encrypt(pt), ct, "Encrypt() - trace is observational")

	var subkeys, blocks int
	for _, ev := range rec.events {
		switch ev.Kind {
		case EventSubkey:
			subkeys++
		case EventBlock:
			blocks++
		}
	}
	require.Equal(3*11, subkeys, "subkey events")
	require.Equal(3, blocks, "block events")

	out, err := traced.Decrypt(ct)
	require.NoError(err, "Decrypt() - traced")
	require.Equal(pt, out, "Decrypt() - traced")

	// Trace without an observer is a no-op.
	cfg.Observer = nil
	quiet, err := New(key, cfg)
	require.NoError(err, "New() - trace, no observer")
	require.Equal(ct, quiet.Encrypt(pt), "Encrypt() - trace, no observer")
}

func TestLogger(t *testing.T) {
	defer DisableLog()
	require := require.New(t)

	var buf bytes.Buffer
	UseLogger(btclog.NewSLogger(btclog.NewDefaultHandler(&buf)))
	log.SetLevel(btclog.LevelDebug)

	cfg := DefaultConfig()
	cfg.IV = nil
	_, err := New(make([]byte, 16), cfg)
	require.NoError(err, "New()")
	require.Contains(buf.String(), WarnDefaultIV, "log output - warning")
	require.Contains(buf.String(), "implementation", "log output - debug")
}

func TestNoImplementations(t *testing.T) {
	oldFactories := supportedFactories
	supportedFactories = nil
	defer func() {
		supportedFactories = oldFactories
	}()

	_, err := New(make([]byte, 16), nil)
	require.Equal(t, ErrNoImplementations, err, "New() - no implementation")
}

func BenchmarkRijndael(b *testing.B) {
	for _, v := range supportedFactories {
		doBenchmarkRijndael(b, v)
	}
}

func doBenchmarkRijndael(b *testing.B, factory api.Factory) {
	oldFactories := supportedFactories
	supportedFactories = []api.Factory{factory}
	defer func() {
		supportedFactories = oldFactories
	}()

	benchSizes := []int{16, 64, 576, 1536, 4096, 1024768}

	for _, sz := range benchSizes {
		bn := "Rijndael-128_" + factory.Name() + "_"
		sn := fmt.Sprintf("_%d", sz)
		b.Run(bn+"Encrypt"+sn, func(b *testing.B) { doBenchmarkEncrypt(b, sz) })
		b.Run(bn+"Decrypt"+sn, func(b *testing.B) { doBenchmarkDecrypt(b, sz) })
		b.Run("CBC_Encrypt"+sn, func(b *testing.B) { doBenchmarkCryptoCBC(b, sz) })
	}
}

func doBenchmarkCryptoCBC(b *testing.B, sz int) {
	b.StopTimer()
	b.SetBytes(int64(sz))

	iv, key := make([]byte, BlockSize), make([]byte, 16)
	m := make([]byte, sz)
	_, _ = rand.Read(iv)
	_, _ = rand.Read(key)
	_, _ = rand.Read(m)
	blk, _ := aes.NewCipher(key)
	c := make([]byte, sz)

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		cipher.NewCBCEncrypter(blk, iv).CryptBlocks(c, m)
	}
}

func newBenchCipher(b *testing.B) *Cipher {
	iv, key := make([]byte, BlockSize), make([]byte, 16)
	_, _ = rand.Read(iv)
	_, _ = rand.Read(key)

	cfg := DefaultConfig()
	cfg.IV = iv
	cfg.Accelerated = true
	c, err := New(key, cfg)
	if err != nil {
		b.Fatalf("New failed: %v", err)
	}
	return c
}

func doBenchmarkEncrypt(b *testing.B, sz int) {
	b.StopTimer()
	b.SetBytes(int64(sz))

	c := newBenchCipher(b)
	m := make([]byte, sz)
	_, _ = rand.Read(m)

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		if ct := c.Encrypt(m); len(ct) != sz+BlockSize {
			b.Fatalf("Encrypt failed")
		}
	}
}

func doBenchmarkDecrypt(b *testing.B, sz int) {
	b.StopTimer()
	b.SetBytes(int64(sz))

	c := newBenchCipher(b)
	m := make([]byte, sz)
	_, _ = rand.Read(m)
	ct := c.Encrypt(m)

	var d []byte
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		var err error
		d, err = c.Decrypt(ct)
		if err != nil {
			b.Fatalf("Decrypt failed")
		}
	}
	b.StopTimer()

	if !bytes.Equal(m, d) {
		b.Fatalf("Decrypt output mismatch")
	}
}
