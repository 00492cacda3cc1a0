// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

package hardware

import (
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/sys/cpu"

	"gitlab.com/yawning/rijndael.git/internal/api"
)

type aesniFactory struct{}

func (f *aesniFactory) Name() string {
	return "aesni"
}

// New only services standard AES-128.  The extended key sizes use a
// schedule that the AES instructions do not implement, and tracing needs
// the intermediate states.
func (f *aesniFactory) New(ks api.KeySchedule, obs api.Observer) (api.Instance, error) {
	if obs != nil || ks.KeySize() != 16 {
		return nil, api.ErrUnsupported
	}

	blk, err := aes.NewCipher(ks.Key())
	if err != nil {
		return nil, err
	}

	return &aesniInstance{blk: blk}, nil
}

type aesniInstance struct {
	blk cipher.Block
}

func (inst *aesniInstance) Reset() {
	// The runtime owns the expanded key, the best that can be done is to
	// swap in an all zero key.
	inst.blk, _ = aes.NewCipher(make([]byte, 16))
}

func (inst *aesniInstance) EncryptBlock(b api.Block) api.Block {
	var out api.Block
	inst.blk.Encrypt(out[:], b[:])
	return out
}

func (inst *aesniInstance) DecryptBlock(b api.Block) api.Block {
	var out api.Block
	inst.blk.Decrypt(out[:], b[:])
	return out
}

func init() {
	if cpu.X86.HasAES || cpu.ARM64.HasAES || cpu.S390X.HasAES {
		Factory = &aesniFactory{}
	}
}
