// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package ref provides a portable table driven reference implementation
// of the Rijndael block core.  It is not constant time.
package ref

import (
	"gitlab.com/yawning/rijndael.git/internal/api"
	"gitlab.com/yawning/rijndael.git/internal/tables"
)

// Factory is the reference implementation factory.  It supports every key
// size and tracing.
var Factory api.Factory = &refFactory{}

type refFactory struct{}

func (f *refFactory) Name() string {
	return "ref"
}

func (f *refFactory) New(ks api.KeySchedule, obs api.Observer) (api.Instance, error) {
	inst := &refInstance{
		rounds: ks.Rounds(),
		obs:    obs,
	}
	inst.subkeys = make([]api.Block, inst.rounds+1)
	for i := range inst.subkeys {
		copy(inst.subkeys[i][:], ks.Subkey(i))
	}

	return inst, nil
}

type refInstance struct {
	subkeys []api.Block
	rounds  int
	obs     api.Observer
}

func (inst *refInstance) Reset() {
	for i := range inst.subkeys {
		inst.subkeys[i] = api.Block{}
	}
}

func (inst *refInstance) EncryptBlock(b api.Block) api.Block {
	b = inst.addRoundKey(b, 0)

	for round := 1; round < inst.rounds; round++ {
		b = inst.trace(round, "SubBytes", subBytes(b))
		b = inst.trace(round, "ShiftRows", shiftRows(b))
		b = inst.trace(round, "MixColumns", mixColumns(b))
		b = inst.addRoundKey(b, round)
	}

	b = inst.trace(inst.rounds, "SubBytes", subBytes(b))
	b = inst.trace(inst.rounds, "ShiftRows", shiftRows(b))
	return inst.addRoundKey(b, inst.rounds)
}

func (inst *refInstance) DecryptBlock(b api.Block) api.Block {
	b = inst.addRoundKey(b, inst.rounds)
	b = inst.trace(inst.rounds, "InvShiftRows", invShiftRows(b))
	b = inst.trace(inst.rounds, "InvSubBytes", invSubBytes(b))

	for round := inst.rounds - 1; round > 0; round-- {
		b = inst.addRoundKey(b, round)
		b = inst.trace(round, "InvMixColumns", invMixColumns(b))
		b = inst.trace(round, "InvShiftRows", invShiftRows(b))
		b = inst.trace(round, "InvSubBytes", invSubBytes(b))
	}

	return inst.addRoundKey(b, 0)
}

func (inst *refInstance) addRoundKey(b api.Block, round int) api.Block {
	rk := &inst.subkeys[round]
	if inst.obs != nil {
		api.Emit(inst.obs, api.EventSubkey, round, "SubKey", rk[:])
	}
	for i := range b {
		b[i] ^= rk[i]
	}
	return inst.trace(round, "AddRoundKey", b)
}

func (inst *refInstance) trace(round int, label string, b api.Block) api.Block {
	if inst.obs != nil {
		api.Emit(inst.obs, api.EventState, round, label, b[:])
	}
	return b
}

func subBytes(b api.Block) api.Block {
	for i, v := range b {
		b[i] = tables.SBox[v]
	}
	return b
}

func invSubBytes(b api.Block) api.Block {
	for i, v := range b {
		b[i] = tables.InvSBox[v]
	}
	return b
}

// Row r of the column-major state is bytes r, r+4, r+8, r+12, and is
// rotated left by r positions.
func shiftRows(b api.Block) api.Block {
	return api.Block{
		b[0], b[5], b[10], b[15],
		b[4], b[9], b[14], b[3],
		b[8], b[13], b[2], b[7],
		b[12], b[1], b[6], b[11],
	}
}

func invShiftRows(b api.Block) api.Block {
	return api.Block{
		b[0], b[13], b[10], b[7],
		b[4], b[1], b[14], b[11],
		b[8], b[5], b[2], b[15],
		b[12], b[9], b[6], b[3],
	}
}

//  | 2 3 1 1 |
//  | 1 2 3 1 |
//  | 1 1 2 3 |
//  | 3 1 1 2 |
func mixColumns(b api.Block) api.Block {
	var out api.Block
	for c := 0; c < api.BlockSize; c += 4 {
		s0, s1, s2, s3 := b[c], b[c+1], b[c+2], b[c+3]
		out[c] = tables.Mul2[s0] ^ tables.Mul3[s1] ^ s2 ^ s3
		out[c+1] = s0 ^ tables.Mul2[s1] ^ tables.Mul3[s2] ^ s3
		out[c+2] = s0 ^ s1 ^ tables.Mul2[s2] ^ tables.Mul3[s3]
		out[c+3] = tables.Mul3[s0] ^ s1 ^ s2 ^ tables.Mul2[s3]
	}
	return out
}

//  | 14 11 13  9 |
//  |  9 14 11 13 |
//  | 13  9 14 11 |
//  | 11 13  9 14 |
func invMixColumns(b api.Block) api.Block {
	var out api.Block
	for c := 0; c < api.BlockSize; c += 4 {
		s0, s1, s2, s3 := b[c], b[c+1], b[c+2], b[c+3]
		out[c] = tables.Mul14[s0] ^ tables.Mul11[s1] ^ tables.Mul13[s2] ^ tables.Mul9[s3]
		out[c+1] = tables.Mul9[s0] ^ tables.Mul14[s1] ^ tables.Mul11[s2] ^ tables.Mul13[s3]
		out[c+2] = tables.Mul13[s0] ^ tables.Mul9[s1] ^ tables.Mul14[s2] ^ tables.Mul11[s3]
		out[c+3] = tables.Mul11[s0] ^ tables.Mul13[s1] ^ tables.Mul9[s2] ^ tables.Mul14[s3]
	}
	return out
}
