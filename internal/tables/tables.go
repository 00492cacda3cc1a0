// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package tables provides the GF(2^8) constant tables used by Rijndael.
//
// All tables are derived once at package initialization from the field
// arithmetic, with the reduction polynomial x^8 + x^4 + x^3 + x + 1.
package tables

import "math/bits"

// Poly is the Rijndael reduction polynomial.
const Poly = 1<<8 | 1<<4 | 1<<3 | 1<<1 | 1<<0

// RconSize is the number of round constants, enough for the largest
// number of core expansion steps of any supported key size.
const RconSize = 16

var (
	// SBox is the forward substitution box.
	SBox = genSBox()

	// InvSBox is the inverse of SBox.
	InvSBox = genInvSBox(&SBox)

	// Rcon is the round constant sequence.  Rcon[1] is 0x01, and
	// Rcon[0] is x^-1, so that Rcon[i+1] == Mul(Rcon[i], 2) for all i.
	Rcon = genRcon()

	Mul2  = genMul(2)
	Mul3  = genMul(3)
	Mul9  = genMul(9)
	Mul11 = genMul(11)
	Mul13 = genMul(13)
	Mul14 = genMul(14)
)

// Mul multiplies a and b as GF(2) polynomials modulo Poly.
func Mul(a, b byte) byte {
	i, j := uint16(a), uint16(b)
	var s uint16
	for j != 0 {
		if j&1 != 0 {
			s ^= i
		}
		i <<= 1
		if i&0x100 != 0 {
			i ^= Poly
		}
		j >>= 1
	}
	return byte(s)
}

// Inverse returns the multiplicative inverse of a, with 0 mapping to 0.
func Inverse(a byte) byte {
	if a == 0 {
		return 0
	}

	// a^254 == a^-1 in GF(2^8).
	r, x := byte(1), a
	for e := 254; e > 0; e >>= 1 {
		if e&1 != 0 {
			r = Mul(r, x)
		}
		x = Mul(x, x)
	}
	return r
}

func genSBox() (sbox [256]byte) {
	for i := range sbox {
		q := Inverse(byte(i))
		sbox[i] = q ^ bits.RotateLeft8(q, 1) ^ bits.RotateLeft8(q, 2) ^ bits.RotateLeft8(q, 3) ^ bits.RotateLeft8(q, 4) ^ 0x63
	}
	return
}

func genInvSBox(sbox *[256]byte) (inv [256]byte) {
	for i, v := range sbox {
		inv[v] = byte(i)
	}
	return
}

func genRcon() (rcon [RconSize]byte) {
	rcon[0] = 0x8d
	for i := 1; i < RconSize; i++ {
		rcon[i] = Mul(rcon[i-1], 2)
	}
	return
}

func genMul(c byte) (t [256]byte) {
	for i := range t {
		t[i] = Mul(byte(i), c)
	}
	return
}
