// Package modulus implements the 64-bit modular multiplication primitive
// (spec component A) that every inner loop of the collision search depends
// on.
package modulus

import (
	"errors"
	"math/big"
	"math/bits"
)

// ErrNotInvertible is returned by Inverse when v shares a factor with the
// modulus and therefore has no multiplicative inverse.
var ErrNotInvertible = errors.New("modulus: value is not invertible")

// Modulus computes arithmetic mod a fixed odd 64-bit M. Implementations
// must be total and deterministic: phase 3 re-derives the products phase 1
// computed, and a non-deterministic mulmod silently breaks that invariant.
type Modulus interface {
	// MulMod returns a*b mod M for a, b in [0, M).
	MulMod(a, b uint64) uint64
	// Inverse returns v^-1 mod M, or ErrNotInvertible if none exists.
	Inverse(v uint64) (uint64, error)
	// N reports the modulus itself.
	N() uint64
}

// Basic is a Modulus for an arbitrary odd modulus, implemented with a
// 128-bit intermediate product and a single hardware division via
// bits.Div64. It has no constraints on M beyond oddness and is the
// fallback used for test moduli and any M not wired into Opti.
type Basic struct {
	m uint64
}

// New builds a Basic modulus. M must be odd; it is not re-validated on
// every call for performance, matching the teacher's "total function, no
// failure modes" contract (spec §4.A).
func New(m uint64) Basic {
	return Basic{m: m}
}

func (b Basic) N() uint64 { return b.m }

func (b Basic) MulMod(a, v uint64) uint64 {
	hi, lo := bits.Mul64(a, v)
	if hi == 0 {
		return lo % b.m
	}
	_, rem := bits.Div64(hi, lo, b.m)
	return rem
}

func (b Basic) Inverse(v uint64) (uint64, error) {
	return modInverse(v, b.m)
}

// modInverse computes the modular inverse of v mod m. M runs up to
// residue.Modulus (~1.19e19), past 2^63, so the extended-Euclidean steps
// can't be done in int64 without the modulus itself wrapping negative;
// math/big.Int.ModInverse sidesteps that entirely by working in arbitrary
// precision, the same way residue.go already does for values in this
// range.
func modInverse(v, m uint64) (uint64, error) {
	if v == 0 {
		return 0, ErrNotInvertible
	}
	vBig := new(big.Int).SetUint64(v % m)
	mBig := new(big.Int).SetUint64(m)
	inv := new(big.Int).ModInverse(vBig, mBig)
	if inv == nil {
		return 0, ErrNotInvertible
	}
	return inv.Uint64(), nil
}

// Opti is a Modulus specialized to a single fixed M, known at
// construction time. The original source picks between a generic
// big-integer reduction and a hand-written x86 Barrett-style reduction
// (inline asm) selected on the M used in the paper; Go has no sanctioned
// equivalent to that inline asm without dropping into unsafe assembly
// (see DESIGN.md). bits.Mul64/bits.Div64 already compile to the same
// 128-bit-multiply-then-single-DIV sequence the spec asks for, so Opti
// keeps that primitive; its MulMod and Inverse are the same code as
// Basic's.
type Opti struct {
	m uint64
}

// NewOpti builds an Opti modulus for the fixed run modulus M.
func NewOpti(m uint64) Opti {
	return Opti{m: m}
}

func (o Opti) N() uint64 { return o.m }

func (o Opti) MulMod(a, v uint64) uint64 {
	hi, lo := bits.Mul64(a, v)
	if hi == 0 {
		return lo % o.m
	}
	_, rem := bits.Div64(hi, lo, o.m)
	return rem
}

func (o Opti) Inverse(v uint64) (uint64, error) {
	return modInverse(v, o.m)
}

// InverseTable computes the per-element inverse table used by
// SubsetProductStream's exclude transitions: ys[i] = xs[i]^-1 mod M.
// Mirrors original_source/modulus.rs's inverse().
func InverseTable(xs []uint64, mod Modulus) ([]uint64, error) {
	ys := make([]uint64, len(xs))
	for i, x := range xs {
		inv, err := mod.Inverse(x)
		if err != nil {
			return nil, err
		}
		ys[i] = inv
	}
	return ys, nil
}
