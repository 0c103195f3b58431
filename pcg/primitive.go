// Package pcg implements the PCG-XSH-RR 64/32 primitive: one forward
// step, the output transform, the jump-ahead/jump-back recurrence, and
// enumeration of the 64-bit pre-images of a given 32-bit output.
//
// All operations here are pure and total over uint64/uint32; nothing in
// this package allocates beyond what an iterator needs, and nothing
// touches the candidate set or the table — those are the engine's job.
package pcg

import (
	"iter"
	"math/bits"
)

// Multiplier is the PCG-XSH-RR 64-bit LCG multiplier.
const Multiplier uint64 = 6364136223846793005

// multiplierInverse is Multiplier's inverse mod 2^64, precomputed so
// reverse-stepping doesn't need to compute a modular inverse at runtime.
// Verified by Multiplier*multiplierInverse == 1 (mod 2^64).
const multiplierInverse uint64 = 13877824140714322085

// State is the 64-bit internal register of the generator.
type State = uint64

// Inc is the 64-bit stream increment. Only bits 1..63 are observable;
// by convention bit 0 is reported set (Inc|1).
type Inc = uint64

// Step advances state by one PCG-XSH-RR step, returning the new state
// and the 32-bit output produced from the pre-step state, matching the
// canonical PCG reference order: output is computed from the OLD state,
// then the state is advanced.
func Step(state State, inc Inc) (next State, output uint32) {
	output = OutputOf(state)
	next = state*Multiplier + (inc | 1)
	return next, output
}

// OutputOf computes the XSH-RR transform of a pre-state without
// advancing it.
func OutputOf(state State) uint32 {
	xorshifted := uint32(((state >> 18) ^ state) >> 27)
	rot := uint32(state >> 59)
	return bits.RotateLeft32(xorshifted, -int(rot))
}

// Rotation returns the 5-bit rotation amount (the top 5 bits of state).
func Rotation(state State) uint8 {
	return uint8(state >> 59)
}

// Advance moves state forward by delta steps using the standard LCG
// jump-ahead identity, computed in O(log delta) via binary
// exponentiation over the affine transform (state -> state*mul+add).
func Advance(state State, inc Inc, delta uint64) State {
	return advance(state, delta, Multiplier, inc|1)
}

// Retreat moves state backward by delta steps. It negates delta mod
// 2^64 and reuses Advance, since the LCG recurrence is a group action
// under addition of the step count.
func Retreat(state State, inc Inc, delta uint64) State {
	return Advance(state, inc, -delta)
}

// PrevState inverts a single Step: given the state that resulted from
// stepping some unknown predecessor with inc, recover that predecessor.
// Grounded in the multiplicative-inverse relation: since next =
// state*Multiplier + (inc|1), state = (next - (inc|1)) * multiplierInverse.
func PrevState(next State, inc Inc) State {
	return (next - (inc | 1)) * multiplierInverse
}

// advance implements the textbook O(log delta) LCG jump-ahead: it
// folds delta's binary digits into an accumulated (mul, add) pair and
// applies that pair once to state.
func advance(state State, delta uint64, mul, add uint64) State {
	accMul, accAdd := uint64(1), uint64(0)
	for delta > 0 {
		if delta&1 != 0 {
			accMul *= mul
			accAdd = accAdd*mul + add
		}
		add = (mul + 1) * add
		mul *= mul
		delta >>= 1
	}
	return accMul*state + accAdd
}

// HighFragment solves for the high 37 bits of a pre-state (bits 27..63,
// the bits the output transform depends on) given a rotation hypothesis
// r and the xor-shifted word x that output transform would have
// produced under that hypothesis. The 37-bit relation between (x, r)
// and state's top bits is a linear system over GF(2) that resolves
// uniquely by back-substitution — there is no enumeration here, only a
// closed-form solve:
//
//   - bits 59..63       = r                        (direct)
//   - bits 46..58       = x bits 19..31             (direct copy)
//   - bits 41..45       = x bits 14..18 XOR r bits 0..4
//   - bits 28..40       = x bits 1..13  XOR (bits 46..58 above)
//   - bit  27           = x bit 0       XOR bit 45 (from the previous group)
//
// The returned value has bits 27..63 set to the solved fragment and
// bits 0..26 zero (those 27 bits never appear in the output transform
// and are free).
func HighFragment(x uint32, r uint8) uint64 {
	var bit [64]uint64
	xb := func(j uint) uint64 { return uint64((x >> j) & 1) }

	for j := uint(0); j < 5; j++ {
		bit[59+j] = uint64((r >> j) & 1)
	}
	for j := uint(19); j < 32; j++ {
		bit[27+j] = xb(j)
	}
	for j := uint(14); j < 19; j++ {
		bit[27+j] = xb(j) ^ bit[59+(j-14)]
	}
	for j := uint(1); j < 14; j++ {
		bit[27+j] = xb(j) ^ bit[45+j]
	}
	bit[27] = xb(0) ^ bit[45]

	var frag uint64
	for i := 27; i <= 63; i++ {
		frag |= bit[i] << uint(i)
	}
	return frag
}

// InvertHighFragment is the inverse of HighFragment: given the top 37
// bits of a state (as produced by HighFragment, or extracted from a
// real state via state&^((1<<27)-1)), recover the (x, r) hypothesis
// that produced them.
func InvertHighFragment(highBits uint64) (x uint32, r uint8) {
	bit := func(i uint) uint64 { return (highBits >> i) & 1 }

	r = uint8(highBits >> 59)

	var xb [32]uint64
	for j := uint(19); j < 32; j++ {
		xb[j] = bit(27 + j)
	}
	for j := uint(14); j < 19; j++ {
		xb[j] = bit(27+j) ^ bit(59+(j-14))
	}
	for j := uint(1); j < 14; j++ {
		xb[j] = bit(27+j) ^ bit(45+j)
	}
	xb[0] = bit(27) ^ bit(45)

	for j := uint(0); j < 32; j++ {
		x |= uint32(xb[j]) << j
	}
	return x, r
}

// Preimages lazily enumerates every 64-bit pre-state whose output
// equals o. For each of the 32 possible rotation amounts it inverts the
// rotation to recover x, solves for the unique high 37 bits via
// HighFragment, and yields one state per value of the 27 free low bits.
// Callers almost always want to bound this with a known/mask pair
// (see PreimagesConstrained) rather than draining it fully — the full
// sequence has 32*2^27 elements.
func Preimages(o uint32) iter.Seq[State] {
	return PreimagesConstrained(o, 0, 0)
}

// PreimagesConstrained enumerates the same sequence as Preimages, but
// skips low-bit combinations that disagree with a caller-supplied
// partial assignment: knownMask has a 1 bit for every low bit (0..26)
// already pinned down by some other constraint, and knownBits holds
// the corresponding values. This is the mechanism spec.md §4.1 calls
// out: "the caller supplies additional constraints to avoid enumerating
// the full 2^27*32 space."
func PreimagesConstrained(o uint32, knownMask, knownBits uint64) iter.Seq[State] {
	const lowBits = 27
	const lowSpan = uint64(1) << lowBits
	lowMask := lowSpan - 1
	knownMask &= lowMask
	knownBits &= knownMask

	free := lowMask &^ knownMask

	return func(yield func(State) bool) {
		for r := uint8(0); r < 32; r++ {
			x := bits.RotateLeft32(o, int(r))
			high := HighFragment(x, r)

			// Standard submask enumeration: walk every subset of the free
			// bitmask from `free` down to 0, inclusive.
			for sub := free; ; sub = (sub - 1) & free {
				low := knownBits | sub
				if !yield(high | low) {
					return
				}
				if sub == 0 {
					break
				}
			}
		}
	}
}
