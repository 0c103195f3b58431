package table

import (
	"encoding/binary"
	"os"

	"github.com/tomcrypto/pcg-breaker/breakerr"
	"github.com/tomcrypto/pcg-breaker/pcg"
)

// The builder enumerates, exhaustively, every combination of a rotation
// hypothesis r (5 bits), a coarse slice of the pre-step xor-shifted
// word xSel (7 bits), and a fragment of the increment's high bits
// incLow (15 bits) — spec.md §4.2's "for each key, enumerate all
// consistent (high_bits(S_k), high_bits(I))". r and xSel together
// select one canonical representative high-state fragment via
// pcg.HighFragment; incLow sweeps every increment fragment the 15-bit
// budget affords. This recovers only bits 42..56 of a real I (bits
// 57..63 stay canonically zero) — see DESIGN.md's candidate package
// entry for the consequences of that truncation.
const (
	rBits      = 5
	xSelBits   = 7
	incLowBits = 15

	xSelSpan   = uint64(1) << xSelBits
	incLowSpan = uint64(1) << incLowBits
)

// SampleCount is the number of synthetic (state, inc) samples the
// builder walks to populate the table: 2^(rBits+xSelBits+incLowBits).
// At RecordWidth=8 bytes the record payload is 2^27*8 bytes = 1 GiB;
// the header, the offsets table and the per-bucket count prefixes add
// another 1,572,928 bytes (matching spec.md §2/§6's ≈1 GiB).
const SampleCount = uint64(1) << (rBits + xSelBits + incLowBits)

// BuildOptions tunes the builder. It is not read from config.Tuning;
// gen-table passes table.SampleCount.
type BuildOptions struct {
	SampleCount uint64 // defaults to table.SampleCount when zero
}

// bucketPlan is the per-bucket bookkeeping the streaming builder needs:
// how many records will land in the bucket (from the counting pass)
// and how many have been written so far (during the writing pass).
type bucketPlan struct {
	count  uint32
	cursor uint32
}

// Build runs the three-pass table construction described in spec.md
// §4.2 and writes the result to path:
//
//  1. Counting pass: walk every synthetic sample, compute the record it
//     would produce and the bucket key it lands in, and tally counts
//     per bucket. This pass never touches the output file.
//  2. Layout pass: turn per-bucket counts into byte offsets (a 4-byte
//     count prefix plus count*RecordWidth bytes per bucket) and write
//     the header, the offsets table, and each bucket's 4-byte count
//     prefix (the final count from the counting pass).
//  3. Writing pass: walk the same deterministic samples again (sample
//     generation is a pure function of its index, so regenerating is
//     cheap and needs no buffering) and write each record directly to
//     its slot via WriteAt, advancing a small per-bucket cursor.
//
// Because every step is a pure function of the sample index — no
// wall-clock, no randomness — two runs in the same environment produce
// byte-identical output (spec.md §8 scenario 6).
func Build(path string, opts BuildOptions) (Header, error) {
	n := opts.SampleCount
	if n == 0 {
		n = SampleCount
	}

	counts := make([]uint32, BucketCount)
	for i := uint64(0); i < n; i++ {
		_, key := sample(i)
		counts[key]++
	}

	var bound uint32
	offsets := make([]uint64, BucketCount)
	dataOffset := uint64(HeaderSize) + uint64(BucketCount)*8
	cursor := dataOffset
	for i, c := range counts {
		offsets[i] = cursor
		cursor += 4 + uint64(c)*RecordWidth
		if c > bound {
			bound = c
		}
	}
	totalSize := cursor

	f, err := os.Create(path)
	if err != nil {
		return Header{}, breakerr.Wrapf(breakerr.KindIO, err, "create %s", path)
	}
	defer f.Close()

	if err := f.Truncate(int64(totalSize)); err != nil {
		return Header{}, breakerr.Wrapf(breakerr.KindIO, err, "truncate %s", path)
	}

	header := Header{
		Version:     Version,
		RecordWidth: RecordWidth,
		BucketCount: BucketCount,
		BucketBound: bound,
		TotalRecs:   n,
		DataOffset:  dataOffset,
	}
	if _, err := f.WriteAt(EncodeHeader(header), 0); err != nil {
		return Header{}, breakerr.Wrapf(breakerr.KindIO, err, "write header %s", path)
	}

	offsetBuf := make([]byte, BucketCount*8)
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(offsetBuf[i*8:], off)
	}
	if _, err := f.WriteAt(offsetBuf, BucketOffsetsOffset); err != nil {
		return Header{}, breakerr.Wrapf(breakerr.KindIO, err, "write offsets %s", path)
	}

	countBuf := make([]byte, 4)
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(countBuf, counts[i])
		if _, err := f.WriteAt(countBuf, int64(off)); err != nil {
			return Header{}, breakerr.Wrapf(breakerr.KindIO, err, "write bucket count %s", path)
		}
	}

	plans := make([]bucketPlan, BucketCount)
	for i, c := range counts {
		plans[i].count = c
	}

	recBuf := make([]byte, RecordWidth)
	for i := uint64(0); i < n; i++ {
		rec, key := sample(i)
		plan := &plans[key]
		slot := offsets[key] + 4 + uint64(plan.cursor)*RecordWidth
		plan.cursor++

		binary.LittleEndian.PutUint64(recBuf, uint64(rec))
		if _, err := f.WriteAt(recBuf, int64(slot)); err != nil {
			return Header{}, breakerr.Wrapf(breakerr.KindIO, err, "write record %s", path)
		}
	}

	if err := f.Sync(); err != nil {
		return Header{}, breakerr.Wrapf(breakerr.KindIO, err, "sync %s", path)
	}
	return header, nil
}

// sample deterministically decodes a sample index into its (r, xSel,
// incLow) triple, builds the canonical high-state fragment that
// hypothesis implies, steps it once with the resulting increment
// fragment, and returns the record a real table would store, along
// with the bucket key it belongs in.
//
// The index space is carved, high bits to low, as r (top 5 bits),
// xSel (next 7), incLow (bottom 15) — an exhaustive sweep, not a
// dispersed sample: every (r, xSel, incLow) triple the 27-bit index
// space can represent is visited exactly once. x is reconstructed from
// xSel alone (remaining 25 bits canonically zero), so the high-state
// fragment pcg.HighFragment derives is the single representative state
// this (r, xSel) pair stands for; incLow supplies the increment's bits
// 42..56, with bits 0..41 and 57..63 held at their canonical minimum
// (bit 0 forced, matching the reporting convention).
func sample(i uint64) (Record, uint32) {
	r := uint8(i >> (xSelBits + incLowBits))
	rem := i & ((uint64(1) << (xSelBits + incLowBits)) - 1)
	xSel := uint8(rem >> incLowBits)
	incLow := rem & (incLowSpan - 1)

	x := uint32(xSel) << (32 - xSelBits)
	high := pcg.HighFragment(x, r)
	inc := (incLow << 42) | 1

	next, _ := pcg.Step(high, inc)
	rNext := pcg.Rotation(next)

	rec := NewRecord(high>>27, incLow, 0)
	return rec, Key(r, rNext, xSel)
}
