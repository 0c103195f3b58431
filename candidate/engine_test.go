package candidate

import (
	"encoding/binary"
	"math/bits"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomcrypto/pcg-breaker/breakerr"
	"github.com/tomcrypto/pcg-breaker/config"
	"github.com/tomcrypto/pcg-breaker/pcg"
	"github.com/tomcrypto/pcg-breaker/table"
)

// writeTestTable serializes a minimal, valid table.bin containing only
// the caller-supplied records, each filed under its own bucket key. All
// other buckets are left empty. This bypasses table.Build so tests can
// pin exact records into exact buckets instead of relying on the
// builder's enumeration to happen to produce them at a given index.
// TestEngineSeedsFromRealBuiltTable below exercises the real builder
// instead, so the non-bypassed path is covered too.
func writeTestTable(t *testing.T, recs map[uint32][]table.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.bin")

	counts := make([]uint32, table.BucketCount)
	for key, rs := range recs {
		counts[key] = uint32(len(rs))
	}

	offsets := make([]uint64, table.BucketCount)
	dataOffset := uint64(table.HeaderSize) + uint64(table.BucketCount)*8
	cursor := dataOffset
	var bound uint32
	for i, c := range counts {
		offsets[i] = cursor
		cursor += 4 + uint64(c)*table.RecordWidth
		if c > bound {
			bound = c
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(int64(cursor)))

	header := table.Header{
		Version:     table.Version,
		RecordWidth: table.RecordWidth,
		BucketCount: table.BucketCount,
		BucketBound: bound,
		TotalRecs:   0,
		DataOffset:  dataOffset,
	}
	for _, rs := range recs {
		header.TotalRecs += uint64(len(rs))
	}
	_, err = f.WriteAt(table.EncodeHeader(header), 0)
	require.NoError(t, err)

	offsetBuf := make([]byte, table.BucketCount*8)
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(offsetBuf[i*8:], off)
	}
	_, err = f.WriteAt(offsetBuf, table.BucketOffsetsOffset)
	require.NoError(t, err)

	countBuf := make([]byte, 4)
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(countBuf, counts[i])
		_, err := f.WriteAt(countBuf, int64(off))
		require.NoError(t, err)
	}

	recBuf := make([]byte, table.RecordWidth)
	for key, rs := range recs {
		base := offsets[key] + 4
		for i, r := range rs {
			binary.LittleEndian.PutUint64(recBuf, uint64(r))
			_, err := f.WriteAt(recBuf, int64(base)+int64(i)*table.RecordWidth)
			require.NoError(t, err)
		}
	}

	return path
}

// seedScenario builds a small, self-consistent table.bin and the four
// observed outputs it must resolve, using inc=1 (the simplification
// engine.seed relies on: low increment bits held at their minimum).
// The single record is filed under the key the engine will actually
// probe: the rotation hypotheses for S1 and S2 plus S1's xor-shifted
// word's top 7 bits, exactly matching what Engine.seed computes from
// the real observed outputs.
func seedScenario(t *testing.T, s1 pcg.State) (path string, outputs [4]uint32, s1Out pcg.State) {
	t.Helper()
	const inc = pcg.Inc(1)

	s2, o1 := pcg.Step(s1, inc)
	s3, o2 := pcg.Step(s2, inc)
	s4, o3 := pcg.Step(s3, inc)
	_, o4 := pcg.Step(s4, inc)

	r1 := pcg.Rotation(s1)
	r2 := pcg.Rotation(s2)
	x1 := bits.RotateLeft32(o1, int(r1))
	xSel1 := uint8(x1 >> 25)

	key := table.Key(r1, r2, xSel1)
	recs := map[uint32][]table.Record{
		key: {table.NewRecord(s1>>27, 0, 0)},
	}

	path = writeTestTable(t, recs)
	return path, [4]uint32{o1, o2, o3, o4}, s1
}

func TestEngineSeedsFromFourOutputs(t *testing.T) {
	s1 := pcg.State(3) // low27 bits = 3, within a small probe budget
	path, outs, wantS1 := seedScenario(t, s1)

	r, err := table.Open(path)
	require.NoError(t, err)
	defer r.Close()

	e := New(r, config.Tuning{SeedingProbeBudget: 16, RefinementProbeBudget: 128, BucketCount: table.BucketCount})

	for _, o := range outs[:3] {
		require.NoError(t, e.Consume(o))
		assert.False(t, e.Seeded())
	}
	require.NoError(t, e.Consume(outs[3]))
	require.True(t, e.Seeded())
	require.NotZero(t, e.Len())

	found := false
	for _, c := range e.Candidates() {
		if c.Init == wantS1 && c.Inc == 1 {
			found = true
		}
	}
	assert.True(t, found, "the true seed must survive seeding")
}

// TestEngineSeedsFromRealBuiltTable drives the actual builder — not
// writeTestTable's bypass — through the engine, closing the gap the
// other tests in this file leave open: a stream's real recovery path
// must survive table.Build's own enumeration and bucketing, not just a
// hand-filed record.
func TestEngineSeedsFromRealBuiltTable(t *testing.T) {
	const r1, xSel1 = uint8(0), uint8(0)
	const incLow = uint64(0) // index 0: (r=0, xSel=0, incLow=0), the builder's first sample

	x1 := uint32(xSel1) << 25
	high1 := pcg.HighFragment(x1, r1)
	s1 := high1 | 7 // low27 = 7, well within a small probe budget
	require.Equal(t, r1, pcg.Rotation(s1))

	inc := pcg.Inc((incLow << 42) | 1)
	s2, o1 := pcg.Step(s1, inc)
	s3, o2 := pcg.Step(s2, inc)
	s4, o3 := pcg.Step(s3, inc)
	_, o4 := pcg.Step(s4, inc)

	// A single-sample table (index 0 only) avoids any other enumerated
	// fragment landing in a rotation bucket the engine visits first.
	path := filepath.Join(t.TempDir(), "table.bin")
	_, err := table.Build(path, table.BuildOptions{SampleCount: 1})
	require.NoError(t, err)

	r, err := table.Open(path)
	require.NoError(t, err)
	defer r.Close()

	e := New(r, config.Tuning{SeedingProbeBudget: 64, RefinementProbeBudget: 128, BucketCount: table.BucketCount})

	for _, o := range []uint32{o1, o2, o3} {
		require.NoError(t, e.Consume(o))
		assert.False(t, e.Seeded())
	}
	require.NoError(t, e.Consume(o4))
	require.True(t, e.Seeded())

	found := false
	for _, c := range e.Candidates() {
		if c.Init == s1 && c.Inc == inc {
			found = true
		}
	}
	assert.True(t, found, "a table.Build-produced table must recover the real seed end-to-end")
}

func TestEngineRefinementPrunesInconsistentCandidates(t *testing.T) {
	s1 := pcg.State(1)
	path, outs, _ := seedScenario(t, s1)

	r, err := table.Open(path)
	require.NoError(t, err)
	defer r.Close()

	e := New(r, config.Tuning{SeedingProbeBudget: 16})
	for _, o := range outs {
		require.NoError(t, e.Consume(o))
	}
	before := e.Len()
	require.Greater(t, before, 0)

	inc := pcg.Inc(1)
	var s pcg.State = s1
	for i := 0; i < 4; i++ {
		s, _ = pcg.Step(s, inc)
	}
	_, nextOutput := pcg.Step(s, inc)

	require.NoError(t, e.Consume(nextOutput))
	assert.LessOrEqual(t, e.Len(), before)

	found := false
	for _, c := range e.Candidates() {
		if c.Init == s1 {
			found = true
		}
	}
	assert.True(t, found, "the true candidate must survive a correct observation")
}

func TestEngineRefinementRejectsWrongOutput(t *testing.T) {
	s1 := pcg.State(1)
	path, outs, _ := seedScenario(t, s1)

	r, err := table.Open(path)
	require.NoError(t, err)
	defer r.Close()

	e := New(r, config.Tuning{SeedingProbeBudget: 16})
	for _, o := range outs {
		require.NoError(t, e.Consume(o))
	}

	err = e.Consume(^outs[3]) // almost certainly inconsistent with every survivor
	if err == nil {
		// Extremely unlikely collision; nothing to assert either way.
		return
	}
	assert.Equal(t, breakerr.KindInconsistent, breakerr.As(err))
}
