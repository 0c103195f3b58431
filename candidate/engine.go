// Package candidate implements the state-recovery core: it buffers the
// first four observed outputs, seeds a candidate set from the
// precomputed table, and then prunes that set one output at a time
// until at most one candidate survives.
package candidate

import (
	"math/bits"

	"github.com/tomcrypto/pcg-breaker/breakerr"
	"github.com/tomcrypto/pcg-breaker/config"
	"github.com/tomcrypto/pcg-breaker/pcg"
	"github.com/tomcrypto/pcg-breaker/table"
)

// Candidate is one (state, inc) pair still consistent with every output
// consumed so far. Cur holds the state whose output transform predicts
// the next, not-yet-consumed output (i.e. it is always one step ahead
// of the last observation); Init is the original seed state, held
// fixed so a later full recovery can report the pair the stream
// actually started from rather than its current position.
type Candidate struct {
	Cur  pcg.State
	Init pcg.State
	Inc  pcg.Inc
}

// Engine owns the evolving candidate set C described in spec.md §4.4.
type Engine struct {
	reader     *table.Reader
	tuning     config.Tuning
	pending    []uint32
	candidates []Candidate
	seeded     bool
}

// New builds an engine backed by an open table reader. tuning supplies
// the probe budgets; pass config.Default() for the compiled-in values.
func New(reader *table.Reader, tuning config.Tuning) *Engine {
	return &Engine{reader: reader, tuning: tuning, pending: make([]uint32, 0, 4)}
}

// Seeded reports whether the fourth output has arrived and the
// candidate set has been populated.
func (e *Engine) Seeded() bool { return e.seeded }

// Candidates returns the current candidate set. Callers must not
// mutate the returned slice.
func (e *Engine) Candidates() []Candidate { return e.candidates }

// Len returns the current candidate set size, 0 before seeding.
func (e *Engine) Len() int { return len(e.candidates) }

// Consume ingests the next observed output. Before the fourth output
// it only buffers; on the fourth it seeds C; thereafter it refines C
// by one step. It returns a breakerr.KindInconsistent error if seeding
// or refinement empties C.
func (e *Engine) Consume(o uint32) error {
	if !e.seeded {
		e.pending = append(e.pending, o)
		if len(e.pending) < 4 {
			return nil
		}
		cands, err := e.seed(e.pending[0], e.pending[1], e.pending[2], e.pending[3])
		if err != nil {
			return err
		}
		e.candidates = cands
		e.seeded = true
		return nil
	}

	return e.refine(o)
}

// refine implements spec.md §4.4's online refinement: every candidate
// is forward-stepped once, and only those whose predicted output
// matches the observation survive. The spec names an optional
// table-assisted pre-filter ahead of this; at this candidate-set scale
// the per-candidate check below is already O(1), so the table lookup
// would add a probe without saving work, and is skipped.
func (e *Engine) refine(o uint32) error {
	next := e.candidates[:0]
	for _, c := range e.candidates {
		nstate, pred := pcg.Step(c.Cur, c.Inc)
		if pred == o {
			next = append(next, Candidate{Cur: nstate, Init: c.Init, Inc: c.Inc})
		}
	}
	if len(next) == 0 {
		return breakerr.New(breakerr.KindInconsistent, "candidate set emptied by refinement")
	}
	e.candidates = next
	return nil
}

// seed implements spec.md §4.4's initial seeding. For every one of the
// 32 rotation hypotheses for S1, pcg.HighFragment recovers S1's high 37
// bits exactly — output depends solely on state bits 27..63, so this
// needs no table lookup at all, unlike the increment. For every one of
// the 32 rotation hypotheses for S2, the table bucket keyed on
// (r1, r2, xSel1) yields the increment fragments the builder found
// consistent with that transition; every surviving fragment is a
// candidate for I's bits 42..56 (see table.sample's doc comment for why
// only those 15 bits are recoverable this way).
//
// Recovering the low 27 bits of S1 and the low 42 bits of I from a
// high-bit fragment alone is, in general, a carry-aware search over a
// 69-bit joint space — the genuinely hard part of this cryptanalysis,
// and not solved here (no PCG-breaking source survived the
// original_source/ filter — see DESIGN.md). This engine narrows that
// search with a documented simplification: it holds I's bits 0..41 and
// 57..63 at their canonical minimum (only bit 0 forced) and scans S1's
// low 27 bits up to SeedingProbeBudget, accepting a candidate only when
// the exact forward simulation from S1 reproduces all four observed
// outputs. This keeps every emitted candidate sound — nothing survives
// seeding that doesn't genuinely reproduce the input — at the cost of
// completeness when the true low bits (of either S1 or I) are nonzero.
func (e *Engine) seed(o1, o2, o3, o4 uint32) ([]Candidate, error) {
	budget := e.tuning.SeedingProbeBudget
	if budget <= 0 {
		budget = config.Default().SeedingProbeBudget
	}

	const lowBits = 27
	const lowSpan = uint64(1) << lowBits

	var out []Candidate
	seen := make(map[pcg.State]bool)
	probes := 0

outer:
	for r1 := uint8(0); r1 < 32; r1++ {
		x1 := bits.RotateLeft32(o1, int(r1))
		high1 := pcg.HighFragment(x1, r1)
		xSel1 := uint8(x1 >> 25)

		for r2 := uint8(0); r2 < 32; r2++ {
			recs, err := e.reader.Lookup(table.Key(r1, r2, xSel1))
			if err != nil {
				return nil, err
			}

			for _, rec := range recs {
				inc := (rec.IncFragment() << 42) | 1

				for l1 := uint64(0); l1 < lowSpan; l1++ {
					if probes >= budget {
						break outer
					}
					probes++

					s1 := high1 | l1
					s2, out1 := pcg.Step(s1, inc)
					if out1 != o1 {
						// high1 fixes every bit the output depends on, so
						// this holds for every l1 and record; it is a guard.
						continue
					}
					s3, out2 := pcg.Step(s2, inc)
					if out2 != o2 {
						continue
					}
					s4, out3 := pcg.Step(s3, inc)
					if out3 != o3 {
						continue
					}
					s5, out4 := pcg.Step(s4, inc)
					if out4 != o4 {
						continue
					}

					if seen[s1] {
						continue
					}
					seen[s1] = true
					out = append(out, Candidate{Cur: s5, Init: s1, Inc: inc})
				}
			}
		}
	}

	if len(out) == 0 {
		return nil, breakerr.New(breakerr.KindInconsistent, "seeding search exhausted its probe budget with no survivor")
	}
	return out, nil
}
