// Package predict is the small orchestration layer sitting above the
// candidate engine: it turns the current candidate set into a
// probability-ranked prediction, or a finished recovery once the set
// has collapsed to one survivor.
package predict

import (
	"sort"

	"github.com/tomcrypto/pcg-breaker/candidate"
	"github.com/tomcrypto/pcg-breaker/pcg"
)

// Outcome is one possible next output and the fraction of the current
// candidate set that predicts it.
type Outcome struct {
	Output      uint32
	Probability float64
}

// Recovery is the fully resolved (state, inc) pair once the candidate
// set has collapsed to a single survivor. Inc always has bit 0 set,
// matching the reporting convention named in spec.md §3.
type Recovery struct {
	State pcg.State
	Inc   pcg.Inc
}

// Predict groups the candidate set by the output each candidate's
// current state predicts next, sorted most to least probable. Each
// candidate's Cur already names the state whose output transform is
// the next, not-yet-consumed prediction, so no stepping is needed
// here (see candidate.Candidate).
func Predict(cands []candidate.Candidate) []Outcome {
	if len(cands) == 0 {
		return nil
	}

	counts := make(map[uint32]int, 4)
	for _, c := range cands {
		counts[pcg.OutputOf(c.Cur)]++
	}

	total := float64(len(cands))
	outcomes := make([]Outcome, 0, len(counts))
	for o, n := range counts {
		outcomes = append(outcomes, Outcome{Output: o, Probability: float64(n) / total})
	}

	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].Probability != outcomes[j].Probability {
			return outcomes[i].Probability > outcomes[j].Probability
		}
		return outcomes[i].Output < outcomes[j].Output
	})
	return outcomes
}

// Recovered reports the recovered (state, inc) pair once exactly one
// candidate survives, per spec.md §4.5. ok is false while |C| != 1.
func Recovered(cands []candidate.Candidate) (rec Recovery, ok bool) {
	if len(cands) != 1 {
		return Recovery{}, false
	}
	c := cands[0]
	return Recovery{State: c.Init, Inc: c.Inc | 1}, true
}
