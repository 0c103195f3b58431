package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomcrypto/pcg-breaker/candidate"
	"github.com/tomcrypto/pcg-breaker/pcg"
)

func TestPredictEmptySetYieldsNoOutcomes(t *testing.T) {
	assert.Nil(t, Predict(nil))
}

func TestPredictSingleCandidateIsCertain(t *testing.T) {
	cands := []candidate.Candidate{{Cur: 42, Init: 42, Inc: 1}}
	outcomes := Predict(cands)
	if assert.Len(t, outcomes, 1) {
		assert.Equal(t, pcg.OutputOf(42), outcomes[0].Output)
		assert.Equal(t, 1.0, outcomes[0].Probability)
	}
}

func TestPredictGroupsByDistinctNextOutput(t *testing.T) {
	// Two states chosen so their outputs differ; a third repeats the
	// first state's output, so it must accumulate probability instead
	// of appearing as a third outcome.
	var sA, sB pcg.State = 11, 99999999999
	for pcg.OutputOf(sA) == pcg.OutputOf(sB) {
		sB++
	}

	cands := []candidate.Candidate{
		{Cur: sA, Init: sA, Inc: 1},
		{Cur: sB, Init: sB, Inc: 1},
		{Cur: sA, Init: sA, Inc: 1},
	}
	outcomes := Predict(cands)

	assert.Len(t, outcomes, 2)
	assert.Equal(t, pcg.OutputOf(sA), outcomes[0].Output, "the majority output must rank first")
	assert.InDelta(t, 2.0/3.0, outcomes[0].Probability, 1e-9)
	assert.Equal(t, pcg.OutputOf(sB), outcomes[1].Output)
	assert.InDelta(t, 1.0/3.0, outcomes[1].Probability, 1e-9)
}

func TestRecoveredRequiresExactlyOneCandidate(t *testing.T) {
	_, ok := Recovered(nil)
	assert.False(t, ok)

	_, ok = Recovered([]candidate.Candidate{{Cur: 1, Init: 1, Inc: 1}, {Cur: 2, Init: 2, Inc: 1}})
	assert.False(t, ok)

	rec, ok := Recovered([]candidate.Candidate{{Cur: 7, Init: 5, Inc: 6}})
	assert.True(t, ok)
	assert.Equal(t, pcg.State(5), rec.State)
	assert.Equal(t, pcg.Inc(7), rec.Inc) // Inc 6 | 1 = 7
}
