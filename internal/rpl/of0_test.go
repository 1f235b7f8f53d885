package rpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOF0_stepOfRank(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		etx      uint16
		wantStep int32
		wantOK   bool
	}{
		{name: "perfect_link", etx: ETXDivisor, wantStep: 1, wantOK: true},
		{name: "mediocre_link", etx: 2 * ETXDivisor, wantStep: 4, wantOK: true},
		{name: "worst_acceptable", etx: 500, wantStep: 9, wantOK: true},
		{name: "unacceptably_bad", etx: 10 * ETXDivisor, wantStep: 28, wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			step, ok := stepOfRank(tc.etx)
			assert.Equal(t, tc.wantStep, step)
			assert.Equal(t, tc.wantOK, ok)
		})
	}
}

// TestOF0_BestParent_hysteresis reproduces spec.md section 8's scenario
// 1 verbatim: preferred parent A (rank=256, etx=128) vs. candidate B
// (rank=256, etx=140) with min_hoprankinc=256. |rA-rB|=12 is below
// MIN_DIFFERENCE=384, so the hysteresis keeps A.
func TestOF0_BestParent_hysteresis(t *testing.T) {
	t.Parallel()

	links := StaticLinkStats{"a": 128, "b": 140}
	of := NewOF0(links, 256)

	dag := newDAG(nil, mustDODAGID(1), 1)
	a := dag.AddParent("a", 256)
	b := dag.AddParent("b", 256)
	dag.PreferredParent = a

	assert.Equal(t, a, of.BestParent(dag))

	// Once b's ETX is far enough away that |r1-r2| clears MIN_DIFFERENCE,
	// the lower-scoring parent wins outright.
	links["b"] = 128 + 1000
	assert.Equal(t, a, of.BestParent(dag))

	links["a"] = 128 + 2000
	assert.Equal(t, b, of.BestParent(dag))
}

func TestOF0_BestParent_noUsableParents(t *testing.T) {
	t.Parallel()

	of := NewOF0(StaticLinkStats{}, 0)
	dag := newDAG(nil, mustDODAGID(1), 1)

	assert.Nil(t, of.BestParent(dag))
}

func TestOF0_CalculateRank_rejectsUnacceptableLink(t *testing.T) {
	t.Parallel()

	links := StaticLinkStats{"a": 10 * ETXDivisor}
	of := NewOF0(links, DefaultMinHopRankIncrease)

	dag := newDAG(nil, mustDODAGID(1), 1)
	p := dag.AddParent("a", 512)
	dag.PreferredParent = p

	assert.Equal(t, InfiniteRank, of.CalculateRank(dag))
}

func TestOF0_CalculateRank(t *testing.T) {
	t.Parallel()

	links := StaticLinkStats{"a": ETXDivisor}
	of := NewOF0(links, DefaultMinHopRankIncrease)

	dag := newDAG(nil, mustDODAGID(1), 1)
	p := dag.AddParent("a", 512)
	dag.PreferredParent = p

	assert.Equal(t, uint16(512+DefaultMinHopRankIncrease), of.CalculateRank(dag))
}

func TestOF0_BestDAG_groundedWins(t *testing.T) {
	t.Parallel()

	of := NewOF0(StaticLinkStats{}, 0)

	ungrounded := &DAG{Grounded: false, Rank: 100}
	grounded := &DAG{Grounded: true, Rank: 5000}

	assert.Equal(t, grounded, of.BestDAG(ungrounded, grounded))
	assert.Equal(t, grounded, of.BestDAG(grounded, ungrounded))
}

func TestOF0_BestDAG_nilHandling(t *testing.T) {
	t.Parallel()

	of := NewOF0(StaticLinkStats{}, 0)
	d := &DAG{}

	assert.Equal(t, d, of.BestDAG(nil, d))
	assert.Equal(t, d, of.BestDAG(d, nil))
}

func TestSaturatingAdd(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint16(300), saturatingAdd(100, 200))
	assert.Equal(t, InfiniteRank, saturatingAdd(InfiniteRank-10, 20))
}
