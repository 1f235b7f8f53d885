package rpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMRHOF_OnLinkFeedback_ewma(t *testing.T) {
	t.Parallel()

	of := NewMRHOF(0)
	p := &Parent{Key: "p1"}

	of.OnLinkFeedback(p, TxOK, 1)
	want := uint16((mrhofETXAlpha*uint32(RPLInitLinkMetric*ETXDivisor) + (mrhofETXScale-mrhofETXAlpha)*uint32(ETXDivisor)) / mrhofETXScale)
	assert.Equal(t, want, p.LinkMetric)

	before := p.LinkMetric
	of.OnLinkFeedback(p, TxCollision, 1)
	assert.Equal(t, before, p.LinkMetric, "collisions must not move the EWMA")

	of.OnLinkFeedback(p, TxError, 1)
	assert.Equal(t, before, p.LinkMetric, "transmit errors must not move the EWMA")
}

func TestMRHOF_OnLinkFeedback_numtx(t *testing.T) {
	t.Parallel()

	of := NewMRHOF(0)
	p := &Parent{Key: "p1", LinkMetric: RPLInitLinkMetric * ETXDivisor}

	of.OnLinkFeedback(p, TxOK, 3)
	want := uint16((mrhofETXAlpha*uint32(RPLInitLinkMetric*ETXDivisor) + (mrhofETXScale-mrhofETXAlpha)*uint32(3*ETXDivisor)) / mrhofETXScale)
	assert.Equal(t, want, p.LinkMetric)
}

func TestMRHOF_OnLinkFeedback_noACK(t *testing.T) {
	t.Parallel()

	of := NewMRHOF(0)
	p := &Parent{Key: "p1", LinkMetric: RPLInitLinkMetric * ETXDivisor}

	of.OnLinkFeedback(p, TxNoACK, 1)
	want := uint16((mrhofETXAlpha*uint32(RPLInitLinkMetric*ETXDivisor) + (mrhofETXScale-mrhofETXAlpha)*uint32(mrhofMaxLinkMetric)) / mrhofETXScale)
	assert.Equal(t, want, p.LinkMetric)
}

// TestMRHOF_BestParent_switch reproduces spec.md section 8's scenario 2
// verbatim: preferred A has path_metric=300, candidate B has
// path_metric=200, divisor=128, delta=64. |100| > 64, so the node
// switches to B.
func TestMRHOF_BestParent_switch(t *testing.T) {
	t.Parallel()

	of := NewMRHOF(DefaultMinHopRankIncrease)
	dag := newDAG(nil, mustDODAGID(1), 1)

	a := dag.AddParent("a", 0)
	a.LinkMetric = 300

	b := dag.AddParent("b", 0)
	b.LinkMetric = 200

	dag.PreferredParent = a

	assert.Equal(t, b, of.BestParent(dag))
}

func TestMRHOF_BestParent_hysteresisKeepsIncumbent(t *testing.T) {
	t.Parallel()

	of := NewMRHOF(DefaultMinHopRankIncrease)
	dag := newDAG(nil, mustDODAGID(1), 1)

	a := dag.AddParent("a", 0)
	a.LinkMetric = 300

	b := dag.AddParent("b", 0)
	b.LinkMetric = 300 - mrhofDelta()/2

	dag.PreferredParent = a

	assert.Equal(t, a, of.BestParent(dag))
}

func TestMRHOF_BestParent_rejectsOverMaxLinkMetric(t *testing.T) {
	t.Parallel()

	of := NewMRHOF(0)
	dag := newDAG(nil, mustDODAGID(1), 1)

	bad := dag.AddParent("bad", 0)
	bad.LinkMetric = mrhofMaxLinkMetric + 1

	assert.Nil(t, of.BestParent(dag))
}

func TestMRHOF_BestParent_noUsableParents(t *testing.T) {
	t.Parallel()

	of := NewMRHOF(0)
	dag := newDAG(nil, mustDODAGID(1), 1)

	assert.Nil(t, of.BestParent(dag))
}

func TestMRHOF_CalculateRank(t *testing.T) {
	t.Parallel()

	of := NewMRHOF(DefaultMinHopRankIncrease)
	dag := newDAG(nil, mustDODAGID(1), 1)

	assert.Equal(t, InfiniteRank, of.CalculateRank(dag))

	p := dag.AddParent("p1", 512)
	p.LinkMetric = ETXDivisor
	dag.PreferredParent = p

	assert.Equal(t, uint16(512+ETXDivisor), of.CalculateRank(dag))
}

func TestMRHOF_OwnMetricContainer(t *testing.T) {
	t.Parallel()

	root := NewMRHOF(0)
	root.IsRoot = true
	mc, ok := root.OwnMetricContainer(newDAG(nil, mustDODAGID(1), 1))
	assert.True(t, ok)
	assert.Equal(t, MetricContainer{Type: MetricETX, Value: 0}, mc)

	nonRoot := NewMRHOF(0)
	dag := newDAG(nil, mustDODAGID(1), 1)
	_, ok = nonRoot.OwnMetricContainer(dag)
	assert.False(t, ok, "no preferred parent means nothing to advertise yet")

	p := dag.AddParent("p1", 256)
	p.LinkMetric = ETXDivisor
	dag.PreferredParent = p
	mc, ok = nonRoot.OwnMetricContainer(dag)
	assert.True(t, ok)
	assert.Equal(t, MetricETX, mc.Type)
	assert.Equal(t, uint16(256+ETXDivisor), mc.Value)
}
