package rpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleDIS_unicastRepliesWithDIO(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	routes := mapRouteTable{}
	e, _ := newTestEngine(out, routes, &fakeTimer{})

	of := NewOF0(StaticLinkStats{}, 256)
	inst := NewInstance(testInstanceConfig(1, of, true))
	e.AddInstance(inst)
	e.InitRoot(1, mustDODAGID(1), true)

	body := EncodeDIS(nil, DIS{})
	e.HandleICMPv6(CodeDIS, "neighbor", false, body)

	require.Len(t, out.dios, 1)
	assert.Equal(t, rootRank(256), out.dios[0].Rank)
}

func TestHandleDIS_multicastResetsPolicyWithoutReply(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	routes := mapRouteTable{}
	e, _ := newTestEngine(out, routes, &fakeTimer{})

	var resetCalls int
	e.dioPolicy = dioPolicyFunc{reset: func(uint8) { resetCalls++ }}

	of := NewOF0(StaticLinkStats{}, 256)
	inst := NewInstance(testInstanceConfig(1, of, false))
	e.AddInstance(inst)

	body := EncodeDIS(nil, DIS{})
	e.HandleICMPv6(CodeDIS, "neighbor", true, body)

	assert.Empty(t, out.dios)
	assert.Equal(t, 1, resetCalls)
}

func TestHandleDIO_joinsFreshInstance(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	routes := mapRouteTable{}
	e, _ := newTestEngine(out, routes, &fakeTimer{})

	of := NewOF0(StaticLinkStats{"root": ETXDivisor}, 256)
	inst := NewInstance(testInstanceConfig(1, of, false))
	e.AddInstance(inst)

	dio := DIO{
		InstanceID: 1,
		Version:    1,
		Rank:       rootRank(256),
		DODAGID:    mustDODAGID(1),
	}
	body := EncodeDIO(nil, dio)

	e.HandleICMPv6(CodeDIO, "root", false, body)

	require.NotNil(t, inst.DAG)
	require.NotNil(t, inst.DAG.PreferredParent)
	assert.Equal(t, NeighborKey("root"), inst.DAG.PreferredParent.Key)
	assert.True(t, inst.DAG.Joined)
}

func TestHandleDIO_rootIgnoresDIO(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	routes := mapRouteTable{}
	e, _ := newTestEngine(out, routes, &fakeTimer{})

	of := NewOF0(StaticLinkStats{}, 256)
	inst := NewInstance(testInstanceConfig(1, of, true))
	e.AddInstance(inst)

	dio := DIO{InstanceID: 1, Version: 1, Rank: 256, DODAGID: mustDODAGID(1)}
	body := EncodeDIO(nil, dio)

	e.HandleICMPv6(CodeDIO, "someone", false, body)

	assert.Nil(t, inst.DAG)
}

func TestHandleDAONonStoring_addAndRemoveLink(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	routes := mapRouteTable{}
	e, _ := newTestEngine(out, routes, &fakeTimer{})

	var added, removed int
	e.srcRoutes = srcRouteTableFunc{
		add:    func(Target, Target) { added++ },
		remove: func(Target) { removed++ },
	}

	of := NewOF0(StaticLinkStats{}, 256)
	cfg := testInstanceConfig(1, of, true)
	cfg.MOP = MOPNonStoring
	inst := NewInstance(cfg)
	e.AddInstance(inst)

	parentAddr := mustDODAGID(2)
	target := Target{PrefixLength: 64, Prefix: dodagIDBytes(9)[:8]}

	dao := DAO{
		InstanceID: 1,
		AckRequest: true,
		Sequence:   1,
		Target:     &target,
		Transit:    &Transit{PathSequence: 1, PathLifetime: 30, ParentAddress: &parentAddr},
	}
	e.HandleICMPv6(CodeDAO, "child", false, EncodeDAO(nil, dao))

	assert.Equal(t, 1, added)
	require.Len(t, out.daoAcks, 1)
	assert.Equal(t, StatusUnconditionalAccept, out.daoAcks[0].Status)

	dao.Transit.PathLifetime = 0
	e.HandleICMPv6(CodeDAO, "child", false, EncodeDAO(nil, dao))
	assert.Equal(t, 1, removed)
}

func TestHandleDCO_forwardsOnFresherSequence(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	routes := mapRouteTable{}
	e, neigh := newTestEngine(out, routes, &fakeTimer{})

	of := NewOF0(StaticLinkStats{}, 256)
	inst := NewInstance(testInstanceConfig(1, of, true))
	e.AddInstance(inst)

	target := Target{PrefixLength: 64, Prefix: dodagIDBytes(9)[:8]}
	neigh.Admit("down")
	routes.Add(Route{Target: target, NextHop: "down", PathSequence: 1, State: RouteActive})

	dco := DCO{InstanceID: 1, Sequence: 3, Target: &target, Transit: &Transit{PathSequence: 2}}
	e.HandleICMPv6(CodeDCO, "up", false, EncodeDCO(nil, dco))

	require.Len(t, out.dcos, 1)
	assert.Equal(t, "down", out.lastDCODst)

	_, ok := routes.Lookup(target)
	assert.False(t, ok)
}

func TestHandleDCO_nacksUnknownForeignTarget(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	routes := mapRouteTable{}
	e, _ := newTestEngine(out, routes, &fakeTimer{})

	of := NewOF0(StaticLinkStats{}, 256)
	inst := NewInstance(testInstanceConfig(1, of, true))
	e.AddInstance(inst)

	target := Target{PrefixLength: 64, Prefix: dodagIDBytes(9)[:8]}
	dco := DCO{InstanceID: 1, AckRequest: true, Sequence: 3, Target: &target, Transit: &Transit{PathSequence: 2}}
	e.HandleICMPv6(CodeDCO, "up", false, EncodeDCO(nil, dco))

	require.Len(t, out.dcoAcks, 1)
	assert.Equal(t, StatusNoRouteFound, out.dcoAcks[0].Status)
}

type dioPolicyFunc struct {
	changed func(instanceID uint8, consistent bool)
	reset   func(instanceID uint8)
}

func (f dioPolicyFunc) OnStateChanged(instanceID uint8, consistent bool) {
	if f.changed != nil {
		f.changed(instanceID, consistent)
	}
}

func (f dioPolicyFunc) Reset(instanceID uint8) {
	if f.reset != nil {
		f.reset(instanceID)
	}
}

type srcRouteTableFunc struct {
	add    func(child, parent Target)
	remove func(child Target)
}

func (f srcRouteTableFunc) AddLink(child, parent Target) { f.add(child, parent) }
func (f srcRouteTableFunc) RemoveLink(child Target)      { f.remove(child) }
