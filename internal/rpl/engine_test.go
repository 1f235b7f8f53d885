package rpl

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOutput records every call made through the [Output] interface so
// tests can assert on what the engine would have sent.
type fakeOutput struct {
	daos       []DAO
	daoAcks    []AckMessage
	dcos       []DCO
	dcoAcks    []AckMessage
	dios       []DIO
	diss       []DIS
	installed  []Route
	withdrawn  []Target
	lastDAODst string
	lastDCODst string
}

func (f *fakeOutput) SendDIS(instanceID uint8, dst string, msg DIS) { f.diss = append(f.diss, msg) }
func (f *fakeOutput) SendDIO(instanceID uint8, dst string, msg DIO) { f.dios = append(f.dios, msg) }

func (f *fakeOutput) SendDAO(instanceID uint8, dst string, msg DAO) {
	f.daos = append(f.daos, msg)
	f.lastDAODst = dst
}

func (f *fakeOutput) SendDAOACK(instanceID uint8, dst string, msg AckMessage) {
	f.daoAcks = append(f.daoAcks, msg)
}

func (f *fakeOutput) SendDCO(instanceID uint8, dst string, msg DCO) {
	f.dcos = append(f.dcos, msg)
	f.lastDCODst = dst
}

func (f *fakeOutput) SendDCOACK(instanceID uint8, dst string, msg AckMessage) {
	f.dcoAcks = append(f.dcoAcks, msg)
}

func (f *fakeOutput) InstallRoute(instanceID uint8, r Route) { f.installed = append(f.installed, r) }

func (f *fakeOutput) WithdrawRoute(instanceID uint8, target Target) {
	f.withdrawn = append(f.withdrawn, target)
}

// mapRouteTable is an in-memory [RouteTable] keyed by [targetKey], for
// test use only; production code uses [MapRouteTable] instead.
type mapRouteTable map[string]Route

func (m mapRouteTable) Lookup(target Target) (r Route, ok bool) {
	r, ok = m[targetKey(target)]

	return r, ok
}

func (m mapRouteTable) Add(r Route) { m[targetKey(r.Target)] = r }

func (m mapRouteTable) Remove(target Target) { delete(m, targetKey(target)) }

func (m mapRouteTable) All() (routes []Route) {
	for _, r := range m {
		routes = append(routes, r)
	}

	return routes
}

// fakeTimer runs callbacks synchronously under test control: After
// records the callback without scheduling it on a real clock, and the
// test fires it manually via the returned handle's associated entry.
type fakeTimer struct {
	scheduled []fakeTimerEntry
}

type fakeTimerEntry struct {
	d        time.Duration
	fn       func()
	canceled bool
}

func (f *fakeTimer) After(d time.Duration, fn func()) (cancel func()) {
	entry := &fakeTimerEntry{d: d, fn: fn}
	f.scheduled = append(f.scheduled, *entry)
	idx := len(f.scheduled) - 1

	return func() { f.scheduled[idx].canceled = true }
}

// fire runs the most recently scheduled, not-yet-canceled callback.
func (f *fakeTimer) fire() {
	for i := len(f.scheduled) - 1; i >= 0; i-- {
		if !f.scheduled[i].canceled {
			f.scheduled[i].fn()

			return
		}
	}
}

// dodagIDBytes returns the first 8 bytes of mustDODAGID(seed), as a
// plain slice usable directly in a [Target] literal.
func dodagIDBytes(seed byte) (b []byte) {
	id := mustDODAGID(seed)

	return id[:8]
}

func discardLogger() (log *slog.Logger) {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(out *fakeOutput, routes mapRouteTable, timer Timer) (e *Engine, neigh *MapNeighborCache) {
	neigh = NewMapNeighborCache()

	return NewEngine(out, neigh, routes, nil, nil, nil, timer, discardLogger()), neigh
}

func testInstanceConfig(id uint8, of ObjectiveFunction, isRoot bool) (cfg InstanceConfig) {
	return InstanceConfig{
		ID:                 id,
		MOP:                MOPStoring,
		OF:                 of,
		MinHopRankIncrease: 256,
		DIOIntervalMin:     3,
		IsRoot:             isRoot,
		DefaultLifetime:    30,
		LifetimeUnit:       60,
	}
}

// TestLoopPoisoning reproduces spec.md section 8's scenario 3: our
// preferred parent sends us a DAO, so its rank becomes INFINITE, its
// UPDATED flag is set, and nothing is forwarded.
func TestLoopPoisoning(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	routes := mapRouteTable{}
	e, _ := newTestEngine(out, routes, &fakeTimer{})

	of := NewOF0(StaticLinkStats{"parent": ETXDivisor}, 256)
	inst := NewInstance(testInstanceConfig(1, of, false))
	dag := newDAG(inst, mustDODAGID(1), 1)
	p := dag.AddParent("parent", 256)
	dag.PreferredParent = p
	dag.Rank = 512
	inst.DAG = dag
	e.AddInstance(inst)

	dao := DAO{
		InstanceID: 1,
		Sequence:   1,
		Target:     &Target{PrefixLength: 64, Prefix: dodagIDBytes(9)[:8]},
		Transit:    &Transit{PathSequence: 1, PathLifetime: 30},
	}
	body := EncodeDAO(nil, dao)

	e.HandleICMPv6(CodeDAO, "parent", false, body)

	assert.True(t, p.IsUnreachable())
	assert.True(t, p.IsUpdated())
	assert.Equal(t, uint64(1), inst.Stats.LoopsDetected)
	assert.Empty(t, out.daos, "the poisoning DAO must not be forwarded")
	assert.Empty(t, out.daoAcks)
}

// TestNoPathForwarding reproduces spec.md section 8's scenario 4.
func TestNoPathForwarding(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	routes := mapRouteTable{}
	e, neigh := newTestEngine(out, routes, &fakeTimer{})

	of := NewOF0(StaticLinkStats{"parent": ETXDivisor}, 256)
	inst := NewInstance(testInstanceConfig(1, of, false))
	dag := newDAG(inst, mustDODAGID(1), 1)
	parent := dag.AddParent("parent", 256)
	dag.PreferredParent = parent
	dag.Rank = 512
	inst.DAG = dag
	e.AddInstance(inst)

	target := Target{PrefixLength: 64, Prefix: dodagIDBytes(9)[:8]}
	neigh.Admit("sender")
	routes.Add(Route{Target: target, NextHop: "sender", Lifetime: 30 * time.Minute, State: RouteActive})

	dao := DAO{
		InstanceID: 1,
		AckRequest: true,
		Sequence:   5,
		Target:     &target,
		Transit:    &Transit{PathSequence: 2, PathLifetime: 0},
	}
	body := EncodeDAO(nil, dao)

	e.HandleICMPv6(CodeDAO, "sender", false, body)

	r, ok := routes.Lookup(target)
	require.True(t, ok)
	assert.Equal(t, RouteNoPathReceived, r.State)
	assert.Equal(t, NoPathRemovalDelay, r.Lifetime)

	require.Len(t, out.daoAcks, 1)
	assert.Equal(t, StatusUnconditionalAccept, out.daoAcks[0].Status)

	require.Len(t, out.daos, 1)
	assert.Equal(t, uint8(0), out.daos[0].Transit.PathLifetime)
	assert.Equal(t, "parent", out.lastDAODst)
}

// TestNextHopChangeTriggersDCO reproduces spec.md section 8's scenario 5.
func TestNextHopChangeTriggersDCO(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	routes := mapRouteTable{}
	e, neigh := newTestEngine(out, routes, &fakeTimer{})

	of := NewOF0(StaticLinkStats{}, 256)
	inst := NewInstance(testInstanceConfig(1, of, true))
	e.AddInstance(inst)

	target := Target{PrefixLength: 64, Prefix: dodagIDBytes(9)[:8]}
	routes.Add(Route{Target: target, NextHop: "X", PathSequence: 1, Lifetime: time.Minute, State: RouteActive})
	neigh.Admit("X")
	neigh.Admit("Y")

	dao := DAO{
		InstanceID: 1,
		Sequence:   7,
		Target:     &target,
		Transit:    &Transit{PathSequence: 2, PathLifetime: 30},
	}
	body := EncodeDAO(nil, dao)

	e.HandleICMPv6(CodeDAO, "Y", false, body)

	r, ok := routes.Lookup(target)
	require.True(t, ok)
	assert.Equal(t, NeighborKey("Y"), r.NextHop)

	require.Len(t, out.dcos, 1)
	assert.Equal(t, uint8(2), out.dcos[0].Transit.PathSequence)
	assert.Equal(t, "X", out.lastDCODst)
}

// TestDAORetransmissionBackoff reproduces spec.md section 8's scenario
// 6: repeated retransmission on an unacknowledged DAO, ending in OF
// notification and a repair request once attempts are exhausted.
func TestDAORetransmissionBackoff(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	routes := mapRouteTable{}
	timer := &fakeTimer{}
	e, _ := newTestEngine(out, routes, timer)

	var repairCalls int
	e.repair = repairRequesterFunc(func(uint8, [16]byte) { repairCalls++ })

	of := NewOF0(StaticLinkStats{"parent": ETXDivisor}, 256)
	cfg := testInstanceConfig(1, of, false)
	cfg.DAOMaxRetransmissions = 3
	cfg.DAORetransmissionTimeout = 5 * time.Second
	inst := NewInstance(cfg)
	dag := newDAG(inst, mustDODAGID(1), 1)
	p := dag.AddParent("parent", 256)
	dag.PreferredParent = p
	inst.DAG = dag
	e.AddInstance(inst)

	target := Target{PrefixLength: 64, Prefix: dodagIDBytes(9)[:8]}
	e.EmitOwnDAO(1, target, 30)
	require.Len(t, out.daos, 1)

	for i := 0; i < cfg.DAOMaxRetransmissions; i++ {
		timer.fire()
	}

	assert.Len(t, out.daos, 1+cfg.DAOMaxRetransmissions)
	assert.Equal(t, uint64(cfg.DAOMaxRetransmissions), inst.Stats.DAORetransmissions)

	// One more fire exhausts the retry budget.
	timer.fire()
	assert.Equal(t, 1, repairCalls)
}

type repairRequesterFunc func(instanceID uint8, dagID [16]byte)

func (f repairRequesterFunc) RequestLocalRepair(instanceID uint8, dagID [16]byte) {
	f(instanceID, dagID)
}
