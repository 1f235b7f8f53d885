package rpl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDODAGID(b byte) (id [16]byte) {
	for i := range id {
		id[i] = b
	}

	return id
}

func TestDIS_roundTrip(t *testing.T) {
	t.Parallel()

	testCases := []DIS{{
		Flags:   0,
		Options: nil,
	}, {
		Flags:   0x80,
		Options: []byte{0xAA, 0xBB},
	}}

	for _, want := range testCases {
		buf := EncodeDIS(nil, want)
		got, err := DecodeDIS(buf)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(want, got))
	}
}

func TestDIS_malformed(t *testing.T) {
	t.Parallel()

	_, err := DecodeDIS([]byte{0x00})
	assert.ErrorIs(t, err, errMalformedMessage)
}

func TestDIO_roundTrip(t *testing.T) {
	t.Parallel()

	prefix := mustDODAGID(0x20)

	testCases := []struct {
		name string
		dio  DIO
	}{{
		name: "minimal",
		dio: DIO{
			InstanceID: 1,
			Version:    10,
			Rank:       256,
			MOP:        MOPStoring,
			Preference: 3,
			DTSN:       5,
			DODAGID:    mustDODAGID(0xFE),
		},
	}, {
		name: "full",
		dio: DIO{
			InstanceID: 2,
			Version:    11,
			Rank:       512,
			Grounded:   true,
			MOP:        MOPNonStoring,
			Preference: 7,
			DTSN:       1,
			DODAGID:    mustDODAGID(0xFE),
			Config: &DAGConfiguration{
				Authoritative:       true,
				PathControlSize:     4,
				DIOIntervalDoubling: 20,
				DIOIntervalMin:      3,
				DIORedundancy:       10,
				MaxRankIncrease:     7 * 256,
				MinHopRankIncrease:  256,
				OCP:                 1,
				DefaultLifetime:     30,
				LifetimeUnit:        60,
			},
			Metric: &MetricContainer{
				Type:  MetricETX,
				Value: 384,
			},
			RouteInfo: []RouteInformation{{
				PrefixLength:  64,
				Preference:    0x08,
				RouteLifetime: 1800,
				Prefix:        prefix[:8],
			}, {
				PrefixLength:  0,
				RouteLifetime: 3600,
			}},
			Prefix: &PrefixInformation{
				PrefixLength:  64,
				OnLink:        true,
				Autonomous:    true,
				ValidLifetime: 3600,
				PrefLifetime:  1800,
				Prefix:        prefix,
			},
		},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf := EncodeDIO(nil, tc.dio)
			got, err := DecodeDIO(buf)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tc.dio, got))
		})
	}
}

func TestDIO_unknownSubOptionSkipped(t *testing.T) {
	t.Parallel()

	dio := DIO{
		InstanceID: 1,
		DODAGID:    mustDODAGID(1),
	}
	buf := EncodeDIO(nil, dio)
	buf = appendSubOption(buf, 0x7F, []byte{1, 2, 3})

	got, err := DecodeDIO(buf)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(dio, got))
}

func TestDIO_malformedSuboptionOverrun(t *testing.T) {
	t.Parallel()

	dio := DIO{InstanceID: 1}
	buf := EncodeDIO(nil, dio)
	// Suboption claims a length that overruns the buffer.
	buf = append(buf, subOptDAGConfiguration, 0xFF)

	_, err := DecodeDIO(buf)
	assert.ErrorIs(t, err, errMalformedMessage)
}

func TestDIO_malformedFixedLength(t *testing.T) {
	t.Parallel()

	dio := DIO{InstanceID: 1}
	buf := EncodeDIO(nil, dio)
	buf = appendSubOption(buf, subOptDAGConfiguration, []byte{1, 2, 3})

	_, err := DecodeDIO(buf)
	assert.ErrorIs(t, err, errMalformedMessage)
}

func TestDAO_roundTrip(t *testing.T) {
	t.Parallel()

	parent := mustDODAGID(0x30)

	testCases := []struct {
		name string
		dao  DAO
	}{{
		name: "no_path_storing",
		dao: DAO{
			InstanceID: 1,
			AckRequest: true,
			Sequence:   42,
			Target: &Target{
				PrefixLength: 64,
				Prefix:       mustDODAGID(0xAB)[:8],
			},
			Transit: &Transit{
				PathSequence: 10,
				PathLifetime: 0,
			},
		},
	}, {
		name: "with_dodagid_and_parent",
		dao: DAO{
			InstanceID: 2,
			HasDODAGID: true,
			DODAGID:    mustDODAGID(0xFE),
			Sequence:   7,
			Target: &Target{
				PrefixLength: 128,
				Prefix:       mustDODAGID(0xCD)[:],
			},
			Transit: &Transit{
				External:      true,
				PathControl:   0x0F,
				PathSequence:  5,
				PathLifetime:  30,
				ParentAddress: &parent,
			},
		},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf := EncodeDAO(nil, tc.dao)
			got, err := DecodeDAO(buf)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tc.dao, got))
		})
	}
}

func TestDCO_roundTrip(t *testing.T) {
	t.Parallel()

	dco := DCO{
		InstanceID: 1,
		Sequence:   3,
		Target: &Target{
			PrefixLength: 64,
			Prefix:       mustDODAGID(0x11)[:8],
		},
		Transit: &Transit{
			PathSequence: 9,
			PathLifetime: 0,
		},
	}

	buf := EncodeDCO(nil, dco)
	got, err := DecodeDCO(buf)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(dco, got))
}

func TestDCO_missingTransitIsMalformed(t *testing.T) {
	t.Parallel()

	dco := DCO{
		InstanceID: 1,
		Target: &Target{
			PrefixLength: 64,
			Prefix:       mustDODAGID(0x11)[:8],
		},
	}

	buf := EncodeDCO(nil, dco)
	_, err := DecodeDCO(buf)
	assert.ErrorIs(t, err, errMalformedMessage)
}

func TestAckMessage_roundTrip(t *testing.T) {
	t.Parallel()

	testCases := []AckMessage{
		{InstanceID: 1, Sequence: 5, Status: StatusUnconditionalAccept},
		{InstanceID: 2, Sequence: 200, Status: StatusUnableToAccept},
	}

	for _, want := range testCases {
		buf := EncodeAck(nil, want)
		require.Len(t, buf, ackMessageLen)
		got, err := DecodeAck(buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAckMessage_malformed(t *testing.T) {
	t.Parallel()

	_, err := DecodeAck([]byte{1, 0, 2})
	assert.ErrorIs(t, err, errMalformedMessage)
}
