package rpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLollipopGreaterThan_reflexive(t *testing.T) {
	t.Parallel()

	for a := 0; a <= 255; a++ {
		assert.Falsef(t, lollipopGreaterThan(uint8(a), uint8(a)), "a=%d", a)
	}
}

func TestLollipopGreaterThan_incrementIsGreater(t *testing.T) {
	t.Parallel()

	for a := 0; a <= lollipopStableMax; a++ {
		next := lollipopIncrement(uint8(a))
		assert.Truef(t, lollipopGreaterThan(next, uint8(a)), "a=%d next=%d", a, next)
	}
}

func TestLollipopGreaterThan_rebootLosesToStable(t *testing.T) {
	t.Parallel()

	for reboot := lollipopInit; reboot <= 255; reboot++ {
		for stable := 0; stable <= lollipopStableMax; stable++ {
			assert.Falsef(
				t,
				lollipopGreaterThan(uint8(reboot), uint8(stable)),
				"reboot=%d stable=%d",
				reboot,
				stable,
			)
			assert.Truef(
				t,
				lollipopGreaterThan(uint8(stable), uint8(reboot)),
				"stable=%d reboot=%d",
				stable,
				reboot,
			)
		}
	}
}

func TestLollipopIncrement(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   uint8
		want uint8
	}{{
		name: "stable_mid",
		in:   10,
		want: 11,
	}, {
		name: "stable_wrap",
		in:   lollipopStableMax,
		want: 0,
	}, {
		name: "reboot_mid",
		in:   250,
		want: 251,
	}, {
		name: "reboot_wrap",
		in:   255,
		want: 0,
	}, {
		name: "init_boundary",
		in:   lollipopInit,
		want: lollipopInit + 1,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, lollipopIncrement(tc.in))
		})
	}
}
