package ioctl

import (
	"strconv"
	"testing"
)

func getbits(n uint32) string {
	return strconv.FormatUint(uint64(n), 2)
}

func TestNewCode(t *testing.T) {
	code := NewCode(Read, 0x218, 'r', 1)
	expected := uint32(0x82187201)
	if code != expected {
		t.Errorf("Expected %s but got %s", getbits(expected),
			getbits(code))
		return
	}
}

type cardRes struct {
	ptrs   [4]uint64
	counts [4]uint32
	limits [4]uint32
}

func TestMacros(t *testing.T) {
	for _, tc := range []struct {
		name     string
		got      uint32
		expected uint32
	}{
		{"SetMaster", IO('d', 0x1e), 0x641e},
		{"DropMaster", IO('d', 0x1f), 0x641f},
		{"GetResources", IOWR[cardRes]('d', 0xa0), 0xc04064a0},
		{"RevokeLease", IOW[uint32]('d', 0xc9), 0x400464c9},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.expected {
				t.Errorf("Expected %#x but got %#x", tc.expected, tc.got)
			}
		})
	}
}

func TestNewCodePanicsOnBadType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid type")
		}
	}()
	NewCode(Read|Write+1, 0, 'd', 0)
}
