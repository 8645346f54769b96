package drm

import (
	"testing"
)

func TestIOCTLCodes(t *testing.T) {
	for _, tc := range []struct {
		name     string
		code     uint32
		expected uint32
	}{
		{"Version", IOCTLVersion, 0xc0406400},
		{"GemClose", IOCTLGemClose, 0x40086409},
		{"GetCap", IOCTLGetCap, 0xc010640c},
		{"SetClientCap", IOCTLSetClientCap, 0x4010640d},
		{"SetMaster", IOCTLSetMaster, 0x641e},
		{"DropMaster", IOCTLDropMaster, 0x641f},
		{"PrimeHandleToFD", IOCTLPrimeHandleToFD, 0xc00c642d},
		{"PrimeFDToHandle", IOCTLPrimeFDToHandle, 0xc00c642e},
		{"WaitVBlank", IOCTLWaitVBlank, 0xc018643a},
	} {
		if tc.code != tc.expected {
			t.Errorf("%s: expected %#x but got %#x", tc.name, tc.expected, tc.code)
		}
	}
}

func TestPipeFlags(t *testing.T) {
	for pipe, expected := range map[uint32]uint32{
		0: 0,
		1: VBlankSecondary,
		2: 2 << VBlankHighCrtcShift,
		5: 5 << VBlankHighCrtcShift,
	} {
		if got := PipeFlags(pipe); got != expected {
			t.Errorf("pipe %d: expected %#x but got %#x", pipe, expected, got)
		}
	}
}

func TestVBlankReplyNanoseconds(t *testing.T) {
	r := VBlankReply{Sequence: 7, Sec: 2, Usec: 500}
	if got := r.Nanoseconds(); got != 2_000_500_000 {
		t.Errorf("expected 2000500000 but got %d", got)
	}
}
