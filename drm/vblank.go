package drm

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/NeowayLabs/hdi/ioctl"
)

// VBlank request types.
const (
	VBlankAbsolute   = 0x00000000
	VBlankRelative   = 0x00000001
	VBlankEvent      = 0x04000000
	VBlankFlip       = 0x08000000
	VBlankNextOnMiss = 0x10000000
	VBlankSecondary  = 0x20000000
	VBlankSignal     = 0x40000000

	VBlankHighCrtcMask  = 0x0000003e
	VBlankHighCrtcShift = 1
)

type (
	// union drm_wait_vblank, 64-bit layout. The request's signal field
	// shares storage with the reply's tval_sec.
	sysWaitVBlank struct {
		typ      uint32
		sequence uint32
		tvalSec  int64
		tvalUsec int64
	}

	// VBlankReply is the kernel answer to a vblank wait.
	VBlankReply struct {
		Sequence uint32
		Sec      int64
		Usec     int64
	}
)

// Nanoseconds returns the vblank timestamp in nanoseconds.
func (r VBlankReply) Nanoseconds() uint64 {
	return uint64(r.Sec)*1e9 + uint64(r.Usec)*1e3
}

// PipeFlags returns the request bits selecting the CRTC pipe.
func PipeFlags(pipe uint32) uint32 {
	switch {
	case pipe == 0:
		return 0
	case pipe == 1:
		return VBlankSecondary
	default:
		return (pipe << VBlankHighCrtcShift) & VBlankHighCrtcMask
	}
}

// WaitVBlank blocks until the requested vblank happens.
func WaitVBlank(file *os.File, typ, sequence uint32) (VBlankReply, error) {
	vbl := &sysWaitVBlank{typ: typ, sequence: sequence}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLWaitVBlank), uintptr(unsafe.Pointer(vbl)))
	if err != nil {
		return VBlankReply{}, fmt.Errorf("DRM_IOCTL_WAIT_VBLANK: %w", err)
	}
	return VBlankReply{
		Sequence: vbl.sequence,
		Sec:      vbl.tvalSec,
		Usec:     vbl.tvalUsec,
	}, nil
}
