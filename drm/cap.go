package drm

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/NeowayLabs/hdi/ioctl"
)

type (
	capability struct {
		cap uint64
		val uint64
	}
)

const (
	CapDumbBuffer = iota + 1
	CapVBlankHighCRTC
	CapDumbPreferredDepth
	CapDumbPreferShadow
	CapPrime
	CapTimestampMonotonic
	CapAsyncPageFlip
	CapCursorWidth
	CapCursorHeight

	CapAddFB2Modifiers = 0x10
	CapPageFlipTarget  = 0x11
	CapCrtcInVBlankEvt = 0x12
	CapSyncObj         = 0x13
)

// Client capabilities accepted by SetClientCap.
const (
	ClientCapStereo3D = iota + 1
	ClientCapUniversalPlanes
	ClientCapAtomic
	ClientCapAspectRatio
	ClientCapWritebackConnectors
)

func HasDumbBuffer(file *os.File) bool {
	val, err := GetCap(file, CapDumbBuffer)
	if err != nil {
		return false
	}
	return val != 0
}

// GetCap queries a driver capability.
func GetCap(file *os.File, c uint64) (uint64, error) {
	cap := &capability{cap: c}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLGetCap), uintptr(unsafe.Pointer(cap)))
	if err != nil {
		return 0, fmt.Errorf("DRM_IOCTL_GET_CAP(%d): %w", c, err)
	}
	return cap.val, nil
}

// SetClientCap enables a client capability such as universal planes or
// atomic mode setting.
func SetClientCap(file *os.File, c, val uint64) error {
	cap := &capability{cap: c, val: val}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLSetClientCap), uintptr(unsafe.Pointer(cap)))
	if err != nil {
		return fmt.Errorf("DRM_IOCTL_SET_CLIENT_CAP(%d): %w", c, err)
	}
	return nil
}

// SetMaster makes the file the DRM master of the device.
func SetMaster(file *os.File) error {
	if err := ioctl.Do(file.Fd(), uintptr(IOCTLSetMaster), 0); err != nil {
		return fmt.Errorf("DRM_IOCTL_SET_MASTER: %w", err)
	}
	return nil
}

// DropMaster releases master ownership.
func DropMaster(file *os.File) error {
	if err := ioctl.Do(file.Fd(), uintptr(IOCTLDropMaster), 0); err != nil {
		return fmt.Errorf("DRM_IOCTL_DROP_MASTER: %w", err)
	}
	return nil
}
