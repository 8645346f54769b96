package drm

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/NeowayLabs/hdi/ioctl"
	"golang.org/x/sys/unix"
)

// Flags for PrimeHandleToFD.
const (
	PrimeCloExec = unix.O_CLOEXEC
	PrimeRDWR    = unix.O_RDWR
)

type (
	sysPrimeHandle struct {
		handle uint32
		flags  uint32
		fd     int32
	}

	sysGemClose struct {
		handle uint32
		pad    uint32
	}
)

// PrimeFDToHandle imports a dma-buf file descriptor as a GEM handle.
// Importing the same dma-buf twice on one file yields the same handle.
func PrimeFDToHandle(file *os.File, fd int) (uint32, error) {
	req := &sysPrimeHandle{fd: int32(fd)}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLPrimeFDToHandle), uintptr(unsafe.Pointer(req)))
	if err != nil {
		return 0, fmt.Errorf("DRM_IOCTL_PRIME_FD_TO_HANDLE(%d): %w", fd, err)
	}
	return req.handle, nil
}

// PrimeHandleToFD exports a GEM handle as a dma-buf file descriptor.
func PrimeHandleToFD(file *os.File, handle uint32, flags uint32) (int, error) {
	req := &sysPrimeHandle{handle: handle, flags: flags}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLPrimeHandleToFD), uintptr(unsafe.Pointer(req)))
	if err != nil {
		return -1, fmt.Errorf("DRM_IOCTL_PRIME_HANDLE_TO_FD(%d): %w", handle, err)
	}
	return int(req.fd), nil
}

// GemClose releases a GEM handle.
func GemClose(file *os.File, handle uint32) error {
	req := &sysGemClose{handle: handle}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLGemClose), uintptr(unsafe.Pointer(req)))
	if err != nil {
		return fmt.Errorf("DRM_IOCTL_GEM_CLOSE(%d): %w", handle, err)
	}
	return nil
}
