package mode

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/ioctl"
)

type (
	sysGetPlaneRes struct {
		planeIDPtr  uint64
		countPlanes uint32
	}

	sysGetPlane struct {
		planeID          uint32
		crtcID           uint32
		fbID             uint32
		possibleCrtcs    uint32
		gammaSize        uint32
		countFormatTypes uint32
		formatTypePtr    uint64
	}

	Plane struct {
		ID            uint32
		CrtcID        uint32
		BufferID      uint32
		PossibleCrtcs uint32
		GammaSize     uint32
		Formats       []uint32
	}
)

var (
	// DRM_IOWR(0xB5, struct drm_mode_get_plane_res)
	IOCTLModeGetPlaneResources = ioctl.IOWR[sysGetPlaneRes](drm.IOCTLBase, 0xB5)

	// DRM_IOWR(0xB6, struct drm_mode_get_plane)
	IOCTLModeGetPlane = ioctl.IOWR[sysGetPlane](drm.IOCTLBase, 0xB6)
)

// GetPlaneResources lists the plane ids. Primary and cursor planes are
// only reported once the universal planes client cap is set.
func GetPlaneResources(file *os.File) ([]uint32, error) {
	res := &sysGetPlaneRes{}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLModeGetPlaneResources),
		uintptr(unsafe.Pointer(res)))
	if err != nil {
		return nil, fmt.Errorf("MODE_GETPLANERESOURCES (count): %w", err)
	}
	if res.countPlanes == 0 {
		return nil, nil
	}

	ids := make([]uint32, res.countPlanes)
	res.planeIDPtr = uint64(uintptr(unsafe.Pointer(&ids[0])))
	err = ioctl.Do(file.Fd(), uintptr(IOCTLModeGetPlaneResources),
		uintptr(unsafe.Pointer(res)))
	if err != nil {
		return nil, fmt.Errorf("MODE_GETPLANERESOURCES (fill): %w", err)
	}
	return ids[:min(len(ids), int(res.countPlanes))], nil
}

func GetPlane(file *os.File, id uint32) (*Plane, error) {
	plane := &sysGetPlane{}
	plane.planeID = id
	err := ioctl.Do(file.Fd(), uintptr(IOCTLModeGetPlane),
		uintptr(unsafe.Pointer(plane)))
	if err != nil {
		return nil, fmt.Errorf("MODE_GETPLANE(%d): %w", id, err)
	}

	var formats []uint32
	if plane.countFormatTypes > 0 {
		formats = make([]uint32, plane.countFormatTypes)
		plane.formatTypePtr = uint64(uintptr(unsafe.Pointer(&formats[0])))
		err = ioctl.Do(file.Fd(), uintptr(IOCTLModeGetPlane),
			uintptr(unsafe.Pointer(plane)))
		if err != nil {
			return nil, fmt.Errorf("MODE_GETPLANE(%d): %w", id, err)
		}
	}

	return &Plane{
		ID:            plane.planeID,
		CrtcID:        plane.crtcID,
		BufferID:      plane.fbID,
		PossibleCrtcs: plane.possibleCrtcs,
		GammaSize:     plane.gammaSize,
		Formats:       formats[:min(len(formats), int(plane.countFormatTypes))],
	}, nil
}
