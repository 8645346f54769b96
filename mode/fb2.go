package mode

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/ioctl"
)

// FB2 flags.
const (
	FBInterlaced = 1 << 0
	FBModifiers  = 1 << 1
)

type (
	sysFBCmd2 struct {
		fbID        uint32
		width       uint32
		height      uint32
		pixelFormat uint32
		flags       uint32
		handles     [4]uint32
		pitches     [4]uint32
		offsets     [4]uint32
		modifier    [4]uint64
	}

	// FB2 describes a multi-planar framebuffer. Unused planes keep a zero
	// handle.
	FB2 struct {
		Width, Height uint32
		Format        uint32
		Flags         uint32
		Handles       [4]uint32
		Pitches       [4]uint32
		Offsets       [4]uint32
		Modifiers     [4]uint64
	}
)

var (
	// DRM_IOWR(0xB8, struct drm_mode_fb_cmd2)
	IOCTLModeAddFB2 = ioctl.IOWR[sysFBCmd2](drm.IOCTLBase, 0xB8)
)

// AddFB2 creates a framebuffer from fb and returns its id.
func AddFB2(file *os.File, fb *FB2) (uint32, error) {
	cmd := &sysFBCmd2{
		width:       fb.Width,
		height:      fb.Height,
		pixelFormat: fb.Format,
		flags:       fb.Flags,
		handles:     fb.Handles,
		pitches:     fb.Pitches,
		offsets:     fb.Offsets,
		modifier:    fb.Modifiers,
	}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLModeAddFB2),
		uintptr(unsafe.Pointer(cmd)))
	if err != nil {
		return 0, fmt.Errorf("MODE_ADDFB2(%s %dx%d): %w",
			FourCCString(fb.Format), fb.Width, fb.Height, err)
	}
	return cmd.fbID, nil
}
