// Package hdi is the display and layer model of the composer: displays own
// a z-ordered set of layers and run them through a two-stage composer.
package hdi

// PixelFormat of a buffer.
type PixelFormat int32

const (
	PixelFmtCLUT8 PixelFormat = iota
	PixelFmtCLUT1
	PixelFmtCLUT4
	PixelFmtRGB565
	PixelFmtRGBA5658
	PixelFmtRGBX4444
	PixelFmtRGBA4444
	PixelFmtRGB444
	PixelFmtRGBX5551
	PixelFmtRGBA5551
	PixelFmtRGB555
	PixelFmtRGBX8888
	PixelFmtRGBA8888
	PixelFmtRGB888
	PixelFmtBGR565
	PixelFmtBGRX4444
	PixelFmtBGRA4444
	PixelFmtBGRX5551
	PixelFmtBGRA5551
	PixelFmtBGRX8888
	PixelFmtBGRA8888
	PixelFmtYUV422I
	PixelFmtYCbCr422SP
	PixelFmtYCrCb422SP
	PixelFmtYCbCr420SP
	PixelFmtYCrCb420SP
	PixelFmtYCbCr422P
	PixelFmtYCrCb422P
	PixelFmtYCbCr420P
	PixelFmtYCrCb420P
	PixelFmtYUYV422Pkg
	PixelFmtUYVY422Pkg
	PixelFmtYVYU422Pkg
	PixelFmtVYUY422Pkg

	PixelFmtVendorMask PixelFormat = 0x7fff0000
	PixelFmtButt       PixelFormat = 0x7fffffff
)

// BytesPerPixel of the packed RGB formats, 0 for the others.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFmtRGBX8888, PixelFmtRGBA8888, PixelFmtBGRX8888, PixelFmtBGRA8888:
		return 4
	case PixelFmtRGB888:
		return 3
	case PixelFmtRGB565, PixelFmtBGR565, PixelFmtRGBX4444, PixelFmtRGBA4444,
		PixelFmtBGRX4444, PixelFmtBGRA4444, PixelFmtRGBX5551, PixelFmtRGBA5551,
		PixelFmtBGRX5551, PixelFmtBGRA5551, PixelFmtRGB444, PixelFmtRGB555:
		return 2
	}
	return 0
}

// CompositionType says who composes a layer.
type CompositionType int32

const (
	CompositionClient CompositionType = iota
	CompositionDevice
	CompositionCursor
	CompositionVideo
	CompositionDeviceClear
	CompositionClientClear
	CompositionTunnel
	CompositionButt
)

var compositionNames = [...]string{
	"client", "device", "cursor", "video", "device-clear", "client-clear", "tunnel",
}

func (c CompositionType) String() string {
	if c >= 0 && int(c) < len(compositionNames) {
		return compositionNames[c]
	}
	return "invalid"
}

type BlendType int32

const (
	BlendNone BlendType = iota
	BlendClear
	BlendSrc
	BlendSrcOver
	BlendDstOver
	BlendSrcIn
	BlendDstIn
	BlendSrcOut
	BlendDstOut
	BlendSrcAtop
	BlendDstAtop
	BlendAdd
	BlendXor
	BlendDst
	BlendAKS
	BlendAKD
	BlendButt
)

type TransformType int32

const (
	RotateNone TransformType = iota
	Rotate90
	Rotate180
	Rotate270
	MirrorH
	MirrorV
	MirrorHRotate90
	MirrorVRotate90
	RotateButt
)

type LayerType int32

const (
	LayerTypeGraphic LayerType = iota
	LayerTypeOverlay
	LayerTypeSideband
	LayerTypeCursor
	LayerTypeButt
)

type DispPowerStatus int32

const (
	PowerStatusOn DispPowerStatus = iota
	PowerStatusStandby
	PowerStatusSuspend
	PowerStatusOff
	PowerStatusButt
)

var powerNames = [...]string{"on", "standby", "suspend", "off"}

func (p DispPowerStatus) String() string {
	if p >= 0 && int(p) < len(powerNames) {
		return powerNames[p]
	}
	return "invalid"
}

// ParsePowerStatus is the inverse of DispPowerStatus.String.
func ParsePowerStatus(s string) (DispPowerStatus, error) {
	for i, n := range powerNames {
		if n == s {
			return DispPowerStatus(i), nil
		}
	}
	return PowerStatusButt, ErrParam
}

type InterfaceType int32

const (
	DispIntfHDMI InterfaceType = iota
	DispIntfLCD
	DispIntfBT1120
	DispIntfBT656
	DispIntfYPBPR
	DispIntfRGB
	DispIntfCVBS
	DispIntfSVIDEO
	DispIntfVGA
	DispIntfMIPI
	DispIntfPanel
	DispIntfButt
)

// Buffer usage bits.
const (
	UsageCPURead    = 1 << 0
	UsageCPUWrite   = 1 << 1
	UsageMemMMZ     = 1 << 2
	UsageMemDMA     = 1 << 3
	UsageMemShare   = 1 << 4
	UsageMemMMZCach = 1 << 5
	UsageMemFB      = 1 << 6
	UsageAssignSize = 1 << 7
)

// Rect in display coordinates.
type Rect struct {
	X, Y int32
	W, H int32
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

type (
	PropertyObject struct {
		Name   string
		PropID uint32
		Value  uint64
	}

	DisplayCapability struct {
		Name             string
		Type             InterfaceType
		PhyWidth         uint32 // millimeters
		PhyHeight        uint32
		SupportLayers    uint32
		VirtualDispCount uint32
		SupportWriteBack bool
		Props            []PropertyObject
	}

	DisplayModeInfo struct {
		Width, Height int32
		FreshRate     uint32
		ID            int32
	}

	LayerInfo struct {
		Width, Height int32
		Type          LayerType
		BPP           int32
		PixFormat     PixelFormat
	}

	LayerAlpha struct {
		EnGlobalAlpha bool
		EnPixelAlpha  bool
		Alpha0        uint8
		Alpha1        uint8
		GAlpha        uint8
	}

	// BufferHandle describes a buffer shared as a dma-buf fd.
	BufferHandle struct {
		Fd     int
		Width  int32
		Stride int32 // bytes
		Height int32
		Size   int32
		Format PixelFormat
		Usage  uint64
		Virt   []byte // CPU mapping, nil when unmapped
		Phy    uint64
	}

	AllocInfo struct {
		Width, Height uint32
		Usage         uint64
		Format        PixelFormat
		ExpectedSize  uint32
	}

	// VBlankCallback receives the vblank sequence and its timestamp in
	// nanoseconds.
	VBlankCallback func(sequence uint32, ns uint64)

	// HotPlugCallback is invoked with a display id and its connection state.
	HotPlugCallback func(devID uint32, connected bool)
)
