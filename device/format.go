package device

import (
	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/mode"
)

var drmFormats = map[hdi.PixelFormat]uint32{
	hdi.PixelFmtRGBX8888: mode.FormatXBGR8888,
	hdi.PixelFmtRGBA8888: mode.FormatABGR8888,
	hdi.PixelFmtRGB888:   mode.FormatRGB888,
	hdi.PixelFmtBGR565:   mode.FormatRGB565,
	hdi.PixelFmtRGBX4444: mode.FormatRGBX4444,
	hdi.PixelFmtRGBA4444: mode.FormatRGBA4444,
	hdi.PixelFmtBGRX4444: mode.FormatBGRX4444,
	hdi.PixelFmtBGRA4444: mode.FormatBGRA4444,
	hdi.PixelFmtRGBX5551: mode.FormatRGBX5551,
	hdi.PixelFmtRGBA5551: mode.FormatRGBA5551,
	hdi.PixelFmtBGRX5551: mode.FormatBGRX5551,
	hdi.PixelFmtBGRA5551: mode.FormatBGRA5551,
	hdi.PixelFmtBGRX8888: mode.FormatXRGB8888,
	hdi.PixelFmtBGRA8888: mode.FormatARGB8888,

	hdi.PixelFmtYCbCr420SP: mode.FormatNV12,
	hdi.PixelFmtYCrCb420SP: mode.FormatNV21,
	hdi.PixelFmtYCbCr420P:  mode.FormatYUV420,
	hdi.PixelFmtYCrCb420P:  mode.FormatYVU420,
	hdi.PixelFmtYCbCr422SP: mode.FormatNV16,
	hdi.PixelFmtYCrCb422SP: mode.FormatNV61,
	hdi.PixelFmtYCbCr422P:  mode.FormatYUV422,
	hdi.PixelFmtYCrCb422P:  mode.FormatYVU422,
}

// ConvertToDrmFormat returns the fourcc of f, 0 when the format can't be
// scanned out.
func ConvertToDrmFormat(f hdi.PixelFormat) uint32 {
	return drmFormats[f]
}

// planeLayout fills the per-plane pitches and offsets of a buffer with the
// given luma stride. All planes share one GEM handle.
func planeLayout(fourcc uint32, handle uint32, stride, height uint32, fb *mode.FB2) {
	fb.Handles[0] = handle
	fb.Pitches[0] = stride
	luma := stride * height

	switch fourcc {
	case mode.FormatNV12, mode.FormatNV21, mode.FormatNV16, mode.FormatNV61:
		fb.Handles[1] = handle
		fb.Pitches[1] = stride
		fb.Offsets[1] = luma
	case mode.FormatYUV420, mode.FormatYVU420:
		fb.Handles[1], fb.Handles[2] = handle, handle
		fb.Pitches[1], fb.Pitches[2] = stride/2, stride/2
		fb.Offsets[1] = luma
		fb.Offsets[2] = luma + stride/2*height/2
	case mode.FormatYUV422, mode.FormatYVU422:
		fb.Handles[1], fb.Handles[2] = handle, handle
		fb.Pitches[1], fb.Pitches[2] = stride/2, stride/2
		fb.Offsets[1] = luma
		fb.Offsets[2] = luma + stride/2*height
	}
}
