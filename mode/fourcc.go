package mode

// FourCC builds a DRM pixel format code.
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// FourCCString returns the four characters of a format code, eg.: XR24.
func FourCCString(f uint32) string {
	if f == 0 {
		return "none"
	}
	return string([]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)})
}

// Pixel formats (DRM_FORMAT_*). Names describe the little-endian packed
// order, eg.: XRGB8888 is [31:0] x:R:G:B.
var (
	FormatXRGB8888 = FourCC('X', 'R', '2', '4')
	FormatARGB8888 = FourCC('A', 'R', '2', '4')
	FormatXBGR8888 = FourCC('X', 'B', '2', '4')
	FormatABGR8888 = FourCC('A', 'B', '2', '4')
	FormatRGBX8888 = FourCC('R', 'X', '2', '4')
	FormatRGBA8888 = FourCC('R', 'A', '2', '4')
	FormatBGRX8888 = FourCC('B', 'X', '2', '4')
	FormatBGRA8888 = FourCC('B', 'A', '2', '4')

	FormatRGB888 = FourCC('R', 'G', '2', '4')
	FormatBGR888 = FourCC('B', 'G', '2', '4')
	FormatRGB565 = FourCC('R', 'G', '1', '6')
	FormatBGR565 = FourCC('B', 'G', '1', '6')

	FormatRGBX4444 = FourCC('R', 'X', '1', '2')
	FormatRGBA4444 = FourCC('R', 'A', '1', '2')
	FormatBGRX4444 = FourCC('B', 'X', '1', '2')
	FormatBGRA4444 = FourCC('B', 'A', '1', '2')
	FormatRGBX5551 = FourCC('R', 'X', '1', '5')
	FormatRGBA5551 = FourCC('R', 'A', '1', '5')
	FormatBGRX5551 = FourCC('B', 'X', '1', '5')
	FormatBGRA5551 = FourCC('B', 'A', '1', '5')

	FormatNV12   = FourCC('N', 'V', '1', '2')
	FormatNV21   = FourCC('N', 'V', '2', '1')
	FormatNV16   = FourCC('N', 'V', '1', '6')
	FormatNV61   = FourCC('N', 'V', '6', '1')
	FormatYUV420 = FourCC('Y', 'U', '1', '2')
	FormatYVU420 = FourCC('Y', 'V', '1', '2')
	FormatYUV422 = FourCC('Y', 'U', '1', '6')
	FormatYVU422 = FourCC('Y', 'V', '1', '6')
)
