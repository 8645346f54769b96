package gfx

import (
	"image"
	"image/color"
)

// BGRA is a 32 bit image stored B, G, R, A in memory, the layout of
// DRM_FORMAT_ARGB8888 on little endian machines. Colors are premultiplied
// like image.RGBA. An Opaque image ignores the stored alpha.
type BGRA struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
	Opaque bool
}

func (p *BGRA) Bounds() image.Rectangle { return p.Rect }
func (p *BGRA) ColorModel() color.Model { return color.RGBAModel }
func (p *BGRA) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*4
}

func (p *BGRA) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	a := p.Pix[i+3]
	if p.Opaque {
		a = 0xff
	}
	return color.RGBA{p.Pix[i+2], p.Pix[i+1], p.Pix[i+0], a}
}

func (p *BGRA) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	c1 := color.RGBAModel.Convert(c).(color.RGBA)
	p.Pix[i+0] = c1.B
	p.Pix[i+1] = c1.G
	p.Pix[i+2] = c1.R
	p.Pix[i+3] = c1.A
	if p.Opaque {
		p.Pix[i+3] = 0xff
	}
}

// RGB565 is DRM_FORMAT_RGB565: little endian, red in the high bits.
type RGB565 struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

func (p *RGB565) Bounds() image.Rectangle { return p.Rect }
func (p *RGB565) ColorModel() color.Model { return color.NRGBAModel }
func (p *RGB565) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}

func (p *RGB565) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	c1 := color.NRGBAModel.Convert(c).(color.NRGBA)
	p.Pix[i+0] = (c1.B >> 3) | ((c1.G >> 2) << 5)
	p.Pix[i+1] = (c1.G >> 5) | ((c1.R >> 3) << 3)
}

func (p *RGB565) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.NRGBA{}
	}
	i := p.PixOffset(x, y)
	lo, hi := p.Pix[i+0], p.Pix[i+1]
	r := hi >> 3
	g := (hi&0x07)<<3 | lo>>5
	b := lo & 0x1f
	return color.NRGBA{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2, 0xff}
}

// opaque hides the alpha channel of its image.
type opaque struct {
	image.Image
}

func (o opaque) At(x, y int) color.Color {
	c := color.RGBAModel.Convert(o.Image.At(x, y)).(color.RGBA)
	c.A = 0xff
	return c
}
