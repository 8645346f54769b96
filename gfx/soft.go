package gfx

import (
	"fmt"
	"image"
	"image/color"

	"go.uber.org/multierr"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"launchpad.net/gommap"

	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/internal/logger"
)

// Soft blits on the CPU. Surfaces without a CPU mapping are mapped from
// their dma-buf for the duration of one operation.
type Soft struct {
	blits uint64
	fills uint64
}

func NewSoft() *Soft {
	return &Soft{}
}

func (s *Soft) InitGfx() error {
	logger.Debug("soft gfx initialized")
	return nil
}

func (s *Soft) DeinitGfx() error {
	logger.Debug("soft gfx released", "blits", s.blits, "fills", s.fills)
	return nil
}

// surface is a mapped hdi.Surface.
type surface struct {
	img    draw.Image
	mapped gommap.MMap
}

func (m *surface) unmap() error {
	if m.mapped == nil {
		return nil
	}
	err := m.mapped.UnsafeUnmap()
	m.mapped = nil
	return err
}

func mapSurface(s *hdi.Surface) (*surface, error) {
	if s == nil {
		return nil, hdi.ErrNullPtr
	}
	if s.Width <= 0 || s.Height <= 0 || s.Stride <= 0 {
		return nil, fmt.Errorf("surface %dx%d stride %d: %w", s.Width, s.Height, s.Stride, hdi.ErrParam)
	}
	need := int(s.Stride) * int(s.Height)

	m := &surface{}
	pix := s.Virt
	if pix == nil {
		if s.Fd < 0 {
			return nil, fmt.Errorf("surface has no memory: %w", hdi.ErrFd)
		}
		size := int64(s.Size)
		if size < int64(need) {
			size = int64(need)
		}
		mmap, err := gommap.MapAt(0, uintptr(s.Fd), 0, size, gommap.PROT_READ|gommap.PROT_WRITE, gommap.MAP_SHARED)
		if err != nil {
			return nil, fmt.Errorf("mmap surface: %v: %w", err, hdi.ErrNoMem)
		}
		m.mapped = mmap
		pix = mmap
	}
	if len(pix) < need {
		return nil, multierr.Append(
			fmt.Errorf("surface memory %d < %d: %w", len(pix), need, hdi.ErrParam),
			m.unmap(),
		)
	}

	rect := image.Rect(0, 0, int(s.Width), int(s.Height))
	stride := int(s.Stride)
	switch s.Format {
	case hdi.PixelFmtRGBA8888, hdi.PixelFmtRGBX8888:
		m.img = &image.RGBA{Pix: pix, Stride: stride, Rect: rect}
	case hdi.PixelFmtBGRA8888:
		m.img = &BGRA{Pix: pix, Stride: stride, Rect: rect}
	case hdi.PixelFmtBGRX8888:
		m.img = &BGRA{Pix: pix, Stride: stride, Rect: rect, Opaque: true}
	case hdi.PixelFmtBGR565:
		m.img = &RGB565{Pix: pix, Stride: stride, Rect: rect}
	default:
		return nil, multierr.Append(
			fmt.Errorf("pixel format %d: %w", s.Format, hdi.ErrNotSupported),
			m.unmap(),
		)
	}
	return m, nil
}

func toRect(r *hdi.Rect) image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.X+r.W), int(r.Y+r.H))
}

func drawOp(b hdi.BlendType) (draw.Op, error) {
	switch b {
	case hdi.BlendNone, hdi.BlendSrc:
		return draw.Src, nil
	case hdi.BlendSrcOver:
		return draw.Over, nil
	}
	return draw.Src, fmt.Errorf("blend type %d: %w", b, hdi.ErrNotSupported)
}

// Blit draws srcRect of src into dstRect of dst, scaling and rotating as
// opt asks.
func (s *Soft) Blit(src *hdi.Surface, srcRect *hdi.Rect, dst *hdi.Surface, dstRect *hdi.Rect, opt *hdi.GfxOpt) (err error) {
	if srcRect == nil || dstRect == nil || opt == nil {
		return hdi.ErrNullPtr
	}
	if srcRect.Empty() || dstRect.Empty() {
		return fmt.Errorf("empty blit rect: %w", hdi.ErrParam)
	}
	if opt.Rotate < hdi.RotateNone || opt.Rotate >= hdi.RotateButt {
		return fmt.Errorf("transform %d: %w", opt.Rotate, hdi.ErrParam)
	}
	op, err := drawOp(opt.BlendType)
	if err != nil {
		return err
	}

	sm, err := mapSurface(src)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sm.unmap()) }()
	dm, err := mapSurface(dst)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dm.unmap()) }()

	var srcImg image.Image = sm.img
	if !opt.EnPixelAlpha || src.Format == hdi.PixelFmtRGBX8888 {
		srcImg = opaque{srcImg}
	}
	var opts *draw.Options
	if opt.EnGlobalAlpha {
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: opt.GlobalAlpha})}
	}

	// the destination is clipped by the draw calls
	sr, dr := toRect(srcRect), toRect(dstRect)
	if !sr.In(sm.img.Bounds()) {
		return fmt.Errorf("source rect %v outside %v: %w", sr, sm.img.Bounds(), hdi.ErrParam)
	}

	switch {
	case opt.Rotate == hdi.RotateNone && sr.Size() == dr.Size():
		draw.Copy(dm.img, dr.Min, srcImg, sr, op, opts)
	case opt.Rotate == hdi.RotateNone:
		draw.ApproxBiLinear.Scale(dm.img, dr, srcImg, sr, op, opts)
	default:
		draw.NearestNeighbor.Transform(dm.img, srcToDst(opt.Rotate, sr, dr), srcImg, sr, op, opts)
	}
	s.blits++
	return nil
}

// FillRect fills rect of dst with an ARGB color.
func (s *Soft) FillRect(dst *hdi.Surface, rect *hdi.Rect, argb uint32, opt *hdi.GfxOpt) (err error) {
	if rect == nil {
		return hdi.ErrNullPtr
	}
	op := draw.Src
	if opt != nil {
		if op, err = drawOp(opt.BlendType); err != nil {
			return err
		}
	}

	dm, err := mapSurface(dst)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dm.unmap()) }()

	c := color.NRGBA{
		A: uint8(argb >> 24),
		R: uint8(argb >> 16),
		G: uint8(argb >> 8),
		B: uint8(argb),
	}
	draw.Draw(dm.img, toRect(rect).Intersect(dm.img.Bounds()), image.NewUniform(c), image.Point{}, op)
	s.fills++
	return nil
}

// orientation maps the unit square of the source onto the unit square of
// the destination: x = m[0]*u + m[1]*v + m[2], y = m[3]*u + m[4]*v + m[5].
// Rotations are clockwise.
var orientation = map[hdi.TransformType]f64.Aff3{
	hdi.RotateNone:      {1, 0, 0, 0, 1, 0},
	hdi.Rotate90:        {0, -1, 1, 1, 0, 0},
	hdi.Rotate180:       {-1, 0, 1, 0, -1, 1},
	hdi.Rotate270:       {0, 1, 0, -1, 0, 1},
	hdi.MirrorH:         {-1, 0, 1, 0, 1, 0},
	hdi.MirrorV:         {1, 0, 0, 0, -1, 1},
	hdi.MirrorHRotate90: {0, -1, 1, -1, 0, 1},
	hdi.MirrorVRotate90: {0, 1, 0, 1, 0, 0},
}

// srcToDst builds the source to destination transform of a blit from sr
// onto dr with orientation t.
func srcToDst(t hdi.TransformType, sr, dr image.Rectangle) f64.Aff3 {
	m := orientation[t]
	sw, sh := float64(sr.Dx()), float64(sr.Dy())
	dw, dh := float64(dr.Dx()), float64(dr.Dy())
	sx, sy := float64(sr.Min.X), float64(sr.Min.Y)

	a, b := dw*m[0]/sw, dw*m[1]/sh
	d, e := dh*m[3]/sw, dh*m[4]/sh
	return f64.Aff3{
		a, b, float64(dr.Min.X) + dw*m[2] - a*sx - b*sy,
		d, e, float64(dr.Min.Y) + dh*m[5] - d*sx - e*sy,
	}
}
