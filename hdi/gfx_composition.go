package hdi

import (
	"fmt"

	"github.com/NeowayLabs/hdi/internal/logger"
)

// GfxComposition blits device layers into the client buffer. Without a
// Gfx back end every layer keeps the type the client requested.
type GfxComposition struct {
	gfx    Gfx
	layers []*Layer
	client *Layer
}

func NewGfxComposition(gfx Gfx) *GfxComposition {
	return &GfxComposition{gfx: gfx}
}

func (g *GfxComposition) Init() error {
	if g.gfx == nil {
		logger.Info("no blit back end, layers are composed by the client")
		return nil
	}
	if err := g.gfx.InitGfx(); err != nil {
		return fmt.Errorf("init gfx: %w", err)
	}
	return nil
}

func (g *GfxComposition) SetLayers(layers []*Layer, client *Layer) error {
	g.client = client
	g.layers = g.layers[:0]
	for _, l := range layers {
		typ := l.CompositionType()
		if g.gfx == nil {
			l.SetDeviceSelect(typ)
			continue
		}
		if typ != CompositionVideo && typ != CompositionCursor {
			l.SetDeviceSelect(CompositionDevice)
		} else {
			l.SetDeviceSelect(typ)
		}
		g.layers = append(g.layers, l)
	}
	return nil
}

func (g *GfxComposition) Apply(modeSet bool) error {
	if g.gfx == nil || len(g.layers) == 0 {
		return nil
	}
	if g.client == nil || g.client.CurrentBuffer() == nil {
		return fmt.Errorf("no client buffer to compose into: %w", ErrNullPtr)
	}
	dst := SurfaceFromBuffer(g.client.CurrentBuffer().Handle())

	for _, l := range g.layers {
		var err error
		switch l.CompositionType() {
		case CompositionVideo:
			err = g.clearRect(l, dst)
		case CompositionDevice:
			err = g.blitLayer(l, dst)
		}
		if err != nil {
			return fmt.Errorf("layer %d: %w", l.ID(), err)
		}
	}
	return nil
}

// clearRect punches a transparent hole where the video plane shows.
func (g *GfxComposition) clearRect(l *Layer, dst *Surface) error {
	rect := l.LayerSize()
	return g.gfx.FillRect(dst, &rect, 0, &GfxOpt{BlendType: BlendSrc})
}

func (g *GfxComposition) blitLayer(l *Layer, dst *Surface) error {
	buf := l.CurrentBuffer()
	if buf == nil {
		logger.Debug("device layer without buffer", "layer", l.ID())
		return nil
	}
	src := SurfaceFromBuffer(buf.Handle())

	alpha := l.Alpha()
	if !alpha.EnGlobalAlpha {
		alpha.GAlpha = 0
	}
	src.EnAlpha = alpha.EnPixelAlpha
	src.Alpha0 = alpha.Alpha0
	src.Alpha1 = alpha.Alpha1

	srcRect := l.LayerCrop()
	dstRect := l.LayerSize()
	opt := &GfxOpt{
		EnGlobalAlpha: alpha.EnGlobalAlpha,
		GlobalAlpha:   alpha.GAlpha,
		EnPixelAlpha:  alpha.EnPixelAlpha,
		BlendType:     l.BlendType(),
		Rotate:        l.TransformMode(),
		EnableScale:   srcRect.W != dstRect.W || srcRect.H != dstRect.H,
	}
	return g.gfx.Blit(src, &srcRect, dst, &dstRect, opt)
}

func (g *GfxComposition) Close() error {
	g.layers = nil
	g.client = nil
	if g.gfx == nil {
		return nil
	}
	return g.gfx.DeinitGfx()
}
