package device

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/internal/logger"
	"github.com/NeowayLabs/hdi/mode"
)

// GemBuffer imports a dma-buf and wraps it in a framebuffer. It owns one
// reference on the GEM handle and the framebuffer id.
type GemBuffer struct {
	dev    *Device
	handle uint32
	fbID   uint32
	format uint32
}

// NewGemBuffer imports h into the device.
func NewGemBuffer(dev *Device, h *hdi.BufferHandle) (*GemBuffer, error) {
	if h == nil {
		return nil, hdi.ErrNullPtr
	}
	format := ConvertToDrmFormat(h.Format)
	if format == 0 {
		return nil, fmt.Errorf("pixel format %d: %w", h.Format, hdi.ErrNotSupported)
	}

	handle, err := dev.importGem(h.Fd)
	if err != nil {
		return nil, err
	}

	fb := &mode.FB2{
		Width:  uint32(h.Width),
		Height: uint32(h.Height),
		Format: format,
	}
	planeLayout(format, handle, uint32(h.Stride), uint32(h.Height), fb)
	fbID, err := dev.card.AddFB2(fb)
	if err != nil {
		return nil, multierr.Append(err, dev.releaseGem(handle))
	}

	return &GemBuffer{
		dev:    dev,
		handle: handle,
		fbID:   fbID,
		format: format,
	}, nil
}

func (g *GemBuffer) FbID() uint32 { return g.fbID }

func (g *GemBuffer) Handle() uint32 { return g.handle }

func (g *GemBuffer) Format() uint32 { return g.format }

// Close removes the framebuffer and drops the handle reference.
func (g *GemBuffer) Close() error {
	if g == nil || g.fbID == 0 {
		return nil
	}
	err := multierr.Append(
		g.dev.card.RmFB(g.fbID),
		g.dev.releaseGem(g.handle),
	)
	g.fbID = 0
	g.handle = 0
	return err
}

// importGem turns a dma-buf into a GEM handle. The kernel returns the same
// handle for every import of one buffer, so handles are reference counted.
func (d *Device) importGem(fd int) (uint32, error) {
	handle, err := d.card.PrimeFDToHandle(fd)
	if err != nil {
		return 0, err
	}
	d.gemRefs.Compute(handle, func(refs int, loaded bool) (int, bool) {
		return refs + 1, false
	})
	return handle, nil
}

// releaseGem closes the handle once its last reference is gone.
func (d *Device) releaseGem(handle uint32) error {
	last := false
	d.gemRefs.Compute(handle, func(refs int, loaded bool) (int, bool) {
		if refs <= 1 {
			last = true
			return 0, true
		}
		return refs - 1, false
	})
	if !last {
		return nil
	}
	return d.card.GemClose(handle)
}

// DrmLayer is the DRM state of a layer: the framebuffer being scanned out
// and the previous one, kept until the next flip completes. A buffer
// imported for a frame stays pending until that frame's commit lands.
type DrmLayer struct {
	dev     *Device
	layer   *hdi.Layer
	pending *GemBuffer
	current *GemBuffer
	last    *GemBuffer
}

// drmLayerOf returns the DRM state attached to l, creating it on first use.
func drmLayerOf(dev *Device, l *hdi.Layer) *DrmLayer {
	if dl, ok := l.Backing().(*DrmLayer); ok {
		return dl
	}
	dl := &DrmLayer{dev: dev, layer: l}
	l.SetBacking(dl)
	return dl
}

// GemBuffer imports the layer's current buffer as the pending frame.
// The ring is left alone until Flip.
func (d *DrmLayer) GemBuffer() (*GemBuffer, error) {
	buf := d.layer.CurrentBuffer()
	if buf == nil {
		return nil, fmt.Errorf("layer %d has no buffer: %w", d.layer.ID(), hdi.ErrNullPtr)
	}
	gem, err := NewGemBuffer(d.dev, buf.Handle())
	if err != nil {
		return nil, err
	}
	d.Abort()
	d.pending = gem
	return gem, nil
}

// Flip makes the pending framebuffer current once the commit scanning it
// out succeeded, and frees the one before the previous.
func (d *DrmLayer) Flip() {
	if d.pending == nil {
		return
	}
	if err := d.last.Close(); err != nil {
		logger.Warn("release framebuffer", "layer", d.layer.ID(), "err", err)
	}
	d.last = d.current
	d.current = d.pending
	d.pending = nil
}

// Abort drops the pending framebuffer of a frame that was not committed.
func (d *DrmLayer) Abort() {
	if err := d.pending.Close(); err != nil {
		logger.Warn("release pending framebuffer", "layer", d.layer.ID(), "err", err)
	}
	d.pending = nil
}

func (d *DrmLayer) Close() error {
	err := multierr.Combine(d.pending.Close(), d.current.Close(), d.last.Close())
	d.pending, d.current, d.last = nil, nil, nil
	return err
}
