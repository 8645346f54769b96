package device

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/internal/logger"
	"github.com/NeowayLabs/hdi/mode"
)

// DrmComposition scans out the client layer with one atomic commit per
// frame.
type DrmComposition struct {
	dev       *Device
	connector *Connector
	crtc      *Crtc

	primary []*Plane
	overlay []*Plane
	layers  []*hdi.Layer
}

func NewDrmComposition(dev *Device, connector *Connector, crtc *Crtc) *DrmComposition {
	return &DrmComposition{
		dev:       dev,
		connector: connector,
		crtc:      crtc,
	}
}

// Init reserves the primary and overlay planes of the CRTC pipe.
func (c *DrmComposition) Init() error {
	c.primary = c.dev.GetDrmPlane(c.crtc.pipe, mode.PlaneTypePrimary)
	c.overlay = c.dev.GetDrmPlane(c.crtc.pipe, mode.PlaneTypeOverlay)
	if len(c.primary) == 0 {
		releasePlanes(c.overlay)
		c.overlay = nil
		return fmt.Errorf("pipe %d has no primary plane: %w", c.crtc.pipe, hdi.ErrNotSupported)
	}
	return nil
}

// planes returns the reserved planes, primary first.
func (c *DrmComposition) planes() []*Plane {
	ret := make([]*Plane, 0, len(c.primary)+len(c.overlay))
	ret = append(ret, c.primary...)
	return append(ret, c.overlay...)
}

// SetLayers queues the client layer only: device layers were composed into
// it by the pre composition.
func (c *DrmComposition) SetLayers(layers []*hdi.Layer, client *hdi.Layer) error {
	c.layers = c.layers[:0]
	if client == nil {
		return hdi.ErrNullPtr
	}
	c.layers = append(c.layers, client)
	return nil
}

func (c *DrmComposition) Apply(modeSet bool) (err error) {
	card := c.dev.card
	planes := c.planes()
	if len(c.layers) > len(planes) {
		return fmt.Errorf("%d layers queued, %d planes: %w", len(c.layers), len(planes), hdi.ErrFailure)
	}

	req := mode.NewAtomicReq()
	req.AddOutFence(c.crtc.id, c.crtc.outFenceProp)

	// the on-screen framebuffers move only once the commit landed
	staged := make([]*DrmLayer, 0, len(c.layers))
	defer func() {
		for _, dl := range staged {
			if err != nil {
				dl.Abort()
			} else {
				dl.Flip()
			}
		}
	}()

	for i, l := range c.layers {
		p := planes[i]
		if fence := l.AcquireFenceFd(); fence >= 0 {
			req.AddProperty(p.id, p.inFenceProp, uint64(fence))
		}
		dl := drmLayerOf(c.dev, l)
		gem, err := dl.GemBuffer()
		if err != nil {
			return fmt.Errorf("layer %d: %w", l.ID(), err)
		}
		staged = append(staged, dl)
		req.AddProperty(p.id, p.fbProp, uint64(gem.FbID()))
		req.AddProperty(p.id, p.crtcProp, uint64(c.crtc.id))
		if err := c.setGeometry(req, p, l); err != nil {
			return err
		}
	}

	if modeSet || c.crtc.NeedModeSet() {
		block, err := c.connector.ModeBlock(card, c.crtc.activeModeID)
		if err != nil {
			return fmt.Errorf("mode %d: %w", c.crtc.activeModeID, err)
		}
		defer func() {
			if err := block.Close(); err != nil {
				logger.Warn("destroy mode blob", "crtc", c.crtc.id, "err", err)
			}
		}()
		req.AddProperty(c.crtc.id, c.crtc.modeProp, uint64(block.ID()))
		req.AddProperty(c.crtc.id, c.crtc.activeProp, 1)
		req.AddProperty(c.connector.id, c.connector.crtcProp, uint64(c.crtc.id))
	}

	if err := card.AtomicCommit(req, mode.AtomicAllowModeset); err != nil {
		logger.Error("atomic commit", "crtc", c.crtc.id, "err", err)
		return err
	}
	c.crtc.needModeSet = false

	outFence := hdi.AdoptFd(req.OutFence())
	defer outFence.Close()

	var ferr error
	for _, l := range c.layers {
		fd, derr := outFence.Dup()
		if derr != nil {
			ferr = multierr.Append(ferr, derr)
			continue
		}
		ferr = multierr.Append(ferr, l.SetReleaseFence(fd))
	}
	if ferr != nil {
		// the frame is on screen; a missing release fence doesn't undo it
		logger.Warn("distribute release fence", "crtc", c.crtc.id, "err", ferr)
	}
	return nil
}

// setGeometry scans the layer out full screen on planes exposing their
// source and destination rectangles.
func (c *DrmComposition) setGeometry(req *mode.AtomicReq, p *Plane, l *hdi.Layer) error {
	if !p.hasGeometry() {
		return nil
	}
	m, err := c.connector.GetModeFromID(c.crtc.activeModeID)
	if err != nil {
		return err
	}
	buf := l.CurrentBuffer().Handle()
	req.AddProperty(p.id, p.srcX, 0)
	req.AddProperty(p.id, p.srcY, 0)
	req.AddProperty(p.id, p.srcW, uint64(buf.Width)<<16)
	req.AddProperty(p.id, p.srcH, uint64(buf.Height)<<16)
	req.AddProperty(p.id, p.crtcX, 0)
	req.AddProperty(p.id, p.crtcY, 0)
	req.AddProperty(p.id, p.crtcW, uint64(m.Info.Hdisplay))
	req.AddProperty(p.id, p.crtcH, uint64(m.Info.Vdisplay))
	return nil
}

// Close releases the reserved planes.
func (c *DrmComposition) Close() error {
	releasePlanes(c.primary)
	releasePlanes(c.overlay)
	c.primary, c.overlay, c.layers = nil, nil, nil
	return nil
}

// SupportLayers is the number of planes reserved for the display.
func (c *DrmComposition) SupportLayers() int {
	return len(c.primary) + len(c.overlay)
}
