// Package device drives a DRM/KMS card: it discovers connectors, encoders,
// CRTCs and planes, binds connectors to CRTCs and builds one display per
// bound connector.
package device

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/multierr"

	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/internal/logger"
)

// Options configure a Device.
type Options struct {
	Path       string // device node, eg.: /dev/dri/card0
	TakeMaster bool

	// Card replaces the device node, used by tests.
	Card Card

	// NewGfx builds the blit back end of each display. A nil Gfx means
	// layers are composed by the client.
	NewGfx func() (hdi.Gfx, error)

	// Allocator provides the first frame pushed by each display.
	Allocator       hdi.Allocator
	FirstFrame      bool
	FirstFrameColor uint32 // ARGB

	VsyncBackoff time.Duration
}

// Device owns the card fd and its resource graph.
type Device struct {
	ctx  *hdi.Context
	opts Options

	openOnce sync.Once
	openErr  error
	card     Card

	crtcs      []*Crtc // by pipe
	encoders   map[uint32]*Encoder
	connectors []*Connector
	planes     []*Plane
	displays   map[uint32]*Display

	gemRefs *xsync.MapOf[uint32, int]

	vsyncOnce sync.Once
	vsync     *VsyncWorker
}

func New(ctx *hdi.Context, opts Options) *Device {
	return &Device{
		ctx:      ctx,
		opts:     opts,
		encoders: make(map[uint32]*Encoder),
		displays: make(map[uint32]*Display),
		gemRefs:  xsync.NewMapOf[uint32, int](),
	}
}

// Create opens the card. Only the first call opens it; later calls return
// the outcome of that first call.
func (d *Device) Create() error {
	d.openOnce.Do(func() {
		if d.opts.Card != nil {
			d.card = d.opts.Card
			return
		}
		d.card, d.openErr = OpenCard(d.opts.Path)
	})
	return d.openErr
}

// Init enables universal planes and atomic modesetting, then takes master.
func (d *Device) Init() error {
	if d.card == nil {
		return fmt.Errorf("device not created: %w", hdi.ErrFd)
	}
	if err := d.card.SetClientCap(drm.ClientCapUniversalPlanes, 1); err != nil {
		return fmt.Errorf("universal planes: %w", err)
	}
	if err := d.card.SetClientCap(drm.ClientCapAtomic, 1); err != nil {
		return fmt.Errorf("atomic: %w", err)
	}
	if d.opts.TakeMaster {
		if err := d.card.SetMaster(); err != nil {
			return fmt.Errorf("take master: %w", err)
		}
	}
	return nil
}

// Card returns the kernel interface, nil before Create.
func (d *Device) Card() Card { return d.card }

func (d *Device) Context() *hdi.Context { return d.ctx }

// DiscoveryDisplay enumerates the card and builds a display for every
// connector that can be bound to a CRTC. Objects missing a required
// property are dropped; connectors that can't be bound are reported as
// BindErrors. Displays from a previous discovery are closed first.
func (d *Device) DiscoveryDisplay() ([]*Display, []*BindError, error) {
	if err := d.closeDisplays(); err != nil {
		logger.Warn("close displays before discovery", "err", err)
	}
	d.crtcs = nil
	d.connectors = nil
	d.planes = nil
	clear(d.encoders)

	res, err := d.card.GetResources()
	if err != nil {
		return nil, nil, err
	}

	for pipe, id := range res.Crtcs {
		c, err := d.card.GetCrtc(id)
		if err != nil {
			logger.Warn("drop crtc", "crtc", id, "err", err)
			continue
		}
		crtc, err := newCrtc(d.card, c, uint32(pipe))
		if err != nil {
			logger.Warn("drop crtc", "crtc", id, "err", err)
			continue
		}
		d.crtcs = append(d.crtcs, crtc)
	}

	for _, id := range res.Encoders {
		e, err := d.card.GetEncoder(id)
		if err != nil {
			logger.Warn("drop encoder", "encoder", id, "err", err)
			continue
		}
		d.encoders[id] = newEncoder(e)
	}

	for _, id := range res.Connectors {
		c, err := d.card.GetConnector(id)
		if err != nil {
			logger.Warn("drop connector", "connector", id, "err", err)
			continue
		}
		conn, err := newConnector(d.card, c)
		if err != nil {
			logger.Warn("drop connector", "connector", id, "err", err)
			continue
		}
		d.connectors = append(d.connectors, conn)
	}

	planeIDs, err := d.card.GetPlaneResources()
	if err != nil {
		return nil, nil, err
	}
	for _, id := range planeIDs {
		p, err := d.card.GetPlane(id)
		if err != nil {
			logger.Warn("drop plane", "plane", id, "err", err)
			continue
		}
		plane, err := newPlane(d.card, p)
		if err != nil {
			logger.Warn("drop plane", "plane", id, "err", err)
			continue
		}
		d.planes = append(d.planes, plane)
	}

	var (
		displays []*Display
		failed   []*BindError
	)
	for _, conn := range d.connectors {
		disp, berr := d.bind(conn)
		if berr != nil {
			failed = append(failed, berr)
			continue
		}
		displays = append(displays, disp)
	}
	return displays, failed, nil
}

// bind picks an idle CRTC for conn and brings up a display on it.
func (d *Device) bind(conn *Connector) (*Display, *BindError) {
	crtcID, err := conn.PickIdleCrtcID(d.encoders, d.crtcs)
	if err != nil {
		logger.Warn("connector not bound", "connector", conn.Name(), "err", err)
		return nil, &BindError{ConnectorID: conn.id, Reason: err}
	}
	disp := newDisplay(d, conn, d.crtc(crtcID))
	if err := disp.Init(); err != nil {
		logger.Warn("display init", "connector", conn.Name(), "err", err)
		if cerr := disp.Close(); cerr != nil {
			logger.Warn("display close", "connector", conn.Name(), "err", cerr)
		}
		return nil, &BindError{ConnectorID: conn.id, Reason: err}
	}
	logger.Info("display discovered", "display", disp.ID(),
		"connector", conn.Name(), "crtc", crtcID, "pipe", disp.crtc.pipe)
	d.displays[disp.ID()] = disp
	return disp, nil
}

func (d *Device) crtc(id uint32) *Crtc {
	for _, c := range d.crtcs {
		if c.id == id {
			return c
		}
	}
	return nil
}

// Displays returns the discovered displays ordered by id.
func (d *Device) Displays() []*Display {
	ret := make([]*Display, 0, len(d.displays))
	for _, disp := range d.displays {
		ret = append(ret, disp)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].ID() < ret[j].ID()
	})
	return ret
}

func (d *Device) Display(id uint32) (*Display, error) {
	disp, ok := d.displays[id]
	if !ok {
		return nil, fmt.Errorf("display %d: %w", id, hdi.ErrParam)
	}
	return disp, nil
}

func (d *Device) Connectors() []*Connector { return d.connectors }

func (d *Device) Crtcs() []*Crtc { return d.crtcs }

func (d *Device) Planes() []*Plane { return d.planes }

// GetDrmPlane reserves for pipe every idle plane of type typ the pipe can
// use. Reserved planes are unavailable to other pipes until released.
func (d *Device) GetDrmPlane(pipe, typ uint32) []*Plane {
	var ret []*Plane
	for _, p := range d.planes {
		if p.idle() && p.typ == typ && p.possibleCrtcs&(1<<pipe) != 0 {
			p.bindToPipe(pipe)
			ret = append(ret, p)
		}
	}
	return ret
}

func releasePlanes(planes []*Plane) {
	for _, p := range planes {
		p.unbindPipe()
	}
}

// vsyncWorker starts the shared worker on first use.
func (d *Device) vsyncWorker() *VsyncWorker {
	d.vsyncOnce.Do(func() {
		d.vsync = NewVsyncWorker(d.card, d.opts.VsyncBackoff)
	})
	return d.vsync
}

func (d *Device) closeDisplays() error {
	var err error
	for id, disp := range d.displays {
		err = multierr.Append(err, disp.Close())
		delete(d.displays, id)
	}
	return err
}

// Close tears down every display, the vsync worker and the card.
func (d *Device) Close() error {
	err := d.closeDisplays()
	if d.vsync != nil {
		d.vsync.Close()
	}
	if d.card != nil {
		err = multierr.Append(err, d.card.Close())
	}
	return err
}

// UpdateConnectors re-reads every connector and returns those whose
// connection state changed. A connector that turns connected without a
// display gets one bound to it; if that fails its BindError is returned
// with the others.
func (d *Device) UpdateConnectors() ([]*Connector, []*BindError, error) {
	var (
		changed []*Connector
		failed  []*BindError
		err     error
	)
	for _, c := range d.connectors {
		was := c.IsConnected()
		if uerr := c.UpdateModes(d.card); uerr != nil {
			err = multierr.Append(err, uerr)
			continue
		}
		if c.IsConnected() == was {
			continue
		}
		changed = append(changed, c)
		if !c.IsConnected() {
			continue
		}
		if _, ok := d.DisplayOf(c.id); ok {
			continue
		}
		if _, berr := d.bind(c); berr != nil {
			failed = append(failed, berr)
		}
	}
	return changed, failed, err
}

// DisplayOf returns the display driving connector id.
func (d *Device) DisplayOf(connectorID uint32) (*Display, bool) {
	for _, disp := range d.displays {
		if disp.connector.id == connectorID {
			return disp, true
		}
	}
	return nil, false
}
