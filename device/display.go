package device

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/multierr"

	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/internal/logger"
	"github.com/NeowayLabs/hdi/mode"
)

// Display is a connector driven by a CRTC.
type Display struct {
	*hdi.Display

	dev       *Device
	connector *Connector
	crtc      *Crtc
	post      *DrmComposition
	bound     bool
}

func newDisplay(dev *Device, connector *Connector, crtc *Crtc) *Display {
	return &Display{
		Display:   hdi.NewDisplay(dev.ctx),
		dev:       dev,
		connector: connector,
		crtc:      crtc,
	}
}

// Init binds the CRTC, selects the preferred mode, builds the composer and
// pushes the first frame.
func (d *Display) Init() error {
	if err := d.Display.Init(); err != nil {
		return err
	}
	if err := d.crtc.BindToDisplay(d.ID()); err != nil {
		return err
	}
	d.bound = true

	modeID := d.connector.GetPreferenceID()
	if modeID < 0 {
		if len(d.connector.modes) == 0 {
			return ErrNoMode
		}
		logger.Warn("no preferred mode, using the first one", "connector", d.connector.Name())
		modeID = 0
	}
	d.crtc.SetActiveMode(modeID)

	var gfx hdi.Gfx
	if d.dev.opts.NewGfx != nil {
		var err error
		if gfx, err = d.dev.opts.NewGfx(); err != nil {
			return fmt.Errorf("gfx: %w", err)
		}
	}
	d.post = NewDrmComposition(d.dev, d.connector, d.crtc)
	composer, err := hdi.NewComposer(hdi.NewGfxComposition(gfx), d.post)
	if err != nil {
		d.post = nil
		return err
	}
	d.SetComposer(composer)

	if d.dev.opts.FirstFrame && d.dev.opts.Allocator != nil {
		if err := d.PushFirstFrame(d.dev.opts.FirstFrameColor); err != nil {
			logger.Warn("first frame", "display", d.ID(), "err", err)
		}
	}
	return nil
}

// PushFirstFrame allocates a buffer the size of the active mode, fills it
// with color (ARGB) and commits it, performing the initial mode set.
func (d *Display) PushFirstFrame(color uint32) error {
	alloc := d.dev.opts.Allocator
	if alloc == nil {
		return hdi.ErrNotSupported
	}
	m, err := d.connector.GetModeFromID(d.crtc.activeModeID)
	if err != nil {
		return err
	}
	buf, err := alloc.AllocMem(&hdi.AllocInfo{
		Width:  uint32(m.Info.Hdisplay),
		Height: uint32(m.Info.Vdisplay),
		Usage:  hdi.UsageMemDMA | hdi.UsageCPURead | hdi.UsageCPUWrite,
		Format: hdi.PixelFmtBGRA8888,
	})
	if err != nil {
		return err
	}
	defer func() {
		if ferr := alloc.FreeMem(buf); ferr != nil {
			logger.Warn("free first frame", "display", d.ID(), "err", ferr)
		}
	}()

	mem, err := alloc.Mmap(buf)
	if err != nil {
		return err
	}
	FillBGRA(mem, color)
	if err := multierr.Append(alloc.FlushCache(buf), alloc.Unmap(buf)); err != nil {
		return err
	}

	if err := d.SetDisplayClientBuffer(buf, -1); err != nil {
		return err
	}
	if _, err := d.PrepareDisplayLayers(); err != nil {
		return err
	}
	fence, err := d.Commit()
	if err != nil {
		return err
	}
	return hdi.AdoptFd(fence).Close()
}

// FillBGRA fills mem with a packed 32 bit ARGB color in memory order B, G,
// R, A.
func FillBGRA(mem []byte, color uint32) {
	for i := 0; i+4 <= len(mem); i += 4 {
		binary.LittleEndian.PutUint32(mem[i:], color)
	}
}

func (d *Display) Connector() *Connector { return d.connector }

func (d *Display) Crtc() *Crtc { return d.crtc }

func (d *Display) IsConnected() bool { return d.connector.IsConnected() }

func (d *Display) GetDisplayCapability() (*hdi.DisplayCapability, error) {
	w, h := d.connector.PhysicalSize()
	capability := &hdi.DisplayCapability{
		Name:      d.connector.Name(),
		Type:      d.connector.InterfaceType(),
		PhyWidth:  w,
		PhyHeight: h,
	}
	if d.post != nil {
		capability.SupportLayers = uint32(d.post.SupportLayers())
	}
	props, err := readProps(d.dev.card, d.connector.id, mode.ObjectConnector)
	if err != nil {
		return nil, err
	}
	for name, p := range props {
		capability.Props = append(capability.Props, hdi.PropertyObject{
			Name:   name,
			PropID: p.id,
			Value:  p.value,
		})
	}
	return capability, nil
}

func (d *Display) GetDisplaySupportedModes() []hdi.DisplayModeInfo {
	return d.connector.GetDisplaySupportedModes()
}

func (d *Display) GetDisplayMode() (int32, error) {
	if d.crtc.activeModeID < 0 {
		return -1, hdi.ErrFailure
	}
	return d.crtc.activeModeID, nil
}

// SetDisplayMode selects a mode; it is applied by the next commit.
func (d *Display) SetDisplayMode(id int32) error {
	if _, err := d.connector.GetModeFromID(id); err != nil {
		return err
	}
	d.crtc.SetActiveMode(id)
	return nil
}

var powerToDPMS = map[hdi.DispPowerStatus]uint64{
	hdi.PowerStatusOn:      mode.DPMSOn,
	hdi.PowerStatusStandby: mode.DPMSStandby,
	hdi.PowerStatusSuspend: mode.DPMSSuspend,
	hdi.PowerStatusOff:     mode.DPMSOff,
}

func (d *Display) GetDisplayPowerStatus() (hdi.DispPowerStatus, error) {
	dpms := d.connector.GetDpmsState()
	for status, v := range powerToDPMS {
		if v == dpms {
			return status, nil
		}
	}
	return hdi.PowerStatusButt, fmt.Errorf("dpms %d: %w", dpms, hdi.ErrFailure)
}

func (d *Display) SetDisplayPowerStatus(status hdi.DispPowerStatus) error {
	dpms, ok := powerToDPMS[status]
	if !ok {
		return fmt.Errorf("power status %d: %w", status, hdi.ErrParam)
	}
	return d.connector.SetDpmsState(d.dev.card, dpms)
}

func (d *Display) GetDisplayBacklight() (uint32, error) {
	return d.connector.GetBrightness()
}

func (d *Display) SetDisplayBacklight(level uint32) error {
	return d.connector.SetBrightness(d.dev.card, level)
}

// GetDisplayProperty reads a connector property by id.
func (d *Display) GetDisplayProperty(id uint32) (uint64, error) {
	obj, err := d.dev.card.GetObjectProperties(d.connector.id, mode.ObjectConnector)
	if err != nil {
		return 0, err
	}
	for i, p := range obj.Props {
		if p == id {
			return obj.Values[i], nil
		}
	}
	return 0, fmt.Errorf("property %d: %w", id, hdi.ErrNotSupported)
}

func (d *Display) SetDisplayProperty(id uint32, value uint64) error {
	if _, err := d.GetDisplayProperty(id); err != nil {
		return err
	}
	return d.dev.card.SetObjectProperty(d.connector.id, mode.ObjectConnector, id, value)
}

// RegDisplayVBlankCallback replaces the vsync callback of the device with
// one fed by this display's pipe.
func (d *Display) RegDisplayVBlankCallback(cb hdi.VBlankCallback) error {
	if cb == nil {
		return hdi.ErrNullPtr
	}
	d.dev.vsyncWorker().RegisterCallback(cb, d.crtc.pipe)
	return nil
}

func (d *Display) SetDisplayVsyncEnabled(enabled bool) error {
	d.dev.vsyncWorker().EnableVsync(enabled)
	return nil
}

// WaitForVBlank blocks until the next vblank of the display's pipe.
func (d *Display) WaitForVBlank() (uint32, uint64, error) {
	reply, err := d.dev.card.WaitVBlank(drm.VBlankRelative|drm.PipeFlags(d.crtc.pipe), 1)
	if err != nil {
		return 0, 0, err
	}
	return reply.Sequence, reply.Nanoseconds(), nil
}

// Close releases the CRTC, the reserved planes and every layer.
func (d *Display) Close() error {
	id := d.ID()
	err := d.Display.Close()
	if d.bound {
		d.crtc.UnBindDisplay(id)
		d.bound = false
	}
	d.post = nil
	return err
}
