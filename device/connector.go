package device

import (
	"errors"
	"fmt"

	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/internal/logger"
	"github.com/NeowayLabs/hdi/mode"
)

// Mode is one entry of a connector's mode list; ID is its index.
type Mode struct {
	ID   int32
	Info mode.Info
}

func (m *Mode) hdiMode() hdi.DisplayModeInfo {
	return hdi.DisplayModeInfo{
		Width:     int32(m.Info.Hdisplay),
		Height:    int32(m.Info.Vdisplay),
		FreshRate: m.Info.Vrefresh,
		ID:        m.ID,
	}
}

// ModeBlock is a mode uploaded as a property blob.
type ModeBlock struct {
	card Card
	id   uint32
}

func (b *ModeBlock) ID() uint32 { return b.id }

func (b *ModeBlock) Close() error {
	if b.id == 0 {
		return nil
	}
	err := b.card.DestroyPropertyBlob(b.id)
	b.id = 0
	return err
}

// Connector is a physical output.
type Connector struct {
	id         uint32
	typ        uint32
	typeID     uint32
	mmWidth    uint32
	mmHeight   uint32
	connection uint8

	modes        []Mode
	preferenceID int32

	encoderID uint32
	encoders  []uint32

	dpmsProp       uint32
	dpms           uint64
	brightnessProp uint32
	brightness     uint64
	crtcProp       uint32
}

func newConnector(card Card, c *mode.Connector) (*Connector, error) {
	conn := &Connector{
		id:     c.ID,
		typ:    c.Type,
		typeID: c.TypeID,
	}
	conn.snapshot(c)

	props, err := readProps(card, c.ID, mode.ObjectConnector)
	if err != nil {
		return nil, err
	}
	if conn.dpmsProp, err = props.require("DPMS"); err != nil {
		return nil, err
	}
	conn.dpms = props["DPMS"].value
	if conn.crtcProp, err = props.require("CRTC_ID"); err != nil {
		return nil, err
	}
	if p, ok := props["brightness"]; ok {
		conn.brightnessProp = p.id
		conn.brightness = p.value
	} else {
		logger.Warn("connector has no brightness property", "connector", c.ID)
	}
	return conn, nil
}

func (c *Connector) snapshot(m *mode.Connector) {
	c.mmWidth = m.Width
	c.mmHeight = m.Height
	c.connection = m.Connection
	c.encoderID = m.EncoderID
	c.encoders = m.Encoders

	c.modes = c.modes[:0]
	c.preferenceID = -1
	for i, info := range m.Modes {
		c.modes = append(c.modes, Mode{ID: int32(i), Info: info})
		if c.preferenceID < 0 && info.Preferred() {
			c.preferenceID = int32(i)
		}
	}
}

// UpdateModes re-reads connection state and modes after a hot-plug.
func (c *Connector) UpdateModes(card Card) error {
	m, err := card.GetConnector(c.id)
	if err != nil {
		return err
	}
	c.snapshot(m)
	return nil
}

func (c *Connector) ID() uint32 { return c.id }

// Name is the kernel connector name, eg.: HDMI-A-1.
func (c *Connector) Name() string {
	return fmt.Sprintf("%s-%d", mode.ConnectorTypeName(c.typ), c.typeID)
}

func (c *Connector) IsConnected() bool {
	return c.connection == mode.Connected
}

// InterfaceType maps the connector type to the HDI interface type.
func (c *Connector) InterfaceType() hdi.InterfaceType {
	switch c.typ {
	case mode.ConnectorHDMIA, mode.ConnectorHDMIB:
		return hdi.DispIntfHDMI
	case mode.ConnectorVGA:
		return hdi.DispIntfVGA
	case mode.ConnectorDSI:
		return hdi.DispIntfMIPI
	case mode.ConnectorLVDS, mode.ConnectorEDP, mode.ConnectorDPI:
		return hdi.DispIntfLCD
	case mode.ConnectorComposite:
		return hdi.DispIntfCVBS
	case mode.ConnectorSVideo:
		return hdi.DispIntfSVIDEO
	case mode.ConnectorComponent:
		return hdi.DispIntfYPBPR
	}
	return hdi.DispIntfPanel
}

// PhysicalSize in millimeters.
func (c *Connector) PhysicalSize() (uint32, uint32) {
	return c.mmWidth, c.mmHeight
}

// GetPreferenceID returns the index of the PREFERRED mode, -1 if none.
func (c *Connector) GetPreferenceID() int32 {
	return c.preferenceID
}

func (c *Connector) GetDisplaySupportedModes() []hdi.DisplayModeInfo {
	ret := make([]hdi.DisplayModeInfo, 0, len(c.modes))
	for i := range c.modes {
		ret = append(ret, c.modes[i].hdiMode())
	}
	return ret
}

func (c *Connector) GetModeFromID(id int32) (*Mode, error) {
	if id < 0 || int(id) >= len(c.modes) {
		return nil, fmt.Errorf("mode %d: %w", id, hdi.ErrParam)
	}
	return &c.modes[id], nil
}

// ModeBlock uploads mode id. The caller closes the block.
func (c *Connector) ModeBlock(card Card, id int32) (*ModeBlock, error) {
	m, err := c.GetModeFromID(id)
	if err != nil {
		return nil, err
	}
	blob, err := card.CreateModeBlob(&m.Info)
	if err != nil {
		return nil, err
	}
	return &ModeBlock{card: card, id: blob}, nil
}

// PickIdleCrtcID tries the current encoder first, then every other
// possible encoder.
func (c *Connector) PickIdleCrtcID(encoders map[uint32]*Encoder, crtcs []*Crtc) (uint32, error) {
	reason := ErrNoCompatibleCrtc
	try := func(id uint32) (uint32, bool) {
		e, ok := encoders[id]
		if !ok {
			return 0, false
		}
		crtc, err := e.PickIdleCrtcID(crtcs)
		if err == nil {
			return crtc, true
		}
		if errors.Is(err, ErrCrtcBusy) {
			reason = ErrCrtcBusy
		}
		return 0, false
	}

	if c.encoderID != 0 {
		if crtc, ok := try(c.encoderID); ok {
			return crtc, nil
		}
	}
	for _, id := range c.encoders {
		if id == c.encoderID {
			continue
		}
		if crtc, ok := try(id); ok {
			return crtc, nil
		}
	}
	return 0, reason
}

func (c *Connector) SetDpmsState(card Card, state uint64) error {
	err := card.SetObjectProperty(c.id, mode.ObjectConnector, c.dpmsProp, state)
	if err != nil {
		return err
	}
	c.dpms = state
	return nil
}

func (c *Connector) GetDpmsState() uint64 {
	return c.dpms
}

func (c *Connector) SetBrightness(card Card, level uint32) error {
	if c.brightnessProp == 0 {
		return fmt.Errorf("connector %d brightness: %w", c.id, hdi.ErrNotSupported)
	}
	err := card.SetObjectProperty(c.id, mode.ObjectConnector, c.brightnessProp, uint64(level))
	if err != nil {
		return err
	}
	c.brightness = uint64(level)
	return nil
}

func (c *Connector) GetBrightness() (uint32, error) {
	if c.brightnessProp == 0 {
		return 0, fmt.Errorf("connector %d brightness: %w", c.id, hdi.ErrNotSupported)
	}
	return uint32(c.brightness), nil
}
