package device

import (
	"fmt"

	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/mode"
)

// Crtc is a scan-out engine. At most one display holds it.
type Crtc struct {
	id   uint32
	pipe uint32 // enumeration ordinal, bit position in possible_crtcs

	displayID    uint32
	activeModeID int32
	needModeSet  bool

	modeProp     uint32
	activeProp   uint32
	outFenceProp uint32
}

func newCrtc(card Card, c *mode.Crtc, pipe uint32) (*Crtc, error) {
	props, err := readProps(card, c.ID, mode.ObjectCrtc)
	if err != nil {
		return nil, err
	}
	crtc := &Crtc{
		id:           c.ID,
		pipe:         pipe,
		displayID:    hdi.InvalidID,
		activeModeID: -1,
	}
	if crtc.modeProp, err = props.require("MODE_ID"); err != nil {
		return nil, err
	}
	if crtc.activeProp, err = props.require("ACTIVE"); err != nil {
		return nil, err
	}
	if crtc.outFenceProp, err = props.require("OUT_FENCE_PTR"); err != nil {
		return nil, err
	}
	return crtc, nil
}

func (c *Crtc) ID() uint32 { return c.id }

func (c *Crtc) Pipe() uint32 { return c.pipe }

func (c *Crtc) pipeBit() uint32 { return 1 << c.pipe }

// CanBind reports whether no display holds the CRTC.
func (c *Crtc) CanBind() bool {
	return c.displayID == hdi.InvalidID
}

func (c *Crtc) BindToDisplay(id uint32) error {
	if !c.CanBind() {
		return fmt.Errorf("crtc %d bound to display %d: %w", c.id, c.displayID, ErrCrtcBusy)
	}
	c.displayID = id
	return nil
}

// UnBindDisplay releases the CRTC if id holds it.
func (c *Crtc) UnBindDisplay(id uint32) {
	if c.displayID == id {
		c.displayID = hdi.InvalidID
	}
}

func (c *Crtc) DisplayID() uint32 { return c.displayID }

// SetActiveMode selects the mode to drive; a different mode requires a
// mode set on the next commit.
func (c *Crtc) SetActiveMode(id int32) {
	if c.activeModeID != id {
		c.needModeSet = true
	}
	c.activeModeID = id
}

func (c *Crtc) ActiveModeID() int32 { return c.activeModeID }

func (c *Crtc) NeedModeSet() bool { return c.needModeSet }
