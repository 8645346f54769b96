package device

import (
	"fmt"

	"github.com/NeowayLabs/hdi/mode"
)

type Plane struct {
	id            uint32
	typ           uint32
	formats       []uint32
	possibleCrtcs uint32
	pipe          uint32 // bit of the pipe holding the plane, 0 when idle

	fbProp      uint32
	inFenceProp uint32
	crtcProp    uint32

	// optional geometry, all zero when the driver lacks one of them
	srcX, srcY, srcW, srcH     uint32
	crtcX, crtcY, crtcW, crtcH uint32
}

func newPlane(card Card, p *mode.Plane) (*Plane, error) {
	props, err := readProps(card, p.ID, mode.ObjectPlane)
	if err != nil {
		return nil, err
	}
	typ, ok := props["type"]
	if !ok {
		return nil, fmt.Errorf("missing property type")
	}
	plane := &Plane{
		id:            p.ID,
		typ:           uint32(typ.value),
		formats:       p.Formats,
		possibleCrtcs: p.PossibleCrtcs,
	}
	if plane.fbProp, err = props.require("FB_ID"); err != nil {
		return nil, err
	}
	if plane.inFenceProp, err = props.require("IN_FENCE_FD"); err != nil {
		return nil, err
	}
	if plane.crtcProp, err = props.require("CRTC_ID"); err != nil {
		return nil, err
	}

	geometry := []*uint32{
		&plane.srcX, &plane.srcY, &plane.srcW, &plane.srcH,
		&plane.crtcX, &plane.crtcY, &plane.crtcW, &plane.crtcH,
	}
	names := []string{
		"SRC_X", "SRC_Y", "SRC_W", "SRC_H",
		"CRTC_X", "CRTC_Y", "CRTC_W", "CRTC_H",
	}
	complete := true
	for i, name := range names {
		*geometry[i] = props.optional(name)
		complete = complete && *geometry[i] != 0
	}
	if !complete {
		for _, g := range geometry {
			*g = 0
		}
	}
	return plane, nil
}

func (p *Plane) ID() uint32 { return p.id }

// Type is one of mode.PlaneType*.
func (p *Plane) Type() uint32 { return p.typ }

func (p *Plane) Formats() []uint32 { return p.formats }

func (p *Plane) SupportsFormat(fourcc uint32) bool {
	for _, f := range p.formats {
		if f == fourcc {
			return true
		}
	}
	return false
}

func (p *Plane) hasGeometry() bool {
	return p.srcW != 0
}

func (p *Plane) idle() bool { return p.pipe == 0 }

func (p *Plane) bindToPipe(pipe uint32) { p.pipe = 1 << pipe }

func (p *Plane) unbindPipe() { p.pipe = 0 }
