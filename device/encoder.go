package device

import (
	"github.com/NeowayLabs/hdi/mode"
)

type Encoder struct {
	id            uint32
	crtcID        uint32
	possibleCrtcs uint32
}

func newEncoder(e *mode.Encoder) *Encoder {
	return &Encoder{
		id:            e.ID,
		crtcID:        e.CrtcID,
		possibleCrtcs: e.PossibleCrtcs,
	}
}

func (e *Encoder) ID() uint32 { return e.id }

// PickIdleCrtcID returns an idle CRTC the encoder can drive, preferring
// the one it drives already. crtcs are ordered by pipe.
func (e *Encoder) PickIdleCrtcID(crtcs []*Crtc) (uint32, error) {
	for _, c := range crtcs {
		if c.id == e.crtcID && c.CanBind() && e.possibleCrtcs&c.pipeBit() != 0 {
			return c.id, nil
		}
	}

	compatible := false
	for _, c := range crtcs {
		if e.possibleCrtcs&c.pipeBit() == 0 {
			continue
		}
		if c.CanBind() {
			return c.id, nil
		}
		compatible = true
	}
	if compatible {
		return 0, ErrCrtcBusy
	}
	return 0, ErrNoCompatibleCrtc
}
