package device

import (
	"errors"
	"fmt"

	"github.com/NeowayLabs/hdi/hdi"
)

var (
	// ErrNoCompatibleCrtc: no encoder of the connector can drive any CRTC,
	// so there is no display here.
	ErrNoCompatibleCrtc = fmt.Errorf("no compatible crtc: %w", hdi.ErrNotSupported)

	// ErrCrtcBusy: compatible CRTCs exist but all are bound to other
	// displays.
	ErrCrtcBusy = fmt.Errorf("crtc busy: %w", hdi.ErrBusy)

	// ErrNoMode: the connector reports no mode to drive.
	ErrNoMode = fmt.Errorf("no mode: %w", hdi.ErrNotSupported)
)

// BindError explains why a connector did not become a display.
type BindError struct {
	ConnectorID uint32
	Reason      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("connector %d: %v", e.ConnectorID, e.Reason)
}

func (e *BindError) Unwrap() error {
	return e.Reason
}

// IsConflict reports a binding conflict, as opposed to a connector that
// can't be driven at all.
func (e *BindError) IsConflict() bool {
	return errors.Is(e.Reason, ErrCrtcBusy)
}
