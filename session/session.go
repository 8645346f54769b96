// Package session is the entry point of a composer process: it opens the
// card named by the configuration, discovers its displays and keeps them
// addressable by display id.
package session

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"go.uber.org/multierr"

	"github.com/NeowayLabs/hdi/device"
	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/gfx"
	"github.com/NeowayLabs/hdi/gralloc"
	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/internal/config"
	"github.com/NeowayLabs/hdi/internal/logger"
)

type Option func(*device.Options)

// WithCard drives card instead of opening the configured device path.
func WithCard(card device.Card) Option {
	return func(o *device.Options) { o.Card = card }
}

// WithAllocator replaces the dumb buffer allocator.
func WithAllocator(a hdi.Allocator) Option {
	return func(o *device.Options) { o.Allocator = a }
}

type Session struct {
	dev    *device.Device
	failed []*device.BindError

	// The allocator has its own fd: GEM handles are per fd, and the
	// device must import its buffers as handles it owns.
	allocFile *os.File
	dumb      *gralloc.Dumb

	mu      sync.Mutex
	hotplug []hdi.HotPlugCallback
}

// Open opens and initializes the card described by cfg and discovers its
// displays. A nil cfg uses config.Get(). Connectors that can't be bound
// are logged and kept in BindErrors; they don't fail Open.
func Open(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if cfg.Log.Level != "" {
		logger.SetLevel(cfg.Log.Level)
	}

	dopts := device.Options{
		Path:       cfg.Device.Path,
		TakeMaster: cfg.Device.TakeMaster,
		NewGfx: func() (hdi.Gfx, error) {
			return gfx.New(cfg.Gfx.Backend)
		},
		FirstFrame:      cfg.Display.FirstFrame,
		FirstFrameColor: cfg.Display.FirstFrameColor,
		VsyncBackoff:    cfg.Vsync.RetryBackoff,
	}
	for _, opt := range opts {
		opt(&dopts)
	}

	s := &Session{}
	if dopts.Card == nil {
		card, err := device.OpenCard(dopts.Path)
		if err != nil {
			return nil, err
		}
		dopts.Card = card
	}
	if dopts.Allocator == nil && dopts.Card.File() != nil {
		if err := s.openAllocator(dopts.Card.File().Name()); err != nil {
			logger.Warn("no buffer allocator, first frame disabled", "err", err)
		} else {
			dopts.Allocator = s.dumb
		}
	}

	s.dev = device.New(hdi.NewContext(), dopts)
	if err := s.open(); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	return s, nil
}

func (s *Session) openAllocator(path string) error {
	file, err := drm.Open(path)
	if err != nil {
		return err
	}
	dumb, err := gralloc.NewDumb(file)
	if err != nil {
		return multierr.Append(err, file.Close())
	}
	s.allocFile = file
	s.dumb = dumb
	return nil
}

func (s *Session) open() error {
	if err := s.dev.Create(); err != nil {
		return err
	}
	if err := s.dev.Init(); err != nil {
		return err
	}
	displays, failed, err := s.dev.DiscoveryDisplay()
	if err != nil {
		return err
	}
	for _, b := range failed {
		logger.Warn("connector not bound", "connector", b.ConnectorID,
			"conflict", b.IsConflict(), "err", b.Reason)
	}
	s.failed = failed
	logger.Info("session opened", "displays", len(displays), "unbound", len(failed))
	return nil
}

func (s *Session) Device() *device.Device { return s.dev }

// Allocator returns the buffer allocator, nil when the card has none.
func (s *Session) Allocator() hdi.Allocator {
	if s.dumb == nil {
		return nil
	}
	return s.dumb
}

// Displays returns every display ordered by id.
func (s *Session) Displays() []*device.Display {
	return s.dev.Displays()
}

func (s *Session) Display(id uint32) (*device.Display, error) {
	return s.dev.Display(id)
}

// BindErrors lists the connectors that have no display.
func (s *Session) BindErrors() []*device.BindError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.failed)
}

// RegHotPlugCallback registers cb and calls it right away for every
// display with its current connection state.
func (s *Session) RegHotPlugCallback(cb hdi.HotPlugCallback) error {
	if cb == nil {
		return hdi.ErrNullPtr
	}
	s.mu.Lock()
	s.hotplug = append(s.hotplug, cb)
	s.mu.Unlock()

	for _, disp := range s.dev.Displays() {
		cb(disp.ID(), disp.IsConnected())
	}
	return nil
}

// Rescan re-reads every connector and reports the displays whose
// connection state changed to the hot-plug callbacks. A connector plugged
// in after Open gets its display built first.
func (s *Session) Rescan() error {
	changed, failed, err := s.dev.UpdateConnectors()
	if err != nil {
		logger.Warn("rescan connectors", "err", err)
	}

	s.mu.Lock()
	s.updateBindErrors(failed)
	callbacks := append([]hdi.HotPlugCallback(nil), s.hotplug...)
	s.mu.Unlock()

	for _, conn := range changed {
		disp, ok := s.dev.DisplayOf(conn.ID())
		if !ok {
			logger.Debug("connector changed without display", "connector", conn.Name(),
				"connected", conn.IsConnected())
			continue
		}
		logger.Info("hot plug", "display", disp.ID(), "connector", conn.Name(),
			"connected", conn.IsConnected())
		for _, cb := range callbacks {
			cb(disp.ID(), conn.IsConnected())
		}
	}
	return err
}

// updateBindErrors drops the errors of connectors that now have a display
// and replaces those of connectors that failed again.
func (s *Session) updateBindErrors(failed []*device.BindError) {
	kept := s.failed[:0]
	for _, b := range s.failed {
		if _, ok := s.dev.DisplayOf(b.ConnectorID); ok {
			continue
		}
		if slices.ContainsFunc(failed, func(f *device.BindError) bool {
			return f.ConnectorID == b.ConnectorID
		}) {
			continue
		}
		kept = append(kept, b)
	}
	s.failed = append(kept, failed...)
}

// Close frees the allocator buffers, then closes every display and the
// card.
func (s *Session) Close() error {
	var err error
	if s.dumb != nil {
		err = multierr.Append(err, s.dumb.Close())
		err = multierr.Append(err, s.allocFile.Close())
		s.dumb, s.allocFile = nil, nil
	}
	if s.dev != nil {
		err = multierr.Append(err, s.dev.Close())
	}
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}
