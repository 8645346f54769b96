package device

import (
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/internal/logger"
)

const defaultVsyncBackoff = 100 * time.Millisecond

// VsyncWorker waits for vblanks of one pipe and forwards them to the
// registered callback while enabled.
type VsyncWorker struct {
	card    Card
	backoff time.Duration

	mu       sync.Mutex
	cond     *sync.Cond
	enabled  bool
	stopping bool
	cb       hdi.VBlankCallback
	pipe     uint32

	done chan struct{}
	wg   conc.WaitGroup
}

// NewVsyncWorker starts the worker, initially disabled. A failed wait is
// retried after backoff.
func NewVsyncWorker(card Card, backoff time.Duration) *VsyncWorker {
	if backoff <= 0 {
		backoff = defaultVsyncBackoff
	}
	w := &VsyncWorker{
		card:    card,
		backoff: backoff,
		done:    make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	w.wg.Go(w.loop)
	return w
}

func (w *VsyncWorker) EnableVsync(enabled bool) {
	w.mu.Lock()
	w.enabled = enabled
	w.mu.Unlock()
	w.cond.Broadcast()
}

// RegisterCallback replaces the callback and the pipe it listens on.
func (w *VsyncWorker) RegisterCallback(cb hdi.VBlankCallback, pipe uint32) {
	w.mu.Lock()
	w.cb = cb
	w.pipe = pipe
	w.mu.Unlock()
}

// Close stops the worker and waits for it to exit.
func (w *VsyncWorker) Close() {
	w.mu.Lock()
	if w.stopping {
		w.mu.Unlock()
		return
	}
	w.stopping = true
	close(w.done)
	w.mu.Unlock()
	w.cond.Broadcast()
	w.wg.Wait()
}

// wait blocks until the worker is enabled and returns the current
// registration; ok is false once the worker stops.
func (w *VsyncWorker) wait() (cb hdi.VBlankCallback, pipe uint32, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for !w.enabled && !w.stopping {
		w.cond.Wait()
	}
	return w.cb, w.pipe, !w.stopping
}

func (w *VsyncWorker) loop() {
	for {
		cb, pipe, ok := w.wait()
		if !ok {
			return
		}
		reply, err := w.card.WaitVBlank(drm.VBlankRelative|drm.PipeFlags(pipe), 1)
		if err != nil {
			logger.Warn("wait vblank", "pipe", pipe, "err", err)
			select {
			case <-w.done:
				return
			case <-time.After(w.backoff):
			}
			continue
		}
		if cb != nil {
			cb(reply.Sequence, reply.Nanoseconds())
		}
	}
}
