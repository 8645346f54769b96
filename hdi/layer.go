package hdi

import (
	"fmt"
	"io"

	"go.uber.org/multierr"
)

// LayerBuffer is a layer's snapshot of a client buffer. It owns a
// duplicate of the buffer fd so the client may close its own.
type LayerBuffer struct {
	fd     *UniqueFd
	handle BufferHandle
}

func NewLayerBuffer(h *BufferHandle) (*LayerBuffer, error) {
	if h == nil {
		return nil, ErrNullPtr
	}
	fd, err := DupUniqueFd(h.Fd)
	if err != nil {
		return nil, err
	}
	b := &LayerBuffer{fd: fd, handle: *h}
	b.handle.Fd = fd.Fd()
	return b, nil
}

func (b *LayerBuffer) Fd() int {
	return b.fd.Fd()
}

// Handle describes the buffer; its Fd is owned by b.
func (b *LayerBuffer) Handle() *BufferHandle {
	return &b.handle
}

func (b *LayerBuffer) Close() error {
	return b.fd.Close()
}

// Layer is one surface of a display.
type Layer struct {
	id     uint32
	typ    LayerType
	zorder uint32
	seq    uint64 // insertion order among equal z

	displayRect Rect
	cropRect    Rect
	dirtyRegion []Rect
	visible     bool
	preMulti    bool

	blendType       BlendType
	compositionType CompositionType
	deviceSelect    CompositionType
	alpha           LayerAlpha
	transform       TransformType

	acquireFence *UniqueFd
	releaseFence *UniqueFd
	buffer       *LayerBuffer

	backing io.Closer
	pool    *IDPool
}

// NewLayer takes an id from the context pool.
func NewLayer(ctx *Context, info *LayerInfo) (*Layer, error) {
	if info == nil {
		return nil, ErrNullPtr
	}
	if info.Type < LayerTypeGraphic || info.Type >= LayerTypeButt {
		return nil, fmt.Errorf("layer type %d: %w", info.Type, ErrParam)
	}
	id := ctx.LayerIDs.Get()
	if id == InvalidID {
		return nil, fmt.Errorf("no layer id left: %w", ErrNoMem)
	}
	return &Layer{
		id:           id,
		typ:          info.Type,
		visible:      true,
		displayRect:  Rect{W: info.Width, H: info.Height},
		cropRect:     Rect{W: info.Width, H: info.Height},
		acquireFence: AdoptFd(-1),
		releaseFence: AdoptFd(-1),
		pool:         ctx.LayerIDs,
	}, nil
}

func (l *Layer) ID() uint32 { return l.id }

func (l *Layer) Type() LayerType { return l.typ }

func (l *Layer) Zorder() uint32 { return l.zorder }

func (l *Layer) SetLayerSize(rect *Rect) error {
	if rect == nil {
		return ErrNullPtr
	}
	l.displayRect = *rect
	return nil
}

func (l *Layer) LayerSize() Rect { return l.displayRect }

func (l *Layer) SetLayerCrop(rect *Rect) error {
	if rect == nil {
		return ErrNullPtr
	}
	l.cropRect = *rect
	return nil
}

func (l *Layer) LayerCrop() Rect { return l.cropRect }

func (l *Layer) SetLayerDirtyRegion(rects []Rect) {
	l.dirtyRegion = append(l.dirtyRegion[:0], rects...)
}

func (l *Layer) DirtyRegion() []Rect { return l.dirtyRegion }

func (l *Layer) SetLayerVisible(visible bool) {
	l.visible = visible
}

func (l *Layer) IsVisible() bool { return l.visible }

func (l *Layer) SetLayerPreMulti(preMul bool) {
	l.preMulti = preMul
}

func (l *Layer) PreMulti() bool { return l.preMulti }

func (l *Layer) SetLayerAlpha(alpha *LayerAlpha) error {
	if alpha == nil {
		return ErrNullPtr
	}
	l.alpha = *alpha
	return nil
}

func (l *Layer) Alpha() LayerAlpha { return l.alpha }

func (l *Layer) SetTransformMode(t TransformType) error {
	if t < RotateNone || t >= RotateButt {
		return fmt.Errorf("transform %d: %w", t, ErrParam)
	}
	l.transform = t
	return nil
}

func (l *Layer) TransformMode() TransformType { return l.transform }

func (l *Layer) SetLayerBlendType(b BlendType) error {
	if b < BlendNone || b >= BlendButt {
		return fmt.Errorf("blend type %d: %w", b, ErrParam)
	}
	l.blendType = b
	return nil
}

func (l *Layer) BlendType() BlendType { return l.blendType }

// SetLayerCompositionType records the type requested by the client.
func (l *Layer) SetLayerCompositionType(c CompositionType) error {
	if c < CompositionClient || c >= CompositionButt {
		return fmt.Errorf("composition type %d: %w", c, ErrParam)
	}
	l.compositionType = c
	return nil
}

func (l *Layer) CompositionType() CompositionType { return l.compositionType }

// SetDeviceSelect records the type chosen while preparing a frame.
func (l *Layer) SetDeviceSelect(c CompositionType) {
	l.deviceSelect = c
}

func (l *Layer) DeviceSelect() CompositionType { return l.deviceSelect }

// SetLayerBuffer snapshots h and takes a duplicate of the acquire fence.
// A negative fence means the buffer is ready.
func (l *Layer) SetLayerBuffer(h *BufferHandle, fence int) error {
	if h == nil {
		return ErrNullPtr
	}
	buf, err := NewLayerBuffer(h)
	if err != nil {
		return err
	}
	acquire, err := DupUniqueFd(fence)
	if err != nil {
		return multierr.Append(err, buf.Close())
	}

	err = multierr.Append(l.closeBuffer(), l.acquireFence.Close())
	l.buffer = buf
	l.acquireFence = acquire
	return err
}

// CurrentBuffer is nil until the first SetLayerBuffer.
func (l *Layer) CurrentBuffer() *LayerBuffer { return l.buffer }

func (l *Layer) AcquireFenceFd() int { return l.acquireFence.Fd() }

func (l *Layer) ReleaseFenceFd() int { return l.releaseFence.Fd() }

// SetReleaseFence takes ownership of fd.
func (l *Layer) SetReleaseFence(fd int) error {
	return l.releaseFence.Reset(fd)
}

// SetBacking attaches back-end state released together with the layer.
func (l *Layer) SetBacking(b io.Closer) {
	l.backing = b
}

func (l *Layer) Backing() io.Closer { return l.backing }

func (l *Layer) closeBuffer() error {
	if l.buffer == nil {
		return nil
	}
	err := l.buffer.Close()
	l.buffer = nil
	return err
}

// Close releases the layer resources and returns its id to the pool.
func (l *Layer) Close() error {
	err := multierr.Combine(
		l.closeBuffer(),
		l.acquireFence.Close(),
		l.releaseFence.Close(),
	)
	if l.backing != nil {
		err = multierr.Append(err, l.backing.Close())
		l.backing = nil
	}
	if l.pool != nil {
		l.pool.Put(l.id)
		l.pool = nil
	}
	return err
}
