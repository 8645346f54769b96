package hdi

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/NeowayLabs/hdi/internal/logger"
)

// Display holds the layers of one output and composes them. It is not
// safe for concurrent use; callers serialize access per display.
type Display struct {
	ctx      *Context
	id       uint32
	layers   map[uint32]*Layer
	zorder   *zIndex
	client   *Layer
	composer *Composer
	changed  []*Layer
}

func NewDisplay(ctx *Context) *Display {
	return &Display{
		ctx:    ctx,
		id:     InvalidID,
		layers: make(map[uint32]*Layer),
		zorder: newZIndex(),
	}
}

// Init allocates the display id and the client layer.
func (d *Display) Init() error {
	if d.id != InvalidID {
		return nil
	}
	id := d.ctx.DisplayIDs.Get()
	if id == InvalidID {
		return fmt.Errorf("no display id left: %w", ErrNoMem)
	}
	client, err := NewLayer(d.ctx, &LayerInfo{Type: LayerTypeGraphic})
	if err != nil {
		d.ctx.DisplayIDs.Put(id)
		return fmt.Errorf("client layer: %w", err)
	}
	d.id = id
	d.client = client
	return nil
}

func (d *Display) ID() uint32 { return d.id }

// SetComposer hands c to the display, which closes it on Close.
func (d *Display) SetComposer(c *Composer) {
	d.composer = c
}

// ClientLayer receives the client composed frame.
func (d *Display) ClientLayer() *Layer { return d.client }

// Layers returns the layers bottom first.
func (d *Display) Layers() []*Layer {
	return d.zorder.layers()
}

func (d *Display) CreateLayer(info *LayerInfo) (uint32, error) {
	l, err := NewLayer(d.ctx, info)
	if err != nil {
		return InvalidID, err
	}
	d.layers[l.ID()] = l
	d.zorder.insert(l)
	logger.Debug("layer created", "display", d.id, "layer", l.ID())
	return l.ID(), nil
}

func (d *Display) CloseLayer(id uint32) error {
	l, ok := d.layers[id]
	if !ok {
		return fmt.Errorf("layer %d: %w", id, ErrParam)
	}
	d.zorder.remove(l)
	delete(d.layers, id)
	d.dropChanged(l)
	return l.Close()
}

func (d *Display) GetLayer(id uint32) (*Layer, error) {
	l, ok := d.layers[id]
	if !ok {
		return nil, fmt.Errorf("layer %d: %w", id, ErrParam)
	}
	return l, nil
}

// SetLayerZorder moves a layer. Setting the current z changes nothing.
func (d *Display) SetLayerZorder(id, z uint32) error {
	l, err := d.GetLayer(id)
	if err != nil {
		return err
	}
	if l.zorder == z {
		return nil
	}
	d.zorder.remove(l)
	l.zorder = z
	d.zorder.insert(l)
	return nil
}

// PrepareDisplayLayers decides the composition of every visible layer.
// The client buffer always needs flushing.
func (d *Display) PrepareDisplayLayers() (needFlushFb bool, err error) {
	if d.composer == nil {
		return false, fmt.Errorf("display %d not initialized: %w", d.id, ErrFailure)
	}
	d.changed = d.changed[:0]

	layers := d.visibleLayers()
	if err := d.composer.Prepare(layers, d.client); err != nil {
		return false, err
	}
	for _, l := range layers {
		if l.CompositionType() != l.DeviceSelect() {
			d.changed = append(d.changed, l)
		}
	}
	return true, nil
}

// GetDisplayCompChange reports the layers whose composition type was
// changed by the last prepare. Called with nil slices it only returns the
// count; otherwise it fills up to the shortest slice.
func (d *Display) GetDisplayCompChange(ids []uint32, types []CompositionType) (int, error) {
	if ids == nil && types == nil {
		return len(d.changed), nil
	}
	if ids == nil || types == nil {
		return 0, ErrNullPtr
	}
	n := min(len(d.changed), len(ids), len(types))
	for i := 0; i < n; i++ {
		ids[i] = d.changed[i].ID()
		types[i] = d.changed[i].DeviceSelect()
	}
	return n, nil
}

func (d *Display) dropChanged(l *Layer) {
	for i, c := range d.changed {
		if c == l {
			d.changed = append(d.changed[:i], d.changed[i+1:]...)
			return
		}
	}
}

// SetDisplayClientBuffer sets the buffer the client composed into.
func (d *Display) SetDisplayClientBuffer(h *BufferHandle, fence int) error {
	if d.client == nil {
		return fmt.Errorf("display %d not initialized: %w", d.id, ErrFailure)
	}
	return d.client.SetLayerBuffer(h, fence)
}

func (d *Display) SetDisplayClientCrop(rect *Rect) error {
	if d.client == nil {
		return ErrFailure
	}
	return d.client.SetLayerCrop(rect)
}

func (d *Display) SetDisplayClientDestRect(rect *Rect) error {
	if d.client == nil {
		return ErrFailure
	}
	return d.client.SetLayerSize(rect)
}

// Commit composes and scans out the prepared frame. The returned fence,
// owned by the caller, signals when the client buffer is released; it is
// -1 when the frame produced none.
func (d *Display) Commit() (int, error) {
	if d.composer == nil {
		return -1, fmt.Errorf("display %d not initialized: %w", d.id, ErrFailure)
	}
	if err := d.composer.Commit(false); err != nil {
		return -1, err
	}
	return d.client.releaseFence.Dup()
}

// GetDisplayReleaseFence reports a duplicate release fence per visible
// layer, bottom first. Called with nil slices it only returns the count.
// Fences are owned by the caller; layers without one report -1.
func (d *Display) GetDisplayReleaseFence(ids []uint32, fences []int) (int, error) {
	layers := d.visibleLayers()
	if ids == nil && fences == nil {
		return len(layers), nil
	}
	if ids == nil || fences == nil {
		return 0, ErrNullPtr
	}
	n := min(len(layers), len(ids), len(fences))
	for i := 0; i < n; i++ {
		fd, err := layers[i].releaseFence.Dup()
		if err != nil {
			for j := 0; j < i; j++ {
				if fences[j] >= 0 {
					AdoptFd(fences[j]).Close()
					fences[j] = -1
				}
			}
			return 0, fmt.Errorf("layer %d release fence: %w", layers[i].ID(), err)
		}
		ids[i] = layers[i].ID()
		fences[i] = fd
	}
	return n, nil
}

func (d *Display) visibleLayers() []*Layer {
	var layers []*Layer
	for _, l := range d.zorder.layers() {
		if l.IsVisible() {
			layers = append(layers, l)
		}
	}
	return layers
}

// Close releases every layer, the composer and the display id.
func (d *Display) Close() error {
	var err error
	for _, l := range d.zorder.layers() {
		d.zorder.remove(l)
		err = multierr.Append(err, l.Close())
	}
	clear(d.layers)
	d.changed = nil
	if d.composer != nil {
		err = multierr.Append(err, d.composer.Close())
		d.composer = nil
	}
	if d.client != nil {
		err = multierr.Append(err, d.client.Close())
		d.client = nil
	}
	if d.id != InvalidID {
		d.ctx.DisplayIDs.Put(d.id)
		d.id = InvalidID
	}
	return err
}
