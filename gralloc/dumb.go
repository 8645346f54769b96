// Package gralloc allocates scan-out capable buffers from DRM dumb buffers
// and shares them as dma-bufs.
package gralloc

import (
	"fmt"
	"os"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
	"launchpad.net/gommap"

	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/internal/logger"
	"github.com/NeowayLabs/hdi/mode"
)

type dumbBuffer struct {
	handle uint32
	size   uint64
	mapped gommap.MMap
}

// Dumb allocates buffers on a DRM node. Buffers are keyed by their dma-buf
// fd, which stays open until FreeMem.
type Dumb struct {
	file    *os.File
	buffers *xsync.MapOf[int, *dumbBuffer]
}

// NewDumb allocates on file, which must support dumb buffers.
func NewDumb(file *os.File) (*Dumb, error) {
	if file == nil {
		return nil, hdi.ErrNullPtr
	}
	if !drm.HasDumbBuffer(file) {
		return nil, fmt.Errorf("%s has no dumb buffers: %w", file.Name(), hdi.ErrNotSupported)
	}
	return &Dumb{
		file:    file,
		buffers: xsync.NewMapOf[int, *dumbBuffer](),
	}, nil
}

func (d *Dumb) AllocMem(info *hdi.AllocInfo) (*hdi.BufferHandle, error) {
	if info == nil {
		return nil, hdi.ErrNullPtr
	}
	bpp := info.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("pixel format %d: %w", info.Format, hdi.ErrNotSupported)
	}
	if info.Width == 0 || info.Height == 0 || info.Width > 0xffff || info.Height > 0xffff {
		return nil, fmt.Errorf("buffer %dx%d: %w", info.Width, info.Height, hdi.ErrParam)
	}

	fb, err := mode.CreateFB(d.file, uint16(info.Width), uint16(info.Height), uint32(bpp*8))
	if err != nil {
		return nil, fmt.Errorf("create dumb: %v: %w", err, hdi.ErrNoMem)
	}
	fd, err := drm.PrimeHandleToFD(d.file, fb.Handle, drm.PrimeCloExec|drm.PrimeRDWR)
	if err != nil {
		return nil, multierr.Append(
			fmt.Errorf("export dumb %d: %w", fb.Handle, err),
			mode.DestroyDumb(d.file, fb.Handle),
		)
	}
	d.buffers.Store(fd, &dumbBuffer{handle: fb.Handle, size: fb.Size})

	logger.Debug("dumb buffer allocated", "handle", fb.Handle, "fd", fd,
		"width", info.Width, "height", info.Height, "pitch", fb.Pitch)
	return &hdi.BufferHandle{
		Fd:     fd,
		Width:  int32(info.Width),
		Height: int32(info.Height),
		Stride: int32(fb.Pitch),
		Size:   int32(fb.Size),
		Format: info.Format,
		Usage:  info.Usage,
	}, nil
}

func (d *Dumb) lookup(h *hdi.BufferHandle) (*dumbBuffer, error) {
	if h == nil {
		return nil, hdi.ErrNullPtr
	}
	buf, ok := d.buffers.Load(h.Fd)
	if !ok {
		return nil, fmt.Errorf("fd %d not allocated here: %w", h.Fd, hdi.ErrParam)
	}
	return buf, nil
}

// FreeMem unmaps the buffer, closes its fd and destroys it.
func (d *Dumb) FreeMem(h *hdi.BufferHandle) error {
	buf, err := d.lookup(h)
	if err != nil {
		return err
	}
	d.buffers.Delete(h.Fd)
	err = multierr.Combine(
		d.unmap(buf, h),
		unix.Close(h.Fd),
		mode.DestroyDumb(d.file, buf.handle),
	)
	h.Fd = -1
	return err
}

// Mmap maps the buffer and records the mapping in h.Virt. Mapping twice
// returns the existing mapping.
func (d *Dumb) Mmap(h *hdi.BufferHandle) ([]byte, error) {
	buf, err := d.lookup(h)
	if err != nil {
		return nil, err
	}
	if buf.mapped != nil {
		return buf.mapped, nil
	}
	offset, err := mode.MapDumb(d.file, buf.handle)
	if err != nil {
		return nil, err
	}
	mmap, err := gommap.MapAt(0, d.file.Fd(), int64(offset), int64(buf.size),
		gommap.PROT_READ|gommap.PROT_WRITE, gommap.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap dumb %d: %v: %w", buf.handle, err, hdi.ErrNoMem)
	}
	buf.mapped = mmap
	h.Virt = mmap
	return mmap, nil
}

func (d *Dumb) Unmap(h *hdi.BufferHandle) error {
	buf, err := d.lookup(h)
	if err != nil {
		return err
	}
	return d.unmap(buf, h)
}

func (d *Dumb) unmap(buf *dumbBuffer, h *hdi.BufferHandle) error {
	h.Virt = nil
	if buf.mapped == nil {
		return nil
	}
	err := buf.mapped.UnsafeUnmap()
	buf.mapped = nil
	return err
}

// FlushCache is a no-op: dumb buffers are write-combined.
func (d *Dumb) FlushCache(h *hdi.BufferHandle) error {
	_, err := d.lookup(h)
	return err
}

func (d *Dumb) InvalidateCache(h *hdi.BufferHandle) error {
	_, err := d.lookup(h)
	return err
}

// Close frees every buffer still allocated.
func (d *Dumb) Close() error {
	var err error
	d.buffers.Range(func(fd int, buf *dumbBuffer) bool {
		err = multierr.Append(err, d.FreeMem(&hdi.BufferHandle{Fd: fd}))
		return true
	})
	return err
}
