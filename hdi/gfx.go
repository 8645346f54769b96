package hdi

// Surface is a blit source or destination.
type Surface struct {
	Width, Height int32
	Stride        int32
	Format        PixelFormat
	Fd            int // dma-buf, used to map the buffer when Virt is nil
	Virt          []byte
	Phy           uint64
	Size          int32

	EnAlpha bool
	Alpha0  uint8
	Alpha1  uint8
}

// GfxOpt tunes one blit.
type GfxOpt struct {
	EnGlobalAlpha bool
	GlobalAlpha   uint8
	EnPixelAlpha  bool
	BlendType     BlendType
	Rotate        TransformType
	EnableScale   bool
}

// Gfx is a blit back end.
type Gfx interface {
	InitGfx() error
	DeinitGfx() error
	Blit(src *Surface, srcRect *Rect, dst *Surface, dstRect *Rect, opt *GfxOpt) error
	FillRect(dst *Surface, rect *Rect, color uint32, opt *GfxOpt) error
}

// Allocator allocates shareable buffers.
type Allocator interface {
	AllocMem(info *AllocInfo) (*BufferHandle, error)
	FreeMem(h *BufferHandle) error
	Mmap(h *BufferHandle) ([]byte, error)
	Unmap(h *BufferHandle) error
	FlushCache(h *BufferHandle) error
	InvalidateCache(h *BufferHandle) error
}

// SurfaceFromBuffer describes a buffer as a blit surface.
func SurfaceFromBuffer(h *BufferHandle) *Surface {
	return &Surface{
		Width:  h.Width,
		Height: h.Height,
		Stride: h.Stride,
		Format: h.Format,
		Fd:     h.Fd,
		Virt:   h.Virt,
		Phy:    h.Phy,
		Size:   h.Size,
	}
}
