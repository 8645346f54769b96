package mode

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"unsafe"

	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/ioctl"
)

// Atomic commit flags.
const (
	PageFlipEvent       = 0x01
	PageFlipAsync       = 0x02
	AtomicTestOnly      = 0x0100
	AtomicNonBlock      = 0x0200
	AtomicAllowModeset  = 0x0400
	AtomicFlagsSupports = PageFlipEvent | PageFlipAsync | AtomicTestOnly |
		AtomicNonBlock | AtomicAllowModeset
)

type (
	sysAtomic struct {
		flags         uint32
		countObjs     uint32
		objsPtr       uint64
		countPropsPtr uint64
		propsPtr      uint64
		propValuesPtr uint64
		reserved      uint64
		userData      uint64
	}

	atomicItem struct {
		object   uint32
		property uint32
		value    uint64
		seq      int
	}

	// AtomicReq accumulates property changes for one atomic commit.
	// Setting the same property twice keeps the last value.
	AtomicReq struct {
		items    []atomicItem
		outFence *int32
	}
)

var (
	// DRM_IOWR(0xBC, struct drm_mode_atomic)
	IOCTLModeAtomic = ioctl.IOWR[sysAtomic](drm.IOCTLBase, 0xBC)
)

func NewAtomicReq() *AtomicReq {
	return &AtomicReq{}
}

// AddProperty queues object.property = value.
func (r *AtomicReq) AddProperty(object, property uint32, value uint64) {
	r.items = append(r.items, atomicItem{
		object:   object,
		property: property,
		value:    value,
		seq:      len(r.items),
	})
}

// AddOutFence asks the kernel to return a sync file signaled when the
// commit on crtc completes. prop is the CRTC OUT_FENCE_PTR property.
func (r *AtomicReq) AddOutFence(crtc, prop uint32) {
	if r.outFence == nil {
		r.outFence = new(int32)
	}
	*r.outFence = -1
	r.AddProperty(crtc, prop, uint64(uintptr(unsafe.Pointer(r.outFence))))
}

// OutFence returns the fd written by the last successful commit, or -1.
func (r *AtomicReq) OutFence() int {
	if r.outFence == nil {
		return -1
	}
	return int(*r.outFence)
}

// Len is the number of queued properties.
func (r *AtomicReq) Len() int {
	return len(r.items)
}

// Objects returns the distinct object ids, in commit order.
func (r *AtomicReq) Objects() []uint32 {
	objs, _, _, _ := r.flatten()
	return objs
}

// Value returns the queued value of object.property.
func (r *AtomicReq) Value(object, property uint32) (uint64, bool) {
	var (
		val   uint64
		found bool
	)
	for _, it := range r.items {
		if it.object == object && it.property == property {
			val, found = it.value, true
		}
	}
	return val, found
}

// flatten sorts the items by object and property and drops overridden
// values, producing the four arrays of drm_mode_atomic.
func (r *AtomicReq) flatten() (objs, counts, props []uint32, values []uint64) {
	items := make([]atomicItem, len(r.items))
	copy(items, r.items)
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.object != b.object {
			return a.object < b.object
		}
		if a.property != b.property {
			return a.property < b.property
		}
		return a.seq < b.seq
	})

	for i, it := range items {
		if i+1 < len(items) && items[i+1].object == it.object &&
			items[i+1].property == it.property {
			continue
		}
		if len(objs) == 0 || objs[len(objs)-1] != it.object {
			objs = append(objs, it.object)
			counts = append(counts, 0)
		}
		counts[len(counts)-1]++
		props = append(props, it.property)
		values = append(values, it.value)
	}
	return objs, counts, props, values
}

// AtomicCommit submits req. The request is applied entirely or not at all.
func AtomicCommit(file *os.File, req *AtomicReq, flags uint32) error {
	if flags&^AtomicFlagsSupports != 0 {
		return fmt.Errorf("MODE_ATOMIC: invalid flags %#x", flags)
	}
	objs, counts, props, values := req.flatten()
	if len(objs) == 0 {
		return nil
	}

	atomic := &sysAtomic{
		flags:         flags,
		countObjs:     uint32(len(objs)),
		objsPtr:       uint64(uintptr(unsafe.Pointer(&objs[0]))),
		countPropsPtr: uint64(uintptr(unsafe.Pointer(&counts[0]))),
		propsPtr:      uint64(uintptr(unsafe.Pointer(&props[0]))),
		propValuesPtr: uint64(uintptr(unsafe.Pointer(&values[0]))),
	}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLModeAtomic),
		uintptr(unsafe.Pointer(atomic)))
	runtime.KeepAlive(objs)
	runtime.KeepAlive(counts)
	runtime.KeepAlive(props)
	runtime.KeepAlive(values)
	if err != nil {
		return fmt.Errorf("MODE_ATOMIC(%d objects): %w", len(objs), err)
	}
	return nil
}
