package hdi

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// InvalidID is never handed out by an IDPool.
const InvalidID = ^uint32(0)

// IDPool hands out reusable ids. Allocation continues after the last id
// handed out and wraps, so a freed id is reused only after the others.
type IDPool struct {
	used  *xsync.MapOf[uint32, struct{}]
	next  atomic.Uint32
	limit uint32
}

func NewIDPool() *IDPool {
	return newIDPool(InvalidID)
}

// newIDPool bounds ids to [0, limit).
func newIDPool(limit uint32) *IDPool {
	return &IDPool{
		used:  xsync.NewMapOf[uint32, struct{}](),
		limit: limit,
	}
}

// Get returns a free id, or InvalidID when every id is taken.
func (p *IDPool) Get() uint32 {
	start := p.next.Load() % p.limit
	id := start
	for {
		if _, loaded := p.used.LoadOrStore(id, struct{}{}); !loaded {
			p.next.Store((id + 1) % p.limit)
			return id
		}
		id = (id + 1) % p.limit
		if id == start {
			return InvalidID
		}
	}
}

// Put returns id to the pool.
func (p *IDPool) Put(id uint32) {
	p.used.Delete(id)
}

func (p *IDPool) InUse(id uint32) bool {
	_, ok := p.used.Load(id)
	return ok
}

func (p *IDPool) Len() int {
	return p.used.Size()
}

// Context carries the state shared by every display of a process. It is
// passed explicitly to displays and layers.
type Context struct {
	LayerIDs   *IDPool
	DisplayIDs *IDPool
}

func NewContext() *Context {
	return &Context{
		LayerIDs:   NewIDPool(),
		DisplayIDs: NewIDPool(),
	}
}
