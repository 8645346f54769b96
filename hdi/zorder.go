package hdi

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

type zkey struct {
	z   uint32
	seq uint64
}

func compareZKey(a, b interface{}) int {
	ka, kb := a.(zkey), b.(zkey)
	switch {
	case ka.z < kb.z:
		return -1
	case ka.z > kb.z:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	}
	return 0
}

// zIndex orders layers by z, bottom first. Layers with the same z keep
// their insertion order.
type zIndex struct {
	tree *redblacktree.Tree
	seq  uint64
}

func newZIndex() *zIndex {
	return &zIndex{tree: redblacktree.NewWith(compareZKey)}
}

func (x *zIndex) insert(l *Layer) {
	x.seq++
	l.seq = x.seq
	x.tree.Put(zkey{l.zorder, l.seq}, l)
}

func (x *zIndex) remove(l *Layer) {
	x.tree.Remove(zkey{l.zorder, l.seq})
}

func (x *zIndex) len() int {
	return x.tree.Size()
}

func (x *zIndex) layers() []*Layer {
	ret := make([]*Layer, 0, x.tree.Size())
	it := x.tree.Iterator()
	for it.Next() {
		ret = append(ret, it.Value().(*Layer))
	}
	return ret
}
