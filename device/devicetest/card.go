// Package devicetest provides an in-memory KMS card for tests of code
// driving a device.Card.
package devicetest

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/mode"
)

// Card records what is asked of it. Property ids are global per name, as
// on a kernel card. It is not safe for concurrent use, except for
// WaitVBlank and the vblank accessors.
type Card struct {
	Resources  mode.Resources
	Crtcs      map[uint32]*mode.Crtc
	Encoders   map[uint32]*mode.Encoder
	Connectors map[uint32]*mode.Connector
	Planes     map[uint32]*mode.Plane
	PlaneIDs   []uint32

	propIDs  map[string]uint32
	objProps map[uint32][]uint32
	values   map[[2]uint32]uint64

	nextBlob uint32
	Blobs    map[uint32]bool
	nextFB   uint32
	FBs      map[uint32]*mode.FB2

	nextHandle uint32
	handles    map[[2]uint64]uint32
	GemClosed  []uint32

	Commits   []*mode.AtomicReq
	CommitErr error
	Caps      map[uint64]uint64
	Master    bool
	Closed    bool

	vmu       sync.Mutex
	vblankErr error
	vblankSeq uint32
	vblankTyp []uint32
}

func New() *Card {
	return &Card{
		Crtcs:      make(map[uint32]*mode.Crtc),
		Encoders:   make(map[uint32]*mode.Encoder),
		Connectors: make(map[uint32]*mode.Connector),
		Planes:     make(map[uint32]*mode.Plane),
		propIDs:    make(map[string]uint32),
		objProps:   make(map[uint32][]uint32),
		values:     make(map[[2]uint32]uint64),
		Blobs:      make(map[uint32]bool),
		FBs:        make(map[uint32]*mode.FB2),
		handles:    make(map[[2]uint64]uint32),
		Caps:       make(map[uint64]uint64),
		nextBlob:   1000,
		nextFB:     2000,
		nextHandle: 3000,
	}
}

// NewTwoPipes builds:
//
//	HDMI-A-1 (30) -> encoder 20 -> crtc 10 (pipe 0), planes 40 primary, 41 overlay
//	eDP-1    (31) -> encoder 21 -> crtc 11 (pipe 1), plane 42 primary
//
// HDMI-A-1 has two modes, the second preferred, and a brightness property.
func NewTwoPipes() *Card {
	c := New()
	c.AddCrtc(10, CrtcProps())
	c.AddCrtc(11, CrtcProps())
	c.AddEncoder(20, 10, 0b01)
	c.AddEncoder(21, 0, 0b11)
	c.AddConnector(&mode.Connector{
		ID: 30, EncoderID: 20, Type: mode.ConnectorHDMIA, TypeID: 1,
		Connection: mode.Connected, Width: 520, Height: 290,
		Modes: []mode.Info{
			Mode(1280, 720, 60, false),
			Mode(1920, 1080, 60, true),
		},
		Encoders: []uint32{20},
	}, ConnectorProps(true))
	c.AddConnector(&mode.Connector{
		ID: 31, Type: mode.ConnectorEDP, TypeID: 1,
		Connection: mode.Connected,
		Modes:      []mode.Info{Mode(800, 480, 60, false)},
		Encoders:   []uint32{21},
	}, ConnectorProps(false))
	c.AddPlane(40, 0b01, PlaneProps(mode.PlaneTypePrimary))
	c.AddPlane(41, 0b01, PlaneProps(mode.PlaneTypeOverlay))
	c.AddPlane(42, 0b10, PlaneProps(mode.PlaneTypePrimary))
	return c
}

func CrtcProps() map[string]uint64 {
	return map[string]uint64{"MODE_ID": 0, "ACTIVE": 0, "OUT_FENCE_PTR": 0}
}

// PlaneProps are the properties of an atomic plane with geometry.
func PlaneProps(typ uint64) map[string]uint64 {
	return map[string]uint64{
		"type": typ, "FB_ID": 0, "IN_FENCE_FD": 0, "CRTC_ID": 0,
		"SRC_X": 0, "SRC_Y": 0, "SRC_W": 0, "SRC_H": 0,
		"CRTC_X": 0, "CRTC_Y": 0, "CRTC_W": 0, "CRTC_H": 0,
	}
}

// ConnectorProps start with DPMS on and brightness 50.
func ConnectorProps(brightness bool) map[string]uint64 {
	props := map[string]uint64{"DPMS": mode.DPMSOn, "CRTC_ID": 0}
	if brightness {
		props["brightness"] = 50
	}
	return props
}

func Mode(w, h uint16, refresh uint32, preferred bool) mode.Info {
	info := mode.Info{Hdisplay: w, Vdisplay: h, Vrefresh: refresh, Type: mode.TypeDriver}
	if preferred {
		info.Type |= mode.TypePreferred
	}
	copy(info.Name[:], fmt.Sprintf("%dx%d", w, h))
	return info
}

// PropID returns the id of a property name, allocating it on first use.
func (c *Card) PropID(name string) uint32 {
	id, ok := c.propIDs[name]
	if !ok {
		id = uint32(100 + len(c.propIDs))
		c.propIDs[name] = id
	}
	return id
}

func (c *Card) SetProps(obj uint32, props map[string]uint64) {
	c.objProps[obj] = nil
	for name, v := range props {
		id := c.PropID(name)
		c.objProps[obj] = append(c.objProps[obj], id)
		c.values[[2]uint32{obj, id}] = v
	}
}

// Value is the current value of property name on obj.
func (c *Card) Value(obj uint32, name string) uint64 {
	return c.values[[2]uint32{obj, c.PropID(name)}]
}

func (c *Card) AddCrtc(id uint32, props map[string]uint64) {
	c.Resources.Crtcs = append(c.Resources.Crtcs, id)
	c.Crtcs[id] = &mode.Crtc{ID: id}
	c.SetProps(id, props)
}

func (c *Card) AddEncoder(id, crtc, possible uint32) {
	c.Resources.Encoders = append(c.Resources.Encoders, id)
	c.Encoders[id] = &mode.Encoder{ID: id, CrtcID: crtc, PossibleCrtcs: possible}
}

func (c *Card) AddConnector(conn *mode.Connector, props map[string]uint64) {
	c.Resources.Connectors = append(c.Resources.Connectors, conn.ID)
	c.Connectors[conn.ID] = conn
	c.SetProps(conn.ID, props)
}

func (c *Card) AddPlane(id, possible uint32, props map[string]uint64) {
	c.PlaneIDs = append(c.PlaneIDs, id)
	c.Planes[id] = &mode.Plane{
		ID:            id,
		PossibleCrtcs: possible,
		Formats:       []uint32{mode.FormatXRGB8888, mode.FormatARGB8888},
	}
	c.SetProps(id, props)
}

// SetVBlankErr makes every following vblank wait fail with err.
func (c *Card) SetVBlankErr(err error) {
	c.vmu.Lock()
	c.vblankErr = err
	c.vmu.Unlock()
}

// VBlankTypes returns the request type of every vblank wait so far.
func (c *Card) VBlankTypes() []uint32 {
	c.vmu.Lock()
	defer c.vmu.Unlock()
	return append([]uint32(nil), c.vblankTyp...)
}

func (c *Card) File() *os.File { return nil }

func (c *Card) Close() error {
	c.Closed = true
	return nil
}

func (c *Card) SetClientCap(cap, val uint64) error {
	c.Caps[cap] = val
	return nil
}

func (c *Card) SetMaster() error {
	c.Master = true
	return nil
}

func (c *Card) GetResources() (*mode.Resources, error) {
	res := c.Resources
	return &res, nil
}

func (c *Card) GetCrtc(id uint32) (*mode.Crtc, error) {
	crtc, ok := c.Crtcs[id]
	if !ok {
		return nil, unix.ENOENT
	}
	return crtc, nil
}

func (c *Card) GetEncoder(id uint32) (*mode.Encoder, error) {
	e, ok := c.Encoders[id]
	if !ok {
		return nil, unix.ENOENT
	}
	return e, nil
}

func (c *Card) GetConnector(id uint32) (*mode.Connector, error) {
	conn, ok := c.Connectors[id]
	if !ok {
		return nil, unix.ENOENT
	}
	cp := *conn
	return &cp, nil
}

func (c *Card) GetPlaneResources() ([]uint32, error) {
	return c.PlaneIDs, nil
}

func (c *Card) GetPlane(id uint32) (*mode.Plane, error) {
	p, ok := c.Planes[id]
	if !ok {
		return nil, unix.ENOENT
	}
	return p, nil
}

func (c *Card) GetObjectProperties(objID, objType uint32) (*mode.ObjectProperties, error) {
	obj := &mode.ObjectProperties{ObjectID: objID, ObjectType: objType}
	for _, id := range c.objProps[objID] {
		obj.Props = append(obj.Props, id)
		obj.Values = append(obj.Values, c.values[[2]uint32{objID, id}])
	}
	return obj, nil
}

func (c *Card) GetProperty(id uint32) (*mode.Property, error) {
	for name, pid := range c.propIDs {
		if pid == id {
			return &mode.Property{ID: id, Name: name}, nil
		}
	}
	return nil, unix.ENOENT
}

func (c *Card) SetObjectProperty(objID, objType, propID uint32, value uint64) error {
	key := [2]uint32{objID, propID}
	if _, ok := c.values[key]; !ok {
		return unix.EINVAL
	}
	c.values[key] = value
	return nil
}

func (c *Card) CreateModeBlob(info *mode.Info) (uint32, error) {
	c.nextBlob++
	c.Blobs[c.nextBlob] = true
	return c.nextBlob, nil
}

func (c *Card) DestroyPropertyBlob(id uint32) error {
	if !c.Blobs[id] {
		return unix.ENOENT
	}
	delete(c.Blobs, id)
	return nil
}

func (c *Card) AtomicCommit(req *mode.AtomicReq, flags uint32) error {
	if c.CommitErr != nil {
		return c.CommitErr
	}
	c.Commits = append(c.Commits, req)
	return nil
}

// PrimeFDToHandle returns one handle per underlying file, as the kernel
// does for one dma-buf.
func (c *Card) PrimeFDToHandle(fd int) (uint32, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, err
	}
	key := [2]uint64{uint64(st.Dev), st.Ino}
	h, ok := c.handles[key]
	if !ok {
		c.nextHandle++
		h = c.nextHandle
		c.handles[key] = h
	}
	return h, nil
}

func (c *Card) GemClose(handle uint32) error {
	c.GemClosed = append(c.GemClosed, handle)
	for k, h := range c.handles {
		if h == handle {
			delete(c.handles, k)
		}
	}
	return nil
}

func (c *Card) AddFB2(fb *mode.FB2) (uint32, error) {
	c.nextFB++
	cp := *fb
	c.FBs[c.nextFB] = &cp
	return c.nextFB, nil
}

func (c *Card) RmFB(id uint32) error {
	if _, ok := c.FBs[id]; !ok {
		return unix.ENOENT
	}
	delete(c.FBs, id)
	return nil
}

// WaitVBlank returns after a millisecond, counting sequences from 1.
func (c *Card) WaitVBlank(typ, sequence uint32) (drm.VBlankReply, error) {
	time.Sleep(time.Millisecond)
	c.vmu.Lock()
	defer c.vmu.Unlock()
	c.vblankTyp = append(c.vblankTyp, typ)
	if c.vblankErr != nil {
		return drm.VBlankReply{}, c.vblankErr
	}
	c.vblankSeq += sequence
	return drm.VBlankReply{Sequence: c.vblankSeq, Sec: 1, Usec: int64(c.vblankSeq)}, nil
}
