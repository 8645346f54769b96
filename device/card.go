package device

import (
	"os"

	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/mode"
)

// Card is the kernel DRM interface the device drives.
type Card interface {
	// File is the device node, nil when the card is not backed by one.
	File() *os.File
	Close() error

	SetClientCap(c, val uint64) error
	SetMaster() error

	GetResources() (*mode.Resources, error)
	GetCrtc(id uint32) (*mode.Crtc, error)
	GetEncoder(id uint32) (*mode.Encoder, error)
	GetConnector(id uint32) (*mode.Connector, error)
	GetPlaneResources() ([]uint32, error)
	GetPlane(id uint32) (*mode.Plane, error)

	GetObjectProperties(objID, objType uint32) (*mode.ObjectProperties, error)
	GetProperty(id uint32) (*mode.Property, error)
	SetObjectProperty(objID, objType, propID uint32, value uint64) error

	CreateModeBlob(info *mode.Info) (uint32, error)
	DestroyPropertyBlob(id uint32) error
	AtomicCommit(req *mode.AtomicReq, flags uint32) error

	PrimeFDToHandle(fd int) (uint32, error)
	GemClose(handle uint32) error
	AddFB2(fb *mode.FB2) (uint32, error)
	RmFB(id uint32) error

	WaitVBlank(typ, sequence uint32) (drm.VBlankReply, error)
}

// kernelCard drives a /dev/dri node.
type kernelCard struct {
	file *os.File
}

// OpenCard opens the DRM node at path.
func OpenCard(path string) (Card, error) {
	f, err := drm.Open(path)
	if err != nil {
		return nil, err
	}
	return &kernelCard{file: f}, nil
}

func (k *kernelCard) File() *os.File { return k.file }

func (k *kernelCard) Close() error { return k.file.Close() }

func (k *kernelCard) SetClientCap(c, val uint64) error {
	return drm.SetClientCap(k.file, c, val)
}

func (k *kernelCard) SetMaster() error {
	return drm.SetMaster(k.file)
}

func (k *kernelCard) GetResources() (*mode.Resources, error) {
	return mode.GetResources(k.file)
}

func (k *kernelCard) GetCrtc(id uint32) (*mode.Crtc, error) {
	return mode.GetCrtc(k.file, id)
}

func (k *kernelCard) GetEncoder(id uint32) (*mode.Encoder, error) {
	return mode.GetEncoder(k.file, id)
}

func (k *kernelCard) GetConnector(id uint32) (*mode.Connector, error) {
	return mode.GetConnector(k.file, id)
}

func (k *kernelCard) GetPlaneResources() ([]uint32, error) {
	return mode.GetPlaneResources(k.file)
}

func (k *kernelCard) GetPlane(id uint32) (*mode.Plane, error) {
	return mode.GetPlane(k.file, id)
}

func (k *kernelCard) GetObjectProperties(objID, objType uint32) (*mode.ObjectProperties, error) {
	return mode.GetObjectProperties(k.file, objID, objType)
}

func (k *kernelCard) GetProperty(id uint32) (*mode.Property, error) {
	return mode.GetProperty(k.file, id)
}

func (k *kernelCard) SetObjectProperty(objID, objType, propID uint32, value uint64) error {
	return mode.SetObjectProperty(k.file, objID, objType, propID, value)
}

func (k *kernelCard) CreateModeBlob(info *mode.Info) (uint32, error) {
	return mode.CreateModeBlob(k.file, info)
}

func (k *kernelCard) DestroyPropertyBlob(id uint32) error {
	return mode.DestroyPropertyBlob(k.file, id)
}

func (k *kernelCard) AtomicCommit(req *mode.AtomicReq, flags uint32) error {
	return mode.AtomicCommit(k.file, req, flags)
}

func (k *kernelCard) PrimeFDToHandle(fd int) (uint32, error) {
	return drm.PrimeFDToHandle(k.file, fd)
}

func (k *kernelCard) GemClose(handle uint32) error {
	return drm.GemClose(k.file, handle)
}

func (k *kernelCard) AddFB2(fb *mode.FB2) (uint32, error) {
	return mode.AddFB2(k.file, fb)
}

func (k *kernelCard) RmFB(id uint32) error {
	return mode.RmFB(k.file, id)
}

func (k *kernelCard) WaitVBlank(typ, sequence uint32) (drm.VBlankReply, error) {
	return drm.WaitVBlank(k.file, typ, sequence)
}
