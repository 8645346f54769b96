package mode

import (
	"bytes"
	"fmt"
	"os"
	"unsafe"

	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/ioctl"
)

// Property flags.
const (
	PropPending   = 1 << 0
	PropRange     = 1 << 1
	PropImmutable = 1 << 2
	PropEnum      = 1 << 3
	PropBlob      = 1 << 4
	PropBitmask   = 1 << 5

	PropExtendedType = 0x0000ffc0
	PropObject       = 1 << 6
	PropSignedRange  = 2 << 6

	PropAtomic = 0x80000000
)

type (
	sysGetProperty struct {
		valuesPtr    uint64
		enumBlobPtr  uint64
		propID       uint32
		flags        uint32
		name         [PropNameLen]uint8
		countValues  uint32
		countEnumBlb uint32
	}

	sysPropertyEnum struct {
		value uint64
		name  [PropNameLen]uint8
	}

	sysObjGetProperties struct {
		propsPtr      uint64
		propValuesPtr uint64
		countProps    uint32
		objID         uint32
		objType       uint32
	}

	sysObjSetProperty struct {
		value   uint64
		propID  uint32
		objID   uint32
		objType uint32
	}

	sysCreateBlob struct {
		data   uint64
		length uint32
		blobID uint32
	}

	sysDestroyBlob struct {
		blobID uint32
	}

	PropertyEnum struct {
		Name  string
		Value uint64
	}

	Property struct {
		ID     uint32
		Name   string
		Flags  uint32
		Values []uint64
		Enums  []PropertyEnum
	}

	// ObjectProperties maps property ids to their current values for one
	// KMS object.
	ObjectProperties struct {
		ObjectID   uint32
		ObjectType uint32
		Props      []uint32
		Values     []uint64
	}
)

var (
	// DRM_IOWR(0xAA, struct drm_mode_get_property)
	IOCTLModeGetProperty = ioctl.IOWR[sysGetProperty](drm.IOCTLBase, 0xAA)

	// DRM_IOWR(0xB9, struct drm_mode_obj_get_properties)
	IOCTLModeObjGetProperties = ioctl.IOWR[sysObjGetProperties](drm.IOCTLBase, 0xB9)

	// DRM_IOWR(0xBA, struct drm_mode_obj_set_property)
	IOCTLModeObjSetProperty = ioctl.IOWR[sysObjSetProperty](drm.IOCTLBase, 0xBA)

	// DRM_IOWR(0xBD, struct drm_mode_create_blob)
	IOCTLModeCreatePropBlob = ioctl.IOWR[sysCreateBlob](drm.IOCTLBase, 0xBD)

	// DRM_IOWR(0xBE, struct drm_mode_destroy_blob)
	IOCTLModeDestroyPropBlob = ioctl.IOWR[sysDestroyBlob](drm.IOCTLBase, 0xBE)
)

func cstring(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}

func GetProperty(file *os.File, id uint32) (*Property, error) {
	prop := &sysGetProperty{}
	prop.propID = id
	err := ioctl.Do(file.Fd(), uintptr(IOCTLModeGetProperty),
		uintptr(unsafe.Pointer(prop)))
	if err != nil {
		return nil, fmt.Errorf("MODE_GETPROPERTY(%d): %w", id, err)
	}

	var (
		values []uint64
		enums  []sysPropertyEnum
	)

	if prop.countValues > 0 {
		values = make([]uint64, prop.countValues)
		prop.valuesPtr = uint64(uintptr(unsafe.Pointer(&values[0])))
	}

	// blob properties report blob ids here, not enums
	if prop.countEnumBlb > 0 && prop.flags&(PropEnum|PropBitmask) != 0 {
		enums = make([]sysPropertyEnum, prop.countEnumBlb)
		prop.enumBlobPtr = uint64(uintptr(unsafe.Pointer(&enums[0])))
	} else {
		prop.countEnumBlb = 0
	}

	err = ioctl.Do(file.Fd(), uintptr(IOCTLModeGetProperty),
		uintptr(unsafe.Pointer(prop)))
	if err != nil {
		return nil, fmt.Errorf("MODE_GETPROPERTY(%d): %w", id, err)
	}

	ret := &Property{
		ID:     prop.propID,
		Name:   cstring(prop.name[:]),
		Flags:  prop.flags,
		Values: values[:min(len(values), int(prop.countValues))],
	}
	for _, e := range enums[:min(len(enums), int(prop.countEnumBlb))] {
		ret.Enums = append(ret.Enums, PropertyEnum{
			Name:  cstring(e.name[:]),
			Value: e.value,
		})
	}
	return ret, nil
}

// GetObjectProperties returns the property ids and values of a KMS object.
func GetObjectProperties(file *os.File, objID, objType uint32) (*ObjectProperties, error) {
	req := &sysObjGetProperties{
		objID:   objID,
		objType: objType,
	}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLModeObjGetProperties),
		uintptr(unsafe.Pointer(req)))
	if err != nil {
		return nil, fmt.Errorf("MODE_OBJ_GETPROPERTIES(%d): %w", objID, err)
	}

	var (
		props  []uint32
		values []uint64
	)
	if req.countProps > 0 {
		props = make([]uint32, req.countProps)
		values = make([]uint64, req.countProps)
		req.propsPtr = uint64(uintptr(unsafe.Pointer(&props[0])))
		req.propValuesPtr = uint64(uintptr(unsafe.Pointer(&values[0])))
	}

	err = ioctl.Do(file.Fd(), uintptr(IOCTLModeObjGetProperties),
		uintptr(unsafe.Pointer(req)))
	if err != nil {
		return nil, fmt.Errorf("MODE_OBJ_GETPROPERTIES(%d): %w", objID, err)
	}

	n := min(len(props), int(req.countProps))
	return &ObjectProperties{
		ObjectID:   objID,
		ObjectType: objType,
		Props:      props[:n],
		Values:     values[:n],
	}, nil
}

func SetObjectProperty(file *os.File, objID, objType, propID uint32, value uint64) error {
	req := &sysObjSetProperty{
		value:   value,
		propID:  propID,
		objID:   objID,
		objType: objType,
	}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLModeObjSetProperty),
		uintptr(unsafe.Pointer(req)))
	if err != nil {
		return fmt.Errorf("MODE_OBJ_SETPROPERTY(%d, %d): %w", objID, propID, err)
	}
	return nil
}

// CreatePropertyBlob uploads data as a property blob and returns its id.
func CreatePropertyBlob(file *os.File, data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("MODE_CREATEPROPBLOB: empty blob")
	}
	req := &sysCreateBlob{
		data:   uint64(uintptr(unsafe.Pointer(&data[0]))),
		length: uint32(len(data)),
	}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLModeCreatePropBlob),
		uintptr(unsafe.Pointer(req)))
	if err != nil {
		return 0, fmt.Errorf("MODE_CREATEPROPBLOB: %w", err)
	}
	return req.blobID, nil
}

// CreateModeBlob uploads a mode as the value of a CRTC MODE_ID property.
func CreateModeBlob(file *os.File, mode *Info) (uint32, error) {
	data := unsafe.Slice((*byte)(unsafe.Pointer(mode)), unsafe.Sizeof(*mode))
	return CreatePropertyBlob(file, data)
}

func DestroyPropertyBlob(file *os.File, id uint32) error {
	err := ioctl.Do(file.Fd(), uintptr(IOCTLModeDestroyPropBlob),
		uintptr(unsafe.Pointer(&sysDestroyBlob{id})))
	if err != nil {
		return fmt.Errorf("MODE_DESTROYPROPBLOB(%d): %w", id, err)
	}
	return nil
}
