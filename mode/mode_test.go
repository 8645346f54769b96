package mode

import (
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelStructSizes(t *testing.T) {
	for _, tc := range []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"drm_mode_card_res", unsafe.Sizeof(sysResources{}), 64},
		{"drm_mode_get_connector", unsafe.Sizeof(sysGetConnector{}), 80},
		{"drm_mode_get_encoder", unsafe.Sizeof(sysGetEncoder{}), 20},
		{"drm_mode_modeinfo", unsafe.Sizeof(Info{}), 68},
		{"drm_mode_crtc", unsafe.Sizeof(sysCrtc{}), 104},
		{"drm_mode_get_property", unsafe.Sizeof(sysGetProperty{}), 64},
		{"drm_mode_obj_get_properties", unsafe.Sizeof(sysObjGetProperties{}), 32},
		{"drm_mode_obj_set_property", unsafe.Sizeof(sysObjSetProperty{}), 24},
		{"drm_mode_get_plane_res", unsafe.Sizeof(sysGetPlaneRes{}), 16},
		{"drm_mode_get_plane", unsafe.Sizeof(sysGetPlane{}), 32},
		{"drm_mode_fb_cmd2", unsafe.Sizeof(sysFBCmd2{}), 104},
		{"drm_mode_create_blob", unsafe.Sizeof(sysCreateBlob{}), 16},
		{"drm_mode_atomic", unsafe.Sizeof(sysAtomic{}), 56},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got)
		})
	}
}

func TestIOCTLCodes(t *testing.T) {
	for _, tc := range []struct {
		name string
		got  uint32
		want uint32
	}{
		{"GETRESOURCES", IOCTLModeResources, 0xc04064a0},
		{"GETCONNECTOR", IOCTLModeGetConnector, 0xc05064a7},
		{"GETPROPERTY", IOCTLModeGetProperty, 0xc04064aa},
		{"RMFB", IOCTLModeRmFB, 0xc00464af},
		{"GETPLANERESOURCES", IOCTLModeGetPlaneResources, 0xc01064b5},
		{"GETPLANE", IOCTLModeGetPlane, 0xc02064b6},
		{"ADDFB2", IOCTLModeAddFB2, 0xc06864b8},
		{"OBJ_GETPROPERTIES", IOCTLModeObjGetProperties, 0xc02064b9},
		{"OBJ_SETPROPERTY", IOCTLModeObjSetProperty, 0xc01864ba},
		{"ATOMIC", IOCTLModeAtomic, 0xc03864bc},
		{"CREATEPROPBLOB", IOCTLModeCreatePropBlob, 0xc01064bd},
		{"DESTROYPROPBLOB", IOCTLModeDestroyPropBlob, 0xc00464be},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equalf(t, tc.want, tc.got, "got %#x", tc.got)
		})
	}
}

func TestAtomicReqFlatten(t *testing.T) {
	req := NewAtomicReq()
	req.AddProperty(40, 7, 1)
	req.AddProperty(31, 20, 5)
	req.AddProperty(40, 3, 2)
	req.AddProperty(31, 20, 6) // overrides the previous value
	req.AddProperty(31, 11, 9)

	objs, counts, props, values := req.flatten()
	assert.Equal(t, []uint32{31, 40}, objs)
	assert.Equal(t, []uint32{2, 2}, counts)
	assert.Equal(t, []uint32{11, 20, 3, 7}, props)
	assert.Equal(t, []uint64{9, 6, 2, 1}, values)

	v, ok := req.Value(31, 20)
	require.True(t, ok)
	assert.Equal(t, uint64(6), v)
	_, ok = req.Value(31, 99)
	assert.False(t, ok)
	assert.Equal(t, 5, req.Len())
	assert.Equal(t, []uint32{31, 40}, req.Objects())
}

func TestAtomicReqOutFence(t *testing.T) {
	req := NewAtomicReq()
	assert.Equal(t, -1, req.OutFence())

	req.AddOutFence(31, 22)
	assert.Equal(t, -1, req.OutFence())

	v, ok := req.Value(31, 22)
	require.True(t, ok)
	assert.Equal(t, uint64(uintptr(unsafe.Pointer(req.outFence))), v)

	// the kernel writes the fence through the property value
	*req.outFence = 17
	assert.Equal(t, 17, req.OutFence())
}

func TestAtomicCommitRejectsUnknownFlags(t *testing.T) {
	err := AtomicCommit(os.Stdin, NewAtomicReq(), 0x8000)
	assert.Error(t, err)
}

func TestAtomicCommitEmptyRequest(t *testing.T) {
	assert.NoError(t, AtomicCommit(os.Stdin, NewAtomicReq(), AtomicAllowModeset))
}

func TestFourCC(t *testing.T) {
	assert.Equal(t, uint32(0x34325258), FormatXRGB8888)
	assert.Equal(t, uint32(0x3231564e), FormatNV12)
	assert.Equal(t, "AB24", FourCCString(FormatABGR8888))
	assert.Equal(t, "none", FourCCString(0))
}

func TestConnectorName(t *testing.T) {
	c := &Connector{Type: ConnectorHDMIA, TypeID: 1}
	assert.Equal(t, "HDMI-A-1", c.Name())
	assert.Equal(t, "eDP", ConnectorTypeName(ConnectorEDP))
	assert.Equal(t, "DSI", ConnectorTypeName(ConnectorDSI))
	assert.Equal(t, "Unknown(99)", ConnectorTypeName(99))
}

func TestInfoName(t *testing.T) {
	var info Info
	copy(info.Name[:], "1920x1080")
	info.Type = TypeDriver | TypePreferred
	assert.Equal(t, "1920x1080", info.String())
	assert.True(t, info.Preferred())

	info.Type = TypeDriver
	assert.False(t, info.Preferred())
}
