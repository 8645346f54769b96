package device

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/NeowayLabs/hdi/device/devicetest"
	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/mode"
)

func displayOf(t *testing.T, dev *Device, connector uint32) *Display {
	t.Helper()
	disp, ok := dev.DisplayOf(connector)
	require.True(t, ok, "connector %d has no display", connector)
	return disp
}

func TestEncoderPickIdleCrtcID(t *testing.T) {
	crtcs := []*Crtc{
		{id: 10, pipe: 0, displayID: hdi.InvalidID},
		{id: 11, pipe: 1, displayID: hdi.InvalidID},
		{id: 12, pipe: 2, displayID: hdi.InvalidID},
	}

	e := &Encoder{id: 1, crtcID: 11, possibleCrtcs: 0b111}
	id, err := e.PickIdleCrtcID(crtcs)
	require.NoError(t, err)
	assert.Equal(t, uint32(11), id, "current crtc is preferred")

	e = &Encoder{id: 1, crtcID: 11, possibleCrtcs: 0b100}
	id, err = e.PickIdleCrtcID(crtcs)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), id, "current crtc outside the mask is ignored")

	require.NoError(t, crtcs[2].BindToDisplay(7))
	_, err = e.PickIdleCrtcID(crtcs)
	assert.ErrorIs(t, err, ErrCrtcBusy)
	assert.ErrorIs(t, err, hdi.ErrBusy)

	e = &Encoder{id: 1, possibleCrtcs: 0b1000}
	_, err = e.PickIdleCrtcID(crtcs)
	assert.ErrorIs(t, err, ErrNoCompatibleCrtc)
}

func TestCrtcBindsOneDisplay(t *testing.T) {
	c := &Crtc{id: 10, displayID: hdi.InvalidID, activeModeID: -1}
	require.True(t, c.CanBind())
	require.NoError(t, c.BindToDisplay(1))

	err := c.BindToDisplay(2)
	assert.ErrorIs(t, err, ErrCrtcBusy)
	assert.Equal(t, uint32(1), c.DisplayID())

	c.UnBindDisplay(2)
	assert.Equal(t, uint32(1), c.DisplayID(), "only the holder unbinds")

	c.UnBindDisplay(1)
	assert.True(t, c.CanBind())
}

func TestCrtcModeSet(t *testing.T) {
	c := &Crtc{id: 10, displayID: hdi.InvalidID, activeModeID: -1}
	c.SetActiveMode(1)
	assert.True(t, c.NeedModeSet())
	c.needModeSet = false
	c.SetActiveMode(1)
	assert.False(t, c.NeedModeSet(), "same mode")
	c.SetActiveMode(0)
	assert.True(t, c.NeedModeSet())
}

func TestInitSetsClientCaps(t *testing.T) {
	card := devicetest.NewTwoPipes()
	newTestDevice(t, card, Options{TakeMaster: true})

	assert.Equal(t, uint64(1), card.Caps[drm.ClientCapUniversalPlanes])
	assert.Equal(t, uint64(1), card.Caps[drm.ClientCapAtomic])
	assert.True(t, card.Master)
}

func TestInitBeforeCreate(t *testing.T) {
	dev := New(hdi.NewContext(), Options{})
	assert.ErrorIs(t, dev.Init(), hdi.ErrFd)
}

func TestDiscoveryDisplay(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, displays, failed := newTestDevice(t, card, Options{})

	require.Len(t, displays, 2)
	assert.Empty(t, failed)
	assert.Len(t, dev.Crtcs(), 2)
	assert.Len(t, dev.Connectors(), 2)
	assert.Len(t, dev.Planes(), 3)

	hdmi := displayOf(t, dev, 30)
	assert.Equal(t, uint32(10), hdmi.Crtc().ID())
	assert.Equal(t, uint32(0), hdmi.Crtc().Pipe())
	assert.Equal(t, hdmi.ID(), hdmi.Crtc().DisplayID())

	edp := displayOf(t, dev, 31)
	assert.Equal(t, uint32(11), edp.Crtc().ID(), "crtc 10 is held by HDMI")
	assert.Equal(t, uint32(1), edp.Crtc().Pipe())

	assert.NotEqual(t, hdmi.ID(), edp.ID())
	got, err := dev.Display(edp.ID())
	require.NoError(t, err)
	assert.Same(t, edp, got)

	_, err = dev.Display(1234)
	assert.ErrorIs(t, err, hdi.ErrParam)
}

func TestDiscoveryTwiceReleasesResources(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})

	displays, failed, err := dev.DiscoveryDisplay()
	require.NoError(t, err)
	require.Len(t, displays, 2)
	assert.Empty(t, failed)
	assert.Len(t, dev.Displays(), 2)

	capability, err := displayOf(t, dev, 30).GetDisplayCapability()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), capability.SupportLayers)
}

func TestDiscoveryDropsIncompleteObjects(t *testing.T) {
	card := devicetest.NewTwoPipes()
	card.AddCrtc(12, map[string]uint64{"MODE_ID": 0, "ACTIVE": 0})
	incomplete := devicetest.PlaneProps(mode.PlaneTypeOverlay)
	delete(incomplete, "IN_FENCE_FD")
	card.AddPlane(43, 0b01, incomplete)
	card.AddConnector(&mode.Connector{ID: 32, Type: mode.ConnectorVGA, TypeID: 1},
		map[string]uint64{"CRTC_ID": 0})

	dev, displays, _ := newTestDevice(t, card, Options{})

	assert.Len(t, dev.Crtcs(), 2)
	assert.Len(t, dev.Planes(), 3)
	assert.Len(t, dev.Connectors(), 2)
	assert.Len(t, displays, 2)
}

func TestDiscoveryBindErrors(t *testing.T) {
	card := devicetest.NewTwoPipes()
	card.AddEncoder(22, 0, 0b01)
	card.AddConnector(&mode.Connector{
		ID: 32, Type: mode.ConnectorDisplayPort, TypeID: 1, Connection: mode.Connected,
		Modes: []mode.Info{devicetest.Mode(640, 480, 60, true)}, Encoders: []uint32{22},
	}, devicetest.ConnectorProps(false))
	card.AddEncoder(23, 0, 0b100)
	card.AddConnector(&mode.Connector{
		ID: 33, Type: mode.ConnectorDisplayPort, TypeID: 2, Connection: mode.Connected,
		Modes: []mode.Info{devicetest.Mode(640, 480, 60, true)}, Encoders: []uint32{23},
	}, devicetest.ConnectorProps(false))

	_, displays, failed := newTestDevice(t, card, Options{})
	require.Len(t, displays, 2)
	require.Len(t, failed, 2)

	assert.Equal(t, uint32(32), failed[0].ConnectorID)
	assert.True(t, failed[0].IsConflict())
	assert.ErrorIs(t, failed[0], hdi.ErrBusy)

	assert.Equal(t, uint32(33), failed[1].ConnectorID)
	assert.False(t, failed[1].IsConflict())
	assert.ErrorIs(t, failed[1], ErrNoCompatibleCrtc)
}

func TestDiscoveryConnectorWithoutModes(t *testing.T) {
	card := devicetest.New()
	card.AddCrtc(10, devicetest.CrtcProps())
	card.AddEncoder(20, 10, 0b01)
	card.AddConnector(&mode.Connector{
		ID: 30, EncoderID: 20, Type: mode.ConnectorHDMIA, TypeID: 1,
		Connection: mode.Disconnected, Encoders: []uint32{20},
	}, devicetest.ConnectorProps(false))
	card.AddPlane(40, 0b01, devicetest.PlaneProps(mode.PlaneTypePrimary))

	dev, displays, failed := newTestDevice(t, card, Options{})
	assert.Empty(t, displays)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], ErrNoMode)
	assert.True(t, dev.Crtcs()[0].CanBind(), "failed display releases its crtc")
	assert.True(t, dev.Planes()[0].idle(), "failed display releases its planes")
}

func TestPreferredMode(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	hdmi := displayOf(t, dev, 30)

	assert.Equal(t, int32(1), hdmi.Connector().GetPreferenceID())
	modes := hdmi.GetDisplaySupportedModes()
	require.Len(t, modes, 2)
	assert.Equal(t, hdi.DisplayModeInfo{Width: 1920, Height: 1080, FreshRate: 60, ID: 1}, modes[1])

	id, err := hdmi.GetDisplayMode()
	require.NoError(t, err)
	assert.Equal(t, int32(1), id)

	edp := displayOf(t, dev, 31)
	assert.Equal(t, int32(-1), edp.Connector().GetPreferenceID())
	id, err = edp.GetDisplayMode()
	require.NoError(t, err)
	assert.Equal(t, int32(0), id, "first mode without a preferred one")
}

func TestSetDisplayMode(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	hdmi := displayOf(t, dev, 30)

	require.NoError(t, hdmi.SetDisplayMode(0))
	id, err := hdmi.GetDisplayMode()
	require.NoError(t, err)
	assert.Equal(t, int32(0), id)

	assert.ErrorIs(t, hdmi.SetDisplayMode(2), hdi.ErrParam)
	assert.ErrorIs(t, hdmi.SetDisplayMode(-1), hdi.ErrParam)
}

func TestDisplayCapability(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})

	capability, err := displayOf(t, dev, 30).GetDisplayCapability()
	require.NoError(t, err)
	assert.Equal(t, "HDMI-A-1", capability.Name)
	assert.Equal(t, hdi.DispIntfHDMI, capability.Type)
	assert.Equal(t, uint32(520), capability.PhyWidth)
	assert.Equal(t, uint32(290), capability.PhyHeight)
	assert.Equal(t, uint32(2), capability.SupportLayers)
	assert.Len(t, capability.Props, 3)

	capability, err = displayOf(t, dev, 31).GetDisplayCapability()
	require.NoError(t, err)
	assert.Equal(t, "eDP-1", capability.Name)
	assert.Equal(t, hdi.DispIntfLCD, capability.Type)
	assert.Equal(t, uint32(1), capability.SupportLayers)
}

func TestPowerStatus(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	hdmi := displayOf(t, dev, 30)

	status, err := hdmi.GetDisplayPowerStatus()
	require.NoError(t, err)
	assert.Equal(t, hdi.PowerStatusOn, status)

	require.NoError(t, hdmi.SetDisplayPowerStatus(hdi.PowerStatusOff))
	assert.Equal(t, uint64(mode.DPMSOff), card.Value(30, "DPMS"))
	status, err = hdmi.GetDisplayPowerStatus()
	require.NoError(t, err)
	assert.Equal(t, hdi.PowerStatusOff, status)

	assert.ErrorIs(t, hdmi.SetDisplayPowerStatus(hdi.PowerStatusButt), hdi.ErrParam)
}

func TestBacklight(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})

	hdmi := displayOf(t, dev, 30)
	level, err := hdmi.GetDisplayBacklight()
	require.NoError(t, err)
	assert.Equal(t, uint32(50), level)
	require.NoError(t, hdmi.SetDisplayBacklight(80))
	assert.Equal(t, uint64(80), card.Value(30, "brightness"))
	level, err = hdmi.GetDisplayBacklight()
	require.NoError(t, err)
	assert.Equal(t, uint32(80), level)

	edp := displayOf(t, dev, 31)
	_, err = edp.GetDisplayBacklight()
	assert.ErrorIs(t, err, hdi.ErrNotSupported)
	assert.ErrorIs(t, edp.SetDisplayBacklight(10), hdi.ErrNotSupported)
}

func TestDisplayProperty(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	hdmi := displayOf(t, dev, 30)

	id := card.PropID("brightness")
	v, err := hdmi.GetDisplayProperty(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), v)

	require.NoError(t, hdmi.SetDisplayProperty(id, 70))
	assert.Equal(t, uint64(70), card.Value(30, "brightness"))

	_, err = hdmi.GetDisplayProperty(card.PropID("FB_ID"))
	assert.ErrorIs(t, err, hdi.ErrNotSupported)
	assert.ErrorIs(t, hdmi.SetDisplayProperty(card.PropID("FB_ID"), 1), hdi.ErrNotSupported)
}

func TestCommitModeSet(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	hdmi := displayOf(t, dev, 30)

	require.NoError(t, hdmi.SetDisplayClientBuffer(testBuffer(t, 1920, 1080), -1))
	flush, err := hdmi.PrepareDisplayLayers()
	require.NoError(t, err)
	assert.True(t, flush)
	fence, err := hdmi.Commit()
	require.NoError(t, err)
	assert.Equal(t, -1, fence)

	require.Len(t, card.Commits, 1)
	req := card.Commits[0]
	value := func(obj uint32, name string) uint64 {
		t.Helper()
		v, ok := req.Value(obj, card.PropID(name))
		require.True(t, ok, "object %d has no %s", obj, name)
		return v
	}
	assert.Equal(t, uint64(1), value(10, "ACTIVE"))
	assert.NotZero(t, value(10, "MODE_ID"))
	assert.Equal(t, uint64(10), value(30, "CRTC_ID"))
	assert.Equal(t, uint64(10), value(40, "CRTC_ID"))
	assert.NotZero(t, value(40, "FB_ID"))
	assert.Equal(t, uint64(1920)<<16, value(40, "SRC_W"))
	assert.Equal(t, uint64(1080), value(40, "CRTC_H"))
	assert.Empty(t, card.Blobs, "mode blob destroyed after commit")
	assert.False(t, hdmi.Crtc().NeedModeSet())

	fb := card.FBs[uint32(value(40, "FB_ID"))]
	require.NotNil(t, fb)
	assert.Equal(t, mode.FormatARGB8888, fb.Format)
	assert.Equal(t, uint32(1920*4), fb.Pitches[0])

	_, err = hdmi.PrepareDisplayLayers()
	require.NoError(t, err)
	_, err = hdmi.Commit()
	require.NoError(t, err)
	require.Len(t, card.Commits, 2)
	_, ok := card.Commits[1].Value(10, card.PropID("MODE_ID"))
	assert.False(t, ok, "mode already set")

	_, err = hdmi.PrepareDisplayLayers()
	require.NoError(t, err)
	_, err = hdmi.Commit()
	require.NoError(t, err)
	assert.Len(t, card.FBs, 2, "current and previous framebuffers only")
}

func TestCommitFailure(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	hdmi := displayOf(t, dev, 30)

	card.CommitErr = unix.EINVAL
	require.NoError(t, hdmi.SetDisplayClientBuffer(testBuffer(t, 1920, 1080), -1))
	_, err := hdmi.PrepareDisplayLayers()
	require.NoError(t, err)
	_, err = hdmi.Commit()
	assert.ErrorIs(t, err, unix.EINVAL)
	assert.True(t, hdmi.Crtc().NeedModeSet(), "mode set retried on next commit")
}

func TestFailedCommitsKeepScanout(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	hdmi := displayOf(t, dev, 30)

	require.NoError(t, hdmi.SetDisplayClientBuffer(testBuffer(t, 1920, 1080), -1))
	_, err := hdmi.PrepareDisplayLayers()
	require.NoError(t, err)
	_, err = hdmi.Commit()
	require.NoError(t, err)
	require.Len(t, card.Commits, 1)
	v, ok := card.Commits[0].Value(40, card.PropID("FB_ID"))
	require.True(t, ok)
	scanout := uint32(v)

	card.CommitErr = unix.EBUSY
	for i := 0; i < 2; i++ {
		_, err = hdmi.PrepareDisplayLayers()
		require.NoError(t, err)
		_, err = hdmi.Commit()
		require.ErrorIs(t, err, unix.EBUSY)
	}
	assert.Contains(t, card.FBs, scanout, "framebuffer on screen survives failed commits")
	assert.Len(t, card.FBs, 1, "framebuffers of failed frames are removed")

	card.CommitErr = nil
	_, err = hdmi.PrepareDisplayLayers()
	require.NoError(t, err)
	_, err = hdmi.Commit()
	require.NoError(t, err)
	assert.Contains(t, card.FBs, scanout, "kept as the previous framebuffer")
	assert.Len(t, card.FBs, 2)
}

func TestCommitWithoutClientBuffer(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	hdmi := displayOf(t, dev, 30)

	_, err := hdmi.PrepareDisplayLayers()
	require.NoError(t, err)
	_, err = hdmi.Commit()
	assert.ErrorIs(t, err, hdi.ErrNullPtr)
	assert.Empty(t, card.Commits)
}

func TestDeviceLayersQueueClientOnly(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	edp := displayOf(t, dev, 31)

	for i := 0; i < 2; i++ {
		id, err := edp.CreateLayer(&hdi.LayerInfo{Width: 800, Height: 480, Type: hdi.LayerTypeGraphic})
		require.NoError(t, err)
		l, err := edp.GetLayer(id)
		require.NoError(t, err)
		require.NoError(t, l.SetLayerCompositionType(hdi.CompositionDevice))
		require.NoError(t, l.SetLayerBuffer(testBuffer(t, 800, 480), -1))
	}
	require.NoError(t, edp.SetDisplayClientBuffer(testBuffer(t, 800, 480), -1))

	_, err := edp.PrepareDisplayLayers()
	require.NoError(t, err)
	require.Len(t, edp.post.layers, 1)
	assert.Same(t, edp.ClientLayer(), edp.post.layers[0])

	_, err = edp.Commit()
	require.NoError(t, err)
	require.Len(t, card.Commits, 1)
	_, ok := card.Commits[0].Value(42, card.PropID("FB_ID"))
	assert.True(t, ok)
	assert.Len(t, card.FBs, 1)
}

func TestApplyMoreLayersThanPlanes(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	edp := displayOf(t, dev, 31)

	var layers []*hdi.Layer
	for i := 0; i < 2; i++ {
		l, err := hdi.NewLayer(dev.Context(), &hdi.LayerInfo{Type: hdi.LayerTypeGraphic})
		require.NoError(t, err)
		t.Cleanup(func() { l.Close() })
		layers = append(layers, l)
	}
	edp.post.layers = layers

	err := edp.post.Apply(false)
	assert.ErrorIs(t, err, hdi.ErrFailure)
	assert.Empty(t, card.Commits)
}

func TestGemBufferSharesHandle(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})

	h := testBuffer(t, 64, 64)
	a, err := NewGemBuffer(dev, h)
	require.NoError(t, err)

	dup, err := hdi.DupFd(h.Fd)
	require.NoError(t, err)
	defer unix.Close(dup)
	other := *h
	other.Fd = dup
	b, err := NewGemBuffer(dev, &other)
	require.NoError(t, err)

	handle := a.Handle()
	assert.Equal(t, handle, b.Handle())
	assert.NotEqual(t, a.FbID(), b.FbID())

	require.NoError(t, a.Close())
	assert.Empty(t, card.GemClosed, "handle still referenced")
	require.NoError(t, b.Close())
	assert.Equal(t, []uint32{handle}, card.GemClosed)
	assert.Empty(t, card.FBs)

	require.NoError(t, a.Close(), "closing twice is a no-op")
}

func TestGemBufferUnsupportedFormat(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})

	h := testBuffer(t, 64, 64)
	h.Format = hdi.PixelFmtCLUT8
	_, err := NewGemBuffer(dev, h)
	assert.ErrorIs(t, err, hdi.ErrNotSupported)
}

func TestVsyncEnableDisableClose(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	edp := displayOf(t, dev, 31)

	var count atomic.Int32
	require.NoError(t, edp.RegDisplayVBlankCallback(func(seq uint32, ns uint64) {
		count.Add(1)
	}))
	require.NoError(t, edp.SetDisplayVsyncEnabled(true))
	require.Eventually(t, func() bool { return count.Load() > 0 }, time.Second, time.Millisecond)
	require.NoError(t, edp.SetDisplayVsyncEnabled(false))

	done := make(chan struct{})
	go func() {
		dev.vsyncWorker().Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("vsync worker did not stop")
	}

	typs := card.VBlankTypes()
	require.NotEmpty(t, typs)
	assert.Equal(t, uint32(drm.VBlankRelative|drm.VBlankSecondary), typs[0])
}

func TestVsyncRetriesFailedWaits(t *testing.T) {
	card := devicetest.NewTwoPipes()
	card.SetVBlankErr(unix.EBUSY)

	w := NewVsyncWorker(card, time.Millisecond)
	var count atomic.Int32
	w.RegisterCallback(func(seq uint32, ns uint64) { count.Add(1) }, 0)
	w.EnableVsync(true)

	require.Eventually(t, func() bool {
		return len(card.VBlankTypes()) >= 3
	}, time.Second, time.Millisecond)
	assert.Zero(t, count.Load())

	w.Close()
	w.Close()
}

func TestRegDisplayVBlankCallbackNil(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})
	assert.ErrorIs(t, displayOf(t, dev, 30).RegDisplayVBlankCallback(nil), hdi.ErrNullPtr)
}

func TestWaitForVBlank(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})

	seq, ns, err := displayOf(t, dev, 30).WaitForVBlank()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), seq)
	assert.Equal(t, uint64(1e9+1e3), ns)
	assert.Equal(t, []uint32{drm.VBlankRelative}, card.VBlankTypes())
}

func TestUpdateConnectors(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev, _, _ := newTestDevice(t, card, Options{})

	changed, failed, err := dev.UpdateConnectors()
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Empty(t, failed)

	card.Connectors[31].Connection = mode.Disconnected
	changed, failed, err = dev.UpdateConnectors()
	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, changed, 1)
	assert.Equal(t, uint32(31), changed[0].ID())
	assert.False(t, displayOf(t, dev, 31).IsConnected())
}

// unpluggedCard has one pipe whose only connector is disconnected and
// reports no modes.
func unpluggedCard() *devicetest.Card {
	card := devicetest.New()
	card.AddCrtc(10, devicetest.CrtcProps())
	card.AddEncoder(20, 0, 0b01)
	card.AddConnector(&mode.Connector{
		ID: 30, Type: mode.ConnectorHDMIA, TypeID: 1,
		Connection: mode.Disconnected,
		Encoders:   []uint32{20},
	}, devicetest.ConnectorProps(false))
	card.AddPlane(40, 0b01, devicetest.PlaneProps(mode.PlaneTypePrimary))
	return card
}

func TestUpdateConnectorsBindsPluggedConnector(t *testing.T) {
	card := unpluggedCard()
	dev, displays, failed := newTestDevice(t, card, Options{})
	assert.Empty(t, displays)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Reason, ErrNoMode)

	card.Connectors[30].Connection = mode.Connected
	card.Connectors[30].Modes = []mode.Info{devicetest.Mode(1920, 1080, 60, true)}
	changed, failed, err := dev.UpdateConnectors()
	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, changed, 1)

	disp := displayOf(t, dev, 30)
	assert.True(t, disp.IsConnected())
	assert.Equal(t, uint32(10), disp.Crtc().ID())
	modeID, err := disp.GetDisplayMode()
	require.NoError(t, err)
	assert.Equal(t, int32(0), modeID)

	// unplug and replug keeps the same display
	card.Connectors[30].Connection = mode.Disconnected
	_, _, err = dev.UpdateConnectors()
	require.NoError(t, err)
	card.Connectors[30].Connection = mode.Connected
	_, failed, err = dev.UpdateConnectors()
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Same(t, disp, displayOf(t, dev, 30))
	assert.Len(t, dev.Displays(), 1)
}

func TestUpdateConnectorsReportsFailedBind(t *testing.T) {
	card := unpluggedCard()
	dev, _, _ := newTestDevice(t, card, Options{})

	// plugged in but still without modes
	card.Connectors[30].Connection = mode.Connected
	changed, failed, err := dev.UpdateConnectors()
	require.NoError(t, err)
	require.Len(t, changed, 1)
	require.Len(t, failed, 1)
	assert.Equal(t, uint32(30), failed[0].ConnectorID)
	assert.ErrorIs(t, failed[0].Reason, ErrNoMode)
	assert.Empty(t, dev.Displays())
}

// memAllocator hands out pipe backed buffers with heap memory.
type memAllocator struct {
	t     *testing.T
	mem   map[int][]byte
	freed int
}

func (a *memAllocator) AllocMem(info *hdi.AllocInfo) (*hdi.BufferHandle, error) {
	h := testBuffer(a.t, int32(info.Width), int32(info.Height))
	h.Format = info.Format
	h.Usage = info.Usage
	a.mem[h.Fd] = make([]byte, h.Size)
	return h, nil
}

func (a *memAllocator) FreeMem(h *hdi.BufferHandle) error {
	a.freed++
	return nil
}

func (a *memAllocator) Mmap(h *hdi.BufferHandle) ([]byte, error) { return a.mem[h.Fd], nil }

func (a *memAllocator) Unmap(h *hdi.BufferHandle) error { return nil }

func (a *memAllocator) FlushCache(h *hdi.BufferHandle) error { return nil }

func (a *memAllocator) InvalidateCache(h *hdi.BufferHandle) error { return nil }

func TestFirstFrame(t *testing.T) {
	card := devicetest.NewTwoPipes()
	alloc := &memAllocator{t: t, mem: make(map[int][]byte)}
	_, displays, _ := newTestDevice(t, card, Options{
		Allocator:       alloc,
		FirstFrame:      true,
		FirstFrameColor: 0xff102030,
	})
	require.Len(t, displays, 2)

	require.Len(t, card.Commits, 2)
	for _, req := range card.Commits {
		_, ok := req.Value(10, card.PropID("MODE_ID"))
		_, ok11 := req.Value(11, card.PropID("MODE_ID"))
		assert.True(t, ok || ok11, "first frame performs the mode set")
	}
	assert.Equal(t, 2, alloc.freed)
	for _, mem := range alloc.mem {
		assert.Equal(t, []byte{0x30, 0x20, 0x10, 0xff}, mem[:4])
	}
}

func TestFirstFrameFailureKeepsDisplay(t *testing.T) {
	card := devicetest.NewTwoPipes()
	card.CommitErr = unix.EINVAL
	alloc := &memAllocator{t: t, mem: make(map[int][]byte)}
	_, displays, failed := newTestDevice(t, card, Options{
		Allocator:  alloc,
		FirstFrame: true,
	})
	assert.Len(t, displays, 2)
	assert.Empty(t, failed)
	assert.Equal(t, 2, alloc.freed)
}

func TestFillBGRA(t *testing.T) {
	mem := make([]byte, 10)
	FillBGRA(mem, 0x80112233)
	assert.Equal(t, []byte{0x33, 0x22, 0x11, 0x80, 0x33, 0x22, 0x11, 0x80, 0, 0}, mem)
}

func TestDeviceCloseClosesCard(t *testing.T) {
	card := devicetest.NewTwoPipes()
	dev := New(hdi.NewContext(), Options{Card: card})
	require.NoError(t, dev.Create())
	require.NoError(t, dev.Init())
	_, _, err := dev.DiscoveryDisplay()
	require.NoError(t, err)

	require.NoError(t, dev.Close())
	assert.True(t, card.Closed)
	assert.Empty(t, dev.Displays())
	for _, c := range dev.Crtcs() {
		assert.True(t, c.CanBind())
	}
	for _, p := range dev.Planes() {
		assert.True(t, p.idle())
	}
}
