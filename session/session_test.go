package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeowayLabs/hdi/device/devicetest"
	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/internal/config"
	"github.com/NeowayLabs/hdi/mode"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig
	cfg.Display.FirstFrame = false
	return &cfg
}

func openTest(t *testing.T, card *devicetest.Card, cfg *config.Config) *Session {
	t.Helper()
	s, err := Open(cfg, WithCard(card))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type plugEvent struct {
	id        uint32
	connected bool
}

func TestOpen(t *testing.T) {
	card := devicetest.NewTwoPipes()
	s := openTest(t, card, testConfig())

	assert.True(t, card.Master)
	assert.Equal(t, uint64(1), card.Caps[drm.ClientCapAtomic])
	assert.Nil(t, s.Allocator())
	assert.Empty(t, s.BindErrors())

	displays := s.Displays()
	require.Len(t, displays, 2)
	disp, err := s.Display(displays[1].ID())
	require.NoError(t, err)
	assert.Same(t, displays[1], disp)

	_, err = s.Display(1000)
	assert.ErrorIs(t, err, hdi.ErrParam)
}

func TestOpenGfxNone(t *testing.T) {
	cfg := testConfig()
	cfg.Gfx.Backend = "none"
	s := openTest(t, devicetest.NewTwoPipes(), cfg)
	assert.Len(t, s.Displays(), 2)
}

func TestOpenKeepsBindErrors(t *testing.T) {
	card := devicetest.NewTwoPipes()
	card.AddEncoder(22, 0, 0b100)
	card.AddConnector(&mode.Connector{
		ID: 32, Type: mode.ConnectorDisplayPort, TypeID: 1, Connection: mode.Connected,
		Modes:    []mode.Info{devicetest.Mode(640, 480, 60, true)},
		Encoders: []uint32{22},
	}, devicetest.ConnectorProps(false))

	s := openTest(t, card, testConfig())
	require.Len(t, s.BindErrors(), 1)
	assert.Equal(t, uint32(32), s.BindErrors()[0].ConnectorID)
	assert.Len(t, s.Displays(), 2)
}

func TestRegHotPlugCallback(t *testing.T) {
	card := devicetest.NewTwoPipes()
	s := openTest(t, card, testConfig())

	assert.ErrorIs(t, s.RegHotPlugCallback(nil), hdi.ErrNullPtr)

	var events []plugEvent
	require.NoError(t, s.RegHotPlugCallback(func(id uint32, connected bool) {
		events = append(events, plugEvent{id, connected})
	}))
	require.Len(t, events, 2)
	for i, disp := range s.Displays() {
		assert.Equal(t, plugEvent{disp.ID(), true}, events[i])
	}

	events = nil
	require.NoError(t, s.Rescan())
	assert.Empty(t, events, "nothing changed")

	card.Connectors[31].Connection = mode.Disconnected
	require.NoError(t, s.Rescan())
	edp, ok := s.Device().DisplayOf(31)
	require.True(t, ok)
	assert.Equal(t, []plugEvent{{edp.ID(), false}}, events)
}

func TestRescanBuildsPluggedDisplay(t *testing.T) {
	card := devicetest.NewTwoPipes()
	card.AddCrtc(12, devicetest.CrtcProps())
	card.AddEncoder(22, 0, 0b100)
	card.AddConnector(&mode.Connector{
		ID: 32, Type: mode.ConnectorDisplayPort, TypeID: 1,
		Connection: mode.Disconnected,
		Encoders:   []uint32{22},
	}, devicetest.ConnectorProps(false))
	card.AddPlane(43, 0b100, devicetest.PlaneProps(mode.PlaneTypePrimary))

	s := openTest(t, card, testConfig())
	require.Len(t, s.Displays(), 2)
	require.Len(t, s.BindErrors(), 1)

	var events []plugEvent
	require.NoError(t, s.RegHotPlugCallback(func(id uint32, connected bool) {
		events = append(events, plugEvent{id, connected})
	}))
	events = nil

	card.Connectors[32].Connection = mode.Connected
	card.Connectors[32].Modes = []mode.Info{devicetest.Mode(2560, 1440, 60, true)}
	require.NoError(t, s.Rescan())

	dp, ok := s.Device().DisplayOf(32)
	require.True(t, ok)
	assert.Equal(t, []plugEvent{{dp.ID(), true}}, events)
	assert.Len(t, s.Displays(), 3)
	assert.Empty(t, s.BindErrors())
}

func TestCloseClosesCard(t *testing.T) {
	card := devicetest.NewTwoPipes()
	s, err := Open(testConfig(), WithCard(card))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.True(t, card.Closed)
	assert.Empty(t, s.Displays())
}

func TestOpenFailsWithoutDevice(t *testing.T) {
	cfg := testConfig()
	cfg.Device.Path = "/nonexistent/card0"
	_, err := Open(cfg)
	assert.Error(t, err)
}
