package device

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/NeowayLabs/hdi/device/devicetest"
	"github.com/NeowayLabs/hdi/hdi"
)

// newTestDevice discovers the displays of card.
func newTestDevice(t *testing.T, card *devicetest.Card, opts Options) (*Device, []*Display, []*BindError) {
	t.Helper()
	opts.Card = card
	dev := New(hdi.NewContext(), opts)
	require.NoError(t, dev.Create())
	require.NoError(t, dev.Init())
	displays, failed, err := dev.DiscoveryDisplay()
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return dev, displays, failed
}

// pipeFd returns the read end of a pipe standing in for a dma-buf.
func pipeFd(t *testing.T) int {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	t.Cleanup(func() {
		unix.Close(p[0])
		unix.Close(p[1])
	})
	return p[0]
}

func testBuffer(t *testing.T, w, h int32) *hdi.BufferHandle {
	return &hdi.BufferHandle{
		Fd:     pipeFd(t),
		Width:  w,
		Height: h,
		Stride: w * 4,
		Size:   w * h * 4,
		Format: hdi.PixelFmtBGRA8888,
	}
}
