package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/NeowayLabs/hdi/device"
	"github.com/NeowayLabs/hdi/hdi"
	"github.com/NeowayLabs/hdi/internal/logger"
	"github.com/NeowayLabs/hdi/mode"
)

var (
	fillColor string
	boxColor  string
	fillHold  time.Duration
)

func init() {
	fillCmd.Flags().StringVar(&fillColor, "color", "0xff202060", "background color, ARGB")
	fillCmd.Flags().StringVar(&boxColor, "box", "", "also compose a centered box of this ARGB color as a device layer")
	fillCmd.Flags().DurationVar(&fillHold, "hold", 5*time.Second, "how long to keep the frame on screen")
}

var fillCmd = &cobra.Command{
	Use:   "fill <display-id>",
	Short: "Commit a solid frame, optionally with a composed box",
	Long: `fill allocates a client buffer the size of the active mode, fills it and
commits it. With --box a half-size graphic layer is blitted on top by the
gfx back end before the commit. The previous CRTC state is restored on
exit.`,
	Args: cobra.ExactArgs(1),
	RunE: runFill,
}

func parseColor(s string) (uint32, error) {
	c, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	return uint32(c), nil
}

// mappedBuffer allocates a BGRA8888 buffer, maps it and fills it.
func mappedBuffer(alloc hdi.Allocator, w, h int32, color uint32) (*hdi.BufferHandle, error) {
	buf, err := alloc.AllocMem(&hdi.AllocInfo{
		Width:  uint32(w),
		Height: uint32(h),
		Usage:  hdi.UsageMemDMA | hdi.UsageCPURead | hdi.UsageCPUWrite,
		Format: hdi.PixelFmtBGRA8888,
	})
	if err != nil {
		return nil, err
	}
	mem, err := alloc.Mmap(buf)
	if err != nil {
		return nil, multierr.Append(err, alloc.FreeMem(buf))
	}
	device.FillBGRA(mem, color)
	return buf, alloc.FlushCache(buf)
}

func runFill(cmd *cobra.Command, args []string) error {
	id, err := parseDisplayID(args[0])
	if err != nil {
		return err
	}
	bg, err := parseColor(fillColor)
	if err != nil {
		return err
	}

	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	disp, err := s.Display(id)
	if err != nil {
		return err
	}
	alloc := s.Allocator()
	if alloc == nil {
		return fmt.Errorf("card has no buffer allocator: %w", hdi.ErrNotSupported)
	}
	modeID, err := disp.GetDisplayMode()
	if err != nil {
		return err
	}
	m, err := disp.Connector().GetModeFromID(modeID)
	if err != nil {
		return err
	}
	w, h := int32(m.Info.Hdisplay), int32(m.Info.Vdisplay)

	card := s.Device().Card()
	saved, err := card.GetCrtc(disp.Crtc().ID())
	if err != nil {
		logger.Warn("crtc state not saved", "crtc", disp.Crtc().ID(), "err", err)
	}

	client, err := mappedBuffer(alloc, w, h, bg)
	if err != nil {
		return err
	}
	defer alloc.FreeMem(client)
	fmt.Fprintf(cmd.OutOrStdout(), "display %d: %dx%d client buffer, %s\n",
		id, w, h, humanize.IBytes(uint64(client.Size)))

	if boxColor != "" {
		fg, err := parseColor(boxColor)
		if err != nil {
			return err
		}
		box, err := mappedBuffer(alloc, w/2, h/2, fg)
		if err != nil {
			return err
		}
		defer alloc.FreeMem(box)
		if err := addBoxLayer(disp, box, w, h); err != nil {
			return err
		}
	}

	if err := disp.SetDisplayClientBuffer(client, -1); err != nil {
		return err
	}
	if _, err := disp.PrepareDisplayLayers(); err != nil {
		return err
	}
	fence, err := disp.Commit()
	if err != nil {
		return err
	}
	if err := hdi.AdoptFd(fence).Close(); err != nil {
		logger.Warn("close release fence", "err", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	select {
	case <-ctx.Done():
	case <-time.After(fillHold):
	}

	if saved != nil && saved.BufferID != 0 {
		conn := []uint32{disp.Connector().ID()}
		if err := mode.SetCrtc(card.File(), saved.ID, saved.BufferID, saved.X, saved.Y, conn, &saved.Mode); err != nil {
			logger.Warn("restore crtc", "crtc", saved.ID, "err", err)
		}
	}
	return nil
}

func addBoxLayer(disp *device.Display, box *hdi.BufferHandle, w, h int32) error {
	lid, err := disp.CreateLayer(&hdi.LayerInfo{
		Width:     box.Width,
		Height:    box.Height,
		Type:      hdi.LayerTypeGraphic,
		BPP:       32,
		PixFormat: hdi.PixelFmtBGRA8888,
	})
	if err != nil {
		return err
	}
	l, err := disp.GetLayer(lid)
	if err != nil {
		return err
	}
	return multierr.Combine(
		l.SetLayerSize(&hdi.Rect{X: w / 4, Y: h / 4, W: box.Width, H: box.Height}),
		l.SetLayerCompositionType(hdi.CompositionDevice),
		l.SetLayerBuffer(box, -1),
		disp.SetLayerZorder(lid, 1),
	)
}
