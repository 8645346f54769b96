package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/NeowayLabs/hdi/drm"
	"github.com/NeowayLabs/hdi/internal/config"
)

var capNames = []struct {
	name string
	cap  uint64
}{
	{"dumb buffer", drm.CapDumbBuffer},
	{"vblank high crtc", drm.CapVBlankHighCRTC},
	{"dumb preferred depth", drm.CapDumbPreferredDepth},
	{"prime", drm.CapPrime},
	{"timestamp monotonic", drm.CapTimestampMonotonic},
	{"async page flip", drm.CapAsyncPageFlip},
	{"cursor width", drm.CapCursorWidth},
	{"cursor height", drm.CapCursorHeight},
	{"addfb2 modifiers", drm.CapAddFB2Modifiers},
	{"syncobj", drm.CapSyncObj},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the driver version and capabilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := config.Get().Device.Path
		file, err := drm.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		v, err := drm.GetVersion(file)
		if err != nil {
			return fmt.Errorf("version of %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %d.%d.%d (%s) %s\n",
			path, v.Name, v.Major, v.Minor, v.Patch, v.Date, v.Desc)

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Capability", "Value"})
		for _, c := range capNames {
			val, err := drm.GetCap(file, c.cap)
			if err != nil {
				table.Append([]string{c.name, "unsupported"})
				continue
			}
			table.Append([]string{c.name, strconv.FormatUint(val, 10)})
		}
		table.Render()
		return nil
	},
}
