package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var displaysCmd = &cobra.Command{
	Use:     "displays",
	Aliases: []string{"ls"},
	Short:   "List the displays and the connectors that could not be bound",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"ID", "Connector", "Connected", "Mode", "Size (mm)", "Layers", "Power", "CRTC", "Pipe"})
		for _, disp := range s.Displays() {
			capability, err := disp.GetDisplayCapability()
			if err != nil {
				return fmt.Errorf("display %d: %w", disp.ID(), err)
			}
			current := "-"
			if id, err := disp.GetDisplayMode(); err == nil {
				for _, m := range disp.GetDisplaySupportedModes() {
					if m.ID == id {
						current = fmt.Sprintf("%dx%d@%d", m.Width, m.Height, m.FreshRate)
					}
				}
			}
			power := "-"
			if p, err := disp.GetDisplayPowerStatus(); err == nil {
				power = p.String()
			}
			table.Append([]string{
				strconv.FormatUint(uint64(disp.ID()), 10),
				capability.Name,
				strconv.FormatBool(disp.IsConnected()),
				current,
				fmt.Sprintf("%dx%d", capability.PhyWidth, capability.PhyHeight),
				strconv.FormatUint(uint64(capability.SupportLayers), 10),
				power,
				strconv.FormatUint(uint64(disp.Crtc().ID()), 10),
				strconv.FormatUint(uint64(disp.Crtc().Pipe()), 10),
			})
		}
		table.Render()

		for _, b := range s.BindErrors() {
			fmt.Fprintf(cmd.ErrOrStderr(), "connector %d not bound: %v\n", b.ConnectorID, b.Reason)
		}
		return nil
	},
}

var modesCmd = &cobra.Command{
	Use:   "modes <display-id>",
	Short: "List the modes of a display, the active one marked with *",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDisplayID(args[0])
		if err != nil {
			return err
		}
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		disp, err := s.Display(id)
		if err != nil {
			return err
		}
		active, _ := disp.GetDisplayMode()
		preferred := disp.Connector().GetPreferenceID()

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"", "ID", "Resolution", "Refresh", "Preferred"})
		for _, m := range disp.GetDisplaySupportedModes() {
			mark := ""
			if m.ID == active {
				mark = "*"
			}
			table.Append([]string{
				mark,
				strconv.Itoa(int(m.ID)),
				fmt.Sprintf("%dx%d", m.Width, m.Height),
				fmt.Sprintf("%d Hz", m.FreshRate),
				strconv.FormatBool(m.ID == preferred),
			})
		}
		table.Render()
		return nil
	},
}
