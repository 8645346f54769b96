package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/NeowayLabs/hdi/hdi"
)

var powerCmd = &cobra.Command{
	Use:   "power <display-id> [on|standby|suspend|off]",
	Short: "Show or set the power status of a display",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDisplayID(args[0])
		if err != nil {
			return err
		}
		s, err := openSession(len(args) == 2)
		if err != nil {
			return err
		}
		defer s.Close()

		disp, err := s.Display(id)
		if err != nil {
			return err
		}
		if len(args) == 2 {
			status, err := hdi.ParsePowerStatus(args[1])
			if err != nil {
				return fmt.Errorf("power status %q: %w", args[1], err)
			}
			if err := disp.SetDisplayPowerStatus(status); err != nil {
				return err
			}
		}
		status, err := disp.GetDisplayPowerStatus()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "display %d: %s\n", id, status)
		return nil
	},
}

var backlightCmd = &cobra.Command{
	Use:   "backlight <display-id> [level]",
	Short: "Show or set the backlight level of a display",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDisplayID(args[0])
		if err != nil {
			return err
		}
		s, err := openSession(len(args) == 2)
		if err != nil {
			return err
		}
		defer s.Close()

		disp, err := s.Display(id)
		if err != nil {
			return err
		}
		if len(args) == 2 {
			level, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("backlight level %q: %w", args[1], err)
			}
			if err := disp.SetDisplayBacklight(uint32(level)); err != nil {
				return err
			}
		}
		level, err := disp.GetDisplayBacklight()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "display %d: backlight %d\n", id, level)
		return nil
	},
}
