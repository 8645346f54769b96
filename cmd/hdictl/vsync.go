package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	vsyncCount int
	vsyncSync  bool
)

func init() {
	vsyncCmd.Flags().IntVarP(&vsyncCount, "count", "n", 60, "number of vblanks to report")
	vsyncCmd.Flags().BoolVar(&vsyncSync, "sync", false, "wait on the calling goroutine instead of the vsync worker")
}

type vblank struct {
	seq uint32
	ns  uint64
}

var vsyncCmd = &cobra.Command{
	Use:   "vsync <display-id>",
	Short: "Report vblank sequences and intervals of a display",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDisplayID(args[0])
		if err != nil {
			return err
		}
		if vsyncCount <= 0 {
			return fmt.Errorf("count %d: must be positive", vsyncCount)
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

		events := make(chan vblank, vsyncCount)
		if vsyncSync {
			for i := 0; i < vsyncCount; i++ {
				seq, ns, err := disp.WaitForVBlank()
				if err != nil {
					return err
				}
				events <- vblank{seq, ns}
			}
			close(events)
		} else {
			err := disp.RegDisplayVBlankCallback(func(seq uint32, ns uint64) {
				select {
				case events <- vblank{seq, ns}:
				default:
				}
			})
			if err != nil {
				return err
			}
			if err := disp.SetDisplayVsyncEnabled(true); err != nil {
				return err
			}
			defer disp.SetDisplayVsyncEnabled(false)
		}

		var prev uint64
		timeout := time.After(time.Duration(vsyncCount+10) * time.Second)
		for i := 0; i < vsyncCount; i++ {
			var ev vblank
			select {
			case ev = <-events:
			case <-timeout:
				return fmt.Errorf("display %d: %d of %d vblanks before timeout", id, i, vsyncCount)
			}
			if prev == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "seq %d\n", ev.seq)
			} else {
				interval := time.Duration(ev.ns - prev)
				fmt.Fprintf(cmd.OutOrStdout(), "seq %d  +%s (%.2f Hz)\n",
					ev.seq, interval, float64(time.Second)/float64(interval))
			}
			prev = ev.ns
		}
		return nil
	},
}
