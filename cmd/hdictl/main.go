// Command hdictl inspects the displays of a DRM card and drives them
// through the composer.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/NeowayLabs/hdi/internal/config"
	"github.com/NeowayLabs/hdi/internal/logger"
	"github.com/NeowayLabs/hdi/session"
)

var (
	cfgFile    string
	devicePath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "hdictl",
		Short: "Inspect and drive DRM/KMS displays",
		Long: `hdictl opens a DRM card, discovers its displays and exercises the
composer on them: modes, power, backlight, frames and vblank events.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default hdicomposer.toml in the search path)")
	rootCmd.PersistentFlags().StringVarP(&devicePath, "device", "d", "", "DRM device node, overrides device.path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(displaysCmd)
	rootCmd.AddCommand(modesCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(vsyncCmd)
	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(backlightCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		config.SetConfigPath(cfgFile)
	}
	if err := config.Init(); err != nil {
		return err
	}
	cfg := config.Get()
	if devicePath != "" {
		cfg.Device.Path = devicePath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger.SetLevel(cfg.Log.Level)
	if used := config.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}
	return nil
}

// openSession opens the configured card without pushing a first frame.
// Inspection commands pass drive=false and don't take master.
func openSession(drive bool) (*session.Session, error) {
	cfg := *config.Get()
	cfg.Display.FirstFrame = false
	if !drive {
		cfg.Device.TakeMaster = false
	}
	return session.Open(&cfg)
}

func parseDisplayID(arg string) (uint32, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("display id %q: %w", arg, err)
	}
	return uint32(id), nil
}
