// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/NeowayLabs/hdi/gfx"
)

// Config represents the composer configuration
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Gfx     GfxConfig     `mapstructure:"gfx"`
	Display DisplayConfig `mapstructure:"display"`
	Vsync   VsyncConfig   `mapstructure:"vsync"`
	Log     LogConfig     `mapstructure:"log"`
}

// DeviceConfig selects the DRM node
type DeviceConfig struct {
	Path       string `mapstructure:"path"`
	TakeMaster bool   `mapstructure:"take_master"` // fail Init when master can't be acquired
}

// GfxConfig selects the blit back end: "soft" or "none"
type GfxConfig struct {
	Backend string `mapstructure:"backend"`
}

// DisplayConfig contains per-display settings
type DisplayConfig struct {
	FirstFrame      bool   `mapstructure:"first_frame"`       // push a frame right after Init
	FirstFrameColor uint32 `mapstructure:"first_frame_color"` // ARGB
}

type VsyncConfig struct {
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // overrides LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Device: DeviceConfig{
			Path:       "/dev/dri/card0",
			TakeMaster: true,
		},
		Gfx: GfxConfig{
			Backend: gfx.BackendSoft,
		},
		Display: DisplayConfig{
			FirstFrame:      true,
			FirstFrameColor: 0xff000000,
		},
		Vsync: VsyncConfig{
			RetryBackoff: 16 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "",
		},
	}

	cfg *Config

	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("hdicomposer")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/hdicomposer")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "hdicomposer"))
		}
		viper.AddConfigPath(".")
	}

	// HDI_DEVICE_PATH overrides device.path
	viper.SetEnvPrefix("HDI")
	viper.SetEnvKeyReplacer(envReplacer)
	viper.AutomaticEnv()

	viper.SetDefault("device.path", DefaultConfig.Device.Path)
	viper.SetDefault("device.take_master", DefaultConfig.Device.TakeMaster)
	viper.SetDefault("gfx.backend", DefaultConfig.Gfx.Backend)
	viper.SetDefault("display.first_frame", DefaultConfig.Display.FirstFrame)
	viper.SetDefault("display.first_frame_color", DefaultConfig.Display.FirstFrameColor)
	viper.SetDefault("vsync.retry_backoff", DefaultConfig.Vsync.RetryBackoff)
	viper.SetDefault("log.level", DefaultConfig.Log.Level)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

// Validate checks values viper can't type-check
func (c *Config) Validate() error {
	switch c.Gfx.Backend {
	case gfx.BackendSoft, gfx.BackendNone:
	default:
		return fmt.Errorf("gfx.backend: unknown back end %q, want one of %v", c.Gfx.Backend, gfx.Backends())
	}
	if c.Device.Path == "" {
		return fmt.Errorf("device.path: empty")
	}
	if c.Vsync.RetryBackoff < 0 {
		return fmt.Errorf("vsync.retry_backoff: negative duration %s", c.Vsync.RetryBackoff)
	}
	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		d := DefaultConfig
		return &d
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// ConfigFileUsed returns the file Init read, if any
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

var envReplacer = strings.NewReplacer(".", "_")
