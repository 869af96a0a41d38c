// Package config loads the daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/ces-device/internal/logic"
)

// Config holds application configuration.
type Config struct {
	// Broker is the MQTT broker URL. Empty disables publishing.
	Broker string `yaml:"broker"`

	// ClientID is the MQTT client identifier.
	ClientID string `yaml:"client_id"`

	// HTTPAddr is the status/command server address. Empty disables it.
	HTTPAddr string `yaml:"http_addr"`

	// Poll is how often the run loop advances the device timers.
	// Must be no longer than Tick or fires arrive in bursts.
	Poll time.Duration `yaml:"poll"`

	// Tick is the length of one simulated second.
	Tick time.Duration `yaml:"tick"`

	// GracePeriod is how long a session survives lost skin contact.
	GracePeriod time.Duration `yaml:"grace_period"`

	// InactivityStep is added to the inactivity counter on every tick.
	InactivityStep int `yaml:"inactivity_step"`

	// InactivityLimit powers the device off once reached.
	InactivityLimit int `yaml:"inactivity_limit"`

	// Heartbeat is the interval for status heartbeats over MQTT (0 disables).
	Heartbeat time.Duration `yaml:"heartbeat"`

	// StartPowered powers the device on at startup. Unset means true.
	StartPowered *bool `yaml:"start_powered,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration.
func Default() *Config {
	on := true
	return &Config{
		ClientID:        "ces-device",
		HTTPAddr:        ":8080",
		Poll:            100 * time.Millisecond,
		Tick:            time.Second,
		GracePeriod:     5 * time.Second,
		InactivityStep:  60,
		InactivityLimit: 1800,
		Heartbeat:       15 * time.Minute,
		StartPowered:    &on,
		LogLevel:        "info",
	}
}

// Load reads configuration from path and applies it over the defaults.
// A missing file (or an empty path) yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	overlay := &Config{}
	if err := yaml.Unmarshal(data, overlay); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := Merge(Default(), overlay)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge combines base and overlay configs. Non-zero overlay values win.
func Merge(base, overlay *Config) *Config {
	result := *base

	if overlay.Broker != "" {
		result.Broker = overlay.Broker
	}
	if overlay.ClientID != "" {
		result.ClientID = overlay.ClientID
	}
	if overlay.HTTPAddr != "" {
		result.HTTPAddr = overlay.HTTPAddr
	}
	if overlay.Poll != 0 {
		result.Poll = overlay.Poll
	}
	if overlay.Tick != 0 {
		result.Tick = overlay.Tick
	}
	if overlay.GracePeriod != 0 {
		result.GracePeriod = overlay.GracePeriod
	}
	if overlay.InactivityStep != 0 {
		result.InactivityStep = overlay.InactivityStep
	}
	if overlay.InactivityLimit != 0 {
		result.InactivityLimit = overlay.InactivityLimit
	}
	if overlay.Heartbeat != 0 {
		result.Heartbeat = overlay.Heartbeat
	}
	if overlay.StartPowered != nil {
		v := *overlay.StartPowered
		result.StartPowered = &v
	}
	if overlay.LogLevel != "" {
		result.LogLevel = overlay.LogLevel
	}

	return &result
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Poll <= 0:
		return fmt.Errorf("poll must be positive, got %v", c.Poll)
	case c.Tick <= 0:
		return fmt.Errorf("tick must be positive, got %v", c.Tick)
	case c.GracePeriod <= 0:
		return fmt.Errorf("grace_period must be positive, got %v", c.GracePeriod)
	case c.InactivityStep <= 0:
		return fmt.Errorf("inactivity_step must be positive, got %d", c.InactivityStep)
	case c.InactivityLimit <= 0:
		return fmt.Errorf("inactivity_limit must be positive, got %d", c.InactivityLimit)
	case c.Heartbeat < 0:
		return fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}

// Device returns the device timing derived from this configuration.
func (c *Config) Device() logic.Config {
	dc := logic.Config{
		Tick:            c.Tick,
		GracePeriod:     c.GracePeriod,
		InactivityStep:  c.InactivityStep,
		InactivityLimit: c.InactivityLimit,
		StartPowered:    true,
	}
	if c.StartPowered != nil {
		dc.StartPowered = *c.StartPowered
	}
	return dc
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
