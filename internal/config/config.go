// Package config loads server and client settings from TOML files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"brickcat/internal/logger"
	"brickcat/internal/wire"

	"github.com/BurntSushi/toml"
)

var ErrInvalidConfig = errors.New("config: invalid config")

const DefaultAddr = "127.0.0.1:4000"

type ServerConfig struct {
	Addr          string        `toml:"addr"`
	DataDir       string        `toml:"data_dir"`
	PollInterval  time.Duration `toml:"poll_interval"`
	ReadTimeout   time.Duration `toml:"read_timeout"`
	WriteTimeout  time.Duration `toml:"write_timeout"`
	MaxFrameBytes uint32        `toml:"max_frame_bytes"`
	AcceptRate    float64       `toml:"accept_rate"`
	AcceptBurst   int           `toml:"accept_burst"`
	MetricsAddr   string        `toml:"metrics_addr"`
	LogLevel      string        `toml:"log_level"`
	LogFile       string        `toml:"log_file"`
}

type ClientConfig struct {
	Addr            string        `toml:"addr"`
	DialTimeout     time.Duration `toml:"dial_timeout"`
	MaxFrameBytes   uint32        `toml:"max_frame_bytes"`
	FallbackDataDir string        `toml:"fallback_data_dir"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:          DefaultAddr,
		DataDir:       "data",
		PollInterval:  100 * time.Millisecond,
		MaxFrameBytes: wire.DefaultMaxFrameBytes,
		LogLevel:      "info",
	}
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Addr:          DefaultAddr,
		DialTimeout:   5 * time.Second,
		MaxFrameBytes: wire.DefaultMaxFrameBytes,
	}
}

// LoadServerConfig overlays the file at path on the defaults. An empty path
// yields the defaults.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := decodeFile(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// LoadClientConfig overlays the file at path on the defaults. An empty path
// yields the defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := decodeFile(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func decodeFile(path string, out any) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	meta, err := toml.DecodeFile(path, out)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: %s: unknown key %q", ErrInvalidConfig, path, undecoded[0].String())
	}
	return nil
}

func (c ServerConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: server addr is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data_dir is required", ErrInvalidConfig)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive, got %s", ErrInvalidConfig, c.PollInterval)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if c.MaxFrameBytes == 0 {
		return fmt.Errorf("%w: max_frame_bytes must be positive", ErrInvalidConfig)
	}
	if c.AcceptRate < 0 {
		return fmt.Errorf("%w: accept_rate must not be negative", ErrInvalidConfig)
	}
	if c.AcceptRate > 0 && c.AcceptBurst < 1 {
		return fmt.Errorf("%w: accept_burst must be at least 1 when accept_rate is set", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c ClientConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: client addr is required", ErrInvalidConfig)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("%w: dial_timeout must not be negative", ErrInvalidConfig)
	}
	if c.MaxFrameBytes == 0 {
		return fmt.Errorf("%w: max_frame_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}
