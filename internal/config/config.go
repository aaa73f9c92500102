package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/tuplectl/internal/client"
	"github.com/danmuck/tuplectl/internal/logging"
	"github.com/danmuck/tuplectl/internal/protocol/frame"
)

// Config is the tuplectl runtime configuration.
type Config struct {
	Address        string
	ConnectTimeout time.Duration
	IOTimeout      time.Duration
	LogLevel       string
	Limits         frame.Limits
}

// tuplectl config.toml key mapping.
type fileConfig struct {
	Address        string     `toml:"address"`
	ConnectTimeout string     `toml:"connect_timeout"`
	IOTimeout      string     `toml:"io_timeout"`
	LogLevel       string     `toml:"log_level"`
	Limits         fileLimits `toml:"limits"`
}

type fileLimits struct {
	MaxElements    int32 `toml:"max_elements"`
	MaxStringBytes int32 `toml:"max_string_bytes"`
	MaxDepth       int   `toml:"max_depth"`
}

func Default() Config {
	cc := client.DefaultConfig()
	return Config{
		Address:        "localhost:25000",
		ConnectTimeout: cc.ConnectTimeout,
		IOTimeout:      cc.IOTimeout,
		LogLevel:       "info",
		Limits:         cc.Limits,
	}
}

// Load overlays the keys present in path onto Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load tuplectl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load tuplectl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("connect_timeout") {
		if cfg.ConnectTimeout, err = parseDuration("connect_timeout", raw.ConnectTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("io_timeout") {
		if cfg.IOTimeout, err = parseDuration("io_timeout", raw.IOTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("limits", "max_elements") {
		cfg.Limits.MaxElements = raw.Limits.MaxElements
	}
	if meta.IsDefined("limits", "max_string_bytes") {
		cfg.Limits.MaxStringBytes = raw.Limits.MaxStringBytes
	}
	if meta.IsDefined("limits", "max_depth") {
		cfg.Limits.MaxDepth = raw.Limits.MaxDepth
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load tuplectl config %s: %w", path, err)
	}
	return cfg, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("load tuplectl config: %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("load tuplectl config: %s must not be negative", key)
	}
	return d, nil
}

func (c Config) Validate() error {
	addr := strings.TrimSpace(c.Address)
	if addr == "" {
		return fmt.Errorf("address is required")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("address %q: %w", addr, err)
	}
	if host == "" {
		return fmt.Errorf("address %q: host required", addr)
	}
	if port == "" {
		return fmt.Errorf("address %q: port required", addr)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	// zero leaves a limit unbounded
	if c.Limits.MaxElements < 0 || c.Limits.MaxStringBytes < 0 || c.Limits.MaxDepth < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

// ClientConfig maps c onto the client adapter settings.
func (c Config) ClientConfig() client.Config {
	cc := client.DefaultConfig()
	cc.Address = c.Address
	cc.ConnectTimeout = c.ConnectTimeout
	cc.IOTimeout = c.IOTimeout
	cc.Limits = c.Limits
	return cc
}
