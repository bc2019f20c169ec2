// Package config holds the tool server's process configuration: storage
// root, housekeeper scheduling, logger sink, public web base URL, and the
// default antidetection/rate-limit settings the dispatcher seeds its
// process-wide profile state with. Config is built through a chain
// (WithDefault(...).WithX(...).Build()), optionally layered with a JSON or
// YAML config file and then recognized environment variables.
// WithConfigFile accepts either JSON or YAML, picked by file extension.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	storageRoot                 string
	housekeeperIntervalMinutes  int
	housekeeperStaleLockSeconds int
	maxStorageMB                int
	loggerSinkURL               string
	loggerSinkAPIKey            string
	publicWebBaseURL            string
	listenAddr                  string
	defaultProfile              string
	defaultRateLimitDelay       float64
	defaultMaxResponseChars     int
	defaultRespectRobots        bool
}

type configDTO struct {
	StorageRoot                 string  `json:"storageRoot,omitempty" yaml:"storageRoot,omitempty"`
	HousekeeperIntervalMinutes  int     `json:"housekeeperIntervalMinutes,omitempty" yaml:"housekeeperIntervalMinutes,omitempty"`
	HousekeeperStaleLockSeconds int     `json:"housekeeperStaleLockSeconds,omitempty" yaml:"housekeeperStaleLockSeconds,omitempty"`
	MaxStorageMB                int     `json:"maxStorageMB,omitempty" yaml:"maxStorageMB,omitempty"`
	LoggerSinkURL               string  `json:"loggerSinkURL,omitempty" yaml:"loggerSinkURL,omitempty"`
	LoggerSinkAPIKey            string  `json:"loggerSinkAPIKey,omitempty" yaml:"loggerSinkAPIKey,omitempty"`
	PublicWebBaseURL            string  `json:"publicWebBaseURL,omitempty" yaml:"publicWebBaseURL,omitempty"`
	ListenAddr                  string  `json:"listenAddr,omitempty" yaml:"listenAddr,omitempty"`
	DefaultProfile              string  `json:"defaultProfile,omitempty" yaml:"defaultProfile,omitempty"`
	DefaultRateLimitDelay       float64 `json:"defaultRateLimitDelay,omitempty" yaml:"defaultRateLimitDelay,omitempty"`
	DefaultMaxResponseChars     int     `json:"defaultMaxResponseChars,omitempty" yaml:"defaultMaxResponseChars,omitempty"`
	DefaultRespectRobots        *bool   `json:"defaultRespectRobots,omitempty" yaml:"defaultRespectRobots,omitempty"`
}

// WithDefault builds a Config carrying every documented default: storage
// under ./data/sessions, hourly housekeeper sweeps, a one-hour stale-lock
// reclaim, a 1GB store ceiling, the "balanced" antidetection profile at a
// 1s rate delay, and robots.txt respected.
func WithDefault() *Config {
	return &Config{
		storageRoot:                 "./data/sessions",
		housekeeperIntervalMinutes:  60,
		housekeeperStaleLockSeconds: 3600,
		maxStorageMB:                1024,
		publicWebBaseURL:            "http://localhost:8080",
		listenAddr:                  ":8080",
		defaultProfile:              "balanced",
		defaultRateLimitDelay:       1.0,
		defaultMaxResponseChars:     50_000,
		defaultRespectRobots:        true,
	}
}

func (c *Config) WithStorageRoot(path string) *Config {
	c.storageRoot = path
	return c
}

func (c *Config) WithHousekeeperIntervalMinutes(minutes int) *Config {
	c.housekeeperIntervalMinutes = minutes
	return c
}

func (c *Config) WithHousekeeperStaleLockSeconds(seconds int) *Config {
	c.housekeeperStaleLockSeconds = seconds
	return c
}

func (c *Config) WithMaxStorageMB(mb int) *Config {
	c.maxStorageMB = mb
	return c
}

func (c *Config) WithLoggerSink(url, apiKey string) *Config {
	c.loggerSinkURL = url
	c.loggerSinkAPIKey = apiKey
	return c
}

func (c *Config) WithPublicWebBaseURL(url string) *Config {
	c.publicWebBaseURL = url
	return c
}

func (c *Config) WithListenAddr(addr string) *Config {
	c.listenAddr = addr
	return c
}

func (c *Config) WithDefaultProfile(name string) *Config {
	c.defaultProfile = name
	return c
}

func (c *Config) WithDefaultRateLimitDelay(seconds float64) *Config {
	c.defaultRateLimitDelay = seconds
	return c
}

func (c *Config) WithDefaultMaxResponseChars(chars int) *Config {
	c.defaultMaxResponseChars = chars
	return c
}

func (c *Config) WithDefaultRespectRobots(respect bool) *Config {
	c.defaultRespectRobots = respect
	return c
}

// Build validates and clamps documented bounds: a housekeeper interval
// below one minute is clamped to one minute.
func (c *Config) Build() (Config, error) {
	if c.storageRoot == "" {
		return Config{}, fmt.Errorf("%w: storageRoot cannot be empty", ErrInvalidConfig)
	}
	if c.housekeeperIntervalMinutes < 1 {
		c.housekeeperIntervalMinutes = 1
	}
	if c.housekeeperStaleLockSeconds < 1 {
		c.housekeeperStaleLockSeconds = 3600
	}
	if c.maxStorageMB < 1 {
		return Config{}, fmt.Errorf("%w: maxStorageMB must be positive", ErrInvalidConfig)
	}
	return *c, nil
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg := WithDefault()
	if dto.StorageRoot != "" {
		cfg.storageRoot = dto.StorageRoot
	}
	if dto.HousekeeperIntervalMinutes != 0 {
		cfg.housekeeperIntervalMinutes = dto.HousekeeperIntervalMinutes
	}
	if dto.HousekeeperStaleLockSeconds != 0 {
		cfg.housekeeperStaleLockSeconds = dto.HousekeeperStaleLockSeconds
	}
	if dto.MaxStorageMB != 0 {
		cfg.maxStorageMB = dto.MaxStorageMB
	}
	if dto.LoggerSinkURL != "" {
		cfg.loggerSinkURL = dto.LoggerSinkURL
	}
	if dto.LoggerSinkAPIKey != "" {
		cfg.loggerSinkAPIKey = dto.LoggerSinkAPIKey
	}
	if dto.PublicWebBaseURL != "" {
		cfg.publicWebBaseURL = dto.PublicWebBaseURL
	}
	if dto.ListenAddr != "" {
		cfg.listenAddr = dto.ListenAddr
	}
	if dto.DefaultProfile != "" {
		cfg.defaultProfile = dto.DefaultProfile
	}
	if dto.DefaultRateLimitDelay != 0 {
		cfg.defaultRateLimitDelay = dto.DefaultRateLimitDelay
	}
	if dto.DefaultMaxResponseChars != 0 {
		cfg.defaultMaxResponseChars = dto.DefaultMaxResponseChars
	}
	if dto.DefaultRespectRobots != nil {
		cfg.defaultRespectRobots = *dto.DefaultRespectRobots
	}
	built, err := cfg.Build()
	if err != nil {
		return Config{}, err
	}
	return built, nil
}

// WithConfigFile loads a JSON or YAML config file (by extension; .yaml/.yml
// parse as YAML, everything else as JSON), falling back to WithDefault for
// any field left unset.
func WithConfigFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	var dto configDTO
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(content, &dto); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
		}
	} else if err := json.Unmarshal(content, &dto); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}
	return newConfigFromDTO(dto)
}

// Recognized environment variables.
const (
	EnvStorageRoot          = "SCRAPTOOL_STORAGE_ROOT"
	EnvHousekeeperInterval  = "SCRAPTOOL_HOUSEKEEPER_INTERVAL_MINUTES"
	EnvHousekeeperStaleLock = "SCRAPTOOL_HOUSEKEEPER_STALE_LOCK_SECONDS"
	EnvMaxStorageMB         = "SCRAPTOOL_MAX_STORAGE_MB"
	EnvLoggerSinkURL        = "SCRAPTOOL_LOGGER_SINK_URL"
	EnvLoggerSinkAPIKey     = "SCRAPTOOL_LOGGER_SINK_API_KEY"
	EnvPublicWebBaseURL     = "SCRAPTOOL_PUBLIC_BASE_URL"
	EnvListenAddr           = "SCRAPTOOL_LISTEN_ADDR"
	EnvDefaultProfile       = "SCRAPTOOL_DEFAULT_PROFILE"
	EnvDefaultRateLimit     = "SCRAPTOOL_DEFAULT_RATE_LIMIT_DELAY"
	EnvDefaultMaxRespChars  = "SCRAPTOOL_DEFAULT_MAX_RESPONSE_CHARS"
)

// WithEnv overlays recognized environment variables onto the builder.
// Unset variables leave the current value untouched.
func (c *Config) WithEnv() *Config {
	if v := os.Getenv(EnvStorageRoot); v != "" {
		c.storageRoot = v
	}
	if v := os.Getenv(EnvHousekeeperInterval); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.housekeeperIntervalMinutes = n
		}
	}
	if v := os.Getenv(EnvHousekeeperStaleLock); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.housekeeperStaleLockSeconds = n
		}
	}
	if v := os.Getenv(EnvMaxStorageMB); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.maxStorageMB = n
		}
	}
	if v := os.Getenv(EnvLoggerSinkURL); v != "" {
		c.loggerSinkURL = v
	}
	if v := os.Getenv(EnvLoggerSinkAPIKey); v != "" {
		c.loggerSinkAPIKey = v
	}
	if v := os.Getenv(EnvPublicWebBaseURL); v != "" {
		c.publicWebBaseURL = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.listenAddr = v
	}
	if v := os.Getenv(EnvDefaultProfile); v != "" {
		c.defaultProfile = v
	}
	if v := os.Getenv(EnvDefaultRateLimit); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.defaultRateLimitDelay = f
		}
	}
	if v := os.Getenv(EnvDefaultMaxRespChars); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.defaultMaxResponseChars = n
		}
	}
	return c
}

func (c Config) StorageRoot() string               { return c.storageRoot }
func (c Config) HousekeeperIntervalMinutes() int   { return c.housekeeperIntervalMinutes }
func (c Config) HousekeeperStaleLockSeconds() int  { return c.housekeeperStaleLockSeconds }
func (c Config) MaxStorageMB() int                 { return c.maxStorageMB }
func (c Config) MaxStorageBytes() int64            { return int64(c.maxStorageMB) * 1024 * 1024 }
func (c Config) LoggerSinkURL() string             { return c.loggerSinkURL }
func (c Config) LoggerSinkAPIKey() string          { return c.loggerSinkAPIKey }
func (c Config) PublicWebBaseURL() string          { return c.publicWebBaseURL }
func (c Config) ListenAddr() string                { return c.listenAddr }
func (c Config) DefaultProfile() string            { return c.defaultProfile }
func (c Config) DefaultRateLimitDelay() float64    { return c.defaultRateLimitDelay }
func (c Config) DefaultMaxResponseChars() int      { return c.defaultMaxResponseChars }
func (c Config) DefaultRespectRobots() bool        { return c.defaultRespectRobots }
