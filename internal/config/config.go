package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	NodeID   string
	HTTPPort int
	Debug    bool

	// Directory proof files are written to. The submission response
	// references files by name relative to this directory.
	AssetsDir string

	// Maximum retained log lines per job trail.
	LogTrailCap int

	// Watcher connection cadence.
	KeepaliveInterval time.Duration
	PollInterval      time.Duration

	// Simulated proving time of the local prover.
	ProveDelay time.Duration
}

// fileConfig mirrors Config for the optional YAML file. Pointer fields so
// an absent key leaves the default untouched.
type fileConfig struct {
	NodeID            *string `yaml:"node_id"`
	HTTPPort          *int    `yaml:"http_port"`
	Debug             *bool   `yaml:"debug"`
	AssetsDir         *string `yaml:"assets_dir"`
	LogTrailCap       *int    `yaml:"log_trail_cap"`
	KeepaliveSeconds  *int    `yaml:"keepalive_seconds"`
	PollSeconds       *int    `yaml:"poll_seconds"`
	ProveDelaySeconds *int    `yaml:"prove_delay_seconds"`
}

// Load builds the config from defaults, then the optional YAML file at
// path (empty path skips it), then environment variable overrides.
func Load(path string) (*Config, error) {
	c := &Config{
		NodeID:            "proofd-default",
		HTTPPort:          3000,
		AssetsDir:         "assets",
		LogTrailCap:       100,
		KeepaliveInterval: 5 * time.Second,
		PollInterval:      time.Second,
		ProveDelay:        2 * time.Second,
	}

	if path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, err
		}
	}
	c.applyEnv()

	return c, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.NodeID != nil {
		c.NodeID = *fc.NodeID
	}
	if fc.HTTPPort != nil {
		c.HTTPPort = *fc.HTTPPort
	}
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}
	if fc.AssetsDir != nil {
		c.AssetsDir = *fc.AssetsDir
	}
	if fc.LogTrailCap != nil {
		c.LogTrailCap = *fc.LogTrailCap
	}
	if fc.KeepaliveSeconds != nil {
		c.KeepaliveInterval = time.Duration(*fc.KeepaliveSeconds) * time.Second
	}
	if fc.PollSeconds != nil {
		c.PollInterval = time.Duration(*fc.PollSeconds) * time.Second
	}
	if fc.ProveDelaySeconds != nil {
		c.ProveDelay = time.Duration(*fc.ProveDelaySeconds) * time.Second
	}

	return nil
}

func (c *Config) applyEnv() {
	c.NodeID = getEnv("NODE_ID", c.NodeID)
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.AssetsDir = getEnv("ASSETS_DIR", c.AssetsDir)
	c.LogTrailCap = getEnvInt("LOG_TRAIL_CAP", c.LogTrailCap)
	c.KeepaliveInterval = getEnvSeconds("KEEPALIVE_SECONDS", c.KeepaliveInterval)
	c.PollInterval = getEnvSeconds("POLL_SECONDS", c.PollInterval)
	c.ProveDelay = getEnvSeconds("PROVE_DELAY_SECONDS", c.ProveDelay)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
