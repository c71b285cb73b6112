package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	NodeSourceRegistry  = "registry"
	NodeSourceDirectory = "directory"
)

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config holds process settings. Values come from the YAML file named by
// SATELLITE_CONFIG, if any, and environment variables override them.
type Config struct {
	CoreDatabaseURL   string `yaml:"core_database_url"`
	HTTPListenAddr    string `yaml:"http_listen_addr"`
	MetricsListenAddr string `yaml:"metrics_listen_addr"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
	ServiceName       string `yaml:"service_name"`
	// NodeID identifies this control-plane replica in logs.
	NodeID     string `yaml:"node_id"`
	IPFSAPIURL string `yaml:"ipfs_api_url"`
	RedisURL   string `yaml:"redis_url"`
	NodeSource string `yaml:"node_source"`

	NodeStaleness     time.Duration `yaml:"node_staleness"`
	NodeCheckInterval time.Duration `yaml:"node_check_interval"`

	StoreTimeout      time.Duration `yaml:"store_timeout"`
	KeyTimeout        time.Duration `yaml:"key_timeout"`
	PublishTimeout    time.Duration `yaml:"publish_timeout"`
	NodeDeployTimeout time.Duration `yaml:"node_deploy_timeout"`

	FanoutLimit    int     `yaml:"fanout_limit"`
	MaxTargetNodes int     `yaml:"max_target_nodes"`
	NodeRateLimit  float64 `yaml:"node_rate_limit"`
	NodeRateBurst  int     `yaml:"node_rate_burst"`
}

func defaults() *Config {
	return &Config{
		HTTPListenAddr:    ":8000",
		MetricsListenAddr: ":9100",
		LogLevel:          "info",
		LogFormat:         LogFormatJSON,
		ServiceName:       "satellite-api",
		IPFSAPIURL:        "http://127.0.0.1:5001",
		NodeSource:        NodeSourceRegistry,
		NodeStaleness:     15 * time.Second,
		NodeCheckInterval: 5 * time.Second,
		StoreTimeout:      30 * time.Second,
		KeyTimeout:        10 * time.Second,
		PublishTimeout:    60 * time.Second,
		NodeDeployTimeout: 30 * time.Second,
		FanoutLimit:       64,
		NodeRateLimit:     5,
		NodeRateBurst:     10,
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("SATELLITE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.CoreDatabaseURL = getEnv("CORE_DATABASE_URL", cfg.CoreDatabaseURL)
	cfg.HTTPListenAddr = getEnv("HTTP_LISTEN_ADDR", cfg.HTTPListenAddr)
	cfg.MetricsListenAddr = getEnv("METRICS_LISTEN_ADDR", cfg.MetricsListenAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.NodeID = getEnv("NODE_ID", cfg.NodeID)
	cfg.IPFSAPIURL = getEnv("IPFS_API_URL", cfg.IPFSAPIURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.NodeSource = getEnv("NODE_SOURCE", cfg.NodeSource)

	var errs []string
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"NODE_STALENESS", &cfg.NodeStaleness},
		{"NODE_CHECK_INTERVAL", &cfg.NodeCheckInterval},
		{"STORE_TIMEOUT", &cfg.StoreTimeout},
		{"KEY_TIMEOUT", &cfg.KeyTimeout},
		{"PUBLISH_TIMEOUT", &cfg.PublishTimeout},
		{"NODE_DEPLOY_TIMEOUT", &cfg.NodeDeployTimeout},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, *d.dst)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		*d.dst = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"FANOUT_LIMIT", &cfg.FanoutLimit},
		{"MAX_TARGET_NODES", &cfg.MaxTargetNodes},
		{"NODE_RATE_BURST", &cfg.NodeRateBurst},
	}
	for _, i := range ints {
		v, err := getInt(i.key, *i.dst)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		*i.dst = v
	}

	rateLimit, err := getFloat("NODE_RATE_LIMIT", cfg.NodeRateLimit)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.NodeRateLimit = rateLimit

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports every setting the given role needs but lacks. Roles are
// "api" and "migrate".
func (c *Config) Validate(role string) error {
	var missing []string
	require := func(value, key string) {
		if value == "" {
			missing = append(missing, key)
		}
	}

	switch role {
	case "api":
		require(c.CoreDatabaseURL, "CORE_DATABASE_URL")
		require(c.HTTPListenAddr, "HTTP_LISTEN_ADDR")
		require(c.IPFSAPIURL, "IPFS_API_URL")
		if c.NodeSource == NodeSourceDirectory {
			require(c.RedisURL, "REDIS_URL")
		}
	case "migrate":
		require(c.CoreDatabaseURL, "CORE_DATABASE_URL")
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config for %s: %s", role, strings.Join(missing, ", "))
	}

	switch c.LogFormat {
	case "", LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("LOG_FORMAT must be %q or %q, got %q", LogFormatJSON, LogFormatConsole, c.LogFormat)
	}

	if role == "api" {
		if c.NodeSource != NodeSourceRegistry && c.NodeSource != NodeSourceDirectory {
			return fmt.Errorf("NODE_SOURCE must be %q or %q, got %q", NodeSourceRegistry, NodeSourceDirectory, c.NodeSource)
		}
		if c.NodeStaleness <= 0 || c.NodeCheckInterval <= 0 {
			return fmt.Errorf("NODE_STALENESS and NODE_CHECK_INTERVAL must be positive")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
