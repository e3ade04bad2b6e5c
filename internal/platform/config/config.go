// Package config resolves process configuration from defaults, an optional
// YAML file and OUTCOMES_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDeviceType            = 2
	DefaultIndirectWindowMinutes = 1440
	DefaultNotificationLimit     = 10
	DefaultSessionThreshold      = 30 * time.Second
	DefaultBackendAddr           = "127.0.0.1:8088"
)

type Config struct {
	DataDir     string            `yaml:"-"`
	DBPath      string            `yaml:"db_path"`
	KVDir       string            `yaml:"kv_dir"`
	MetricsAddr string            `yaml:"metrics_addr"`
	Backend     BackendConfig     `yaml:"backend"`
	Store       StoreConfig       `yaml:"store"`
	Attribution AttributionConfig `yaml:"attribution"`
	Outcomes    OutcomesConfig    `yaml:"outcomes"`
	Sync        SyncConfig        `yaml:"sync"`
	Log         LogConfig         `yaml:"log"`
}

type BackendConfig struct {
	URL               string        `yaml:"url"`
	AppID             string        `yaml:"app_id"`
	DeviceType        int           `yaml:"device_type"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// StoreConfig selects the outcome store driver: "sqlite" or "redis".
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	RedisURL string `yaml:"redis_url"`
	RedisKey string `yaml:"redis_key"`
}

type AttributionConfig struct {
	DirectEnabled         bool          `yaml:"direct_enabled"`
	IndirectEnabled       bool          `yaml:"indirect_enabled"`
	UnattributedEnabled   bool          `yaml:"unattributed_enabled"`
	NotificationLimit     int           `yaml:"notification_limit"`
	IndirectWindowMinutes int           `yaml:"indirect_window_minutes"`
	SessionThreshold      time.Duration `yaml:"session_threshold"`
}

type OutcomesConfig struct {
	CacheActive bool `yaml:"cache_active"`
}

type SyncConfig struct {
	JobDelay             time.Duration `yaml:"job_delay"`
	PollInterval         time.Duration `yaml:"poll_interval"`
	MinUnattributedFocus time.Duration `yaml:"min_unattributed_focus"`
	CheckpointInterval   time.Duration `yaml:"checkpoint_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// New returns the defaults rooted at dataDir.
func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	return Config{
		DataDir: dataDir,
		DBPath:  filepath.Join(dataDir, "outcomes.db"),
		KVDir:   filepath.Join(dataDir, "state"),
		Backend: BackendConfig{
			URL:        "http://" + DefaultBackendAddr,
			AppID:      "local-app",
			DeviceType: DefaultDeviceType,
			Timeout:    30 * time.Second,
		},
		Store: StoreConfig{Driver: "sqlite", RedisKey: "outcomes:pending"},
		Attribution: AttributionConfig{
			DirectEnabled:         true,
			IndirectEnabled:       true,
			UnattributedEnabled:   true,
			NotificationLimit:     DefaultNotificationLimit,
			IndirectWindowMinutes: DefaultIndirectWindowMinutes,
			SessionThreshold:      DefaultSessionThreshold,
		},
		Outcomes: OutcomesConfig{CacheActive: true},
		Sync: SyncConfig{
			JobDelay:             30 * time.Second,
			PollInterval:         10 * time.Second,
			MinUnattributedFocus: 60 * time.Second,
			CheckpointInterval:   10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}, nil
}

// Load layers the YAML file at path (or <dataDir>/outcomes.yaml when path is
// empty and the file exists) and the environment over the defaults.
func Load(dataDir, path string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dataDir, "outcomes.yaml")
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if c.KVDir == "" {
		return fmt.Errorf("kv_dir cannot be empty")
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url cannot be empty")
	}
	if c.Backend.AppID == "" {
		return fmt.Errorf("backend.app_id cannot be empty")
	}
	if c.Backend.RequestsPerSecond < 0 || c.Backend.Burst < 0 {
		return fmt.Errorf("backend.requests_per_second and backend.burst must be >= 0")
	}
	switch c.Store.Driver {
	case "sqlite":
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Attribution.NotificationLimit <= 0 {
		return fmt.Errorf("attribution.notification_limit must be > 0")
	}
	if c.Attribution.IndirectWindowMinutes <= 0 {
		return fmt.Errorf("attribution.indirect_window_minutes must be > 0")
	}
	if c.Attribution.SessionThreshold < 0 {
		return fmt.Errorf("attribution.session_threshold must be >= 0")
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync.poll_interval must be > 0")
	}
	if c.Sync.CheckpointInterval <= 0 {
		return fmt.Errorf("sync.checkpoint_interval must be > 0")
	}
	return nil
}

func applyEnv(c *Config) {
	c.Backend.URL = getEnv("OUTCOMES_BACKEND_URL", c.Backend.URL)
	c.Backend.AppID = getEnv("OUTCOMES_APP_ID", c.Backend.AppID)
	c.Backend.DeviceType = getEnvInt("OUTCOMES_DEVICE_TYPE", c.Backend.DeviceType)
	c.Store.Driver = getEnv("OUTCOMES_STORE_DRIVER", c.Store.Driver)
	c.Store.RedisURL = getEnv("OUTCOMES_REDIS_URL", c.Store.RedisURL)
	c.Outcomes.CacheActive = getEnvBool("OUTCOMES_CACHE_ACTIVE", c.Outcomes.CacheActive)
	c.MetricsAddr = getEnv("OUTCOMES_METRICS_ADDR", c.MetricsAddr)
	c.Log.Level = getEnv("OUTCOMES_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("OUTCOMES_LOG_FORMAT", c.Log.Format)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
