// Package config provides configuration management for the VM wizard service.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like SERVER_PORT, WIZARD_SESSION_TTL)
// 3. Default values
//
// Import Path: kv-shepherd.io/vmwizard/internal/config
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Config is the root configuration structure.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	K8s    K8sConfig    `mapstructure:"k8s"`
	Wizard WizardConfig `mapstructure:"wizard"`
	Log    LogConfig    `mapstructure:"log"`
	Worker WorkerConfig `mapstructure:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CORS. An empty allowlist falls back to the local development origins.
	AllowedOrigins        []string `mapstructure:"allowed_origins"`
	AllowCredentials      bool     `mapstructure:"allow_credentials"`
	UnsafeAllowAllOrigins bool     `mapstructure:"unsafe_allow_all_origins"`
}

// K8sConfig contains Kubernetes connection settings. When disabled, live DataVolumes
// and claims come from the catalog file instead of a cluster.
type K8sConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Kubeconfig          string        `mapstructure:"kubeconfig"` // empty: in-cluster config
	OperationTimeout    time.Duration `mapstructure:"operation_timeout"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
}

// WizardConfig contains wizard session and update engine settings.
type WizardConfig struct {
	CatalogPath         string        `mapstructure:"catalog_path"`
	SessionTTL          time.Duration `mapstructure:"session_ttl"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	MaxSessions         int           `mapstructure:"max_sessions"`
	LoadTimeout         time.Duration `mapstructure:"load_timeout"`
	DefaultRootDiskSize string        `mapstructure:"default_root_disk_size"`
	GuestToolsImage     string        `mapstructure:"guest_tools_image"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize int `mapstructure:"general_pool_size"`
	FetchPoolSize   int `mapstructure:"fetch_pool_size"`
}

// Load reads configuration from file and environment variables.
// Standard environment variables without prefix (SERVER_PORT, LOG_LEVEL, etc.).
func Load() (*Config, error) {
	return load("")
}

// LoadFile reads configuration from the given file instead of the search path.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/vmwizard")
	}

	// Maps nested config: wizard.session_ttl → WIZARD_SESSION_TTL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Wizard.SessionTTL <= 0 {
		return fmt.Errorf("wizard.session_ttl must be positive")
	}
	if c.Wizard.SweepInterval <= 0 {
		return fmt.Errorf("wizard.sweep_interval must be positive")
	}
	if c.Wizard.MaxSessions <= 0 {
		return fmt.Errorf("wizard.max_sessions must be positive")
	}
	if _, err := resource.ParseQuantity(c.Wizard.DefaultRootDiskSize); err != nil {
		return fmt.Errorf("wizard.default_root_disk_size: %w", err)
	}
	if c.Worker.GeneralPoolSize <= 0 || c.Worker.FetchPoolSize <= 0 {
		return fmt.Errorf("worker pool sizes must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.allow_credentials", true)
	v.SetDefault("server.unsafe_allow_all_origins", false)

	// K8s
	v.SetDefault("k8s.enabled", false)
	v.SetDefault("k8s.kubeconfig", "")
	v.SetDefault("k8s.operation_timeout", "30s")
	v.SetDefault("k8s.health_check_interval", "1m")

	// Wizard
	v.SetDefault("wizard.catalog_path", "")
	v.SetDefault("wizard.session_ttl", "30m")
	v.SetDefault("wizard.sweep_interval", "1m")
	v.SetDefault("wizard.max_sessions", 1000)
	v.SetDefault("wizard.load_timeout", "20s")
	v.SetDefault("wizard.default_root_disk_size", "20Gi")
	v.SetDefault("wizard.guest_tools_image", "quay.io/kubevirt/virtio-container-disk:v1.5.0")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Worker Pool
	v.SetDefault("worker.general_pool_size", 16)
	v.SetDefault("worker.fetch_pool_size", 32)
}
