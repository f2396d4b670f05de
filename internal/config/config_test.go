package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Ensure no env vars interfere
	os.Unsetenv("SERVER_PORT")
	os.Unsetenv("WIZARD_SESSION_TTL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Server defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if !cfg.Server.AllowCredentials {
		t.Errorf("Server.AllowCredentials = %v, want true", cfg.Server.AllowCredentials)
	}
	if cfg.Server.UnsafeAllowAllOrigins {
		t.Errorf("Server.UnsafeAllowAllOrigins = %v, want false", cfg.Server.UnsafeAllowAllOrigins)
	}

	// K8s defaults
	if cfg.K8s.Enabled {
		t.Errorf("K8s.Enabled = %v, want false", cfg.K8s.Enabled)
	}
	if cfg.K8s.OperationTimeout != 30*time.Second {
		t.Errorf("K8s.OperationTimeout = %v, want 30s", cfg.K8s.OperationTimeout)
	}

	// Wizard defaults
	if cfg.Wizard.SessionTTL != 30*time.Minute {
		t.Errorf("Wizard.SessionTTL = %v, want 30m", cfg.Wizard.SessionTTL)
	}
	if cfg.Wizard.DefaultRootDiskSize != "20Gi" {
		t.Errorf("Wizard.DefaultRootDiskSize = %q, want 20Gi", cfg.Wizard.DefaultRootDiskSize)
	}
	if cfg.Wizard.MaxSessions != 1000 {
		t.Errorf("Wizard.MaxSessions = %d, want 1000", cfg.Wizard.MaxSessions)
	}

	// Log defaults
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}

	// Worker pool defaults
	if cfg.Worker.GeneralPoolSize != 16 {
		t.Errorf("Worker.GeneralPoolSize = %d, want 16", cfg.Worker.GeneralPoolSize)
	}
	if cfg.Worker.FetchPoolSize != 32 {
		t.Errorf("Worker.FetchPoolSize = %d, want 32", cfg.Worker.FetchPoolSize)
	}
}

func TestLoad_WizardFromEnv(t *testing.T) {
	t.Setenv("WIZARD_SESSION_TTL", "2h")
	t.Setenv("WIZARD_GUEST_TOOLS_IMAGE", "registry.local/virtio:latest")
	t.Setenv("K8S_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Wizard.SessionTTL != 2*time.Hour {
		t.Fatalf("Wizard.SessionTTL = %v, want 2h", cfg.Wizard.SessionTTL)
	}
	if cfg.Wizard.GuestToolsImage != "registry.local/virtio:latest" {
		t.Fatalf("Wizard.GuestToolsImage = %q", cfg.Wizard.GuestToolsImage)
	}
	if !cfg.K8s.Enabled {
		t.Fatal("K8s.Enabled = false, want true")
	}
}

func TestLoad_ServerCORSFlagsFromEnv(t *testing.T) {
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://example.com")
	t.Setenv("SERVER_ALLOW_CREDENTIALS", "false")
	t.Setenv("SERVER_UNSAFE_ALLOW_ALL_ORIGINS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := len(cfg.Server.AllowedOrigins); got != 1 {
		t.Fatalf("len(Server.AllowedOrigins) = %d, want 1", got)
	}
	if got := cfg.Server.AllowedOrigins[0]; got != "https://example.com" {
		t.Fatalf("Server.AllowedOrigins[0] = %q, want %q", got, "https://example.com")
	}
	if cfg.Server.AllowCredentials {
		t.Fatalf("Server.AllowCredentials = %v, want false", cfg.Server.AllowCredentials)
	}
	if !cfg.Server.UnsafeAllowAllOrigins {
		t.Fatalf("Server.UnsafeAllowAllOrigins = %v, want true", cfg.Server.UnsafeAllowAllOrigins)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard.yaml")
	content := []byte(`
server:
  port: 9090
wizard:
  catalog_path: /etc/vmwizard/catalog.yaml
  default_root_disk_size: 30Gi
log:
  format: console
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Wizard.CatalogPath != "/etc/vmwizard/catalog.yaml" {
		t.Errorf("Wizard.CatalogPath = %q", cfg.Wizard.CatalogPath)
	}
	if cfg.Wizard.DefaultRootDiskSize != "30Gi" {
		t.Errorf("Wizard.DefaultRootDiskSize = %q, want 30Gi", cfg.Wizard.DefaultRootDiskSize)
	}
	// Unset keys keep their defaults.
	if cfg.Wizard.SessionTTL != 30*time.Minute {
		t.Errorf("Wizard.SessionTTL = %v, want 30m", cfg.Wizard.SessionTTL)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile() with a missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Port: 8080},
			Wizard: WizardConfig{
				SessionTTL:          time.Minute,
				SweepInterval:       time.Second,
				MaxSessions:         10,
				DefaultRootDiskSize: "20Gi",
			},
			Log:    LogConfig{Level: "info", Format: "json"},
			Worker: WorkerConfig{GeneralPoolSize: 1, FetchPoolSize: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"zero session ttl", func(c *Config) { c.Wizard.SessionTTL = 0 }, true},
		{"zero max sessions", func(c *Config) { c.Wizard.MaxSessions = 0 }, true},
		{"bad root disk size", func(c *Config) { c.Wizard.DefaultRootDiskSize = "twenty gigs" }, true},
		{"empty fetch pool", func(c *Config) { c.Worker.FetchPoolSize = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
