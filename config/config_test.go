package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Image.Width != 336 || cfg.Image.Quality != 95 {
		t.Errorf("image defaults = %+v", cfg.Image)
	}
	if cfg.Contacts.Marketing.Name == "" || cfg.Contacts.Press.Name == "" {
		t.Error("contact defaults missing")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presskit.yaml")
	os.WriteFile(path, []byte(`
listen: ":9090"
image:
  width: 400
  quality: 80
contacts:
  press:
    name: "Pat Example"
`), 0644)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Image.Width != 400 || cfg.Image.Quality != 80 {
		t.Errorf("image = %+v", cfg.Image)
	}
	if cfg.Contacts.Press.Name != "Pat Example" {
		t.Errorf("press contact = %+v", cfg.Contacts.Press)
	}
	// Untouched sections keep their defaults.
	if cfg.FTP.Port != 21 {
		t.Errorf("ftp port = %d, want default 21", cfg.FTP.Port)
	}
}

func TestLoadConfigMissingPath(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/presskit.yaml"); err == nil {
		t.Error("expected error for unreadable config path")
	}
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("empty path should return defaults, got listen %q", cfg.Listen)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"zero width", func(c *Config) { c.Image.Width = 0 }},
		{"quality out of range", func(c *Config) { c.Image.Quality = 101 }},
		{"empty base url template", func(c *Config) { c.Publish.BaseURLTemplate = "" }},
		{"ftp host without port", func(c *Config) { c.FTP.Port = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PRESSKIT_LISTEN", ":7070")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")
	t.Setenv("FTP_USERNAME", "uploader")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Listen != ":7070" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Slack.WebhookURL != "https://hooks.slack.com/services/T/B/X" {
		t.Errorf("slack webhook = %q", cfg.Slack.WebhookURL)
	}
	if cfg.FTP.Username != "uploader" {
		t.Errorf("ftp username = %q", cfg.FTP.Username)
	}
}
