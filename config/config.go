// Package config holds the service configuration: one explicit object
// built at startup and handed down by value. Core packages never read the
// process environment; ApplyEnv exists for the binaries only.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full presskit configuration.
type Config struct {
	Listen        string `yaml:"listen"`
	LogLevel      string `yaml:"log_level"`
	WebhookSecret string `yaml:"webhook_secret"`
	DBPath        string `yaml:"db_path"`
	TemplateDir   string `yaml:"template_dir"` // overrides the embedded templates when set

	Image    Image    `yaml:"image"`
	Publish  Publish  `yaml:"publish"`
	FTP      FTP      `yaml:"ftp"`
	Dropbox  Dropbox  `yaml:"dropbox"`
	Slack    Slack    `yaml:"slack"`
	Contacts Contacts `yaml:"contacts"`
}

// Image configures the published JPEG asset.
type Image struct {
	Width   int `yaml:"width"`
	Quality int `yaml:"quality"`
}

// Publish configures where the generated pages are served from.
// BaseURLTemplate expands {month_folder} and {folder_name}.
type Publish struct {
	BaseURLTemplate string `yaml:"base_url_template"`
}

// FTP configures the upload target. Empty Host disables uploads.
type FTP struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	RemotePathTemplate string `yaml:"remote_path_template"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
}

// Dropbox configures the source file store. Empty AccessToken disables it.
type Dropbox struct {
	AccessToken string `yaml:"access_token"`
	RootPath    string `yaml:"root_path"`
}

// Slack configures review notifications. Empty WebhookURL disables them.
type Slack struct {
	WebhookURL string `yaml:"webhook_url"`
}

// Contact is one press-release contact block.
type Contact struct {
	Name    string `yaml:"name"`
	Title   string `yaml:"title"`
	Company string `yaml:"company"`
	Phone   string `yaml:"phone"`
	Email   string `yaml:"email"`
}

// Contacts holds the two fixed contact roles rendered into every release.
type Contacts struct {
	Marketing Contact `yaml:"marketing"`
	Press     Contact `yaml:"press"`
}

// DefaultConfig returns the stock Mouser deployment settings.
func DefaultConfig() *Config {
	return &Config{
		Listen:   ":8080",
		LogLevel: "info",
		DBPath:   "presskit.db",
		Image:    Image{Width: 336, Quality: 95},
		Publish: Publish{
			BaseURLTemplate: "https://pr.ezwire.com/Mouser/{month_folder}/{folder_name}/",
		},
		FTP: FTP{
			Host:               "3.143.159.140",
			Port:               21,
			RemotePathTemplate: "/Mouser/{month_folder}/{folder_name}/",
			TimeoutSeconds:     30,
		},
		Dropbox: Dropbox{RootPath: "/Mouser"},
		Contacts: Contacts{
			Marketing: Contact{
				Name:    "Kevin Hess",
				Title:   "Senior Vice President of Marketing",
				Company: "Mouser Electronics",
				Phone:   "(817) 804-3833",
				Email:   "Kevin.Hess@mouser.com",
			},
			Press: Contact{
				Name:    "Kelly DeGarmo",
				Title:   "Manager, Corporate Communications and Media Relations",
				Company: "Mouser Electronics",
				Phone:   "(817) 804-7764",
				Email:   "Kelly.DeGarmo@mouser.com",
			},
		},
	}
}

// LoadConfig reads a YAML file over the defaults. A missing path returns
// the defaults untouched.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.Image.Width <= 0 {
		return fmt.Errorf("image.width must be > 0")
	}
	if c.Image.Quality < 1 || c.Image.Quality > 100 {
		return fmt.Errorf("image.quality must be between 1 and 100")
	}
	if c.Publish.BaseURLTemplate == "" {
		return fmt.Errorf("publish.base_url_template is required")
	}
	if c.FTP.Host != "" && c.FTP.Port <= 0 {
		return fmt.Errorf("ftp.port must be > 0")
	}
	return nil
}

// ApplyEnv overlays environment variables onto the config. Called from the
// binaries after LoadConfig; nothing else reads the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PRESSKIT_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("PRESSKIT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PRESSKIT_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("PRESSKIT_WEBHOOK_SECRET"); v != "" {
		c.WebhookSecret = v
	}
	if v := os.Getenv("DROPBOX_ACCESS_TOKEN"); v != "" {
		c.Dropbox.AccessToken = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		c.Slack.WebhookURL = v
	}
	if v := os.Getenv("FTP_HOST"); v != "" {
		c.FTP.Host = v
	}
	if v := os.Getenv("FTP_USERNAME"); v != "" {
		c.FTP.Username = v
	}
	if v := os.Getenv("FTP_PASSWORD"); v != "" {
		c.FTP.Password = v
	}
}
