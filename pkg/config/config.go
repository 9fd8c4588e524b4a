package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override,
// e.g. LIVEMAP_TELEX_BASE_URL overrides telex.base_url.
const EnvPrefix = "LIVEMAP"

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `json:"server" mapstructure:"server"`
	Telex   TelexConfig   `json:"telex" mapstructure:"telex"`
	Map     MapConfig     `json:"map" mapstructure:"map"`
	Widget  WidgetConfig  `json:"widget" mapstructure:"widget"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port" mapstructure:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host" mapstructure:"host"`

	// StaticDir holds the marker icons and svg assets served under /meta and /svg
	StaticDir string `json:"static_dir" mapstructure:"static_dir"`

	// AllowedOrigins is the CORS origin list for the JSON API
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`

	// RenderTimeoutSeconds bounds how long a page render waits for the connection fetch
	RenderTimeoutSeconds int `json:"render_timeout_seconds" mapstructure:"render_timeout_seconds"`
}

// TelexConfig contains settings for the FlyByWire TELEX connection API.
type TelexConfig struct {
	// BaseURL is the API base URL (default: https://api.flybywiresim.com)
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// PageSize is the number of connections requested per page
	PageSize int `json:"page_size" mapstructure:"page_size"`

	// TimeoutSeconds is the per-request HTTP timeout
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`

	// RequestsPerSecond limits page requests while walking the connection list
	// 0 = no rate limit
	RequestsPerSecond float64 `json:"requests_per_second" mapstructure:"requests_per_second"`

	// MaxRetries is only honoured by the snapshot tool; the map widget never retries
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// MapConfig describes the map view and number formatting.
type MapConfig struct {
	CenterLatitude  float64 `json:"center_latitude" mapstructure:"center_latitude"`
	CenterLongitude float64 `json:"center_longitude" mapstructure:"center_longitude"`
	Zoom            int     `json:"zoom" mapstructure:"zoom"`

	// TileURL is a Leaflet tile template ({s}, {z}, {x}, {y})
	TileURL     string `json:"tile_url" mapstructure:"tile_url"`
	Attribution string `json:"attribution" mapstructure:"attribution"`

	// Locale is a BCP 47 tag used for thousands separators (default: en-US)
	Locale string `json:"locale" mapstructure:"locale"`
}

// WidgetConfig holds the default props for the aircraft overlay.
type WidgetConfig struct {
	// FullPage hides the page footer while the map is shown
	FullPage bool `json:"full_page" mapstructure:"full_page"`

	// ClassName is an extra CSS class for the map container
	ClassName string `json:"class_name" mapstructure:"class_name"`

	// Variant is "basic" (generic icons) or "typed" (family icons, legend, footer handling)
	Variant string `json:"variant" mapstructure:"variant"`

	// FooterDisplay is the display value the page footer starts with
	FooterDisplay string `json:"footer_display" mapstructure:"footer_display"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" mapstructure:"level"`

	// Format is "console" or "json"
	Format string `json:"format" mapstructure:"format"`

	// File enables rotating file output when set
	File       string `json:"file" mapstructure:"file"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, the defaults are used. Environment variables
// prefixed with LIVEMAP_ are applied in both cases.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Variant names are matched case-insensitively, as on the query string
	cfg.Widget.Variant = strings.ToLower(strings.TrimSpace(cfg.Widget.Variant))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects values the widget cannot work with.
func (c *Config) Validate() error {
	if c.Telex.BaseURL == "" {
		return errors.New("telex.base_url must be set")
	}
	if c.Telex.PageSize <= 0 {
		return fmt.Errorf("telex.page_size must be positive, got %d", c.Telex.PageSize)
	}
	switch strings.ToLower(c.Widget.Variant) {
	case "basic", "typed":
	default:
		return fmt.Errorf("widget.variant must be basic or typed, got %q", c.Widget.Variant)
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                 "8080",
			Host:                 "0.0.0.0",
			StaticDir:            "web/static",
			AllowedOrigins:       []string{"*"},
			RenderTimeoutSeconds: 10,
		},
		Telex: TelexConfig{
			BaseURL:           "https://api.flybywiresim.com",
			PageSize:          100,
			TimeoutSeconds:    10,
			RequestsPerSecond: 5,
			MaxRetries:        3,
		},
		Map: MapConfig{
			CenterLatitude:  51,
			CenterLongitude: 5,
			Zoom:            5,
			TileURL:         "https://cartodb-basemaps-{s}.global.ssl.fastly.net/light_all/{z}/{x}/{y}.png",
			Attribution:     `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
			Locale:          "en-US",
		},
		Widget: WidgetConfig{
			FullPage:      false,
			Variant:       "typed",
			FooterDisplay: "block",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  32,
			MaxBackups: 1,
		},
	}
}

// setDefaults registers every key with viper so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.render_timeout_seconds", d.Server.RenderTimeoutSeconds)

	v.SetDefault("telex.base_url", d.Telex.BaseURL)
	v.SetDefault("telex.page_size", d.Telex.PageSize)
	v.SetDefault("telex.timeout_seconds", d.Telex.TimeoutSeconds)
	v.SetDefault("telex.requests_per_second", d.Telex.RequestsPerSecond)
	v.SetDefault("telex.max_retries", d.Telex.MaxRetries)

	v.SetDefault("map.center_latitude", d.Map.CenterLatitude)
	v.SetDefault("map.center_longitude", d.Map.CenterLongitude)
	v.SetDefault("map.zoom", d.Map.Zoom)
	v.SetDefault("map.tile_url", d.Map.TileURL)
	v.SetDefault("map.attribution", d.Map.Attribution)
	v.SetDefault("map.locale", d.Map.Locale)

	v.SetDefault("widget.full_page", d.Widget.FullPage)
	v.SetDefault("widget.class_name", d.Widget.ClassName)
	v.SetDefault("widget.variant", d.Widget.Variant)
	v.SetDefault("widget.footer_display", d.Widget.FooterDisplay)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
}
