package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used when a field is omitted from the config file and not set by a flag.
const (
	DefaultBackendURL     = "http://127.0.0.1:8000"
	DefaultListen         = ":8080"
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxUploadBytes = 32 << 20
)

// DefaultPalette is the slice palette for the indicator pie chart.
var DefaultPalette = []string{"#0088FE", "#00C49F", "#FFBB28", "#FF8042", "#8884D8", "#82CA9D"}

const maxConfigFileSize = 1 * 1024 * 1024

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// DashboardConfig is the root configuration for covdash. Every field is
// optional; the Get* accessors supply defaults for anything left unset, so a
// partial file is always safe.
type DashboardConfig struct {
	// BackendURL is the origin of the coverage REST backend.
	BackendURL *string `json:"backend_url,omitempty" yaml:"backend_url,omitempty"`
	// Listen is the dashboard HTTP listen address.
	Listen *string `json:"listen,omitempty" yaml:"listen,omitempty"`
	// RequestTimeout bounds each backend call, as a duration string like "10s".
	RequestTimeout *string `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
	// MaxUploadBytes caps multipart bodies accepted by the dashboard.
	MaxUploadBytes *int64 `json:"max_upload_bytes,omitempty" yaml:"max_upload_bytes,omitempty"`
	// Palette overrides the pie chart colors.
	Palette []string `json:"palette,omitempty" yaml:"palette,omitempty"`
	// EchartsAssetsHost overrides where chart pages load echarts.min.js from.
	EchartsAssetsHost *string `json:"echarts_assets_host,omitempty" yaml:"echarts_assets_host,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt64(v int64) *int64    { return &v }

// EmptyConfig returns a DashboardConfig with every field unset.
func EmptyConfig() *DashboardConfig {
	return &DashboardConfig{}
}

// LoadConfig reads a DashboardConfig from a .json, .yaml or .yml file.
func LoadConfig(path string) (*DashboardConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", cleanPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every set field holds a usable value.
func (c *DashboardConfig) Validate() error {
	if c.BackendURL != nil {
		u, err := url.Parse(*c.BackendURL)
		if err != nil {
			return fmt.Errorf("invalid backend_url %q: %w", *c.BackendURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("backend_url must be http or https, got %q", *c.BackendURL)
		}
		if u.Host == "" {
			return fmt.Errorf("backend_url %q has no host", *c.BackendURL)
		}
	}

	if c.Listen != nil && *c.Listen == "" {
		return fmt.Errorf("listen must not be empty")
	}

	if c.RequestTimeout != nil && *c.RequestTimeout != "" {
		d, err := time.ParseDuration(*c.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout '%s': %w", *c.RequestTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("request_timeout must be non-negative, got %s", d)
		}
	}

	if c.MaxUploadBytes != nil && *c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", *c.MaxUploadBytes)
	}

	for i, color := range c.Palette {
		if !hexColor.MatchString(color) {
			return fmt.Errorf("palette[%d] must be a #rrggbb color, got %q", i, color)
		}
	}
	return nil
}

// GetBackendURL returns the backend origin without a trailing slash.
func (c *DashboardConfig) GetBackendURL() string {
	if c.BackendURL == nil || *c.BackendURL == "" {
		return DefaultBackendURL
	}
	return strings.TrimRight(*c.BackendURL, "/")
}

// GetListen returns the dashboard listen address.
func (c *DashboardConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetRequestTimeout returns the per-call backend timeout.
func (c *DashboardConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout == nil || *c.RequestTimeout == "" {
		return DefaultRequestTimeout
	}
	d, err := time.ParseDuration(*c.RequestTimeout)
	if err != nil {
		return DefaultRequestTimeout
	}
	return d
}

// GetMaxUploadBytes returns the multipart size cap.
func (c *DashboardConfig) GetMaxUploadBytes() int64 {
	if c.MaxUploadBytes == nil {
		return DefaultMaxUploadBytes
	}
	return *c.MaxUploadBytes
}

// GetPalette returns the configured pie palette or DefaultPalette.
func (c *DashboardConfig) GetPalette() []string {
	if len(c.Palette) == 0 {
		return append([]string(nil), DefaultPalette...)
	}
	return append([]string(nil), c.Palette...)
}

// GetEchartsAssetsHost returns the echarts asset host, empty for the go-echarts default.
func (c *DashboardConfig) GetEchartsAssetsHost() string {
	if c.EchartsAssetsHost == nil {
		return ""
	}
	return *c.EchartsAssetsHost
}

// SetBackendURL overrides the backend origin, typically from a flag.
func (c *DashboardConfig) SetBackendURL(v string) { c.BackendURL = ptrString(v) }

// SetListen overrides the listen address.
func (c *DashboardConfig) SetListen(v string) { c.Listen = ptrString(v) }

// SetRequestTimeout overrides the backend timeout.
func (c *DashboardConfig) SetRequestTimeout(d time.Duration) {
	c.RequestTimeout = ptrString(d.String())
}

// SetMaxUploadBytes overrides the multipart size cap.
func (c *DashboardConfig) SetMaxUploadBytes(n int64) { c.MaxUploadBytes = ptrInt64(n) }
