// Package config handles domtarget configuration from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the file.
const (
	EnvRemote = "DOMTARGET_REMOTE"
	EnvURL    = "DOMTARGET_URL"
	EnvHTTP   = "DOMTARGET_HTTP"
)

// Config is the top-level configuration.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Page      PageConfig      `yaml:"page"`
	Inspector InspectorConfig `yaml:"inspector"`
	Payload   PayloadConfig   `yaml:"payload"`
	Sinks     []SinkConfig    `yaml:"sinks"`
	HTTP      HTTPConfig      `yaml:"http"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Mode             string   `yaml:"mode"` // headful | headless
	Stealth          bool     `yaml:"stealth"`
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// PageConfig names the page to inspect. An empty URL with a remote browser
// attaches to the operator's current tab.
type PageConfig struct {
	URL string `yaml:"url"`
}

// InspectorConfig tunes selection decoration and the toolbar boundary.
type InspectorConfig struct {
	Palette      []string `yaml:"palette"`
	HoverOutline string   `yaml:"hover_outline"`
	// IgnoreClass marks the toolbar's own elements and the badges.
	IgnoreClass string `yaml:"ignore_class"`
	// ToolbarAttr is an attribute whose presence on an element or an
	// ancestor also excludes it from inspection.
	ToolbarAttr string `yaml:"toolbar_attr"`
}

// PayloadConfig bounds what is handed to the agent.
type PayloadConfig struct {
	MaxExcerpt int `yaml:"max_excerpt"` // bytes of markdown per root
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | sqlite
	URL  string `yaml:"url"`  // webhook
	Path string `yaml:"path"` // sqlite
}

// HTTPConfig is the control API listener. Empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// MCPConfig enables the stdio MCP server.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoadFile reads a YAML configuration file. Defaults and environment
// overrides are applied.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults and environment overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used without a file.
func Default() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRemote); v != "" {
		c.Browser.Remote = v
	}
	if v := os.Getenv(EnvURL); v != "" {
		c.Page.URL = v
	}
	if v := os.Getenv(EnvHTTP); v != "" {
		c.HTTP.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headful"
	}
	if c.Inspector.IgnoreClass == "" {
		c.Inspector.IgnoreClass = "domtarget-ignore"
	}
	if c.Inspector.ToolbarAttr == "" {
		c.Inspector.ToolbarAttr = "data-domtarget-toolbar"
	}
	if c.Payload.MaxExcerpt <= 0 {
		c.Payload.MaxExcerpt = 2000
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
}

// Validate reports configuration that cannot be started.
func (c *Config) Validate() error {
	if c.Page.URL == "" && c.Browser.Remote == "" {
		return fmt.Errorf("config: page.url is required unless browser.remote is set")
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sinks[%d]: webhook needs url", i)
			}
		case "sqlite":
			if s.Path == "" {
				return fmt.Errorf("config: sinks[%d]: sqlite needs path", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}
