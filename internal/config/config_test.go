package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("page:\n  url: https://example.com\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Browser.Mode != "headful" {
		t.Errorf("mode: got %q", cfg.Browser.Mode)
	}
	if cfg.Inspector.IgnoreClass != "domtarget-ignore" || cfg.Inspector.ToolbarAttr != "data-domtarget-toolbar" {
		t.Errorf("inspector: %+v", cfg.Inspector)
	}
	if len(cfg.Sinks) != 1 || cfg.Sinks[0].Type != "stdout" {
		t.Errorf("sinks: %+v", cfg.Sinks)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domtarget.yaml")
	yaml := `
browser:
  mode: headless
  stealth: true
  resource_blocking: [images, fonts]
page:
  url: https://example.com/app
inspector:
  palette: ["#000", "#fff"]
sinks:
  - type: webhook
    url: https://hooks.example.com/in
  - type: sqlite
    path: /tmp/payloads.db
http:
  addr: 127.0.0.1:7717
mcp:
  enabled: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Browser.Mode != "headless" || !cfg.Browser.Stealth || len(cfg.Browser.ResourceBlocking) != 2 {
		t.Errorf("browser: %+v", cfg.Browser)
	}
	if len(cfg.Inspector.Palette) != 2 || len(cfg.Sinks) != 2 || !cfg.MCP.Enabled {
		t.Errorf("config: %+v", cfg)
	}
	if cfg.HTTP.Addr != "127.0.0.1:7717" {
		t.Errorf("http: got %q", cfg.HTTP.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvRemote, "ws://127.0.0.1:9222/devtools/browser/x")
	t.Setenv(EnvURL, "https://override.example.com")
	t.Setenv(EnvHTTP, ":9000")

	cfg, err := Parse([]byte("page:\n  url: https://file.example.com\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Page.URL != "https://override.example.com" || cfg.HTTP.Addr != ":9000" || cfg.Browser.Remote == "" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"no target":      "sinks: [{type: stdout}]",
		"webhook no url": "page: {url: x}\nsinks: [{type: webhook}]",
		"sqlite no path": "page: {url: x}\nsinks: [{type: sqlite}]",
		"unknown sink":   "page: {url: x}\nsinks: [{type: nats}]",
	}
	for name, src := range cases {
		cfg, err := Parse([]byte(src))
		if err != nil {
			t.Fatalf("%s: parse: %v", name, err)
		}
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error")
	}
}
