package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scanbridge/internal/acquisition"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scanbridge.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scan.LocalDPI != acquisition.LocalResolutionDPI || !cfg.Discovery.ESCL.Enabled {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if !strings.Contains(string(data), "log_level: info") {
		t.Fatalf("unexpected config file:\n%s", data)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Discovery.ESCL.Budget != cfg.Discovery.ESCL.Budget || again.SnapshotTTL != cfg.SnapshotTTL {
		t.Fatalf("defaults did not survive a round trip")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanbridge.yaml")
	body := `log_level: debug
snapshot_ttl: 30s
discovery:
  escl:
    enabled: false
  mdns:
    window: 500ms
scan:
  format: pdf
  network_dpi: 150
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.SnapshotTTL != 30*time.Second {
		t.Fatalf("top-level keys not applied: %+v", cfg)
	}
	if cfg.Discovery.ESCL.Enabled || cfg.Discovery.MDNS.Window != 500*time.Millisecond {
		t.Fatalf("discovery keys not applied: %+v", cfg.Discovery)
	}
	if !cfg.Discovery.WSD.Enabled || cfg.Discovery.WSD.BufferSize != 4096 {
		t.Fatalf("untouched defaults lost: %+v", cfg.Discovery.WSD)
	}
	if cfg.Scan.Format != acquisition.FormatPDF || cfg.Scan.NetworkDPI != 150 || cfg.Scan.LocalDPI != 300 {
		t.Fatalf("scan keys not applied: %+v", cfg.Scan)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"level":  "log_level: loud\n",
		"range":  "discovery:\n  escl:\n    host_first: 10\n    host_last: 5\n",
		"format": "scan:\n  format: gif\n",
		"listen": "api:\n  listen: nowhere\n",
		"yaml":   "discovery: [\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), name+".yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadRejectsDirectory(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory path")
	}
}
