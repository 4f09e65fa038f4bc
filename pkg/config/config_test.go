package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.Server.Endpoint(); got != "localhost:7624" {
		t.Errorf("endpoint = %q", got)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
server:
  host: observatory.lan
  port: 7625
client:
  name: dome-watcher
  blob_mode: Also
log:
  file: /var/log/indigo.ilog
  debug: true
reconnect:
  enabled: true
  max_attempts: 5
  initial_delay: 500ms
  max_delay: 30s
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := cfg.Server.Endpoint(); got != "observatory.lan:7625" {
		t.Errorf("endpoint = %q", got)
	}
	if cfg.Client.Name != "dome-watcher" {
		t.Errorf("name = %q", cfg.Client.Name)
	}
	if cfg.Client.BLOBMode != "Also" {
		t.Errorf("blob_mode = %q", cfg.Client.BLOBMode)
	}
	if cfg.Log.File != "/var/log/indigo.ilog" || !cfg.Log.Debug {
		t.Errorf("log = %+v", cfg.Log)
	}
	if !cfg.Reconnect.Enabled || cfg.Reconnect.MaxAttempts != 5 {
		t.Errorf("reconnect = %+v", cfg.Reconnect)
	}
	if cfg.Reconnect.InitialDelay.Std() != 500*time.Millisecond {
		t.Errorf("initial_delay = %v", cfg.Reconnect.InitialDelay.Std())
	}
	if cfg.Reconnect.MaxDelay.Std() != 30*time.Second {
		t.Errorf("max_delay = %v", cfg.Reconnect.MaxDelay.Std())
	}
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  host: 10.0.0.5\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := cfg.Server.Endpoint(); got != "10.0.0.5:7624" {
		t.Errorf("endpoint = %q", got)
	}
	if cfg.Client.Name != "indigo-go" {
		t.Errorf("name = %q", cfg.Client.Name)
	}
	if cfg.Client.BLOBMode != "Never" {
		t.Errorf("blob_mode = %q", cfg.Client.BLOBMode)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad port":      "server:\n  port: 99999\n",
		"empty host":    "server:\n  host: \"\"\n",
		"empty name":    "client:\n  name: \"\"\n",
		"bad blob mode": "client:\n  blob_mode: Sometimes\n",
		"bad duration":  "reconnect:\n  initial_delay: soon\n",
		"not yaml":      "{{{",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indigo.yaml")
	if err := os.WriteFile(path, []byte("client:\n  name: roof\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.Name != "roof" {
		t.Errorf("name = %q", cfg.Client.Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
