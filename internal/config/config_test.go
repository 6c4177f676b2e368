package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "promptgate.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not be an error, got %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_addr = ":9000"
evaluation_interval_min = 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("listen_addr = %q, want :9000", cfg.ListenAddr)
	}
	if cfg.EvaluationIntervalMin != 5 {
		t.Errorf("evaluation_interval_min = %d, want 5", cfg.EvaluationIntervalMin)
	}

	// Fields absent from the file keep their defaults.
	if cfg.DataDir != Default().DataDir {
		t.Errorf("data_dir = %q, want default %q", cfg.DataDir, Default().DataDir)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeConfig(t, "listen_addr = [not toml")

	if _, err := Load(path); err == nil {
		t.Fatal("malformed config should be an error")
	}
}

func TestLoadClampsInterval(t *testing.T) {
	path := writeConfig(t, "evaluation_interval_min = 0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.EvaluationIntervalMin != 1 {
		t.Errorf("evaluation_interval_min = %d, want clamped to 1", cfg.EvaluationIntervalMin)
	}
}
