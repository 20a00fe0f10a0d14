package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "tok"
  admin_id: 1
submissions:
  debounce_ms: 1500
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.Backend != StoreBackendFile {
		t.Errorf("backend = %q, want file default", cfg.Store.Backend)
	}
	if cfg.Store.FilePath != "data/state.json" {
		t.Errorf("file path default = %q", cfg.Store.FilePath)
	}
	if cfg.Submissions.DebounceMS != 1500 {
		t.Errorf("debounce = %d", cfg.Submissions.DebounceMS)
	}
	if cfg.CoreConfig() == nil || cfg.CoreConfig().Telegram.Token != "tok" {
		t.Error("core config must be reachable through the carrier")
	}
}

func TestLoadConfigPostgresRequiresDatabase(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "tok"
store:
  backend: postgres
`)
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "database.host") {
		t.Fatalf("expected database.host error, got %v", err)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "tok"
store:
  backend: redis
`)
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "store.backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestLoadConfigRejectsNegativeDebounce(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "tok"
submissions:
  debounce_ms: -5
`)
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "debounce_ms") {
		t.Fatalf("expected debounce error, got %v", err)
	}
}
