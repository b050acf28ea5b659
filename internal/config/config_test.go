package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithFixtureSource(t *testing.T) {
	path := writeConfig(t, `
content:
  source: fixture
  fixture_path: ./testdata/content.json
cache:
  backend: memory
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Cache.TTL != 15*time.Minute {
		t.Errorf("cache ttl = %s", cfg.Cache.TTL)
	}
	if cfg.Search.Debounce != 250*time.Millisecond {
		t.Errorf("debounce = %s", cfg.Search.Debounce)
	}
	if cfg.Search.Threshold != 0.9 {
		t.Errorf("threshold = %v", cfg.Search.Threshold)
	}
	if cfg.Content.RefreshSchedule != "@every 15m" {
		t.Errorf("refresh schedule = %q", cfg.Content.RefreshSchedule)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
content:
  source: fixture
`)
	t.Setenv("STATIONSEARCH_CACHE_BACKEND", "none")
	t.Setenv("STATIONSEARCH_SEARCH_DEFAULT_LIMIT", "12")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.Backend != "none" {
		t.Errorf("backend = %s", cfg.Cache.Backend)
	}
	if cfg.Search.DefaultLimit != 12 {
		t.Errorf("default limit = %d", cfg.Search.DefaultLimit)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"cosmic without bucket", "content:\n  source: cosmic\n", "content.bucket"},
		{"unknown source", "content:\n  source: ftp\n", "content.source"},
		{"bad backend", "content:\n  source: fixture\ncache:\n  backend: disk\n", "cache.backend"},
		{"bad threshold", "content:\n  source: fixture\nsearch:\n  threshold: 1.5\n", "search.threshold"},
		{"bad fuzziness", "content:\n  source: fixture\nsearch:\n  fuzziness: lots\n", "search.fuzziness"},
		{"bad cron", "content:\n  source: fixture\n  refresh_schedule: every now and then\n", "refresh_schedule"},
		{"short secret", "content:\n  source: fixture\nauth:\n  jwt_secret: short\n", "jwt_secret"},
		{"bad level", "content:\n  source: fixture\nlogging:\n  level: loud\n", "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestParseFuzziness(t *testing.T) {
	cases := map[string]int{"auto": -1, "": -1, "0": 0, "1": 1, "2": 2, "AUTO": -1}
	for in, want := range cases {
		got, err := ParseFuzziness(in)
		if err != nil || got != want {
			t.Errorf("ParseFuzziness(%q) = %d, %v", in, got, err)
		}
	}
	if _, err := ParseFuzziness("3"); err == nil {
		t.Error("expected error for 3")
	}
}
