package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Capture.Engine != EngineWhisper {
		t.Errorf("engine = %q, want %q", cfg.Capture.Engine, EngineWhisper)
	}
	if cfg.Backend.Timeout != 15*time.Second {
		t.Errorf("backend timeout = %s", cfg.Backend.Timeout)
	}
	if cfg.Capture.SessionTimeout != 20*time.Second {
		t.Errorf("session timeout = %s", cfg.Capture.SessionTimeout)
	}
	if !cfg.Speech.Enabled || !cfg.Speech.DiskCache {
		t.Error("speech should default to enabled with disk cache")
	}
	if cfg.Cache.Backend != CacheMemory {
		t.Errorf("cache backend = %q", cfg.Cache.Backend)
	}
	if cfg.Sources.PerSource != 3 {
		t.Errorf("per source = %d", cfg.Sources.PerSource)
	}
	if cfg.Log.File != DefaultLogFile {
		t.Errorf("log file = %q", cfg.Log.File)
	}
}

func TestParseFileWithEnv(t *testing.T) {
	t.Setenv("TEST_BACKEND_HOST", "recipes.internal")
	t.Setenv("SPOONACULAR_API_KEY", "from-env")

	data := []byte(`
backend:
  url: http://${TEST_BACKEND_HOST}:8080
  timeout: 5s
capture:
  engine: typed
  session_timeout: 45s
speech:
  enabled: false
cache:
  backend: redis
  ttl: 10m
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Backend.URL != "http://recipes.internal:8080" {
		t.Errorf("url = %q", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("timeout = %s", cfg.Backend.Timeout)
	}
	if cfg.Capture.Engine != EngineTyped || cfg.Capture.SessionTimeout != 45*time.Second {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.Speech.Enabled {
		t.Error("speech should be disabled")
	}
	if cfg.Cache.Backend != CacheRedis || cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Sources.SpoonacularKey != "from-env" {
		t.Errorf("spoonacular key = %q, want env fallback", cfg.Sources.SpoonacularKey)
	}
}

func TestParseRejectsUnknownCache(t *testing.T) {
	if _, err := Parse([]byte("cache:\n  backend: memcached\n")); err == nil {
		t.Fatal("expected error for unknown cache backend")
	}
}

func TestParseKeepsUnknownEngine(t *testing.T) {
	cfg, err := Parse([]byte("capture:\n  engine: webkit\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Capture.Engine != "webkit" {
		t.Fatalf("engine = %q", cfg.Capture.Engine)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Server.Addr != ":5000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipevoice.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}
