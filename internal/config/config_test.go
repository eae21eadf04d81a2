package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
rag:
  chunk_size: 300
  chunk_overlap: 30
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.RAG.ChunkSize != 300 || cfg.RAG.ChunkOverlap != 30 {
		t.Errorf("unexpected rag config: %+v", cfg.RAG)
	}
	if cfg.Storage.Persistent() {
		t.Error("storage should be in-memory when no paths are set")
	}
	if cfg.Storage.DatabasePath != "" {
		t.Errorf("empty database_path should stay empty, got %q", cfg.Storage.DatabasePath)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/chunks.db"
  index_path: "./data/index/vectors.bin"
watch:
  directories: ["./inbox"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "db", "chunks.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if !cfg.Storage.Persistent() {
		t.Error("storage should be persistent when both paths are set")
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "inbox") {
		t.Errorf("watch directories = %v", cfg.Watch.Directories)
	}
}

func TestLoad_invalidOverlap(t *testing.T) {
	path := writeConfig(t, `
rag:
  chunk_size: 100
  chunk_overlap: 100
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error when overlap is not smaller than chunk size")
	}
}

func TestLoad_unknownProvider(t *testing.T) {
	path := writeConfig(t, "embedding:\n  provider: magic\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "magic") {
		t.Errorf("expected unknown provider error, got %v", err)
	}
}

func TestLoad_envOverridesAndDotEnv(t *testing.T) {
	path := writeConfig(t, `
tools:
  calendar_id: "from-yaml"
  serper_api_key: "yaml-key"
`)
	dir := filepath.Dir(path)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PUSHOVER_TOKEN=dotenv-token\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvGoogleCalID, "from-env")
	t.Setenv(EnvPushoverToken, "")
	t.Setenv(EnvSerperAPIKey, "")
	os.Unsetenv(EnvPushoverToken)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tools.CalendarID != "from-env" {
		t.Errorf("calendar_id = %q, want env override", cfg.Tools.CalendarID)
	}
	if cfg.Tools.SerperAPIKey != "yaml-key" {
		t.Errorf("serper key = %q, empty env must not override", cfg.Tools.SerperAPIKey)
	}
	if cfg.Tools.PushoverToken != "dotenv-token" {
		t.Errorf("pushover token = %q, want value from .env", cfg.Tools.PushoverToken)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: %+v", cfg.Server)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 50 || cfg.RAG.DefaultK != 4 {
		t.Errorf("default rag: %+v", cfg.RAG)
	}
	if cfg.Embedding.Provider != ProviderHash {
		t.Errorf("default provider: %s", cfg.Embedding.Provider)
	}
	if len(cfg.Watch.Extensions) != 1 || cfg.Watch.Extensions[0] != ".pdf" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
	if cfg.Tools.FileRoot != "reports" || cfg.Tools.CalendarID != "primary" || cfg.Tools.CalendarTokenPath != "token.json" {
		t.Errorf("default tools: %+v", cfg.Tools)
	}
	if cfg.Tools.WikipediaURL != "https://en.wikipedia.org/w/api.php" {
		t.Errorf("wikipedia url: %s", cfg.Tools.WikipediaURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	f := false
	if !(&WatchConfig{}).RecursiveOrDefault() {
		t.Error("nil should mean recursive")
	}
	if (&WatchConfig{Recursive: &f}).RecursiveOrDefault() {
		t.Error("explicit false should be honoured")
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{Server: ServerConfig{Host: "localhost", Port: 9090}}
	ApplyDefaults(cfg)
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}

func TestSave_omitsSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Tools.SerperAPIKey = "secret-serper"
	cfg.Tools.PushoverToken = "secret-token"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret-") {
		t.Errorf("saved config contains secrets:\n%s", data)
	}
	if cfg.Tools.SerperAPIKey != "secret-serper" {
		t.Error("Save must not modify the caller's config")
	}
}
