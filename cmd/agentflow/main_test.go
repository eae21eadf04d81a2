package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/agentflow/internal/config"
	"github.com/hyperjump/agentflow/internal/models"
	"github.com/hyperjump/agentflow/internal/testutil"
)

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"vacation policy", "-k", "3"},
			expected: []string{"-k", "3", "vacation policy"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-k", "3", "vacation policy"},
			expected: []string{"-k", "3", "vacation policy"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"vacation policy"},
			expected: []string{"vacation policy"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple files then flags",
			args:     []string{"a.pdf", "b.pdf", "--output", "json"},
			expected: []string{"--output", "json", "a.pdf", "b.pdf"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("reorderArgs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"handbook"}, "handbook"},
		{"multiple words", []string{"vacation", "policy"}, "vacation policy"},
		{"single quoted phrase", []string{"vacation policy"}, "vacation policy"},
		{"surrounding spaces trimmed", []string{"  travel  "}, "travel"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(tt.args); got != tt.expected {
				t.Errorf("buildQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

// clearToolEnv keeps credentials from the test environment out of the config.
func clearToolEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvPushoverToken, config.EnvPushoverUser, config.EnvSerperAPIKey,
		config.EnvOpenAIAPIKey, config.EnvFileToolRoot, config.EnvGoogleToken, config.EnvGoogleCalID,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_explicitPath(t *testing.T) {
	clearToolEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9191\nrag:\n  default_k: 6\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Server.Port != 9191 || cfg.RAG.DefaultK != 6 {
		t.Errorf("unexpected config: port=%d default_k=%d", cfg.Server.Port, cfg.RAG.DefaultK)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	clearToolEnv(t)
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadConfig_defaultPathPrefersWorkingDirectory(t *testing.T) {
	clearToolEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 7070\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if filepath.Base(resolved) != "config.yaml" || resolved == defaultConfigPath {
		t.Errorf("resolved = %q, want the working directory config", resolved)
	}
}

func TestLoadConfig_defaultPathFallsBackToDefaults(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists at the default path")
	}
	clearToolEnv(t)
	t.Chdir(t.TempDir())

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if resolved != "" {
		t.Errorf("resolved = %q, want empty", resolved)
	}
	if cfg.Server.Port != 8080 || cfg.Embedding.Provider != config.ProviderHash {
		t.Errorf("expected built-in defaults, got port=%d provider=%s", cfg.Server.Port, cfg.Embedding.Provider)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	clearToolEnv(t)
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Embedding.Dimensions = 32
	cfg.Tools.FileRoot = filepath.Join(dir, "reports")
	cfg.Tools.CalendarTokenPath = filepath.Join(dir, "missing-token.json")
	config.ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func toolNames(c *Components) map[string]bool {
	names := make(map[string]bool)
	for _, tool := range c.Registry.List() {
		names[tool.Name] = true
	}
	return names
}

func TestInitializeComponents_toolsFollowCredentials(t *testing.T) {
	cfg := testConfig(t)
	c, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer c.Close()

	names := toolNames(c)
	for _, want := range []string{"ingest_pdf_for_rag", "rag_retrieve", "rag_keyword_search", "read_file", "wikipedia"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}
	for _, absent := range []string{"send_push_notification", "search", "create_calendar_event"} {
		if names[absent] {
			t.Errorf("tool %q registered without credentials", absent)
		}
	}

	cfg = testConfig(t)
	cfg.Tools.PushoverToken = "tok"
	cfg.Tools.PushoverUser = "usr"
	cfg.Tools.SerperAPIKey = "key"
	c2, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents with credentials: %v", err)
	}
	defer c2.Close()
	names = toolNames(c2)
	for _, want := range []string{"send_push_notification", "search"} {
		if !names[want] {
			t.Errorf("tool %q not registered with credentials", want)
		}
	}
}

func TestInitializeComponents_persistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.Storage.DatabasePath = filepath.Join(dir, "agentflow.db")
	cfg.Storage.IndexPath = filepath.Join(dir, "vectors.idx")
	pdf := testutil.WritePDF(t, dir, "travel.pdf", "Travel expenses are reimbursed within thirty days of submission.")

	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	res, err := c.Ingestor.Ingest(ctx, pdf)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Message != "PDF 'travel.pdf' ingested for RAG." {
		t.Errorf("message = %q", res.Message)
	}
	c.Close()

	c, err = initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("reinitialize: %v", err)
	}
	defer c.Close()
	if c.Store.Size() == 0 {
		t.Fatal("vector index empty after restart")
	}
	out, err := c.Retriever.Retrieve(ctx, "travel expenses", 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !strings.Contains(out, "reimbursed") {
		t.Errorf("retrieved %q, want the ingested text", out)
	}
}

func TestAPIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/ingest":
			var req models.IngestRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Path == "/missing.pdf" {
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "file not found"})
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(models.IngestResult{
				Document: &models.Document{Name: filepath.Base(req.Path), Chunks: 2},
				Message:  "PDF 'a.pdf' ingested for RAG.",
			})
		case "/api/v1/retrieve":
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			_ = json.NewEncoder(w).Encode(models.RetrieveResponse{
				Context: "mode=" + toString(body["mode"]),
				Query:   toString(body["query"]),
				K:       3,
			})
		case "/api/v1/status":
			_ = json.NewEncoder(w).Encode(models.StatusResponse{Documents: 4, Chunks: 12})
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	api := newAPIClient(srv.URL + "/")

	res, err := api.Ingest(ctx, "/docs/a.pdf")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Document.Name != "a.pdf" || res.Document.Chunks != 2 {
		t.Errorf("unexpected ingest result: %+v", res.Document)
	}

	_, err = api.Ingest(ctx, "/missing.pdf")
	if err == nil || !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "file not found") {
		t.Errorf("Ingest missing: err = %v", err)
	}

	resp, err := api.Retrieve(ctx, "policy", 3, true, true)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if resp.Context != "mode=keyword" || resp.Query != "policy" {
		t.Errorf("unexpected retrieve response: %+v", resp)
	}

	st, err := api.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Documents != 4 || st.Chunks != 12 {
		t.Errorf("unexpected status: %+v", st)
	}
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}
