package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBuiltinDefaultsMatchEmbeddedYAML(t *testing.T) {
	fromYAML, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}
	if diff := cmp.Diff(Default(), fromYAML); diff != "" {
		t.Errorf("built-in defaults differ from default.yaml (-builtin +yaml):\n%s", diff)
	}
}

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected provider 'gemini', got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.PlanningTemperature != 0.7 {
		t.Errorf("expected planning temperature 0.7, got %v", cfg.LLM.PlanningTemperature)
	}
	if cfg.LLM.SynthesisTemperature != 0.5 {
		t.Errorf("expected synthesis temperature 0.5, got %v", cfg.LLM.SynthesisTemperature)
	}
	if cfg.Fetch.Timeout != 15*time.Second {
		t.Errorf("expected fetch timeout 15s, got %v", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.MaxChars != 6000 {
		t.Errorf("expected max_chars 6000, got %d", cfg.Fetch.MaxChars)
	}
	if len(cfg.Search.Backends) != 2 || cfg.Search.Backends[0] != "duckduckgo" {
		t.Errorf("unexpected backends %v", cfg.Search.Backends)
	}
	if cfg.Research.MaxCandidates != 10 {
		t.Errorf("expected max_candidates 10, got %d", cfg.Research.MaxCandidates)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
llm:
  provider: openai
  openai_model: gpt-4o
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.LLM.Provider)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.LLM.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.LLM.OllamaURL)
	}
	if cfg.Fetch.Timeout != 15*time.Second {
		t.Errorf("expected default fetch timeout, got %v", cfg.Fetch.Timeout)
	}
}

func TestParseInvalidConfig(t *testing.T) {
	if _, err := parse([]byte("llm: [not, a, map")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Search.FeedURL == "" {
		t.Error("expected feed_url to be populated from file")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Model == "" {
		t.Error("expected default model")
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("POSTGEN_LLM_PROVIDER", "ollama")
	t.Setenv("POSTGEN_SEARCH_BACKENDS", "feed newsapi")
	t.Setenv("POSTGEN_SERVER_PORT", "9100")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected provider override, got %q", cfg.LLM.Provider)
	}
	if len(cfg.Search.Backends) != 2 || cfg.Search.Backends[1] != "newsapi" {
		t.Errorf("expected backends override, got %v", cfg.Search.Backends)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port override, got %d", cfg.Server.Port)
	}
	if cfg.LLM.Model != "gemini-3-flash-preview" {
		t.Errorf("expected untouched model, got %q", cfg.LLM.Model)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
