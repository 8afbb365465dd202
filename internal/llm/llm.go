// Package llm talks to generative model providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/TobiSchelling/PostGenerator/internal/config"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
)

// ErrGroundingUnsupported is returned when a search-grounded call is sent to
// a provider without a search tool.
var ErrGroundingUnsupported = errors.New("provider does not support search grounding")

// Schema is a named JSON Schema the model output must follow.
type Schema struct {
	Name       string
	Definition map[string]any
}

// Request is a single generation call.
type Request struct {
	System      string
	Prompt      string
	Schema      *Schema
	Temperature float64
	MaxTokens   int
	// Grounded attaches the provider's web search tool. Grounded calls
	// cannot be combined with a response schema on every provider, so the
	// schema is then only described in the prompt.
	Grounded bool
}

// Response is the model output.
type Response struct {
	Text string
	// Citations are the web sources a grounded call drew on.
	Citations []string
}

// Provider is the interface for LLM providers.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
	IsConfigured() bool
}

// CreateProvider creates an LLM provider based on configuration. When the
// chosen provider is not usable the others are tried in the order
// gemini, openai, ollama.
func CreateProvider(ctx context.Context, cfg config.LLM, log *logger.Logger) (Provider, error) {
	candidates := []string{strings.ToLower(cfg.Provider)}
	for _, name := range []string{"gemini", "openai", "ollama"} {
		if name != candidates[0] {
			candidates = append(candidates, name)
		}
	}

	for i, name := range candidates {
		p, err := build(ctx, name, cfg)
		if err != nil {
			log.Warn("LLM provider unavailable", "provider", name, "error", err)
			continue
		}
		if !p.IsConfigured() {
			log.Warn("LLM provider not configured", "provider", name)
			continue
		}
		if i > 0 {
			log.Warn("Falling back to another LLM provider", "wanted", cfg.Provider, "using", name)
		}
		log.Info("Using LLM provider", "provider", name)
		return p, nil
	}

	return nil, fmt.Errorf("no LLM provider available: set %s or %s, or start Ollama", cfg.APIKeyEnv, cfg.OpenAIAPIKeyEnv)
}

func build(ctx context.Context, name string, cfg config.LLM) (Provider, error) {
	switch name {
	case "gemini":
		return NewGeminiProvider(ctx, cfg.Model, os.Getenv(cfg.APIKeyEnv), "")
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIModel, cfg.OpenAIAPIKeyEnv), nil
	case "ollama":
		model := cfg.OllamaModel
		if model == "" {
			model = cfg.Model
		}
		return NewOllamaProvider(model, cfg.OllamaURL), nil
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}
