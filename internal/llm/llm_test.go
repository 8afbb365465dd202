package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/PostGenerator/internal/config"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
)

func TestExtractJSONPlain(t *testing.T) {
	assert.Equal(t, `{"key": "value"}`, ExtractJSON(`{"key": "value"}`))
}

func TestExtractJSONWithCodeFence(t *testing.T) {
	assert.Equal(t, `{"key": "value"}`, ExtractJSON("```json\n{\"key\": \"value\"}\n```"))
}

func TestExtractJSONWithPlainFence(t *testing.T) {
	assert.Equal(t, `[1, 2]`, ExtractJSON("```\n[1, 2]\n```"))
}

func TestExtractJSONWithProse(t *testing.T) {
	text := "Here is what I found:\n{\"title\": \"A\", \"sources\": [\"https://a\"]}\nHope this helps."
	assert.Equal(t, `{"title": "A", "sources": ["https://a"]}`, ExtractJSON(text))
}

func TestExtractJSONWhitespace(t *testing.T) {
	assert.Equal(t, `{"key": "value"}`, ExtractJSON("  \n  {\"key\": \"value\"}  \n  "))
}

func TestExtractJSONSkipsBracketedProse(t *testing.T) {
	text := "I searched Google [1] and found this:\n" +
		`{"title": "RAG", "type": "article", "sources": ["https://example.com/rag"]}` +
		"\nSee [2] for more."
	assert.Equal(t, `{"title": "RAG", "type": "article", "sources": ["https://example.com/rag"]}`, ExtractJSON(text))
}

func TestExtractJSONArrayInProse(t *testing.T) {
	text := `Angles: [{"angle": "a", "query": "q"}, {"angle": "b", "query": "r"}] done`
	assert.Equal(t, `[{"angle": "a", "query": "q"}, {"angle": "b", "query": "r"}]`, ExtractJSON(text))
}

func TestExtractJSONNoValue(t *testing.T) {
	assert.Equal(t, "not json at all", ExtractJSON("not json at all"))
	assert.Equal(t, "", ExtractJSON("   "))
	assert.Equal(t, "broken {\"a\":", ExtractJSON("broken {\"a\": "))
}

var testSchema = &Schema{
	Name:       "thing",
	Definition: map[string]any{"type": "object", "properties": map[string]any{"a": map[string]any{"type": "string"}}},
}

func TestOpenAIGenerate(t *testing.T) {
	var body map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"a\":\"b\"}"}}]}`)
	}))
	defer srv.Close()

	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	p := NewOpenAIProvider("gpt-test", "TEST_OPENAI_KEY")
	p.BaseURL = srv.URL

	resp, err := p.Generate(context.Background(), Request{
		System:      "You are an expert curriculum planner.",
		Prompt:      "plan",
		Schema:      testSchema,
		Temperature: 0.7,
		MaxTokens:   100,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"a":"b"}`, resp.Text)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, 0.7, body["temperature"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "thing", format["json_schema"].(map[string]any)["name"])
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := &OpenAIProvider{Model: "m", APIKey: "k", BaseURL: srv.URL, client: srv.Client()}
	_, err := p.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIRejectsGrounding(t *testing.T) {
	p := &OpenAIProvider{APIKey: "k"}
	_, err := p.Generate(context.Background(), Request{Prompt: "x", Grounded: true})
	assert.ErrorIs(t, err, ErrGroundingUnsupported)
}

func TestOllamaGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			fmt.Fprint(w, `{"models":[{"name":"llama3.1:8b"}]}`)
		case "/api/chat":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			fmt.Fprint(w, `{"message":{"content":"[]"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider("llama3.1:8b", srv.URL+"/")
	assert.True(t, p.IsConfigured())

	resp, err := p.Generate(context.Background(), Request{Prompt: "x", Schema: testSchema, Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Text)
	assert.Equal(t, false, body["stream"])
	assert.NotNil(t, body["format"])
	assert.Equal(t, 0.5, body["options"].(map[string]any)["temperature"])
}

func TestOllamaMissingModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[{"name":"mistral:7b"}]}`)
	}))
	defer srv.Close()

	assert.False(t, NewOllamaProvider("llama3.1:8b", srv.URL).IsConfigured())
}

func TestGeminiGenerateGrounded(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"title\":\"T\"}"}]},
			"groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://source.example/a","title":"a"}},{"web":{"uri":""}}]}}]}`)
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(context.Background(), "gemini-test", "key", srv.URL)
	require.NoError(t, err)
	require.True(t, p.IsConfigured())

	resp, err := p.Generate(context.Background(), Request{Prompt: "find", Grounded: true, Schema: testSchema, Temperature: 0.7})
	require.NoError(t, err)

	assert.Equal(t, `{"title":"T"}`, resp.Text)
	assert.Equal(t, []string{"https://source.example/a"}, resp.Citations)
	assert.Contains(t, raw, "googleSearch")
	assert.NotContains(t, raw, "responseJsonSchema")
}

func TestGeminiGenerateWithSchema(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{}"}]}}]}`)
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(context.Background(), "gemini-test", "key", srv.URL)
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), Request{System: "sys", Prompt: "x", Schema: testSchema})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Text)
	assert.Empty(t, resp.Citations)
	assert.Contains(t, raw, "responseJsonSchema")
	assert.Contains(t, raw, "application/json")
	assert.Contains(t, raw, "systemInstruction")
}

func TestGeminiWithoutKeyIsNotConfigured(t *testing.T) {
	p, err := NewGeminiProvider(context.Background(), "gemini-test", "", "")
	require.NoError(t, err)
	assert.False(t, p.IsConfigured())

	_, err = p.Generate(context.Background(), Request{Prompt: "x"})
	assert.Error(t, err)
}

func TestCreateProviderFallsBack(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	cfg := config.Default().LLM
	cfg.APIKeyEnv = "POSTGEN_TEST_MISSING_GEMINI"
	cfg.OpenAIAPIKeyEnv = "TEST_OPENAI_KEY"

	p, err := CreateProvider(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestCreateProviderNoneAvailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := config.Default().LLM
	cfg.Provider = "ollama"
	cfg.OllamaURL = srv.URL
	cfg.APIKeyEnv = "POSTGEN_TEST_MISSING_GEMINI"
	cfg.OpenAIAPIKeyEnv = "POSTGEN_TEST_MISSING_OPENAI"

	_, err := CreateProvider(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}
