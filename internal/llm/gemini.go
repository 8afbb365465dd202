package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the genai SDK. It is the only
// provider that supports search-grounded calls.
type GeminiProvider struct {
	Model  string
	apiKey string
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider. baseURL overrides the API
// endpoint and is empty in production.
func NewGeminiProvider(ctx context.Context, model, apiKey, baseURL string) (*GeminiProvider, error) {
	if apiKey == "" {
		return &GeminiProvider{Model: model}, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiProvider{Model: model, apiKey: apiKey, client: client}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

// IsConfigured checks if the API key is set.
func (g *GeminiProvider) IsConfigured() bool {
	return g.client != nil
}

// Generate sends the request to Gemini. Schema-constrained calls use JSON
// mode with responseJsonSchema; grounded calls attach the Google Search tool.
func (g *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if g.client == nil {
		return nil, fmt.Errorf("gemini API key not configured")
	}

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Grounded {
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else if req.Schema != nil {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseJsonSchema = req.Schema.Definition
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.Model, genai.Text(req.Prompt), gc)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("no text in gemini response")
	}

	return &Response{Text: text, Citations: groundingSources(resp)}, nil
}

func groundingSources(resp *genai.GenerateContentResponse) []string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var sources []string
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk != nil && chunk.Web != nil && chunk.Web.URI != "" {
			sources = append(sources, chunk.Web.URI)
		}
	}
	return sources
}
