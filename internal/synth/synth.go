// Package synth invokes a generative model under a JSON schema contract and
// returns only values that passed validation.
package synth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/TobiSchelling/PostGenerator/internal/llm"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
)

// SynthesisError is returned when the model call failed or its output did
// not validate against the requested schema.
type SynthesisError struct {
	Schema string
	Err    error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis %s: %v", e.Schema, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Descriptor names an output shape: its JSON schema and optional semantic
// checks that the schema cannot express.
type Descriptor[T any] struct {
	Name     string
	schema   *llm.Schema
	resolved *jsonschema.Resolved
	check    func(*T) error
}

// NewDescriptor resolves schema once. It panics on an invalid schema, since
// descriptors are package-level values.
func NewDescriptor[T any](name string, schema *jsonschema.Schema, check func(*T) error) Descriptor[T] {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("synth: invalid schema %s: %v", name, err))
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("synth: marshaling schema %s: %v", name, err))
	}
	var def map[string]any
	if err := json.Unmarshal(raw, &def); err != nil {
		panic(fmt.Sprintf("synth: schema %s is not an object: %v", name, err))
	}
	return Descriptor[T]{
		Name:     name,
		schema:   &llm.Schema{Name: name, Definition: def},
		resolved: resolved,
		check:    check,
	}
}

// Definition returns the schema as sent to providers.
func (d Descriptor[T]) Definition() map[string]any {
	return d.schema.Definition
}

// Decode validates raw model text against the descriptor and decodes it.
func (d Descriptor[T]) Decode(text string) (*T, error) {
	payload := llm.ExtractJSON(text)
	if payload == "" {
		return nil, llm.ErrEmptyResponse
	}

	var instance any
	if err := json.Unmarshal([]byte(payload), &instance); err != nil {
		return nil, fmt.Errorf("parsing model JSON: %w", err)
	}
	if err := d.resolved.Validate(instance); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var v T
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", d.Name, err)
	}
	if d.check != nil {
		if err := d.check(&v); err != nil {
			return nil, fmt.Errorf("validating %s: %w", d.Name, err)
		}
	}
	return &v, nil
}

// Options tune one call.
type Options struct {
	Temperature float64
	MaxTokens   int
	// Grounded lets the model search the web. The schema is then enforced
	// on the answer but not sent as a response format.
	Grounded bool
}

// Synthesizer wraps a provider.
type Synthesizer struct {
	provider  llm.Provider
	maxTokens int
	log       *logger.Logger
}

// New creates a synthesizer. maxTokens is the default output cap.
func New(provider llm.Provider, maxTokens int, log *logger.Logger) *Synthesizer {
	return &Synthesizer{provider: provider, maxTokens: maxTokens, log: log}
}

// Output is a validated value plus the web sources a grounded call cited.
type Output[T any] struct {
	Value     *T
	Citations []string
}

// Run generates a value of shape d. Every failure is a *SynthesisError.
func Run[T any](ctx context.Context, s *Synthesizer, d Descriptor[T], system, prompt string, opts Options) (*T, error) {
	out, err := Generate(ctx, s, d, system, prompt, opts)
	if err != nil {
		return nil, err
	}
	return out.Value, nil
}

// Generate is Run that also returns citations.
func Generate[T any](ctx context.Context, s *Synthesizer, d Descriptor[T], system, prompt string, opts Options) (*Output[T], error) {
	if s == nil || s.provider == nil {
		return nil, &SynthesisError{Schema: d.Name, Err: fmt.Errorf("no LLM provider")}
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = s.maxTokens
	}

	req := llm.Request{
		System:      system,
		Prompt:      prompt,
		Temperature: opts.Temperature,
		MaxTokens:   maxTokens,
		Grounded:    opts.Grounded,
	}
	if !opts.Grounded {
		req.Schema = d.schema
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, &SynthesisError{Schema: d.Name, Err: err}
	}

	v, err := d.Decode(resp.Text)
	if err != nil {
		s.log.Debug("Model output rejected", "schema", d.Name, "error", err)
		return nil, &SynthesisError{Schema: d.Name, Err: err}
	}

	return &Output[T]{Value: v, Citations: resp.Citations}, nil
}
