// Package llm invokes a text model: Gemini through genai, any
// OpenAI-compatible chat endpoint such as Mistral, or a local Ollama engine.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/letieu/strategia/config"
)

var (
	ErrEmptyResponse = errors.New("empty model response")
	ErrClosed        = errors.New("engine closed")
)

type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	// Schema, when set, is sent as the structured-output hint.
	Schema *jsonschema.Schema
	// JSON asks for a JSON response without a schema.
	JSON bool
	// Image asks for an inline image alongside the text. Only Gemini
	// supports it.
	Image bool
}

type InlineImage struct {
	MIMEType string
	Data     []byte
}

type Response struct {
	Text   string
	Images []InlineImage
}

// Client generates one response per request.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Loader is implemented by backends that must be prepared before use.
type Loader interface {
	Load(ctx context.Context) error
}

// StatusError is a non-2xx reply from an HTTP backend.
type StatusError struct {
	Backend string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Backend, e.Code, e.Body)
}

// New builds the configured backend wrapped in a Guard. progress receives
// model loading messages from the local engine and may be nil.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, progress func(string)) (*Guard, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second

	var backend Client
	switch cfg.LLM.Provider {
	case "gemini":
		g, err := NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.ImageModel)
		if err != nil {
			return nil, err
		}
		backend = g
	case "mistral":
		backend = NewMistral(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL, timeout)
	case "ollama":
		backend = NewEngine(cfg.LLM.BaseURL, cfg.LLM.Model, logger,
			WithProgress(progress),
			WithTimeout(timeout),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	return NewGuard(backend, logger,
		WithRate(cfg.LLM.RequestsPerMin),
		WithRetries(cfg.LLM.Retries, time.Second),
		WithMaxTokens(cfg.LLM.MaxTokens),
	), nil
}
