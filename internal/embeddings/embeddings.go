package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/letieu/strategia/config"
	"github.com/letieu/strategia/internal/idea"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// New returns the configured embedder, or nil when similarity is disabled.
func New(ctx context.Context, cfg *config.Config) (Embedder, error) {
	if !cfg.Similarity.Enabled {
		return nil, nil
	}
	switch cfg.Similarity.Provider {
	case "ollama":
		return NewOllama(cfg.Similarity.BaseURL, cfg.Similarity.Model), nil
	case "gemini":
		g, err := NewGemini(ctx, cfg.LLM.APIKey, cfg.Similarity.Model, cfg.Similarity.Dimensions)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Similarity.Provider)
	}
}

// IdeaText is the text embedded for an idea.
func IdeaText(it idea.Idea) string {
	return strings.Join([]string{
		it.Title,
		it.Tagline,
		it.Description,
		string(it.Category),
		it.ViralMechanic,
	}, "\n")
}

type OllamaEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type OllamaEmbeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Ollama calls a local Ollama server's /api/embed endpoint.
type Ollama struct {
	baseURL string
	model   string
	http    *http.Client
}

func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "embeddinggemma"
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (o *Ollama) Embed(ctx context.Context, inputText string) ([]float32, error) {
	reqBody := OllamaEmbeddingRequest{
		Model: o.model,
		Input: inputText,
	}

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Ollama embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx,
		"POST",
		o.baseURL+"/api/embed",
		bytes.NewBuffer(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Ollama embedding API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		errBody.ReadFrom(resp.Body)
		return nil, fmt.Errorf("Ollama embedding API error (status %d): %s", resp.StatusCode, errBody.String())
	}

	var parsed OllamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama embedding response: %w", err)
	}

	if len(parsed.Embeddings) == 0 || len(parsed.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned from Ollama")
	}

	return parsed.Embeddings[0], nil
}

// Gemini embeds through the Gemini API.
type Gemini struct {
	client     *genai.Client
	model      string
	dimensions int32
}

func NewGemini(ctx context.Context, apiKey, model string, dimensions int) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required for embeddings")
	}
	if model == "" || model == "nomic-embed-text" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, model: model, dimensions: int32(dimensions)}, nil
}

func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if g.dimensions > 0 {
		cfg.OutputDimensionality = genai.Ptr(g.dimensions)
	}
	result, err := g.client.Models.EmbedContent(ctx,
		g.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embedding returned from gemini")
	}
	return result.Embeddings[0].Values, nil
}
