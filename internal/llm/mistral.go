package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

const DefaultMistralURL = "https://api.mistral.ai/v1"

// Mistral talks to an OpenAI-compatible chat completions endpoint.
type Mistral struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewMistral(apiKey, model, baseURL string, timeout time.Duration) *Mistral {
	if baseURL == "" {
		baseURL = DefaultMistralURL
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Mistral{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type MistralChatRequest struct {
	Model          string                 `json:"model"`
	Messages       []MistralMessage       `json:"messages"`
	Temperature    *float32               `json:"temperature,omitempty"`
	MaxTokens      int                    `json:"max_tokens,omitempty"`
	ResponseFormat *MistralResponseFormat `json:"response_format,omitempty"`
}

type MistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type MistralResponseFormat struct {
	Type       string             `json:"type"`
	JSONSchema *MistralJSONSchema `json:"json_schema,omitempty"`
}

type MistralJSONSchema struct {
	Name   string             `json:"name"`
	Schema *jsonschema.Schema `json:"schema"`
	Strict bool               `json:"strict"`
}

type MistralChatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int            `json:"index"`
		Message MistralMessage `json:"message"`
	} `json:"choices"`
}

func (m *Mistral) request(req Request) MistralChatRequest {
	body := MistralChatRequest{
		Model:     m.model,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		body.Temperature = &t
	}
	if req.System != "" {
		body.Messages = append(body.Messages, MistralMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, MistralMessage{Role: "user", Content: req.Prompt})

	switch {
	case req.Schema != nil:
		body.ResponseFormat = &MistralResponseFormat{
			Type:       "json_schema",
			JSONSchema: &MistralJSONSchema{Name: "response", Schema: req.Schema},
		}
	case req.JSON:
		body.ResponseFormat = &MistralResponseFormat{Type: "json_object"}
	}
	return body
}

func (m *Mistral) Generate(ctx context.Context, req Request) (*Response, error) {
	if req.Image {
		return nil, fmt.Errorf("mistral backend cannot generate images")
	}

	raw, err := json.Marshal(m.request(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx,
		"POST",
		m.baseURL+"/chat/completions",
		bytes.NewBuffer(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		errBody.ReadFrom(resp.Body)
		return nil, &StatusError{Backend: "mistral", Code: resp.StatusCode, Body: errBody.String()}
	}

	var chat MistralChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	return &Response{Text: chat.Choices[0].Message.Content}, nil
}
