package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultOllamaURL = "http://localhost:11434"

// Engine is a handle to a model served by a local Ollama instance. The model
// must be loaded with Load before Generate returns anything; Generate calls
// made earlier wait until loading finishes, the engine closes, or their
// context ends.
type Engine struct {
	baseURL  string
	model    string
	http     *http.Client
	logger   *zap.Logger
	progress func(string)

	loadMu    sync.Mutex
	ready     chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

type EngineOption func(*Engine)

// WithProgress receives human-readable loading messages.
func WithProgress(fn func(string)) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.progress = fn
		}
	}
}

// WithTimeout bounds each chat request. Pulling a model is not bounded.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.http.Timeout = d
		}
	}
}

func NewEngine(baseURL, model string, logger *zap.Logger, opts ...EngineOption) *Engine {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	e := &Engine{
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		http:     &http.Client{Timeout: 2 * time.Minute},
		logger:   logger,
		progress: func(string) {},
		ready:    make(chan struct{}),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ready reports whether Load has completed.
func (e *Engine) Ready() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

type ollamaPullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

type ollamaPullStatus struct {
	Status    string `json:"status"`
	Digest    string `json:"digest"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
	Error     string `json:"error"`
}

// Load pulls the model if needed and marks the engine ready. Calling it again
// after success is a no-op.
func (e *Engine) Load(ctx context.Context) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	if e.Ready() {
		return nil
	}
	select {
	case <-e.closed:
		return ErrClosed
	default:
	}

	e.progress("Initializing AI engine...")

	raw, err := json.Marshal(ollamaPullRequest{Model: e.model, Stream: true})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/api/pull", bytes.NewBuffer(raw))
	if err != nil {
		return fmt.Errorf("failed to create pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Pulls can take minutes; only ctx bounds them.
	client := &http.Client{Transport: e.http.Transport}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Ollama pull API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		errBody.ReadFrom(resp.Body)
		return &StatusError{Backend: "ollama", Code: resp.StatusCode, Body: errBody.String()}
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var st ollamaPullStatus
		if err := json.Unmarshal(line, &st); err != nil {
			e.logger.Debug("skip pull status line", zap.ByteString("line", line), zap.Error(err))
			continue
		}
		if st.Error != "" {
			return fmt.Errorf("ollama pull %s: %s", e.model, st.Error)
		}
		e.progress(progressMessage(st))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read pull progress: %w", err)
	}

	close(e.ready)
	e.progress("AI engine ready!")
	e.logger.Info("ollama model loaded", zap.String("model", e.model))
	return nil
}

func progressMessage(st ollamaPullStatus) string {
	if st.Total > 0 {
		percent := st.Completed * 100 / st.Total
		return fmt.Sprintf("Loading AI model: %d%% - %s", percent, st.Status)
	}
	return fmt.Sprintf("Loading AI model: %s", st.Status)
}

type ollamaChatRequest struct {
	Model    string           `json:"model"`
	Messages []MistralMessage `json:"messages"`
	Stream   bool             `json:"stream"`
	Format   any              `json:"format,omitempty"`
	Options  map[string]any   `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message MistralMessage `json:"message"`
	Error   string         `json:"error"`
}

func (e *Engine) Generate(ctx context.Context, req Request) (*Response, error) {
	if req.Image {
		return nil, fmt.Errorf("ollama backend cannot generate images")
	}

	select {
	case <-e.ready:
	case <-e.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	body := ollamaChatRequest{Model: e.model, Options: map[string]any{}}
	if req.System != "" {
		body.Messages = append(body.Messages, MistralMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, MistralMessage{Role: "user", Content: req.Prompt})
	if req.Temperature > 0 {
		body.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		body.Options["num_predict"] = req.MaxTokens
	}
	switch {
	case req.Schema != nil:
		body.Format = req.Schema
	case req.JSON:
		body.Format = "json"
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/api/chat", bytes.NewBuffer(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call Ollama chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		errBody.ReadFrom(resp.Body)
		return nil, &StatusError{Backend: "ollama", Code: resp.StatusCode, Body: errBody.String()}
	}

	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("ollama chat: %s", parsed.Error)
	}
	if parsed.Message.Content == "" {
		return nil, ErrEmptyResponse
	}
	return &Response{Text: parsed.Message.Content}, nil
}

// Close releases the engine. Pending and future Generate calls fail with
// ErrClosed. The model is asked to unload from memory on a best-effort basis.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		if !e.Ready() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		raw, _ := json.Marshal(map[string]any{"model": e.model, "keep_alive": 0})
		req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/api/generate", bytes.NewBuffer(raw))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := e.http.Do(req)
		if err != nil {
			e.logger.Debug("unload model", zap.Error(err))
			return
		}
		resp.Body.Close()
	})
	return nil
}
