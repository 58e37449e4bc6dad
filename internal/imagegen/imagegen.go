// Package imagegen produces concept art for ideas, either as a Pollinations
// image URL or as an inline Gemini image encoded in a data URL.
package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"go.uber.org/zap"

	"github.com/letieu/strategia/config"
	"github.com/letieu/strategia/internal/idea"
	"github.com/letieu/strategia/internal/llm"
	"github.com/letieu/strategia/internal/prompt"
)

var ErrNoImage = errors.New("model returned no image")

// Generator returns an image URL for an idea.
type Generator interface {
	Generate(ctx context.Context, it idea.Idea) (string, error)
}

// New returns the configured generator, or nil when images are disabled.
// client is only used by the gemini provider.
func New(cfg *config.Config, client llm.Client, logger *zap.Logger) (Generator, error) {
	switch cfg.Image.Provider {
	case "none", "":
		return nil, nil
	case "pollinations":
		opts := []PollinationsOption{WithSize(cfg.Image.Width, cfg.Image.Height)}
		if cfg.Image.Probe {
			p, err := NewProber(30)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithProber(p))
		}
		return NewPollinations(cfg.Image.BaseURL, logger, opts...), nil
	case "gemini":
		if client == nil {
			return nil, fmt.Errorf("gemini images need a model client")
		}
		return NewGemini(client), nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", cfg.Image.Provider)
	}
}

const DefaultPollinationsURL = "https://image.pollinations.ai/prompt/"

// Prober checks that an image URL answers before it is handed out.
type Prober interface {
	Probe(ctx context.Context, url string) error
}

// Pollinations builds prompt-in-path image URLs. The image itself is rendered
// by the service when the URL is first fetched.
type Pollinations struct {
	baseURL string
	width   int
	height  int
	prober  Prober
	logger  *zap.Logger
}

type PollinationsOption func(*Pollinations)

func WithSize(width, height int) PollinationsOption {
	return func(p *Pollinations) {
		if width > 0 && height > 0 {
			p.width, p.height = width, height
		}
	}
}

// WithProber enables a HEAD check of each URL. A failed check switches to the
// shorter fallback prompt.
func WithProber(pr Prober) PollinationsOption {
	return func(p *Pollinations) { p.prober = pr }
}

func NewPollinations(baseURL string, logger *zap.Logger, opts ...PollinationsOption) *Pollinations {
	if baseURL == "" {
		baseURL = DefaultPollinationsURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	p := &Pollinations{baseURL: baseURL, width: 1280, height: 720, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL returns the image URL for a prompt.
func (p *Pollinations) URL(text string) string {
	return fmt.Sprintf("%s%s?width=%d&height=%d&nologo=true", p.baseURL, url.PathEscape(text), p.width, p.height)
}

func (p *Pollinations) Generate(ctx context.Context, it idea.Idea) (string, error) {
	text, err := prompt.Image(it)
	if err != nil {
		return "", err
	}
	u := p.URL(text)
	if p.prober == nil {
		return u, nil
	}
	if err := p.prober.Probe(ctx, u); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p.logger.Warn("image probe failed, using fallback prompt",
			zap.String("idea", it.ID),
			zap.Error(err),
		)
		return p.URL(prompt.ImageFallback(it)), nil
	}
	return u, nil
}

// TLSProber issues HEAD requests with a browser TLS fingerprint; the image
// service rejects some default Go clients.
type TLSProber struct {
	client    tls_client.HttpClient
	userAgent string
}

func NewProber(timeoutSecs int) (*TLSProber, error) {
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(timeoutSecs),
		tls_client.WithClientProfile(profiles.Chrome_120),
	}
	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("create probe client: %w", err)
	}
	return &TLSProber{
		client:    client,
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}, nil
}

func (p *TLSProber) Probe(ctx context.Context, u string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

// Gemini asks an image-capable model for inline image data.
type Gemini struct {
	client llm.Client
}

func NewGemini(client llm.Client) *Gemini {
	return &Gemini{client: client}
}

func (g *Gemini) Generate(ctx context.Context, it idea.Idea) (string, error) {
	text, err := prompt.Image(it)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Generate(ctx, llm.Request{Prompt: text, Image: true})
	if err != nil {
		return "", err
	}
	if len(resp.Images) == 0 {
		return "", ErrNoImage
	}
	return DataURL(resp.Images[0]), nil
}

// DataURL encodes an inline image as a data: URL.
func DataURL(img llm.InlineImage) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
