package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini calls the Gemini API through genai.
type Gemini struct {
	client     *genai.Client
	model      string
	imageModel string
}

func NewGemini(ctx context.Context, apiKey, model, imageModel string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if imageModel == "" {
		imageModel = model
	}
	return &Gemini{client: client, model: model, imageModel: imageModel}, nil
}

func (g *Gemini) config(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	switch {
	case req.Image:
		cfg.ResponseModalities = []string{"TEXT", "IMAGE"}
	case req.Schema != nil:
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = req.Schema
	case req.JSON:
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	model := g.model
	if req.Image {
		model = g.imageModel
	}

	result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), g.config(req))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}

	resp := &Response{}
	for _, part := range result.Candidates[0].Content.Parts {
		switch {
		case part.InlineData != nil:
			resp.Images = append(resp.Images, InlineImage{
				MIMEType: part.InlineData.MIMEType,
				Data:     part.InlineData.Data,
			})
		case part.Text != "" && !part.Thought:
			resp.Text += part.Text
		}
	}
	if resp.Text == "" && len(resp.Images) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}
