package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/haowjy/meridian-llm-go/providers/anthropic"
	"github.com/haowjy/meridian-llm-go/providers/lorem"

	"smartdoc/internal/config"
)

// Provider is the part of an LLM provider the generation job needs
type Provider interface {
	GenerateResponse(ctx context.Context, req *llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error)
}

// NewProvider returns the provider named by GENERATION_PROVIDER
//
// Supported providers:
//   - "anthropic" - Claude models via Anthropic API
//   - "lorem" - Mock provider for development (no API key required)
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.GenerationProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
		provider, err := anthropic.NewProvider(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
		}
		return provider, nil

	case "lorem":
		return lorem.NewProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.GenerationProvider)
	}
}

// Draft asks provider for a complete document titled title and returns the
// markdown it wrote
func Draft(ctx context.Context, provider Provider, model, title string) (string, error) {
	resp, err := provider.GenerateResponse(ctx, buildRequest(model, title))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", errors.New("model returned no text")
	}
	return text, nil
}

// buildRequest asks for a complete document in markdown
func buildRequest(model, title string) *llmprovider.GenerateRequest {
	prompt := fmt.Sprintf(
		"Write a complete, well-structured report titled %q. "+
			"Respond in Markdown only: start with a level-one heading, then use "+
			"section headings, short paragraphs and bullet lists where useful.",
		title,
	)

	return &llmprovider.GenerateRequest{
		Model: model,
		Messages: []llmprovider.Message{
			{
				Role: "user",
				Blocks: []*llmprovider.Block{
					{BlockType: "text", TextContent: &prompt},
				},
			},
		},
	}
}

// responseText joins the text blocks of a response
func responseText(resp *llmprovider.GenerateResponse) string {
	var parts []string
	for _, block := range resp.Blocks {
		if block == nil || block.BlockType != "text" || block.TextContent == nil {
			continue
		}
		parts = append(parts, *block.TextContent)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
