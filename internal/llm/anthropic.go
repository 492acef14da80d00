package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/lorekeeper/internal/buildconfig"
	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	anthropicModel     = anthropic.Model("claude-3-5-haiku-20241022")
	anthropicMaxTokens = 1024
)

type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient builds a client for the Messages API. Extra options
// are applied after the API key, so tests can point it at a local server.
func NewAnthropicClient(apiKey, model string, opts ...option.RequestOption) *AnthropicClient {
	m := anthropicModel
	if model != "" {
		m = anthropic.Model(model)
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHeader("User-Agent", buildconfig.UserAgent()),
	}
	return &AnthropicClient{
		client: anthropic.NewClient(append(base, opts...)...),
		model:  m,
	}
}

func (c *AnthropicClient) complete(ctx context.Context, prompt string, temp float64) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(temp),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("anthropic API returned status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", fmt.Errorf("anthropic API returned no text content")
}

func (c *AnthropicClient) ExtractEntities(ctx context.Context, text string) ([]domain.EntityCandidate, error) {
	result, err := c.complete(ctx, fmt.Sprintf(extractEntitiesPrompt, text), 0)
	if err != nil {
		return nil, fmt.Errorf("extract entities: %w", err)
	}
	return parseEntities(result)
}

func (c *AnthropicClient) EnrichEntry(ctx context.Context, text string, entities []domain.EntityRef) (*domain.Enrichment, error) {
	result, err := c.complete(ctx, fmt.Sprintf(enrichEntryPrompt, entityNames(entities), text), 0.2)
	if err != nil {
		return nil, fmt.Errorf("enrich entry: %w", err)
	}
	return parseEnrichment(result)
}
