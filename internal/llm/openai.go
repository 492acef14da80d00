package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, temp float32) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temp,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) ExtractEntities(ctx context.Context, text string) ([]domain.EntityCandidate, error) {
	result, err := c.complete(ctx, fmt.Sprintf(extractEntitiesPrompt, text), 0)
	if err != nil {
		return nil, fmt.Errorf("extract entities: %w", err)
	}
	return parseEntities(result)
}

func (c *OpenAIClient) EnrichEntry(ctx context.Context, text string, entities []domain.EntityRef) (*domain.Enrichment, error) {
	result, err := c.complete(ctx, fmt.Sprintf(enrichEntryPrompt, entityNames(entities), text), 0.2)
	if err != nil {
		return nil, fmt.Errorf("enrich entry: %w", err)
	}
	return parseEnrichment(result)
}
