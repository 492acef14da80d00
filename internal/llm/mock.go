package llm

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
)

var capitalizedRe = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// sentence-initial or pronoun words the heuristic extractor never treats as names
var stopNames = map[string]bool{
	"I": true, "The": true, "A": true, "An": true, "My": true, "We": true, "He": true,
	"She": true, "They": true, "It": true, "This": true, "That": true, "Today": true,
	"Yesterday": true, "Tomorrow": true, "Maybe": true, "Then": true, "And": true,
	"But": true, "So": true, "What": true, "Where": true, "When": true, "Why": true,
	"How": true, "Who": true, "Apparently": true, "From": true,
}

// MockClient is a configurable LLM client for testing and offline use.
// With no responses configured, it extracts capitalized words as PERSON
// candidates and returns an empty enrichment.
type MockClient struct {
	ExtractResponse []domain.EntityCandidate
	ExtractError    error
	EnrichResponse  *domain.Enrichment
	EnrichError     error

	mu           sync.Mutex
	ExtractCalls []string
	EnrichCalls  []string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) ExtractEntities(ctx context.Context, text string) ([]domain.EntityCandidate, error) {
	m.mu.Lock()
	m.ExtractCalls = append(m.ExtractCalls, text)
	m.mu.Unlock()

	if m.ExtractError != nil {
		return nil, m.ExtractError
	}
	if m.ExtractResponse != nil {
		return m.ExtractResponse, nil
	}

	seen := make(map[string]bool)
	var out []domain.EntityCandidate
	for _, w := range capitalizedRe.FindAllString(text, -1) {
		if stopNames[w] || seen[strings.ToLower(w)] {
			continue
		}
		seen[strings.ToLower(w)] = true
		out = append(out, domain.EntityCandidate{Name: w, Type: "person", Confidence: 0.7})
	}
	return out, nil
}

func (m *MockClient) EnrichEntry(ctx context.Context, text string, entities []domain.EntityRef) (*domain.Enrichment, error) {
	m.mu.Lock()
	m.EnrichCalls = append(m.EnrichCalls, text)
	m.mu.Unlock()

	if m.EnrichError != nil {
		return nil, m.EnrichError
	}
	if m.EnrichResponse != nil {
		return m.EnrichResponse, nil
	}
	return &domain.Enrichment{
		Emotions:  []domain.EmotionSignal{},
		Themes:    []domain.ThemeSignal{},
		Intensity: domain.IntensityLow,
	}, nil
}
