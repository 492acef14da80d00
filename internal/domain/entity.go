package domain

import (
	"time"

	"github.com/google/uuid"
)

// Entity is a row in the user's entity registry, owned by the entity
// resolution service. Symbols reference it through EntityRef.ID.
type Entity struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Name       string     `json:"name"`
	EntityType EntityType `json:"entity_type"`
	Aliases    []string   `json:"aliases,omitempty"`
	Confidence float64    `json:"confidence"`
	Embedding  []float32  `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// EntityCandidate is a raw mention produced by the extraction service.
type EntityCandidate struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// ResolvedEntity is the resolution service's answer for one candidate.
type ResolvedEntity struct {
	ID          uuid.UUID  `json:"id"`
	PrimaryName string     `json:"primary_name"`
	EntityType  EntityType `json:"entity_type"`
	Confidence  float64    `json:"confidence"`
}

// Enrichment is the enrichment service's answer for one utterance.
type Enrichment struct {
	Emotions  []EmotionSignal `json:"emotions"`
	Themes    []ThemeSignal   `json:"themes"`
	Intensity Intensity       `json:"intensity"`
}
