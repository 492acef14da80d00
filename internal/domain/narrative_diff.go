package domain

import (
	"time"

	"github.com/google/uuid"
)

type DiffType string

const (
	DiffKnowledgeShift  DiffType = "KNOWLEDGE_SHIFT"
	DiffConfidenceShift DiffType = "CONFIDENCE_SHIFT"
	DiffEmotionalShift  DiffType = "EMOTIONAL_SHIFT"
	DiffThematicShift   DiffType = "THEMATIC_SHIFT"
)

// NarrativeDiff is a detected change in how the user talks about one entity
// between two consecutive entries.
type NarrativeDiff struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	SubjectID   uuid.UUID `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	FromEntryID uuid.UUID `json:"from_entry_id"`
	ToEntryID   uuid.UUID `json:"to_entry_id"`
	DiffType    DiffType  `json:"diff_type"`
	Before      string    `json:"before"`
	After       string    `json:"after"`
	Magnitude   float64   `json:"magnitude"`
	DetectedAt  time.Time `json:"detected_at"`
}
