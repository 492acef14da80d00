package domain

import (
	"time"

	"github.com/google/uuid"
)

// CanonMetadata is the canon classification attached to every entry.
type CanonMetadata struct {
	Status       CanonStatus `json:"status"`
	Source       CanonSource `json:"source"`
	Confidence   float64     `json:"confidence"`
	ClassifiedAt *time.Time  `json:"classified_at,omitempty"`
	OverriddenAt *time.Time  `json:"overridden_at,omitempty"`
}

// EntityRef is a mention of an entity inside an entry. ID is the resolved
// entity id; SymbolID is filled in once the mention is bound to a symbol.
type EntityRef struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Type         EntityType `json:"type,omitempty"`
	Confidence   float64    `json:"confidence"`
	SymbolID     *uuid.UUID `json:"symbol_id,omitempty"`
	Restrictions []string   `json:"restrictions,omitempty"`
}

type EmotionSignal struct {
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
}

type ThemeSignal struct {
	Theme      string  `json:"theme"`
	Confidence float64 `json:"confidence"`
}

type NarrativeLinks struct {
	PreviousEntryID *uuid.UUID  `json:"previous_entry_id,omitempty"`
	RelatedEntryIDs []uuid.UUID `json:"related_entry_ids,omitempty"`
}

// CompilerFlags is the compiler's bookkeeping on an entry.
// PromotedFromFeeling exists only so the invariant audit can prove it is never set.
type CompilerFlags struct {
	IsDirty             bool            `json:"is_dirty"`
	IsDeprecated        bool            `json:"is_deprecated"`
	LastCompiledAt      time.Time       `json:"last_compiled_at"`
	CompilationVersion  int             `json:"compilation_version"`
	DowngradedFromFact  bool            `json:"downgraded_from_fact,omitempty"`
	PromotedFromFeeling bool            `json:"promoted_from_feeling,omitempty"`
	PromotionProof      *EpistemicProof `json:"promotion_proof,omitempty"`
}

// EntryIR is the compiled, typed record produced from one utterance.
type EntryIR struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	SourceUtteranceID uuid.UUID `json:"source_utterance_id"`
	ThreadID          uuid.UUID `json:"thread_id"`
	Timestamp         time.Time `json:"timestamp"`

	KnowledgeType   KnowledgeType   `json:"knowledge_type"`
	Canon           CanonMetadata   `json:"canon"`
	Confidence      float64         `json:"confidence"`
	CertaintySource CertaintySource `json:"certainty_source"`

	Content  string          `json:"content"`
	Entities []EntityRef     `json:"entities"`
	Emotions []EmotionSignal `json:"emotions"`
	Themes   []ThemeSignal   `json:"themes"`

	NarrativeLinks NarrativeLinks `json:"narrative_links"`
	CompilerFlags  CompilerFlags  `json:"compiler_flags"`

	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without aliasing slices.
func (e *EntryIR) Clone() *EntryIR {
	c := *e
	c.Entities = make([]EntityRef, len(e.Entities))
	for i, ref := range e.Entities {
		ref.Restrictions = append([]string(nil), ref.Restrictions...)
		if ref.SymbolID != nil {
			id := *ref.SymbolID
			ref.SymbolID = &id
		}
		c.Entities[i] = ref
	}
	c.Emotions = append([]EmotionSignal(nil), e.Emotions...)
	c.Themes = append([]ThemeSignal(nil), e.Themes...)
	c.NarrativeLinks.RelatedEntryIDs = append([]uuid.UUID(nil), e.NarrativeLinks.RelatedEntryIDs...)
	if e.NarrativeLinks.PreviousEntryID != nil {
		id := *e.NarrativeLinks.PreviousEntryID
		c.NarrativeLinks.PreviousEntryID = &id
	}
	if e.CompilerFlags.PromotionProof != nil {
		p := *e.CompilerFlags.PromotionProof
		p.SourceEntries = append([]uuid.UUID(nil), p.SourceEntries...)
		c.CompilerFlags.PromotionProof = &p
	}
	c.Embedding = append([]float32(nil), e.Embedding...)
	return &c
}

type EntryWithScore struct {
	EntryIR
	Score float32 `json:"score"`
}

// ListEntriesOpts narrows a raw store listing. Raw listings are for the
// contract layer and internal passes only.
type ListEntriesOpts struct {
	ThreadID          *uuid.UUID
	IncludeDeprecated bool
	Limit             int
}
