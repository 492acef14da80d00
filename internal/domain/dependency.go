package domain

import (
	"github.com/google/uuid"
)

type DependencyType string

const (
	DependencyEntity DependencyType = "ENTITY"
	DependencyEntry  DependencyType = "ENTRY"
)

// Dependency is one persisted edge: EntryID depends on DependencyID.
type Dependency struct {
	EntryID        uuid.UUID      `json:"entry_id"`
	DependencyType DependencyType `json:"dependency_type"`
	DependencyID   uuid.UUID      `json:"dependency_id"`
	UserID         uuid.UUID      `json:"user_id"`
}

// DependenciesFor derives the edge set of an entry: one ENTITY edge per
// referenced entity, one ENTRY edge per related entry and previous entry.
func DependenciesFor(e *EntryIR) []Dependency {
	seen := make(map[Dependency]bool)
	var deps []Dependency
	add := func(t DependencyType, id uuid.UUID) {
		if id == uuid.Nil || (t == DependencyEntry && id == e.ID) {
			return
		}
		d := Dependency{EntryID: e.ID, DependencyType: t, DependencyID: id, UserID: e.UserID}
		if seen[d] {
			return
		}
		seen[d] = true
		deps = append(deps, d)
	}

	for _, ref := range e.Entities {
		add(DependencyEntity, ref.ID)
	}
	for _, id := range e.NarrativeLinks.RelatedEntryIDs {
		add(DependencyEntry, id)
	}
	if e.NarrativeLinks.PreviousEntryID != nil {
		add(DependencyEntry, *e.NarrativeLinks.PreviousEntryID)
	}
	return deps
}
