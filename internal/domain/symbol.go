package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityPerson    EntityType = "PERSON"
	EntityCharacter EntityType = "CHARACTER"
	EntityLocation  EntityType = "LOCATION"
	EntityOrg       EntityType = "ORG"
	EntityEvent     EntityType = "EVENT"
	EntityConcept   EntityType = "CONCEPT"
)

// DefaultEntityType is used whenever an entity's type cannot be determined.
const DefaultEntityType = EntityPerson

func ValidEntityType(e string) bool {
	switch EntityType(e) {
	case EntityPerson, EntityCharacter, EntityLocation, EntityOrg, EntityEvent, EntityConcept:
		return true
	}
	return false
}

// EntityTypeFromLabel maps the free-form labels produced by extraction
// services onto the closed symbol type set. Unknown labels map to the default.
func EntityTypeFromLabel(label string) EntityType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "person", "people", "per":
		return EntityPerson
	case "character", "fictional_character":
		return EntityCharacter
	case "location", "place", "loc", "gpe":
		return EntityLocation
	case "org", "organization", "organisation", "company":
		return EntityOrg
	case "event":
		return EntityEvent
	case "concept", "idea", "topic", "tool", "product":
		return EntityConcept
	default:
		return DefaultEntityType
	}
}

type ScopeType string

const (
	ScopeGlobal ScopeType = "GLOBAL"
	ScopeEra    ScopeType = "ERA"
	ScopeEvent  ScopeType = "EVENT"
	ScopeThread ScopeType = "THREAD"
)

func ValidScopeType(s string) bool {
	switch ScopeType(s) {
	case ScopeGlobal, ScopeEra, ScopeEvent, ScopeThread:
		return true
	}
	return false
}

// GlobalScopeID is the id of a user's root scope.
func GlobalScopeID(userID uuid.UUID) string {
	return fmt.Sprintf("global:%s", userID)
}

// EntitySymbol is a canonical entity bound in exactly one scope.
type EntitySymbol struct {
	ID                  uuid.UUID       `json:"id"`
	ScopeID             string          `json:"scope_id"`
	CanonicalName       string          `json:"canonical_name"`
	EntityType          EntityType      `json:"entity_type"`
	Aliases             []string        `json:"aliases,omitempty"`
	Confidence          float64         `json:"confidence"`
	IntroducedByEntryID *uuid.UUID      `json:"introduced_by_entry_id,omitempty"`
	CertaintySource     CertaintySource `json:"certainty_source"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Names returns the lower-cased keys the symbol is indexed under.
func (s *EntitySymbol) Names() []string {
	keys := []string{SymbolKey(s.CanonicalName)}
	for _, a := range s.Aliases {
		if k := SymbolKey(a); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// SymbolKey normalizes a mention for case-insensitive lookup.
func SymbolKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SymbolScope is one node in the scope forest. ParentScopeID is a weak reference.
type SymbolScope struct {
	ScopeID       string    `json:"scope_id"`
	UserID        uuid.UUID `json:"user_id"`
	ScopeType     ScopeType `json:"scope_type"`
	ParentScopeID *string   `json:"parent_scope_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
