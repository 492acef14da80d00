package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type InvariantName string

const (
	InvBeliefNotInArchivist  InvariantName = "BELIEF_NOT_IN_ARCHIVIST"
	InvFeelingNotInAnalyst   InvariantName = "FEELING_NOT_IN_ANALYST"
	InvAnalystExperienceOnly InvariantName = "ANALYST_EXPERIENCE_ONLY"
	InvArchivistCanonOnly    InvariantName = "ARCHIVIST_CANON_ONLY"
	InvArchivistNoRoleplay   InvariantName = "ARCHIVIST_NO_ROLEPLAY"
	InvPromotionMonotonic    InvariantName = "PROMOTION_MONOTONIC"
	InvFeelingNeverPromotes  InvariantName = "FEELING_NEVER_PROMOTES"
)

type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

type Violation struct {
	Invariant InvariantName `json:"invariant" yaml:"invariant"`
	EntryID   *uuid.UUID    `json:"entry_id,omitempty" yaml:"entry_id,omitempty"`
	Details   string        `json:"details" yaml:"details"`
	Severity  Severity      `json:"severity" yaml:"severity"`
}

func violation(inv InvariantName, e *EntryIR, sev Severity, format string, args ...any) Violation {
	id := e.ID
	return Violation{Invariant: inv, EntryID: &id, Details: fmt.Sprintf(format, args...), Severity: sev}
}

var ErrInvariantViolation = errors.New("invariant violation")

// InvariantError carries the ERROR-severity violations found by AssertInvariants.
type InvariantError struct {
	Violations []Violation
}

func (e *InvariantError) Error() string {
	names := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		names = append(names, string(v.Invariant))
	}
	return fmt.Sprintf("%d invariant violation(s): %s", len(e.Violations), strings.Join(names, ", "))
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariantViolation
}

// CheckArchivistView asserts that an ARCHIVIST view holds only canon, non-belief entries.
func CheckArchivistView(view ConstrainedMemoryView) []Violation {
	var out []Violation
	for i := range view.Entries {
		e := &view.Entries[i]
		if e.KnowledgeType == KnowledgeBelief {
			out = append(out, violation(InvBeliefNotInArchivist, e, SeverityError,
				"belief entry visible to %s", view.Contract.Name))
		}
		switch e.Canon.Status {
		case CanonCanon:
		case CanonRoleplay, CanonFictional:
			out = append(out, violation(InvArchivistNoRoleplay, e, SeverityError,
				"%s entry visible to %s", e.Canon.Status, view.Contract.Name))
		default:
			out = append(out, violation(InvArchivistCanonOnly, e, SeverityError,
				"non-canon (%s) entry visible to %s", e.Canon.Status, view.Contract.Name))
		}
	}
	return out
}

// CheckAnalystView asserts that an ANALYST view holds only experiences.
func CheckAnalystView(view ConstrainedMemoryView) []Violation {
	var out []Violation
	for i := range view.Entries {
		e := &view.Entries[i]
		switch e.KnowledgeType {
		case KnowledgeExperience:
		case KnowledgeFeeling:
			out = append(out, violation(InvFeelingNotInAnalyst, e, SeverityError,
				"feeling entry visible to %s", view.Contract.Name))
		default:
			out = append(out, violation(InvAnalystExperienceOnly, e, SeverityError,
				"%s entry visible to %s", e.KnowledgeType, view.Contract.Name))
		}
	}
	return out
}

// CheckEntryInvariants runs the per-entry lattice checks.
func CheckEntryInvariants(e *EntryIR) []Violation {
	var out []Violation

	if e.CompilerFlags.PromotedFromFeeling {
		out = append(out, violation(InvFeelingNeverPromotes, e, SeverityError,
			"entry of type %s is marked as promoted from FEELING", e.KnowledgeType))
	}

	if e.KnowledgeType == KnowledgeFact && !e.CompilerFlags.DowngradedFromFact {
		if p := e.CompilerFlags.PromotionProof; p != nil {
			switch {
			case !IsPromotionAllowed(p.FromType, KnowledgeFact):
				out = append(out, violation(InvPromotionMonotonic, e, SeverityError,
					"fact promoted from %s, which has no edge to FACT", p.FromType))
			case p.Confidence < MinProofConfidence:
				out = append(out, violation(InvPromotionMonotonic, e, SeverityError,
					"fact promoted with proof confidence %.2f below %.2f", p.Confidence, MinProofConfidence))
			}
		}
	}

	if e.CompilerFlags.DowngradedFromFact && e.KnowledgeType == KnowledgeFact {
		out = append(out, violation(InvPromotionMonotonic, e, SeverityWarning,
			"entry flagged as downgraded from FACT is still a FACT"))
	}

	return out
}

// CheckAllInvariants re-derives the contract views and runs every check.
func CheckAllInvariants(entries []EntryIR) []Violation {
	var out []Violation
	out = append(out, CheckArchivistView(ApplyContract(Archivist, entries))...)
	out = append(out, CheckAnalystView(ApplyContract(Analyst, entries))...)
	for i := range entries {
		out = append(out, CheckEntryInvariants(&entries[i])...)
	}
	return out
}

// AssertInvariants returns an *InvariantError if any ERROR violation is present.
func AssertInvariants(entries []EntryIR) error {
	var errs []Violation
	for _, v := range CheckAllInvariants(entries) {
		if v.Severity == SeverityError {
			errs = append(errs, v)
		}
	}
	if len(errs) > 0 {
		return &InvariantError{Violations: errs}
	}
	return nil
}
