package domain

import "fmt"

type TypeCheckStatus string

const (
	TypeCheckValid                    TypeCheckStatus = "VALID"
	TypeCheckValidWithRestrictions    TypeCheckStatus = "VALID_WITH_RESTRICTIONS"
	TypeCheckInvalidLowConfidence     TypeCheckStatus = "INVALID_LOW_CONFIDENCE"
	TypeCheckInvalidEpistemicMismatch TypeCheckStatus = "INVALID_EPISTEMIC_MISMATCH"
)

const (
	RestrictionSubjectiveContext = "subjective_context"
	RestrictionBeliefContext     = "belief_context"
	RestrictionQueryOnly         = "query_only"
	RestrictionDecisionContext   = "decision_context"
)

const (
	// FactSymbolConfidenceFloor is the symbol confidence a FACT needs to cite an entity.
	FactSymbolConfidenceFloor = 0.6
	// DowngradeConfidenceFactor scales symbol confidence when capping an entry.
	DowngradeConfidenceFactor = 0.8

	RecallMinConfidence    = 0.3
	PatternMinConfidence   = 0.4
	AnalyticsMinConfidence = 0.5
)

type TypeCheckResult struct {
	Status       TypeCheckStatus `json:"status"`
	Restrictions []string        `json:"restrictions,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// OK reports whether the usage is allowed, with or without restrictions.
func (r TypeCheckResult) OK() bool {
	return r.Status == TypeCheckValid || r.Status == TypeCheckValidWithRestrictions
}

func restricted(label, warning string) TypeCheckResult {
	return TypeCheckResult{
		Status:       TypeCheckValidWithRestrictions,
		Restrictions: []string{label},
		Warnings:     []string{warning},
	}
}

// TypeCheckEntityUsage decides how an entity may be used inside an entry of
// the entry's knowledge type.
func TypeCheckEntityUsage(e *EntryIR, sym *EntitySymbol) TypeCheckResult {
	switch e.KnowledgeType {
	case KnowledgeExperience:
		return TypeCheckResult{Status: TypeCheckValid}
	case KnowledgeFeeling:
		return restricted(RestrictionSubjectiveContext,
			fmt.Sprintf("%q referenced in a feeling; usable as subjective context only", sym.CanonicalName))
	case KnowledgeBelief:
		return restricted(RestrictionBeliefContext,
			fmt.Sprintf("%q referenced in a belief; not an established fact", sym.CanonicalName))
	case KnowledgeQuestion:
		return restricted(RestrictionQueryOnly,
			fmt.Sprintf("%q referenced in a question; asserts nothing", sym.CanonicalName))
	case KnowledgeDecision:
		return restricted(RestrictionDecisionContext,
			fmt.Sprintf("%q referenced in a decision; intent, not outcome", sym.CanonicalName))
	case KnowledgeFact:
		if sym.Confidence < FactSymbolConfidenceFloor {
			return TypeCheckResult{
				Status: TypeCheckInvalidLowConfidence,
				Warnings: []string{fmt.Sprintf("fact cites %q with symbol confidence %.2f below %.2f",
					sym.CanonicalName, sym.Confidence, FactSymbolConfidenceFloor)},
			}
		}
		return TypeCheckResult{Status: TypeCheckValid}
	default:
		return TypeCheckResult{
			Status:   TypeCheckInvalidEpistemicMismatch,
			Warnings: []string{fmt.Sprintf("unknown knowledge type %q", e.KnowledgeType)},
		}
	}
}

// DowngradeAssertion weakens an entry that cites an entity it cannot support.
// A FACT below the floor is downgraded by the lattice; otherwise confidence is
// capped by the symbol's. It reports whether the entry changed.
func DowngradeAssertion(e *EntryIR, sym *EntitySymbol) bool {
	if EnforceEpistemicSafety(e) {
		return true
	}
	capped := sym.Confidence * DowngradeConfidenceFactor
	if capped < e.Confidence {
		e.Confidence = capped
		return true
	}
	return false
}

// IsRecallEligible gates entries offered back to the user by recall.
func IsRecallEligible(e *EntryIR) bool {
	return !e.CompilerFlags.IsDeprecated && e.Confidence >= RecallMinConfidence
}

// IsPatternEligible gates entries used for longitudinal pattern tracking.
func IsPatternEligible(e *EntryIR) bool {
	if e.CompilerFlags.IsDeprecated || e.Confidence < PatternMinConfidence {
		return false
	}
	switch e.KnowledgeType {
	case KnowledgeExperience, KnowledgeFeeling, KnowledgeBelief, KnowledgeDecision:
		return true
	case KnowledgeFact, KnowledgeQuestion:
		return false
	default:
		return false
	}
}

// IsAnalyticsEligible gates entries counted by analytics.
func IsAnalyticsEligible(e *EntryIR) bool {
	return !e.CompilerFlags.IsDeprecated &&
		e.Canon.Status == CanonCanon &&
		e.Confidence >= AnalyticsMinConfidence &&
		e.KnowledgeType != KnowledgeQuestion
}
