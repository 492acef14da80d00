package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// MinProofConfidence is the floor a proof must meet to justify a promotion.
	MinProofConfidence = 0.6
	// FactConfidenceFloor is the confidence below which a FACT is automatically downgraded.
	FactConfidenceFloor = 0.6
)

// PromotionTargets is the lattice ordering: the legal upward edges from k.
// Every knowledge type has an explicit case.
func PromotionTargets(k KnowledgeType) []KnowledgeType {
	switch k {
	case KnowledgeExperience:
		return []KnowledgeType{KnowledgeFact}
	case KnowledgeBelief:
		return []KnowledgeType{KnowledgeFact}
	case KnowledgeFeeling:
		return nil
	case KnowledgeFact:
		return nil
	case KnowledgeDecision:
		return nil
	case KnowledgeQuestion:
		return nil
	default:
		return nil
	}
}

// ForbiddenTargets are absolute vetoes that no proof can override.
func ForbiddenTargets(k KnowledgeType) []KnowledgeType {
	switch k {
	case KnowledgeFeeling:
		return []KnowledgeType{KnowledgeFact, KnowledgeBelief}
	case KnowledgeQuestion:
		return []KnowledgeType{KnowledgeFact, KnowledgeBelief, KnowledgeExperience}
	case KnowledgeDecision:
		return []KnowledgeType{KnowledgeFact}
	case KnowledgeExperience:
		return nil
	case KnowledgeBelief:
		return nil
	case KnowledgeFact:
		return nil
	default:
		return nil
	}
}

func containsType(types []KnowledgeType, k KnowledgeType) bool {
	for _, t := range types {
		if t == k {
			return true
		}
	}
	return false
}

// IsPromotionAllowed reports whether from -> to is a non-vetoed lattice edge.
func IsPromotionAllowed(from, to KnowledgeType) bool {
	if containsType(ForbiddenTargets(from), to) {
		return false
	}
	return containsType(PromotionTargets(from), to)
}

// IsDowngradeAllowed reports whether from -> to is a genuine descent rather
// than a promotion in disguise. Identity is always allowed.
func IsDowngradeAllowed(from, to KnowledgeType) bool {
	if from == to {
		return true
	}
	return !IsPromotionAllowed(from, to)
}

// EpistemicTypeCheck is the enforcement point for promotions. It returns an
// *EpistemicViolation when the edge is vetoed or missing, or when the proof
// is absent, weak, or describes a different transition.
func EpistemicTypeCheck(attempt PromotionAttempt) error {
	if containsType(ForbiddenTargets(attempt.From), attempt.To) {
		return &EpistemicViolation{Attempt: attempt, Reason: ReasonForbidden}
	}
	if !containsType(PromotionTargets(attempt.From), attempt.To) {
		return &EpistemicViolation{Attempt: attempt, Reason: ReasonNoLatticeEdge}
	}
	if attempt.Proof == nil {
		return &EpistemicViolation{Attempt: attempt, Reason: ReasonMissingProof}
	}
	if attempt.Proof.Confidence < MinProofConfidence {
		return &EpistemicViolation{
			Attempt: attempt,
			Reason:  ReasonWeakProof,
			Detail:  fmt.Sprintf("proof confidence %.2f below %.2f", attempt.Proof.Confidence, MinProofConfidence),
		}
	}
	if attempt.Proof.FromType != "" && (attempt.Proof.FromType != attempt.From || attempt.Proof.ToType != attempt.To) {
		return &EpistemicViolation{
			Attempt: attempt,
			Reason:  ReasonProofMismatch,
			Detail:  fmt.Sprintf("proof covers %s -> %s", attempt.Proof.FromType, attempt.Proof.ToType),
		}
	}
	return nil
}

// EnforceEpistemicSafety downgrades a low-confidence FACT to BELIEF in place.
// It reports whether the entry changed. Downgrades need no proof.
func EnforceEpistemicSafety(e *EntryIR) bool {
	if e.KnowledgeType != KnowledgeFact || e.Confidence >= FactConfidenceFloor {
		return false
	}
	e.KnowledgeType = KnowledgeBelief
	e.CertaintySource = CertaintyInference
	e.CompilerFlags.DowngradedFromFact = true
	e.CompilerFlags.CompilationVersion++
	return true
}

// ProofRuleID names the lattice rule a proof discharges.
func ProofRuleID(from, to KnowledgeType) string {
	return fmt.Sprintf("PROMOTE_%s_TO_%s", from, to)
}

// GenerateProof builds a proof from evidence entries. Confidence is the mean
// evidence confidence, floored at MinProofConfidence.
func GenerateProof(from, to KnowledgeType, evidence []EntryIR, by ProofGenerator, reasoning string) *EpistemicProof {
	ids := make([]uuid.UUID, 0, len(evidence))
	var sum float64
	for _, e := range evidence {
		ids = append(ids, e.ID)
		sum += e.Confidence
	}

	confidence := MinProofConfidence
	if len(evidence) > 0 {
		if mean := sum / float64(len(evidence)); mean > confidence {
			confidence = mean
		}
	}

	return &EpistemicProof{
		RuleID:        ProofRuleID(from, to),
		FromType:      from,
		ToType:        to,
		SourceEntries: ids,
		Confidence:    confidence,
		GeneratedAt:   time.Now().UTC(),
		GeneratedBy:   by,
		Reasoning:     reasoning,
	}
}
