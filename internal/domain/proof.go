package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProofGenerator records who produced a proof.
type ProofGenerator string

const (
	GeneratedBySystem ProofGenerator = "SYSTEM"
	GeneratedByUser   ProofGenerator = "USER"
)

// EpistemicProof is the evidence artifact required for any lattice promotion.
type EpistemicProof struct {
	RuleID        string         `json:"rule_id"`
	FromType      KnowledgeType  `json:"from_type"`
	ToType        KnowledgeType  `json:"to_type"`
	SourceEntries []uuid.UUID    `json:"source_entries"`
	Confidence    float64        `json:"confidence"`
	GeneratedAt   time.Time      `json:"generated_at"`
	GeneratedBy   ProofGenerator `json:"generated_by"`
	Reasoning     string         `json:"reasoning,omitempty"`
}

// PromotionAttempt is a request to move an entry upward in the lattice.
type PromotionAttempt struct {
	EntryID uuid.UUID
	From    KnowledgeType
	To      KnowledgeType
	Proof   *EpistemicProof
}

// ErrEpistemicViolation is matched by every *EpistemicViolation via errors.Is.
var ErrEpistemicViolation = errors.New("epistemic violation")

type ViolationReason string

const (
	ReasonForbidden     ViolationReason = "FORBIDDEN_TRANSITION"
	ReasonNoLatticeEdge ViolationReason = "NO_LATTICE_EDGE"
	ReasonMissingProof  ViolationReason = "MISSING_PROOF"
	ReasonWeakProof     ViolationReason = "INSUFFICIENT_PROOF_CONFIDENCE"
	ReasonProofMismatch ViolationReason = "PROOF_TRANSITION_MISMATCH"
)

// EpistemicViolation is a rejected promotion attempt.
type EpistemicViolation struct {
	Attempt PromotionAttempt
	Reason  ViolationReason
	Detail  string
}

func (v *EpistemicViolation) Error() string {
	msg := fmt.Sprintf("epistemic violation: %s -> %s rejected (%s)", v.Attempt.From, v.Attempt.To, v.Reason)
	if v.Detail != "" {
		msg += ": " + v.Detail
	}
	return msg
}

func (v *EpistemicViolation) Is(target error) bool {
	return target == ErrEpistemicViolation
}
