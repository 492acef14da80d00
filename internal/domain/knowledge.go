package domain

// KnowledgeType is the epistemic category of a compiled entry.
type KnowledgeType string

const (
	KnowledgeExperience KnowledgeType = "EXPERIENCE"
	KnowledgeFeeling    KnowledgeType = "FEELING"
	KnowledgeBelief     KnowledgeType = "BELIEF"
	KnowledgeFact       KnowledgeType = "FACT"
	KnowledgeDecision   KnowledgeType = "DECISION"
	KnowledgeQuestion   KnowledgeType = "QUESTION"
)

// AllKnowledgeTypes returns every knowledge type in classification priority order.
func AllKnowledgeTypes() []KnowledgeType {
	return []KnowledgeType{
		KnowledgeExperience,
		KnowledgeFeeling,
		KnowledgeBelief,
		KnowledgeFact,
		KnowledgeDecision,
		KnowledgeQuestion,
	}
}

func ValidKnowledgeType(k string) bool {
	switch KnowledgeType(k) {
	case KnowledgeExperience, KnowledgeFeeling, KnowledgeBelief,
		KnowledgeFact, KnowledgeDecision, KnowledgeQuestion:
		return true
	}
	return false
}

// BaseConfidence is the initial confidence assigned to a freshly classified entry.
func (k KnowledgeType) BaseConfidence() float64 {
	switch k {
	case KnowledgeExperience, KnowledgeDecision:
		return 0.9
	case KnowledgeFeeling:
		return 0.8
	case KnowledgeFact:
		return 0.7
	case KnowledgeBelief:
		return 0.6
	case KnowledgeQuestion:
		return 0.5
	default:
		return 0.5
	}
}

type CanonStatus string

const (
	CanonCanon             CanonStatus = "CANON"
	CanonRoleplay          CanonStatus = "ROLEPLAY"
	CanonHypothetical      CanonStatus = "HYPOTHETICAL"
	CanonFictional         CanonStatus = "FICTIONAL"
	CanonThoughtExperiment CanonStatus = "THOUGHT_EXPERIMENT"
	CanonMeta              CanonStatus = "META"
)

func ValidCanonStatus(s string) bool {
	switch CanonStatus(s) {
	case CanonCanon, CanonRoleplay, CanonHypothetical, CanonFictional,
		CanonThoughtExperiment, CanonMeta:
		return true
	}
	return false
}

// CanonSource records who decided an entry's canon status.
type CanonSource string

const (
	CanonSourceUser   CanonSource = "USER"
	CanonSourceSystem CanonSource = "SYSTEM"
)

type CertaintySource string

const (
	CertaintyDirectExperience CertaintySource = "DIRECT_EXPERIENCE"
	CertaintyInference        CertaintySource = "INFERENCE"
	CertaintyHearsay          CertaintySource = "HEARSAY"
	CertaintyVerification     CertaintySource = "VERIFICATION"
	CertaintyMemoryRecall     CertaintySource = "MEMORY_RECALL"
)

func ValidCertaintySource(s string) bool {
	switch CertaintySource(s) {
	case CertaintyDirectExperience, CertaintyInference, CertaintyHearsay,
		CertaintyVerification, CertaintyMemoryRecall:
		return true
	}
	return false
}

// Intensity is the coarse emotional intensity reported by the enrichment service.
type Intensity string

const (
	IntensityLow    Intensity = "LOW"
	IntensityMedium Intensity = "MEDIUM"
	IntensityHigh   Intensity = "HIGH"
)
