package domain

import "strings"

type ContractName string

const (
	ContractArchivist  ContractName = "ARCHIVIST"
	ContractAnalyst    ContractName = "ANALYST"
	ContractReflector  ContractName = "REFLECTOR"
	ContractTherapist  ContractName = "THERAPIST"
	ContractStrategist ContractName = "STRATEGIST"
)

type InferenceLabel string

const (
	InferenceNone       InferenceLabel = ""
	InferenceInsight    InferenceLabel = "INSIGHT"
	InferenceReflection InferenceLabel = "REFLECTION"
)

type InferencePolicy struct {
	Allowed bool           `json:"allowed"`
	Label   InferenceLabel `json:"label,omitempty"`
}

type OutputRequirements struct {
	MustLabelUncertainty bool `json:"must_label_uncertainty"`
}

// SensemakingContract is a fixed, named read policy over IR. Contracts are
// values; the five instances below are the only ones the system knows.
type SensemakingContract struct {
	Name                  ContractName       `json:"name"`
	AllowedKnowledgeTypes []KnowledgeType    `json:"allowed_knowledge_types"`
	Inference             InferencePolicy    `json:"inference_policy"`
	Output                OutputRequirements `json:"output_requirements"`
	MinConfidence         *float64           `json:"min_confidence,omitempty"`
}

func minConfidence(v float64) *float64 { return &v }

var (
	Archivist = SensemakingContract{
		Name:                  ContractArchivist,
		AllowedKnowledgeTypes: []KnowledgeType{KnowledgeExperience, KnowledgeFact},
		Inference:             InferencePolicy{Allowed: false},
		Output:                OutputRequirements{MustLabelUncertainty: false},
	}
	Analyst = SensemakingContract{
		Name:                  ContractAnalyst,
		AllowedKnowledgeTypes: []KnowledgeType{KnowledgeExperience},
		Inference:             InferencePolicy{Allowed: true, Label: InferenceInsight},
		Output:                OutputRequirements{MustLabelUncertainty: true},
		MinConfidence:         minConfidence(0.5),
	}
	Reflector = SensemakingContract{
		Name:                  ContractReflector,
		AllowedKnowledgeTypes: AllKnowledgeTypes(),
		Inference:             InferencePolicy{Allowed: true, Label: InferenceReflection},
		Output:                OutputRequirements{MustLabelUncertainty: true},
	}
	Therapist = SensemakingContract{
		Name:                  ContractTherapist,
		AllowedKnowledgeTypes: []KnowledgeType{KnowledgeExperience, KnowledgeFeeling, KnowledgeBelief},
		Inference:             InferencePolicy{Allowed: true, Label: InferenceReflection},
		Output:                OutputRequirements{MustLabelUncertainty: true},
	}
	Strategist = SensemakingContract{
		Name:                  ContractStrategist,
		AllowedKnowledgeTypes: []KnowledgeType{KnowledgeExperience, KnowledgeFact, KnowledgeDecision},
		Inference:             InferencePolicy{Allowed: true, Label: InferenceInsight},
		Output:                OutputRequirements{MustLabelUncertainty: true},
		MinConfidence:         minConfidence(0.6),
	}
)

// AllContracts returns the fixed contract registry.
func AllContracts() []SensemakingContract {
	return []SensemakingContract{Archivist, Analyst, Reflector, Therapist, Strategist}
}

// ContractByName looks a contract up case-insensitively.
func ContractByName(name string) (SensemakingContract, bool) {
	switch ContractName(strings.ToUpper(strings.TrimSpace(name))) {
	case ContractArchivist:
		return Archivist, true
	case ContractAnalyst:
		return Analyst, true
	case ContractReflector:
		return Reflector, true
	case ContractTherapist:
		return Therapist, true
	case ContractStrategist:
		return Strategist, true
	default:
		return SensemakingContract{}, false
	}
}

// CanonEligible lists the canon statuses a contract may see. Unknown names
// see CANON only.
func CanonEligible(name ContractName) []CanonStatus {
	switch name {
	case ContractReflector:
		return []CanonStatus{CanonCanon, CanonHypothetical, CanonThoughtExperiment}
	case ContractTherapist:
		return []CanonStatus{CanonCanon, CanonHypothetical}
	case ContractArchivist, ContractAnalyst, ContractStrategist:
		return []CanonStatus{CanonCanon}
	default:
		return []CanonStatus{CanonCanon}
	}
}

func (c SensemakingContract) allowsType(k KnowledgeType) bool {
	return containsType(c.AllowedKnowledgeTypes, k)
}

func (c SensemakingContract) allowsCanon(s CanonStatus) bool {
	for _, allowed := range CanonEligible(c.Name) {
		if allowed == s {
			return true
		}
	}
	return false
}

// Admits reports whether a single entry passes every filter of the contract.
func (c SensemakingContract) Admits(e *EntryIR) bool {
	if !c.allowsType(e.KnowledgeType) {
		return false
	}
	if !c.allowsCanon(e.Canon.Status) {
		return false
	}
	if c.MinConfidence != nil && e.Confidence < *c.MinConfidence {
		return false
	}
	return !e.CompilerFlags.IsDeprecated
}

type ViewMetadata struct {
	TotalEntries    int             `json:"total_entries"`
	FilteredEntries int             `json:"filtered_entries"`
	ExcludedTypes   []KnowledgeType `json:"excluded_types"`
}

// ConstrainedMemoryView is the only shape in which IR leaves the core.
type ConstrainedMemoryView struct {
	Entries  []EntryIR           `json:"entries"`
	Contract SensemakingContract `json:"contract"`
	Metadata ViewMetadata        `json:"metadata"`
}

// ApplyContract filters entries through the contract. ExcludedTypes lists the
// knowledge types the contract does not allow, in lattice declaration order.
func ApplyContract(c SensemakingContract, entries []EntryIR) ConstrainedMemoryView {
	out := make([]EntryIR, 0, len(entries))
	for i := range entries {
		if c.Admits(&entries[i]) {
			out = append(out, entries[i])
		}
	}

	var excluded []KnowledgeType
	for _, k := range AllKnowledgeTypes() {
		if !c.allowsType(k) {
			excluded = append(excluded, k)
		}
	}

	return ConstrainedMemoryView{
		Entries:  out,
		Contract: c,
		Metadata: ViewMetadata{
			TotalEntries:    len(entries),
			FilteredEntries: len(out),
			ExcludedTypes:   excluded,
		},
	}
}

const (
	uncertainBelow = 0.5
	tentativeBelow = 0.7
)

// FormatOutputWithUncertainty prefixes low-confidence output when the
// contract requires uncertainty labels.
func FormatOutputWithUncertainty(c SensemakingContract, content string, confidence float64) string {
	if !c.Output.MustLabelUncertainty {
		return content
	}
	switch {
	case confidence < uncertainBelow:
		return "[UNCERTAIN] " + content
	case confidence < tentativeBelow:
		return "[TENTATIVE] " + content
	default:
		return content
	}
}

// FormatInference prefixes the contract's inference label. Contracts that
// forbid inference return the content untouched.
func FormatInference(c SensemakingContract, content string) string {
	if !c.Inference.Allowed || c.Inference.Label == InferenceNone {
		return content
	}
	return "[" + string(c.Inference.Label) + "] " + content
}
