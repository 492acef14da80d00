package domain

import (
	"testing"

	"github.com/google/uuid"
)

func entry(k KnowledgeType, canon CanonStatus, conf float64) EntryIR {
	return EntryIR{
		ID:            uuid.New(),
		KnowledgeType: k,
		Canon:         CanonMetadata{Status: canon, Source: CanonSourceSystem},
		Confidence:    conf,
	}
}

func TestApplyContractArchivist(t *testing.T) {
	belief := entry(KnowledgeBelief, CanonCanon, 0.9)
	fact := entry(KnowledgeFact, CanonCanon, 0.9)

	view := ApplyContract(Archivist, []EntryIR{belief, fact})
	if len(view.Entries) != 1 || view.Entries[0].ID != fact.ID {
		t.Fatalf("ARCHIVIST view = %+v, want only the fact", view.Entries)
	}
	if view.Metadata.TotalEntries != 2 || view.Metadata.FilteredEntries != 1 {
		t.Errorf("metadata = %+v", view.Metadata)
	}

	roleplay := entry(KnowledgeExperience, CanonRoleplay, 0.9)
	if got := ApplyContract(Archivist, []EntryIR{roleplay}); len(got.Entries) != 0 {
		t.Error("ARCHIVIST should exclude roleplay")
	}
}

func TestApplyContractCanonEligibility(t *testing.T) {
	tests := []struct {
		contract SensemakingContract
		canon    CanonStatus
		want     bool
	}{
		{Reflector, CanonHypothetical, true},
		{Reflector, CanonThoughtExperiment, true},
		{Reflector, CanonRoleplay, false},
		{Therapist, CanonHypothetical, true},
		{Therapist, CanonThoughtExperiment, false},
		{Strategist, CanonHypothetical, false},
		{Analyst, CanonMeta, false},
		{SensemakingContract{Name: "UNKNOWN", AllowedKnowledgeTypes: AllKnowledgeTypes()}, CanonCanon, true},
		{SensemakingContract{Name: "UNKNOWN", AllowedKnowledgeTypes: AllKnowledgeTypes()}, CanonHypothetical, false},
	}
	for _, tt := range tests {
		e := entry(KnowledgeExperience, tt.canon, 0.9)
		if got := tt.contract.Admits(&e); got != tt.want {
			t.Errorf("%s admits %s = %v, want %v", tt.contract.Name, tt.canon, got, tt.want)
		}
	}
}

func TestApplyContractConfidenceAndDeprecation(t *testing.T) {
	low := entry(KnowledgeExperience, CanonCanon, 0.49)
	ok := entry(KnowledgeExperience, CanonCanon, 0.5)
	gone := entry(KnowledgeExperience, CanonCanon, 0.9)
	gone.CompilerFlags.IsDeprecated = true

	view := ApplyContract(Analyst, []EntryIR{low, ok, gone})
	if len(view.Entries) != 1 || view.Entries[0].ID != ok.ID {
		t.Errorf("ANALYST view = %+v", view.Entries)
	}

	wantExcluded := []KnowledgeType{KnowledgeFeeling, KnowledgeBelief, KnowledgeFact, KnowledgeDecision, KnowledgeQuestion}
	if len(view.Metadata.ExcludedTypes) != len(wantExcluded) {
		t.Fatalf("excluded = %v", view.Metadata.ExcludedTypes)
	}
	for i, k := range wantExcluded {
		if view.Metadata.ExcludedTypes[i] != k {
			t.Errorf("excluded[%d] = %s, want %s", i, view.Metadata.ExcludedTypes[i], k)
		}
	}
}

func TestContractByName(t *testing.T) {
	c, ok := ContractByName("therapist")
	if !ok || c.Name != ContractTherapist {
		t.Errorf("ContractByName(therapist) = %v, %v", c.Name, ok)
	}
	if _, ok := ContractByName("oracle"); ok {
		t.Error("unknown contract should not resolve")
	}
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		contract SensemakingContract
		conf     float64
		want     string
	}{
		{Analyst, 0.4, "[UNCERTAIN] x"},
		{Analyst, 0.6, "[TENTATIVE] x"},
		{Analyst, 0.7, "x"},
		{Archivist, 0.1, "x"},
	}
	for _, tt := range tests {
		if got := FormatOutputWithUncertainty(tt.contract, "x", tt.conf); got != tt.want {
			t.Errorf("%s at %.2f = %q, want %q", tt.contract.Name, tt.conf, got, tt.want)
		}
	}

	if got := FormatInference(Therapist, "x"); got != "[REFLECTION] x" {
		t.Errorf("therapist inference = %q", got)
	}
	if got := FormatInference(Strategist, "x"); got != "[INSIGHT] x" {
		t.Errorf("strategist inference = %q", got)
	}
	if got := FormatInference(Archivist, "x"); got != "x" {
		t.Errorf("archivist inference = %q", got)
	}
}
