package domain

import (
	"errors"
	"testing"
)

func countInvariant(vs []Violation, name InvariantName) int {
	n := 0
	for _, v := range vs {
		if v.Invariant == name {
			n++
		}
	}
	return n
}

func TestCheckAllInvariantsCleanSet(t *testing.T) {
	entries := []EntryIR{
		entry(KnowledgeExperience, CanonCanon, 0.9),
		entry(KnowledgeBelief, CanonCanon, 0.6),
		entry(KnowledgeFeeling, CanonRoleplay, 0.8),
		entry(KnowledgeFact, CanonCanon, 0.7),
	}
	if vs := CheckAllInvariants(entries); len(vs) != 0 {
		t.Errorf("expected no violations, got %+v", vs)
	}
	if err := AssertInvariants(entries); err != nil {
		t.Errorf("AssertInvariants: %v", err)
	}
}

func TestFeelingNeverPromotes(t *testing.T) {
	for _, k := range []KnowledgeType{KnowledgeFact, KnowledgeBelief} {
		e := entry(k, CanonCanon, 0.9)
		e.CompilerFlags.PromotedFromFeeling = true

		vs := CheckAllInvariants([]EntryIR{e})
		if got := countInvariant(vs, InvFeelingNeverPromotes); got != 1 {
			t.Errorf("%s: FEELING_NEVER_PROMOTES count = %d, want 1", k, got)
		}
		for _, v := range vs {
			if v.Invariant == InvFeelingNeverPromotes && (v.Severity != SeverityError || *v.EntryID != e.ID) {
				t.Errorf("unexpected violation %+v", v)
			}
		}

		err := AssertInvariants([]EntryIR{e})
		if !errors.Is(err, ErrInvariantViolation) {
			t.Errorf("AssertInvariants = %v, want invariant violation", err)
		}
	}
}

func TestCheckArchivistViewDetectsLeaks(t *testing.T) {
	view := ConstrainedMemoryView{
		Contract: Archivist,
		Entries: []EntryIR{
			entry(KnowledgeBelief, CanonCanon, 0.9),
			entry(KnowledgeExperience, CanonRoleplay, 0.9),
			entry(KnowledgeExperience, CanonHypothetical, 0.9),
		},
	}
	vs := CheckArchivistView(view)
	if countInvariant(vs, InvBeliefNotInArchivist) != 1 ||
		countInvariant(vs, InvArchivistNoRoleplay) != 1 ||
		countInvariant(vs, InvArchivistCanonOnly) != 1 {
		t.Errorf("violations = %+v", vs)
	}
}

func TestCheckAnalystViewDetectsLeaks(t *testing.T) {
	view := ConstrainedMemoryView{
		Contract: Analyst,
		Entries: []EntryIR{
			entry(KnowledgeFeeling, CanonCanon, 0.9),
			entry(KnowledgeDecision, CanonCanon, 0.9),
			entry(KnowledgeExperience, CanonCanon, 0.9),
		},
	}
	vs := CheckAnalystView(view)
	if countInvariant(vs, InvFeelingNotInAnalyst) != 1 || countInvariant(vs, InvAnalystExperienceOnly) != 1 {
		t.Errorf("violations = %+v", vs)
	}
}

func TestPromotionMonotonic(t *testing.T) {
	fromFeeling := entry(KnowledgeFact, CanonCanon, 0.9)
	fromFeeling.CompilerFlags.PromotionProof = &EpistemicProof{FromType: KnowledgeFeeling, ToType: KnowledgeFact, Confidence: 0.9}

	weak := entry(KnowledgeFact, CanonCanon, 0.9)
	weak.CompilerFlags.PromotionProof = &EpistemicProof{FromType: KnowledgeExperience, ToType: KnowledgeFact, Confidence: 0.3}

	sound := entry(KnowledgeFact, CanonCanon, 0.9)
	sound.CompilerFlags.PromotionProof = &EpistemicProof{FromType: KnowledgeBelief, ToType: KnowledgeFact, Confidence: 0.7}

	if n := countInvariant(CheckEntryInvariants(&fromFeeling), InvPromotionMonotonic); n != 1 {
		t.Errorf("feeling-sourced fact: %d violations, want 1", n)
	}
	if n := countInvariant(CheckEntryInvariants(&weak), InvPromotionMonotonic); n != 1 {
		t.Errorf("weak proof: %d violations, want 1", n)
	}
	if vs := CheckEntryInvariants(&sound); len(vs) != 0 {
		t.Errorf("sound promotion: %+v", vs)
	}
}
