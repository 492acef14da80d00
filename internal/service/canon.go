package service

import (
	"context"
	"strings"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
)

const (
	canonDefaultConfidence = 0.9
	canonMarkerConfidence  = 0.75
)

type canonMarkers struct {
	status  domain.CanonStatus
	markers []string
}

// Checked in order; the first status with a marker present wins.
var canonMarkerTable = []canonMarkers{
	{domain.CanonRoleplay, []string{"roleplay", "role-play", "role play", "in character", "let's pretend", "lets pretend"}},
	{domain.CanonFictional, []string{"in my story", "in my novel", "my character", "once upon a time", "fanfic", "in the book i'm writing"}},
	{domain.CanonThoughtExperiment, []string{"thought experiment", "in theory", "consider a world", "imagine a world"}},
	{domain.CanonHypothetical, []string{"what if", "hypothetically", "imagine if", "suppose that", "if i were", "if i had"}},
	{domain.CanonMeta, []string{"this app", "this conversation", "your memory", "lorekeeper"}},
}

// HeuristicCanonDetector decides canon status from surface markers. A caller
// override always wins.
type HeuristicCanonDetector struct {
	now func() time.Time
}

func NewHeuristicCanonDetector() *HeuristicCanonDetector {
	return &HeuristicCanonDetector{now: time.Now}
}

func (d *HeuristicCanonDetector) DetermineCanonStatus(ctx context.Context, text string, override *domain.CanonStatus) (domain.CanonMetadata, error) {
	now := d.now().UTC()

	if override != nil {
		return domain.CanonMetadata{
			Status:       *override,
			Source:       domain.CanonSourceUser,
			Confidence:   1.0,
			ClassifiedAt: &now,
			OverriddenAt: &now,
		}, nil
	}

	lower := strings.ToLower(text)
	for _, row := range canonMarkerTable {
		for _, m := range row.markers {
			if strings.Contains(lower, m) {
				return domain.CanonMetadata{
					Status:       row.status,
					Source:       domain.CanonSourceSystem,
					Confidence:   canonMarkerConfidence,
					ClassifiedAt: &now,
				}, nil
			}
		}
	}

	return domain.CanonMetadata{
		Status:       domain.CanonCanon,
		Source:       domain.CanonSourceSystem,
		Confidence:   canonDefaultConfidence,
		ClassifiedAt: &now,
	}, nil
}
