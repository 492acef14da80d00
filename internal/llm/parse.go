package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
)

// stripFences removes a markdown code fence wrapped around a model reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func entityNames(refs []domain.EntityRef) string {
	if len(refs) == 0 {
		return "none"
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}

func parseEntities(raw string) ([]domain.EntityCandidate, error) {
	raw = stripFences(raw)
	var out []domain.EntityCandidate
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse entity extraction result: %w (raw: %s)", err, raw)
	}
	kept := out[:0]
	for _, c := range out {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		c.Confidence = clamp01(c.Confidence)
		kept = append(kept, c)
	}
	return kept, nil
}

func parseEnrichment(raw string) (*domain.Enrichment, error) {
	raw = stripFences(raw)
	var out domain.Enrichment
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse enrichment result: %w (raw: %s)", err, raw)
	}
	if out.Emotions == nil {
		out.Emotions = []domain.EmotionSignal{}
	}
	if out.Themes == nil {
		out.Themes = []domain.ThemeSignal{}
	}
	for i := range out.Emotions {
		out.Emotions[i].Emotion = strings.ToLower(strings.TrimSpace(out.Emotions[i].Emotion))
		out.Emotions[i].Intensity = clamp01(out.Emotions[i].Intensity)
	}
	for i := range out.Themes {
		out.Themes[i].Theme = strings.ToLower(strings.TrimSpace(out.Themes[i].Theme))
		out.Themes[i].Confidence = clamp01(out.Themes[i].Confidence)
	}
	switch out.Intensity {
	case domain.IntensityLow, domain.IntensityMedium, domain.IntensityHigh:
	default:
		out.Intensity = domain.IntensityMedium
	}
	return &out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
