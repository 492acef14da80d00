package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"golang.org/x/text/unicode/norm"
)

const (
	shortTextChars = 10
	longTextChars  = 500

	shortTextPenalty = 0.8
	longTextPenalty  = 0.9
	hearsayPenalty   = 0.7

	MinEntryConfidence = 0.1
	MaxEntryConfidence = 1.0
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeText trims, NFC-normalizes, drops characters outside letters,
// digits, whitespace and basic punctuation, and collapses whitespace runs.
func NormalizeText(text string) string {
	text = norm.NFC.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		case strings.ContainsRune(`.,!?'"-:;()`, r):
			b.WriteRune(r)
		case r == '’':
			b.WriteRune('\'')
		}
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(b.String(), " "))
}

// hedgeRe marks a report as hedged. An EXPERIENCE match preceded by a hedge
// ("i think i went") is not an experience and falls through to BELIEF.
var hedgeRe = regexp.MustCompile(`\b(?:i\s+(?:think|believe|guess|suppose|suspect|reckon)|maybe|probably|perhaps|might|seems?)\b`)

type classificationRule struct {
	kind     domain.KnowledgeType
	patterns []*regexp.Regexp
	hedged   bool // ignore matches that follow a hedge
}

// classificationCascade is evaluated in order; the first family with a
// matching pattern wins. EXPERIENCE patterns match anywhere, so leading
// clauses and compound subjects ("after work, my sister and i went") keep
// their priority over later families.
var classificationCascade = []classificationRule{
	{kind: domain.KnowledgeExperience, hedged: true, patterns: []*regexp.Regexp{
		regexp.MustCompile(`\b(?:i|we)\s+(?:went|did|saw|met|visited|talked|spoke|ate|had|got|made|took|walked|drove|watched|played|called|bought|finished|started|read|wrote|worked|ran|came|left|found|tried|spent)\b`),
		regexp.MustCompile(`\b(?:i|we)\s+(?:was|were)\s+(?:at|in|with)\b`),
	}},
	{kind: domain.KnowledgeFeeling, patterns: []*regexp.Regexp{
		regexp.MustCompile(`\bi\s+(?:feel|felt)\b`),
		regexp.MustCompile(`\bi(?:'m|m| am)\s+(?:so\s+|really\s+|very\s+)?(?:happy|sad|angry|anxious|excited|scared|afraid|worried|nervous|upset|frustrated|lonely|grateful|tired|stressed|overwhelmed)\b`),
		regexp.MustCompile(`\bi\s+(?:love|hate|miss)\b`),
	}},
	{kind: domain.KnowledgeBelief, patterns: []*regexp.Regexp{
		regexp.MustCompile(`\bi\s+(?:think|believe|guess|suppose|suspect|reckon)\b`),
		regexp.MustCompile(`\b(?:maybe|probably|perhaps|might|seems?|in my opinion)\b`),
	}},
	{kind: domain.KnowledgeFact, patterns: []*regexp.Regexp{
		regexp.MustCompile(`\b(?:is|are|was|were)\s+(?:a|an|the|born|located|founded|married|named|called)\b`),
		regexp.MustCompile(`\b(?:in|since)\s+\d{4}\b`),
		regexp.MustCompile(`\bfact\b`),
	}},
	{kind: domain.KnowledgeDecision, patterns: []*regexp.Regexp{
		regexp.MustCompile(`\bi\s+(?:decided|will|chose|plan to|am going to)\b`),
		regexp.MustCompile(`\bi(?:'ll|'m going to)\b`),
		regexp.MustCompile(`\bfrom now on\b`),
	}},
	{kind: domain.KnowledgeQuestion, patterns: []*regexp.Regexp{
		regexp.MustCompile(`\?\s*$`),
		regexp.MustCompile(`^(?:who|what|when|where|why|how|which|do|does|did|is|are|can|could|should|would)\b`),
	}},
}

var (
	hearsayRe      = regexp.MustCompile(`\b(?:(?:they|he|she) said|someone told me|(?:he|she|they) told me|i heard|apparently|reportedly|rumou?r|according to)\b`)
	verificationRe = regexp.MustCompile(`\b(?:confirmed|verified|checked|documented|proved|proven)\b`)
)

// Classify assigns a knowledge type using the fixed priority cascade.
// Text that matches no family is an EXPERIENCE.
func Classify(text string) domain.KnowledgeType {
	lower := strings.ToLower(text)
	for _, rule := range classificationCascade {
		for _, re := range rule.patterns {
			loc := re.FindStringIndex(lower)
			if loc == nil {
				continue
			}
			if rule.hedged && hedgeRe.MatchString(lower[:loc[0]]) {
				continue
			}
			return rule.kind
		}
	}
	return domain.KnowledgeExperience
}

func HasHearsayMarkers(text string) bool {
	return hearsayRe.MatchString(strings.ToLower(text))
}

func HasVerificationMarkers(text string) bool {
	return verificationRe.MatchString(strings.ToLower(text))
}

// InitialConfidence scores a freshly classified entry from its type's base
// confidence, adjusted for length and hearsay.
func InitialConfidence(k domain.KnowledgeType, text string) float64 {
	conf := k.BaseConfidence()
	n := utf8.RuneCountInString(text)
	if n < shortTextChars {
		conf *= shortTextPenalty
	}
	if n > longTextChars {
		conf *= longTextPenalty
	}
	if HasHearsayMarkers(text) {
		conf *= hearsayPenalty
	}
	return clampConfidence(conf)
}

// InferCertaintySource derives where an entry's certainty comes from.
// Hearsay markers dominate verification markers.
func InferCertaintySource(k domain.KnowledgeType, text string) domain.CertaintySource {
	if HasHearsayMarkers(text) {
		return domain.CertaintyHearsay
	}
	if HasVerificationMarkers(text) {
		return domain.CertaintyVerification
	}
	switch k {
	case domain.KnowledgeExperience, domain.KnowledgeFeeling, domain.KnowledgeDecision:
		return domain.CertaintyDirectExperience
	case domain.KnowledgeBelief, domain.KnowledgeQuestion:
		return domain.CertaintyInference
	case domain.KnowledgeFact:
		return domain.CertaintyMemoryRecall
	default:
		return domain.CertaintyInference
	}
}

func clampConfidence(c float64) float64 {
	if c < MinEntryConfidence {
		return MinEntryConfidence
	}
	if c > MaxEntryConfidence {
		return MaxEntryConfidence
	}
	return c
}
