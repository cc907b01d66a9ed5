package safety

import (
	"regexp"
	"strings"
)

// Phrases that indicate the sender may need urgent human attention.
// Matching is literal: a phrase inside a longer sentence still counts,
// including negated mentions ("no chest pain"). See the package tests for
// the documented false-positive behavior.
var emergencyPhrases = []string{
	// severe pain / cardiac
	"chest pain", "pressure in my chest", "tight chest", "heart attack",
	"racing heart",

	// breathing
	"can't breathe", "cannot breathe", "can not breathe",
	"shortness of breath", "trouble breathing", "difficulty breathing",
	"choking", "suffocating",

	// neurological
	"fainted", "about to faint", "passed out", "unconscious",
	"seizure", "stroke", "sudden weakness", "paralysis", "sudden confusion",
	"numbness in my arm", "slurred speech",

	// bleeding
	"heavy bleeding", "bleeding a lot", "hemorrhage", "vomiting blood",

	// other
	"blue lips", "cold sweat", "severe dizziness", "lost consciousness",
}

var phrasePatterns = compilePhrases(emergencyPhrases)

// Intensity patterns: pain at the top of the scale, very high fever.
var intensityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bpain\s+(level\s+)?10\b`),
	regexp.MustCompile(`\bpain\s+(is\s+)?(a\s+)?10\s*/\s*10\b`),
	regexp.MustCompile(`\b10\s+out\s+of\s+10\b`),
	regexp.MustCompile(`\bfever\s+(of\s+|above\s+|over\s+)?(39|4[0-2])\b`),
	regexp.MustCompile(`\btemperature\s+(of\s+|above\s+|over\s+)?(39|4[0-2])\b`),
	regexp.MustCompile(`\bfever\s+(of\s+|above\s+|over\s+)?10[2-6]\b`),
}

func compilePhrases(phrases []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(p)+`\b`))
	}
	return out
}

// Detect reports whether text contains an emergency phrase or intensity
// pattern. Empty text never matches. No side effects.
func Detect(text string) bool {
	return len(Matches(text)) > 0
}

// Matches returns every phrase or pattern that fired, for audit logging.
func Matches(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	normalized := strings.ToLower(text)

	var hits []string
	for i, re := range phrasePatterns {
		if re.MatchString(normalized) {
			hits = append(hits, emergencyPhrases[i])
		}
	}
	for _, re := range intensityPatterns {
		if m := re.FindString(normalized); m != "" {
			hits = append(hits, m)
		}
	}
	return hits
}
