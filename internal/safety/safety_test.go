package safety

import "testing"

func TestDetectEmergencyPhrases(t *testing.T) {
	positives := []string{
		"I have chest pain and can't breathe",
		"My father just FAINTED",
		"heavy bleeding since this morning",
		"I think she is having a seizure",
		"there's a pressure in my chest",
	}
	for _, text := range positives {
		if !Detect(text) {
			t.Fatalf("expected detection for %q", text)
		}
	}
}

func TestDetectIntensityPatterns(t *testing.T) {
	positives := []string{
		"the pain is 10/10 right now",
		"pain level 10",
		"10 out of 10, unbearable",
		"fever of 39 since last night",
		"temperature above 40",
	}
	for _, text := range positives {
		if !Detect(text) {
			t.Fatalf("expected detection for %q", text)
		}
	}
}

func TestDetectNonEmergencies(t *testing.T) {
	negatives := []string{
		"",
		"   ",
		"hello",
		"mild headache for two days",
		"pain around 3 or 4",
		"fever of 37.8 yesterday",
		"my chest feels fine",
	}
	for _, text := range negatives {
		if Detect(text) {
			t.Fatalf("unexpected detection for %q: %v", text, Matches(text))
		}
	}
}

// Matching is literal. Negated mentions still trigger; this documents the
// known false positive rather than asserting desired behavior.
func TestDetectNegatedMentionStillTriggers(t *testing.T) {
	if !Detect("no chest pain, just a cough") {
		t.Fatalf("literal matching changed: negated phrase no longer triggers")
	}
	if !Detect("there is no heavy bleeding anymore") {
		t.Fatalf("literal matching changed: negated phrase no longer triggers")
	}
}

func TestMatchesReportsFiringPhrases(t *testing.T) {
	hits := Matches("chest pain and pain level 10")
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %v", hits)
	}
	if hits[0] != "chest pain" {
		t.Fatalf("unexpected first hit: %q", hits[0])
	}
}

func TestDetectWholeWordBoundaries(t *testing.T) {
	// "stroke" must not match inside another word.
	if Detect("I did some brushstrokes today") {
		t.Fatalf("matched inside a larger word")
	}
}
