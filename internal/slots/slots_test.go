package slots

import "testing"

func TestFillFollowsFixedOrder(t *testing.T) {
	s := NewSet()
	for i, want := range Order {
		if s.IsComplete() {
			t.Fatalf("complete after %d fills, want %d", i, len(Order))
		}
		next, ok := s.NextUnfilled()
		if !ok {
			t.Fatalf("no next slot after %d fills", i)
		}
		if next != want {
			t.Fatalf("next = %q, want %q", next, want)
		}
		if err := s.Fill(next, "answer"); err != nil {
			t.Fatalf("fill %q: %v", next, err)
		}
		if s.FilledCount() != i+1 {
			t.Fatalf("filled count = %d, want %d", s.FilledCount(), i+1)
		}
	}
	if !s.IsComplete() {
		t.Fatalf("not complete after all slots filled")
	}
	if next, ok := s.NextUnfilled(); ok {
		t.Fatalf("NextUnfilled returned %q on a complete set", next)
	}
}

func TestNextUnfilledNeverReturnsFilledSlot(t *testing.T) {
	s := NewSet()
	filled := map[Name]bool{}
	for {
		next, ok := s.NextUnfilled()
		if !ok {
			break
		}
		if filled[next] {
			t.Fatalf("NextUnfilled returned already-filled slot %q", next)
		}
		filled[next] = true
		_ = s.Fill(next, "x")
	}
	if len(filled) != len(Order) {
		t.Fatalf("walked %d slots, want %d", len(filled), len(Order))
	}
}

func TestFillUnknownSlot(t *testing.T) {
	s := NewSet()
	if err := s.Fill("blood_type", "O+"); err == nil {
		t.Fatalf("expected error for unknown slot")
	}
	if s.FilledCount() != 0 {
		t.Fatalf("unknown slot mutated the set")
	}
}

func TestFromValuesSkipsUnknownAndEmpty(t *testing.T) {
	s := FromValues(map[string]string{
		"chief_complaint": "headache",
		"symptoms":        "",
		"bogus":           "x",
	})
	if s.FilledCount() != 1 {
		t.Fatalf("filled count = %d, want 1", s.FilledCount())
	}
	next, _ := s.NextUnfilled()
	if next != Symptoms {
		t.Fatalf("next = %q, want %q", next, Symptoms)
	}
}

func TestCompletionOnlyAfterLastSlot(t *testing.T) {
	s := NewSet()
	for i, name := range Order {
		_ = s.Fill(name, "v")
		complete := s.IsComplete()
		if i < len(Order)-1 && complete {
			t.Fatalf("complete after %q, before last slot", name)
		}
		if i == len(Order)-1 && !complete {
			t.Fatalf("not complete after last slot")
		}
	}
}

func TestQuestionFallback(t *testing.T) {
	if Question(ChiefComplaint) == "" {
		t.Fatalf("missing question for chief complaint")
	}
	if Question("nope") != "Could you give me more information?" {
		t.Fatalf("unexpected fallback question")
	}
}
