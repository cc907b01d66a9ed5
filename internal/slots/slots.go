package slots

import "fmt"

// Name identifies one field of the fixed intake questionnaire.
type Name string

const (
	ChiefComplaint    Name = "chief_complaint"
	Symptoms          Name = "symptoms"
	DurationFrequency Name = "duration_frequency"
	Severity          Name = "severity"
	MeasuresTaken     Name = "measures_taken"
	HealthHistory     Name = "health_history"
)

// Order is the fixed collection order. It is never reordered or skipped;
// the next slot to collect is always the first unfilled one.
var Order = []Name{
	ChiefComplaint,
	Symptoms,
	DurationFrequency,
	Severity,
	MeasuresTaken,
	HealthHistory,
}

var questions = map[Name]string{
	ChiefComplaint:    "What is the main reason for your contact today?",
	Symptoms:          "Could you describe everything you are feeling, in as much detail as you can?",
	DurationFrequency: "When did the symptoms start, and how often do they occur?",
	Severity:          "On a scale from 0 to 10, where 0 is no discomfort and 10 is unbearable, how intense is it?",
	MeasuresTaken:     "Have you already done anything to try to relieve the symptoms?",
	HealthHistory:     "Do you have any relevant medical history?",
}

var labels = map[Name]string{
	ChiefComplaint:    "Chief complaint",
	Symptoms:          "Symptoms",
	DurationFrequency: "Duration/Frequency",
	Severity:          "Severity",
	MeasuresTaken:     "Measures taken",
	HealthHistory:     "Health history",
}

// Question returns the fixed prompt text for a slot.
func Question(name Name) string {
	if q, ok := questions[name]; ok {
		return q
	}
	return "Could you give me more information?"
}

// Label returns the human-readable slot name used in summaries.
func Label(name Name) string {
	if l, ok := labels[name]; ok {
		return l
	}
	return string(name)
}

// Set tracks which questionnaire fields have been collected. Values, once
// set, are only cleared by starting a brand-new set.
type Set struct {
	values map[Name]string
}

func NewSet() *Set {
	return &Set{values: make(map[Name]string)}
}

// FromValues rebuilds a set from persisted slot values, ignoring unknown names.
func FromValues(values map[string]string) *Set {
	s := NewSet()
	for name, v := range values {
		if _, known := questions[Name(name)]; known && v != "" {
			s.values[Name(name)] = v
		}
	}
	return s
}

// NextUnfilled returns the first slot in collection order without a value.
func (s *Set) NextUnfilled() (Name, bool) {
	for _, name := range Order {
		if _, ok := s.values[name]; !ok {
			return name, true
		}
	}
	return "", false
}

func (s *Set) Fill(name Name, value string) error {
	if _, known := questions[name]; !known {
		return fmt.Errorf("unknown slot %q", name)
	}
	s.values[name] = value
	return nil
}

func (s *Set) IsComplete() bool {
	_, ok := s.NextUnfilled()
	return !ok
}

func (s *Set) FilledCount() int {
	return len(s.values)
}

// Value returns the collected answer for a slot, if any.
func (s *Set) Value(name Name) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Values returns filled name/value pairs in collection order.
func (s *Set) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for name, v := range s.values {
		out[string(name)] = v
	}
	return out
}
