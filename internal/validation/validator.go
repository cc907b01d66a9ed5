package validation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"clinic-intake/internal/llm"
	"clinic-intake/internal/slots"
)

const validatePrompt = "You check whether a patient's reply answers the intake question they were asked. " +
	"Reply with exactly one word: YES if the reply plausibly addresses the question, NO if it does not."

const rephrasePrompt = "Restate the following intake question using different words but the same intent. " +
	"Be clear and direct, at most 20 words. Reply with the restated question only."

// Validator asks the text-understanding client whether free-text answers
// address the question just asked. Any failure of the client is treated as
// acceptance: blocking the conversation is worse than imperfect validation.
type Validator struct {
	client  llm.Client
	timeout time.Duration
}

func New(client llm.Client, timeout time.Duration) *Validator {
	return &Validator{client: client, timeout: timeout}
}

func (v *Validator) Validate(ctx context.Context, answer, question string, target slots.Name, transcript []string) bool {
	if v.client == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	content := fmt.Sprintf("Question asked: %q\nPatient reply: %q", question, answer)
	if len(transcript) > 0 {
		content = "Conversation so far:\n" + strings.Join(transcript, "\n") + "\n\n" + content
	}
	msgs := []llm.Message{
		{Role: "system", Content: validatePrompt},
		{Role: "user", Content: content},
	}
	resp, err := v.client.Generate(ctx, msgs)
	if err != nil {
		log.Printf("answer validation failed for slot %s, accepting: %v", target, err)
		return true
	}
	verdict, ok := parseVerdict(resp.Content)
	if !ok {
		log.Printf("answer validation returned unparseable verdict %q for slot %s, accepting", resp.Content, target)
		return true
	}
	return verdict
}

// Rephrase asks for the question restated differently; on any failure it
// falls back to prefixing the original question.
func (v *Validator) Rephrase(ctx context.Context, question string, target slots.Name) string {
	fallback := "Let me ask differently: " + question
	if v.client == nil {
		return fallback
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	msgs := []llm.Message{
		{Role: "system", Content: rephrasePrompt},
		{Role: "user", Content: question},
	}
	resp, err := v.client.Generate(ctx, msgs)
	if err != nil {
		log.Printf("question rephrase failed for slot %s, using fallback: %v", target, err)
		return fallback
	}
	rephrased := strings.TrimSpace(resp.Content)
	if rephrased == "" {
		return fallback
	}
	return rephrased
}

func parseVerdict(content string) (verdict, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(content))
	s = strings.Trim(s, `."'!`)
	switch {
	case strings.HasPrefix(s, "YES"):
		return true, true
	case s == "NO" || strings.HasPrefix(s, "NO "):
		return false, true
	}
	return false, false
}
