package engine

import (
	"strings"

	"clinic-intake/internal/slots"
)

const welcomeMessage = "Hello! I'm the clinic's virtual intake assistant. " +
	"I'll ask a few questions to organize your information and speed up your care.\n\n" +
	"Important: I'm a virtual assistant and I don't replace a professional medical evaluation."

const emergencyMessage = "Your symptoms may indicate an emergency. " +
	"Please go to the nearest emergency room or call your local emergency number immediately. " +
	"Do not wait for the clinic to reply."

const newIntakePrompt = "It looks like you already completed a recent intake. " +
	"To start a new one, what is the main reason for your contact today?"

const apologyMessage = "Sorry, something went wrong while processing your message. " +
	"Please send your last answer again."

// completionMessage builds the final summary from the collected answers,
// in collection order.
func completionMessage(set *slots.Set) string {
	var b strings.Builder
	b.WriteString("Intake complete! Here is what I registered:\n")
	for _, name := range slots.Order {
		if v, ok := set.Value(name); ok {
			b.WriteString("\n- ")
			b.WriteString(slots.Label(name))
			b.WriteString(": ")
			b.WriteString(v)
		}
	}
	b.WriteString("\n\nA clinic professional will review your information and follow up shortly. Thank you!")
	return b.String()
}
