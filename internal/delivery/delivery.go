package delivery

import "context"

// Sender delivers outbound text to a contact identity. Delivery is
// best-effort: the engine commits its state before calling it and does not
// roll back on failure.
type Sender interface {
	// SendText delivers text and returns the platform message id.
	SendText(ctx context.Context, identity, text string) (string, error)
}
