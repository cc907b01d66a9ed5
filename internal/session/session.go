package session

import (
	"context"
	"time"

	"clinic-intake/internal/slots"
)

// Status is the lifecycle state of an intake session. Completed, Emergency
// and Expired are terminal: no further slot mutation is permitted.
type Status string

const (
	StatusGreeted   Status = "greeted"
	StatusOpen      Status = "open"
	StatusEmergency Status = "emergency"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusEmergency, StatusExpired:
		return true
	}
	return false
}

// Session is the durable per-identity record of intake progress. At most
// one non-terminal session exists per identity at a time.
type Session struct {
	IdentityHash  string
	Status        Status
	Slots         *slots.Set
	EmergencyFlag bool
	Version       int64
	CreatedAt     time.Time
	LastActivity  time.Time
	CompletedAt   *time.Time
}

// MessageRecord is an immutable log entry for one delivered or received
// message, used to reconstruct conversational context and for audit.
type MessageRecord struct {
	IdentityHash string
	Direction    Direction
	MessageID    string
	Text         string
	Timestamp    time.Time
	Meta         map[string]string
}

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Stats summarizes store contents for health reporting.
type Stats struct {
	Sessions       int64
	ActiveSessions int64
	Messages       int64
}

// Store abstracts session durability. Implementations must be safe for
// concurrent use; the engine serializes writes per identity on top of it.
type Store interface {
	// FindActive returns the session still absorbing messages for an
	// identity, or nil. Completed and expired sessions never qualify;
	// emergency sessions do, so that no fresh questionnaire starts while
	// an escalation is standing.
	FindActive(ctx context.Context, identityHash string) (*Session, error)
	// Upsert writes the session state keyed by identity hash.
	Upsert(ctx context.Context, s *Session) error
	// AppendMessage records one message exchange. Records are append-only.
	AppendMessage(ctx context.Context, rec MessageRecord) error
	// MessagesSince returns up to limit records for an identity, oldest first.
	MessagesSince(ctx context.Context, identityHash string, since time.Time, limit int64) ([]MessageRecord, error)
	// Stats reports store counters for health checks.
	Stats(ctx context.Context) (Stats, error)
}
