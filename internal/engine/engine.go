package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"clinic-intake/internal/delivery"
	"clinic-intake/internal/history"
	"clinic-intake/internal/identity"
	"clinic-intake/internal/safety"
	"clinic-intake/internal/session"
	"clinic-intake/internal/slots"
)

// transcriptLimit caps how many message records are read back from the
// store when the cache is cold.
const transcriptLimit = 20

// Validator decides whether a free-text answer addresses the question just
// asked, and restates rejected questions. Implementations must fail open.
type Validator interface {
	Validate(ctx context.Context, answer, question string, target slots.Name, transcript []string) bool
	Rephrase(ctx context.Context, question string, target slots.Name) string
}

// Inbound is one received message event at the system boundary.
type Inbound struct {
	Identity  string // raw platform identifier, never persisted
	Text      string
	MessageID string
}

// Engine is the triage conversation state machine. Given an inbound message
// and the stored session it decides the next action: greet, ask, re-ask,
// escalate, complete or expire. Collaborators are injected; the engine owns
// all session transitions.
type Engine struct {
	store     session.Store
	sender    delivery.Sender
	validator Validator
	hasher    *identity.Hasher

	detect      func(string) bool
	cache       *history.Cache
	seen        *gocache.Cache
	locks       *keyedMutex
	timeout     time.Duration
	sendTimeout time.Duration
	now         func() time.Time
}

func New(store session.Store, sender delivery.Sender, validator Validator, hasher *identity.Hasher, sessionTimeout, deliveryTimeout time.Duration) *Engine {
	return &Engine{
		store:       store,
		sender:      sender,
		validator:   validator,
		hasher:      hasher,
		detect:      safety.Detect,
		cache:       history.NewCache(sessionTimeout),
		seen:        gocache.New(10*time.Minute, 20*time.Minute),
		locks:       newKeyedMutex(),
		timeout:     sessionTimeout,
		sendTimeout: deliveryTimeout,
		now:         time.Now,
	}
}

// HandleInbound runs one full transition for an inbound message. Every
// inbound message produces at least one outbound message, except empty or
// duplicate events, which are acknowledged silently.
func (e *Engine) HandleInbound(ctx context.Context, in Inbound) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil
	}
	if in.MessageID != "" {
		if _, dup := e.seen.Get(in.MessageID); dup {
			log.Printf("duplicate message id %s, ignoring", in.MessageID)
			return nil
		}
		e.seen.SetDefault(in.MessageID, struct{}{})
	}

	hash := e.hasher.Hash(in.Identity)
	e.locks.Lock(hash)
	defer e.locks.Unlock(hash)

	now := e.now()

	sess, err := e.store.FindActive(ctx, hash)
	if err != nil {
		return fmt.Errorf("find active session: %w", err)
	}

	// Lazy expiry: sessions idle past the threshold are stamped expired and
	// the message is treated as the start of a fresh conversation.
	if sess != nil && now.Sub(sess.LastActivity) > e.timeout {
		completed := now
		sess.Status = session.StatusExpired
		sess.CompletedAt = &completed
		if err := e.store.Upsert(ctx, sess); err != nil {
			return fmt.Errorf("expire session: %w", err)
		}
		log.Printf("session for %s expired after inactivity", shortHash(hash))
		e.cache.Reset(hash)
		sess = nil
	}

	e.recordInbound(ctx, hash, in.MessageID, text, now)

	if sess == nil {
		return e.startSession(ctx, hash, in.Identity, text, now)
	}
	return e.advanceSession(ctx, sess, in.Identity, text, now)
}

// startSession handles a message from an identity with no active session.
// Safety detection runs before the welcome: a triggering first message
// creates the session directly in the emergency state.
func (e *Engine) startSession(ctx context.Context, hash, rawIdentity, text string, now time.Time) error {
	if e.detect(text) {
		log.Printf("emergency detected on first message from %s: %v", shortHash(hash), safety.Matches(text))
		sess := &session.Session{
			IdentityHash:  hash,
			Status:        session.StatusEmergency,
			Slots:         slots.NewSet(),
			EmergencyFlag: true,
			CreatedAt:     now,
			LastActivity:  now,
		}
		if err := e.store.Upsert(ctx, sess); err != nil {
			return fmt.Errorf("create emergency session: %w", err)
		}
		e.deliver(ctx, hash, rawIdentity, emergencyMessage)
		return nil
	}

	sess := &session.Session{
		IdentityHash: hash,
		Status:       session.StatusGreeted,
		Slots:        slots.NewSet(),
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := e.store.Upsert(ctx, sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	// The first inbound text only triggers initialization; it is not an
	// answer to anything.
	e.deliver(ctx, hash, rawIdentity, welcomeMessage)
	e.deliver(ctx, hash, rawIdentity, slots.Question(slots.Order[0]))
	return nil
}

// advanceSession handles a message for an existing session.
func (e *Engine) advanceSession(ctx context.Context, sess *session.Session, rawIdentity, text string, now time.Time) error {
	hash := sess.IdentityHash

	// Once escalated, a session absorbs further messages without any slot
	// mutation; the sender is reminded of the emergency guidance.
	if sess.Status == session.StatusEmergency {
		e.deliver(ctx, hash, rawIdentity, emergencyMessage)
		return nil
	}

	// Safety precedes slot processing, mid-questionnaire included.
	if e.detect(text) {
		log.Printf("emergency detected mid-conversation for %s: %v", shortHash(hash), safety.Matches(text))
		sess.Status = session.StatusEmergency
		sess.EmergencyFlag = true
		sess.LastActivity = now
		if err := e.store.Upsert(ctx, sess); err != nil {
			return fmt.Errorf("escalate session: %w", err)
		}
		e.deliver(ctx, hash, rawIdentity, emergencyMessage)
		return nil
	}

	target, ok := sess.Slots.NextUnfilled()
	if !ok {
		// An active session with nothing left to collect should not occur;
		// close it out and re-present the intake offer without mutating slots.
		log.Printf("ERROR: active session for %s has no unfilled slot", shortHash(hash))
		completed := now
		sess.Status = session.StatusCompleted
		sess.LastActivity = now
		if sess.CompletedAt == nil {
			sess.CompletedAt = &completed
		}
		if err := e.store.Upsert(ctx, sess); err != nil {
			return fmt.Errorf("close out session: %w", err)
		}
		e.cache.Reset(hash)
		e.deliver(ctx, hash, rawIdentity, newIntakePrompt)
		return nil
	}

	question := slots.Question(target)
	if !e.validator.Validate(ctx, text, question, target, e.transcript(ctx, sess)) {
		sess.LastActivity = now
		if err := e.store.Upsert(ctx, sess); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		e.deliver(ctx, hash, rawIdentity, e.validator.Rephrase(ctx, question, target))
		return nil
	}

	if err := sess.Slots.Fill(target, text); err != nil {
		// Guarded by NextUnfilled above; reaching this is a programming error.
		log.Printf("ERROR: fill %s for %s: %v", target, shortHash(hash), err)
		e.deliver(ctx, hash, rawIdentity, apologyMessage)
		return nil
	}
	sess.LastActivity = now

	next, more := sess.Slots.NextUnfilled()
	if more {
		sess.Status = session.StatusOpen
		if err := e.store.Upsert(ctx, sess); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		e.deliver(ctx, hash, rawIdentity, slots.Question(next))
		return nil
	}

	completed := now
	sess.Status = session.StatusCompleted
	sess.CompletedAt = &completed
	if err := e.store.Upsert(ctx, sess); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	log.Printf("intake completed for %s with %d answers", shortHash(hash), sess.Slots.FilledCount())
	e.deliver(ctx, hash, rawIdentity, completionMessage(sess.Slots))
	return nil
}

// deliver sends outbound text and records it. Delivery is best-effort: the
// session decision is already persisted, so a send failure never rolls it
// back, and the record is appended either way.
func (e *Engine) deliver(ctx context.Context, hash, rawIdentity, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	messageID, err := e.sender.SendText(sendCtx, rawIdentity, text)
	cancel()
	if err != nil {
		log.Printf("delivery failed for %s: %v", shortHash(hash), err)
		messageID = "out_" + uuid.NewString()
	}

	rec := session.MessageRecord{
		IdentityHash: hash,
		Direction:    session.DirectionOut,
		MessageID:    messageID,
		Text:         text,
		Timestamp:    e.now(),
	}
	if err := e.store.AppendMessage(ctx, rec); err != nil {
		log.Printf("failed to record outbound message for %s: %v", shortHash(hash), err)
	}
	e.cache.AppendAssistant(hash, text)
}

func (e *Engine) recordInbound(ctx context.Context, hash, messageID, text string, now time.Time) {
	if messageID == "" {
		messageID = "in_" + uuid.NewString()
	}
	rec := session.MessageRecord{
		IdentityHash: hash,
		Direction:    session.DirectionIn,
		MessageID:    messageID,
		Text:         text,
		Timestamp:    now,
	}
	if err := e.store.AppendMessage(ctx, rec); err != nil {
		log.Printf("failed to record inbound message for %s: %v", shortHash(hash), err)
	}
	e.cache.AppendUser(hash, text)
}

// transcript returns the recent conversation as "role: text" lines for the
// validator. The cache is warmed from the store when cold (e.g. after a
// restart); the store stays the source of truth.
func (e *Engine) transcript(ctx context.Context, sess *session.Session) []string {
	entries := e.cache.Recent(sess.IdentityHash)
	if len(entries) == 0 {
		recs, err := e.store.MessagesSince(ctx, sess.IdentityHash, sess.CreatedAt, transcriptLimit)
		if err != nil {
			log.Printf("failed to load transcript for %s: %v", shortHash(sess.IdentityHash), err)
			return nil
		}
		for _, r := range recs {
			if r.Direction == session.DirectionIn {
				e.cache.AppendUser(sess.IdentityHash, r.Text)
			} else {
				e.cache.AppendAssistant(sess.IdentityHash, r.Text)
			}
		}
		entries = e.cache.Recent(sess.IdentityHash)
	}

	out := make([]string, 0, len(entries))
	for _, en := range entries {
		out = append(out, en.Role+": "+en.Text)
	}
	return out
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
