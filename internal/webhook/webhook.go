package webhook

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"clinic-intake/internal/engine"
	"clinic-intake/internal/session"
)

// InboundProcessor is the engine seam: one call per inbound message event.
type InboundProcessor interface {
	HandleInbound(ctx context.Context, in engine.Inbound) error
}

// Server is the HTTP boundary: the WhatsApp Cloud API webhook pair and a
// health endpoint. Everything it does is translate envelopes; decisions
// belong to the engine.
type Server struct {
	processor   InboundProcessor
	store       session.Store
	verifyToken string
}

func NewServer(processor InboundProcessor, store session.Store, verifyToken string) *Server {
	return &Server{processor: processor, store: store, verifyToken: verifyToken}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/webhook/whatsapp", s.handleVerify)
	r.Post("/webhook/whatsapp", s.handleInbound)
	return r
}

// handleVerify implements the Cloud API subscription handshake.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == s.verifyToken {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	log.Printf("webhook verification failed from %s", r.RemoteAddr)
	http.Error(w, "forbidden", http.StatusForbidden)
}

// Cloud API inbound envelope, reduced to the fields the engine needs.
type inboundPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	var payload inboundPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				// Status callbacks, media and other non-text events are
				// acknowledged without any outbound action.
				if msg.Type != "text" || msg.From == "" {
					continue
				}
				in := engine.Inbound{Identity: msg.From, Text: msg.Text.Body, MessageID: msg.ID}
				if err := s.processor.HandleInbound(r.Context(), in); err != nil {
					log.Printf("inbound handling failed: %v", err)
				}
			}
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"received"}`))
}

type healthResponse struct {
	Status    string    `json:"status"`
	Sessions  int64     `json:"sessions"`
	Active    int64     `json:"active_sessions"`
	Messages  int64     `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		log.Printf("health check failed: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:    "healthy",
		Sessions:  stats.Sessions,
		Active:    stats.ActiveSessions,
		Messages:  stats.Messages,
		Timestamp: time.Now().UTC(),
	})
}
