package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestWhatsAppSendText(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		var payload waTextPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		if payload.To != "5551999999999" || payload.Text.Body != "hello" {
			t.Errorf("unexpected payload: %+v", payload)
		}
		_ = json.NewEncoder(w).Encode(waSendResponse{Messages: []struct {
			ID string `json:"id"`
		}{{ID: "wamid.123"}}})
	}))
	defer srv.Close()

	c := NewWhatsApp("token", "424242", time.Second)
	c.baseURL = srv.URL

	id, err := c.SendText(context.Background(), "5551999999999", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "wamid.123" {
		t.Fatalf("unexpected message id: %q", id)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotPath != "/424242/messages" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
}

func TestWhatsAppRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(waSendResponse{Messages: []struct {
			ID string `json:"id"`
		}{{ID: "wamid.ok"}}})
	}))
	defer srv.Close()

	c := NewWhatsApp("token", "1", time.Second)
	c.baseURL = srv.URL

	id, err := c.SendText(context.Background(), "55519", "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "wamid.ok" {
		t.Fatalf("unexpected id: %q", id)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestWhatsAppGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewWhatsApp("token", "1", time.Second)
	c.baseURL = srv.URL

	if _, err := c.SendText(context.Background(), "55519", "hi"); err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
	if atomic.LoadInt32(&calls) != maxSendAttempts {
		t.Fatalf("expected %d attempts, got %d", maxSendAttempts, calls)
	}
}

type fakeTgSender struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeTgSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	mc := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, mc)
	return tgbotapi.Message{MessageID: 7}, nil
}

func TestTelegramSendText(t *testing.T) {
	fs := &fakeTgSender{}
	c := &TelegramClient{s: fs}

	id, err := c.SendText(context.Background(), "12345", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "7" {
		t.Fatalf("unexpected message id: %q", id)
	}
	if len(fs.sent) != 1 || fs.sent[0].ChatID != 12345 || fs.sent[0].Text != "hello" {
		t.Fatalf("unexpected sent message: %+v", fs.sent)
	}
}

func TestTelegramRejectsNonNumericIdentity(t *testing.T) {
	c := &TelegramClient{s: &fakeTgSender{}}
	if _, err := c.SendText(context.Background(), "5551999999999x", "hi"); err == nil {
		t.Fatalf("expected identity parse error")
	}
}
