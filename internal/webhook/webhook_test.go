package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clinic-intake/internal/engine"
	"clinic-intake/internal/session"
)

type fakeProcessor struct {
	got []engine.Inbound
}

func (f *fakeProcessor) HandleInbound(ctx context.Context, in engine.Inbound) error {
	f.got = append(f.got, in)
	return nil
}

type fakeStore struct {
	stats    session.Stats
	statsErr error
}

func (f *fakeStore) FindActive(ctx context.Context, hash string) (*session.Session, error) {
	return nil, nil
}
func (f *fakeStore) Upsert(ctx context.Context, s *session.Session) error { return nil }
func (f *fakeStore) AppendMessage(ctx context.Context, rec session.MessageRecord) error {
	return nil
}
func (f *fakeStore) MessagesSince(ctx context.Context, hash string, since time.Time, limit int64) ([]session.MessageRecord, error) {
	return nil, nil
}
func (f *fakeStore) Stats(ctx context.Context) (session.Stats, error) {
	return f.stats, f.statsErr
}

func newTestServer() (*Server, *fakeProcessor) {
	p := &fakeProcessor{}
	return NewServer(p, &fakeStore{stats: session.Stats{Sessions: 3, ActiveSessions: 1, Messages: 12}}, "secret-token"), p
}

func TestVerifyHandshake(t *testing.T) {
	srv, _ := newTestServer()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=challenge-42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "challenge-42" {
		t.Fatalf("challenge not echoed: %q", body)
	}
}

func TestVerifyRejectsBadToken(t *testing.T) {
	srv, _ := newTestServer()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

const samplePayload = `{
  "entry": [{
    "changes": [{
      "value": {
        "messages": [
          {"from": "5551999999999", "id": "wamid.1", "type": "text", "text": {"body": "hello"}},
          {"from": "5551999999999", "id": "wamid.2", "type": "image"}
        ]
      }
    }]
  }]
}`

func TestInboundForwardsTextMessagesOnly(t *testing.T) {
	srv, p := newTestServer()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/webhook/whatsapp", "application/json", strings.NewReader(samplePayload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(p.got) != 1 {
		t.Fatalf("forwarded %d events, want 1 (non-text skipped)", len(p.got))
	}
	in := p.got[0]
	if in.Identity != "5551999999999" || in.Text != "hello" || in.MessageID != "wamid.1" {
		t.Fatalf("unexpected inbound: %+v", in)
	}
}

func TestInboundRejectsMalformedJSON(t *testing.T) {
	srv, p := newTestServer()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/webhook/whatsapp", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(p.got) != 0 {
		t.Fatalf("malformed payload reached the engine")
	}
}

func TestHealthReportsStats(t *testing.T) {
	srv, _ := newTestServer()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{`"healthy"`, `"sessions":3`, `"active_sessions":1`, `"messages":12`} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("health body missing %s: %s", want, body)
		}
	}
}
