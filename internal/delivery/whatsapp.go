package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	graphAPIBase = "https://graph.facebook.com/v18.0"

	maxSendAttempts = 3
	retryBaseDelay  = 500 * time.Millisecond
)

// WhatsAppClient sends text messages through the WhatsApp Cloud API.
// Identities are normalized phone numbers.
type WhatsAppClient struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	http          *http.Client
}

func NewWhatsApp(accessToken, phoneNumberID string, timeout time.Duration) *WhatsAppClient {
	return &WhatsAppClient{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		baseURL:       graphAPIBase,
		http:          &http.Client{Timeout: timeout},
	}
}

type waTextPayload struct {
	MessagingProduct string     `json:"messaging_product"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Text             waTextBody `json:"text"`
}

type waTextBody struct {
	Body string `json:"body"`
}

type waSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *WhatsAppClient) SendText(ctx context.Context, identity, text string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			log.Printf("retrying WhatsApp send, attempt %d", attempt+1)
		}
		id, err := c.send(ctx, identity, text)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("whatsapp send failed after %d attempts: %w", maxSendAttempts, lastErr)
}

func (c *WhatsAppClient) send(ctx context.Context, identity, text string) (string, error) {
	payload := waTextPayload{
		MessagingProduct: "whatsapp",
		To:               identity,
		Type:             "text",
		Text:             waTextBody{Body: text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("whatsapp api status %d: %s", resp.StatusCode, data)
	}

	var out waSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", fmt.Errorf("whatsapp api returned no message id")
	}
	return out.Messages[0].ID, nil
}
