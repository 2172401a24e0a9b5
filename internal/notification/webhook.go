package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// webhookPayload is the wire shape posted to the notice webhook.
type webhookPayload struct {
	Source    string `json:"source"`
	NoticeID  string `json:"noticeId"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// WebhookForwarder mirrors notices to an external HTTP endpoint.
type WebhookForwarder struct {
	url    string
	client *http.Client
}

// WebhookOption configures the forwarder.
type WebhookOption func(*WebhookForwarder)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(w *WebhookForwarder) {
		if client != nil {
			w.client = client
		}
	}
}

// NewWebhookForwarder constructs a forwarder for the given endpoint.
func NewWebhookForwarder(url string, opts ...WebhookOption) (*WebhookForwarder, error) {
	if url == "" {
		return nil, errors.New("notice webhook: empty url")
	}
	forwarder := &WebhookForwarder{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(forwarder)
	}
	return forwarder, nil
}

// Send posts one notice as JSON.
func (w *WebhookForwarder) Send(ctx context.Context, notice Notice) error {
	payload := webhookPayload{
		Source:    "rateintel",
		NoticeID:  notice.ID,
		Message:   notice.Message,
		Timestamp: notice.CreatedAt.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notice webhook: non-2xx response %d", resp.StatusCode)
	}
	return nil
}
