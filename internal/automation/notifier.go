// Package automation delivers event envelopes to the n8n workflow webhook.
// Delivery is single-shot and best effort: callers log failures and move on,
// retries belong to the workflow engine on the other side.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"barberosa_backend/platform/logger"
)

// envelope is the wire format every workflow trigger expects.
type envelope struct {
	Event     string `json:"event"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// Notifier posts event envelopes to a single webhook URL.
type Notifier struct {
	webhookURL string
	client     *http.Client
	log        *logger.Logger
	now        func() time.Time
}

// NewNotifier creates a notifier for the given webhook URL. The timeout bounds
// the whole request including body read.
func NewNotifier(webhookURL string, timeout time.Duration, log *logger.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		log:        log,
		now:        time.Now,
	}
}

// Notify sends one envelope. The payload is serialized as-is under "data".
func (n *Notifier) Notify(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(envelope{
		Event:     event,
		Data:      payload,
		Timestamp: n.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", event, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s to webhook: %w", event, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d for %s", resp.StatusCode, event)
	}
	return nil
}
