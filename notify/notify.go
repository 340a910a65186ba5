// Package notify posts pipeline status events to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/verdin/sagecycle/audit"
	"github.com/verdin/sagecycle/telemetry"
)

// Event is the webhook payload. Deliberately thin: receivers do their
// own formatting.
type Event struct {
	Project   string    `json:"project"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers events to one webhook URL.
type Notifier struct {
	url     string
	client  *http.Client
	log     *telemetry.Logger
	journal *audit.Journal
	now     func() time.Time
}

// New creates a notifier. journal may be nil.
func New(url string, log *telemetry.Logger, journal *audit.Journal) *Notifier {
	return &Notifier{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
		journal: journal,
		now:     time.Now,
	}
}

// Send posts one event. A non-2xx response is an error.
func (n *Notifier) Send(ctx context.Context, event Event) error {
	if n.url == "" {
		return fmt.Errorf("no webhook URL configured")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = n.now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	if n.journal != nil {
		_ = n.journal.Append(audit.EntryNotified, event.Project, event)
	}
	n.log.Info().
		Str("project", event.Project).
		Str("stage", event.Stage).
		Str("status", event.Status).
		Msg("notification delivered")

	return nil
}
