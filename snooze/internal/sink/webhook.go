package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hazyhaar/snooze/snooze/internal/event"
)

// Webhook POSTs each transition to a URL. Receivers get the event ID in
// Idempotency-Key, since a retried delivery may arrive twice.
type Webhook struct {
	url     string
	client  *http.Client
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets how many times a failed delivery is retried. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.retries = n }
}

// WithWebhookBackoff sets the first retry delay; it doubles per attempt. Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

// WithWebhookLogger sets a custom logger. nil keeps the default.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWebhook creates a Webhook sink targeting url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		retries: 3,
		backoff: time.Second,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// permanent marks a response retrying cannot fix.
type permanent struct{ status int }

func (p permanent) Error() string { return fmt.Sprintf("webhook: rejected with status %d", p.status) }

func (w *Webhook) Send(ctx context.Context, t event.Transition) error {
	body, err := json.Marshal(envelope{Type: "transition", At: t.Timestamp, Data: t})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	wait := w.backoff
	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			wait *= 2
		}

		retryAfter, err := w.post(ctx, t, body)
		if err == nil {
			return nil
		}
		if p, ok := err.(permanent); ok {
			return p
		}
		lastErr = err
		if retryAfter > wait {
			wait = retryAfter
		}
		w.logger.Warn("webhook: delivery failed", "item", t.ItemID, "kind", t.Kind, "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("webhook: giving up on %s after %d attempts: %w", t.ID, w.retries+1, lastErr)
}

// post makes one delivery. A non-zero duration is the server's Retry-After.
func (w *Webhook) post(ctx context.Context, t event.Transition, body []byte) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return 0, permanent{status: 0}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", t.ID)
	req.Header.Set("X-Snooze-Event", string(t.Kind))

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return 0, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		var after time.Duration
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
			after = time.Duration(s) * time.Second
		}
		return after, fmt.Errorf("webhook: status %d", resp.StatusCode)
	default:
		return 0, permanent{status: resp.StatusCode}
	}
}

func (w *Webhook) Close() error { return nil }
