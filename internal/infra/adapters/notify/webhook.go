package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier POSTs each event as JSON to an automation endpoint.
// Transport errors, 429 and 5xx are retried with exponential backoff and jitter.
type WebhookNotifier struct {
	url      string
	client   *http.Client
	attempts int
	backoff  time.Duration
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		attempts: 3,
		backoff:  500 * time.Millisecond,
	}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

func (n *WebhookNotifier) Notify(ctx context.Context, ev *model.SubscriptionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < n.attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, n.delay(attempt)); err != nil {
				return fmt.Errorf("webhook: %w (last error: %v)", err, lastErr)
			}
		}
		retry, err := n.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return fmt.Errorf("webhook: %w", lastErr)
}

func (n *WebhookNotifier) post(ctx context.Context, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("http %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("http %d", resp.StatusCode)
	}
}

// delay is backoff * 2^(attempt-1), plus up to 50% jitter.
func (n *WebhookNotifier) delay(attempt int) time.Duration {
	d := n.backoff << (attempt - 1)
	if d <= 0 {
		return 0
	}
	return d + time.Duration(rand.Int63n(int64(d/2+1)))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
