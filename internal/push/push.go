// Package push delivers best-effort mobile/web notifications through an
// external gateway. Failures are logged by callers and never propagated into
// the send path.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pushSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "djassa_push_notifications_total",
	Help: "Push notifications attempted, by outcome.",
}, []string{"outcome"})

type Notification struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Link        string    `json:"link,omitempty"`
	Tag         string    `json:"tag,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// HTTPSender posts notifications to a push gateway endpoint.
type HTTPSender struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPSender(endpoint, token string) *HTTPSender {
	return &HTTPSender{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *HTTPSender) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		pushSent.WithLabelValues("error").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		pushSent.WithLabelValues("error").Inc()
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}

	pushSent.WithLabelValues("ok").Inc()
	return nil
}

// NoopSender is used when no gateway is configured.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Notification) error { return nil }

// Preview truncates a message body for a notification, appending an ellipsis
// when cut. Rune-aware so multi-byte text is never split mid-character.
func Preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
