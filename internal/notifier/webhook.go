package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

const maxErrorBodySize = 2048

// ErrTransport matches every TransportError.
var ErrTransport = errors.New("notification transport failed")

// TransportError carries the rejected response of a notification endpoint.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notification rejected: status %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return ErrTransport
}

// Webhook posts messages to a Slack incoming webhook.
type Webhook struct {
	log    *slog.Logger
	client *http.Client
	url    string
}

// NewWebhook creates a webhook transport.
func NewWebhook(log *slog.Logger, url string, timeout time.Duration) *Webhook {
	return &Webhook{log: log, client: &http.Client{Timeout: timeout}, url: url}
}

// Send posts one message. Any non-2xx answer is returned as a *TransportError.
func (w *Webhook) Send(ctx context.Context, msg Message) error {
	const opn = "notifier.Webhook.Send"

	payload, err := json.Marshal(slack.WebhookMessage{
		Text:   msg.Summary,
		Blocks: &slack.Blocks{BlockSet: msg.Blocks},
	})
	if err != nil {
		return fmt.Errorf("%s: failed to encode message: %w", opn, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", opn, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to post message: %w", opn, err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodySize))
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s: %w", opn, &TransportError{
			StatusCode: res.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		})
	}

	w.log.DebugContext(ctx, "Webhook message delivered", "op", opn, "blocks", len(msg.Blocks))

	return nil
}
