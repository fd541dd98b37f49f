package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Houeta/shopwatch/internal/models"
)

// Transport delivers one rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier renders diffs and hands the messages to the primary transport, then to every
// secondary transport in turn.
type Notifier struct {
	log       *slog.Logger
	primary   Transport
	secondary []Transport
	limit     int
}

// New creates a notifier. A primary failure fails the dispatch; secondary failures are logged.
func New(log *slog.Logger, primary Transport, secondary ...Transport) *Notifier {
	return &Notifier{log: log, primary: primary, secondary: secondary, limit: MaxBlocks}
}

// Notify renders diff and sends the messages in order. The first primary failure stops dispatch.
func (n *Notifier) Notify(ctx context.Context, diff models.ItemDiff) error {
	const opn = "notifier.Notify"
	log := n.log.With("op", opn)

	messages := Render(diff, n.limit)
	if len(messages) == 0 {
		return nil
	}

	for i, msg := range messages {
		if err := n.primary.Send(ctx, msg); err != nil {
			return fmt.Errorf("%s: message %d/%d: %w", opn, i+1, len(messages), err)
		}
	}

	failed := 0
	for idx, transport := range n.secondary {
		for i, msg := range messages {
			if err := transport.Send(ctx, msg); err != nil {
				failed++
				log.WarnContext(ctx, "Secondary transport failed, skipping its remaining messages",
					"transport", idx+1, "message", fmt.Sprintf("%d/%d", i+1, len(messages)), "error", err)

				break
			}
		}
	}

	log.InfoContext(ctx, "Successfully sent notifications",
		"messages", len(messages), "secondary", len(n.secondary), "secondary_failed", failed)

	return nil
}
