package notifier

import (
	"fmt"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/slack-go/slack"
)

// MaxBlocks is the number of blocks Slack accepts in one message.
const MaxBlocks = 50

// Message is one deliverable notification.
type Message struct {
	// Summary is the plain-text fallback shown by clients that cannot render blocks.
	Summary string
	Blocks  []slack.Block
}

// Render turns a diff into messages of at most limit blocks each. New items come first,
// then updated, then removed ones. An empty diff yields no messages.
func Render(diff models.ItemDiff, limit int) []Message {
	if diff.IsEmpty() {
		return nil
	}

	groups := make([][]slack.Block, 0, len(diff.Added)+len(diff.Updated)+len(diff.Removed))
	for _, item := range diff.Added {
		groups = append(groups, renderNewItem(item))
	}
	for _, change := range diff.Updated {
		groups = append(groups, renderUpdatedItem(change))
	}
	for _, item := range diff.Removed {
		groups = append(groups, renderRemovedItem(item))
	}

	batches := Batch(groups, limit)
	last := len(batches) - 1
	batches[last] = append(batches[last], renderChannelPing())

	summary := fmt.Sprintf("Shop update: %d new, %d updated, %d removed",
		len(diff.Added), len(diff.Updated), len(diff.Removed))

	messages := make([]Message, 0, len(batches))
	for i, blocks := range batches {
		text := summary
		if len(batches) > 1 {
			text = fmt.Sprintf("%s (part %d/%d)", summary, i+1, len(batches))
		}
		messages = append(messages, Message{Summary: text, Blocks: blocks})
	}

	return messages
}

// Batch packs block groups into messages. Groups are never split, consecutive groups in a
// message are separated by a divider and every message keeps one block free for the
// trailing channel ping.
func Batch(groups [][]slack.Block, limit int) [][]slack.Block {
	var (
		batches [][]slack.Block
		current []slack.Block
	)

	for _, group := range groups {
		needed := len(group)
		if len(current) > 0 {
			needed++
		}

		if len(current) > 0 && len(current)+needed > limit-1 {
			batches = append(batches, current)
			current = nil
		}

		if len(current) > 0 {
			current = append(current, slack.NewDividerBlock())
		}
		current = append(current, group...)
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}
