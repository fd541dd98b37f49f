package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Houeta/shopwatch/internal/notifier"
	"github.com/Houeta/shopwatch/internal/repository/sqlite"
	"gopkg.in/telebot.v4"
)

// Telegram rejects longer messages.
const maxMessageRunes = 4096

// Bot contains the bot API instance and the subscription store.
type Bot struct {
	bot  API
	log  *slog.Logger
	repo sqlite.SubscriptionRepository
}

// NewBot authorizes against Telegram and registers the subscription commands.
func NewBot(log *slog.Logger, token string, poller time.Duration, repo sqlite.SubscriptionRepository) (*Bot, error) {
	api, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: poller},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", api.Me.Username)

	botInstance := &Bot{bot: api, log: log, repo: repo}
	botInstance.registerRoutes()

	return botInstance, nil
}

// Start launches the bot to listen for updates. It blocks until Stop is called.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.bot.Stop()
}

// Send delivers msg as plain text to every subscribed chat. A chat that rejects a chunk is
// skipped and the remaining chats are still served; the failures are returned together.
func (b *Bot) Send(ctx context.Context, msg notifier.Message) error {
	const opn = "bot.Send"
	log := b.log.With("op", opn)

	chats, err := b.repo.GetSubscribedChats(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	var failures []error

	chunks := splitText(notifier.PlainText(msg), maxMessageRunes)
	for _, chatID := range chats {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", opn, err)
		}

		for _, chunk := range chunks {
			_, err = b.bot.Send(&telebot.Chat{ID: chatID}, chunk, &telebot.SendOptions{DisableWebPagePreview: true})
			if err != nil {
				log.WarnContext(ctx, "Failed to send message, skipping chat", "chat_id", chatID, "error", err)
				failures = append(failures, fmt.Errorf("chat %d: %w", chatID, err))

				break
			}
		}
	}

	log.DebugContext(ctx, "Telegram message delivered",
		"chats", len(chats), "failed", len(failures), "chunks", len(chunks))

	if len(failures) > 0 {
		return fmt.Errorf("%s: failed to send to %d of %d chats: %w", opn, len(failures), len(chats), errors.Join(failures...))
	}

	return nil
}

// registerRoutes configures all routes (commands).
func (b *Bot) registerRoutes() {
	b.bot.Handle("/start", b.startHandler)
	b.bot.Handle("/stop", b.stopHandler)
}

// splitText cuts text into pieces of at most limit runes, preferring line breaks.
func splitText(text string, limit int) []string {
	var (
		chunks  []string
		current strings.Builder
		size    int
	)

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}

		if size+len(runes) > limit {
			flush()
		}
		current.WriteString(string(runes))
		size += len(runes)
	}
	flush()

	return chunks
}
