package bot

import (
	"context"
	"fmt"

	"gopkg.in/telebot.v4"
)

// startHandler subscribes the chat to catalog updates.
func (b *Bot) startHandler(c telebot.Context) error {
	b.log.Info("Chat subscribed", "chat", c.Chat().ID)

	if err := b.repo.SubscribeChat(context.Background(), c.Chat().ID); err != nil {
		return fmt.Errorf("failed to subscribe chat: %w", err)
	}

	if err := c.Send("Subscribed. You will get a message whenever the shop changes. Send /stop to unsubscribe."); err != nil {
		return fmt.Errorf("failed to send greeting message: %w", err)
	}

	return nil
}

// stopHandler removes the chat's subscription.
func (b *Bot) stopHandler(c telebot.Context) error {
	b.log.Info("Chat unsubscribed", "chat", c.Chat().ID)

	if err := b.repo.UnsubscribeChat(context.Background(), c.Chat().ID); err != nil {
		return fmt.Errorf("failed to unsubscribe chat: %w", err)
	}

	if err := c.Send("Unsubscribed. Send /start to subscribe again."); err != nil {
		return fmt.Errorf("failed to send farewell message: %w", err)
	}

	return nil
}
