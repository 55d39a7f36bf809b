package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sivanlab/mazkir/internal/assistant"
)

// Bot bridges Telegram chats to the assistant. Each Telegram account
// maps to the store user id "telegram_<id>", which is also how the
// scheduler resolves delivery targets.
type Bot struct {
	client      *Client
	assistant   *assistant.Assistant
	pollTimeout time.Duration
}

func NewBot(token string, a *assistant.Assistant, pollTimeout time.Duration) *Bot {
	return &Bot{
		client:      NewClient(token),
		assistant:   a,
		pollTimeout: pollTimeout,
	}
}

// Run long-polls for messages until the context is canceled. Transient
// API errors are logged and retried after a short pause.
func (b *Bot) Run(ctx context.Context) error {
	offset := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		updates, err := b.client.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			slog.Warn("telegram getUpdates failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
			continue
		}
		for _, upd := range updates {
			offset = upd.UpdateID + 1
			if upd.Message == nil || upd.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, upd.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *Message) {
	if msg.From == nil {
		return
	}
	userID := UserID(msg.From.ID)
	slog.Info("handling message", "user", userID)

	reply, err := b.assistant.Process(ctx, userID, msg.Text)
	if err != nil {
		slog.Error("assistant failed", "user", userID, "error", err)
		reply = "Sorry, something went wrong. Please try again."
	}
	if err := b.client.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		slog.Error("failed to send reply", "user", userID, "error", err)
	}
}

// Send delivers a scheduled notification. It satisfies the scheduler's
// Sender interface; a malformed chat ref is reported as a failed
// delivery rather than an error.
func (b *Bot) Send(userID, chatRef, message string) bool {
	chatID, err := strconv.ParseInt(chatRef, 10, 64)
	if err != nil {
		slog.Warn("malformed chat ref, skipping delivery", "user", userID, "ref", chatRef)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.client.SendMessage(ctx, chatID, message); err != nil {
		slog.Warn("reminder delivery failed", "user", userID, "error", err)
		return false
	}
	return true
}

// UserID maps a Telegram account to its store user id.
func UserID(telegramID int64) string {
	return fmt.Sprintf("telegram_%d", telegramID)
}
