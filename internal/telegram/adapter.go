// Package telegram bridges Telegram chats to support conversations:
// inbound texts become customer messages, and the delivery handler pushes
// agent responses back into the chat.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/intake"
)

const maxTelegramMessage = 4096

// ChannelPrefix is the delivery-routing prefix for Telegram conversations.
const ChannelPrefix = "telegram:"

// Adapter bridges Telegram to the intake service.
type Adapter struct {
	bot    *tgbotapi.BotAPI
	intake *intake.Service
	org    domain.OrganizationID
	logger *slog.Logger
}

// New creates a Telegram adapter for one organization's support bot.
func New(token string, svc *intake.Service, org domain.OrganizationID, logger *slog.Logger) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{bot: bot, intake: svc, org: org, logger: logger}, nil
}

// Start begins long-polling for Telegram updates.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.IsCommand() {
		if msg.Command() == "start" {
			a.send(chatID, "Hi! Tell me what you need help with and I'll get right on it.")
		}
		return
	}

	conv, err := a.intake.Receive(ctx, a.org, channelKey(chatID), msg.Text)
	if err != nil {
		a.logger.Error("telegram intake failed", "chat_id", chatID, "error", err)
		a.send(chatID, "Sorry, something went wrong receiving your message. Please try again.")
		return
	}
	a.logger.Debug("telegram message received", "conversation_id", conv.ID, "chat_id", chatID)
}

// DeliverMessage routes an outbound message back to the Telegram chat
// encoded in the channel key. Registered on the delivery registry under
// ChannelPrefix.
func (a *Adapter) DeliverMessage(key domain.ChannelKey, message string) error {
	chatID, err := chatIDFromKey(key)
	if err != nil {
		return err
	}
	a.send(chatID, message)
	return nil
}

func (a *Adapter) send(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := a.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := a.bot.Send(msg); err != nil {
				a.logger.Error("telegram send failed", "chat_id", chatID, "error", err)
			}
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}

func channelKey(chatID int64) domain.ChannelKey {
	return domain.NewChannelKey("telegram", strconv.FormatInt(chatID, 10))
}

func chatIDFromKey(key domain.ChannelKey) (int64, error) {
	parts := strings.Split(string(key), ":")
	if len(parts) != 2 || parts[0] != "telegram" {
		return 0, fmt.Errorf("malformed telegram channel key: %s", key)
	}
	chatID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed telegram chat id in key %s: %w", key, err)
	}
	return chatID, nil
}
