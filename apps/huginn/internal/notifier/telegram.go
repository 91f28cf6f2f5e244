package notifier

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"huginn/apps/huginn/internal/model"
)

// Sender is the part of *tgbotapi.BotAPI used to push messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends the notification text as an HTML message to the chat whose id is the
// subscriber id.
type TelegramNotifier struct {
	sender Sender
	logger *zap.Logger
}

func NewTelegramNotifier(sender Sender, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		logger: logger,
	}
}

func (t *TelegramNotifier) Notify(_ context.Context, n model.Notification) error {
	chatID, err := strconv.ParseInt(n.SubscriberID, 10, 64)
	if err != nil {
		return fmt.Errorf("subscriber id %q is not a chat id: %w", n.SubscriberID, err)
	}

	msg := tgbotapi.NewMessage(chatID, n.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	t.logger.Debug("Telegram notification sent",
		zap.Int64("chat_id", chatID),
		zap.String("event_type", string(n.Kind)))
	return nil
}
