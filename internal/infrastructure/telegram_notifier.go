package infrastructure

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier pushes escalation alerts to an operators chat. Used when
// a workflow transfers a conversation to a human.
type TelegramNotifier struct {
	Bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

// NewTelegramNotifier returns a disabled notifier when the token is missing
// or invalid; Notify then becomes a no-op.
func NewTelegramNotifier(token string, chatID int64, log *zap.Logger) *TelegramNotifier {
	if token == "" {
		return &TelegramNotifier{log: log}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Warn("telegram notifier disabled", zap.Error(err))
		return &TelegramNotifier{log: log}
	}
	return &TelegramNotifier{Bot: bot, chatID: chatID, log: log}
}

func (t *TelegramNotifier) Enabled() bool {
	return t.Bot != nil && t.chatID != 0
}

func (t *TelegramNotifier) Notify(text string) error {
	if !t.Enabled() {
		return nil
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := t.Bot.Send(msg); err != nil {
		return fmt.Errorf("telegram notify: %w", err)
	}
	return nil
}
