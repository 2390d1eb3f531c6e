package notifier

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/replguard/internal/config"
	"github.com/semmidev/replguard/internal/domain"
)

// BotSender is the part of *tgbotapi.BotAPI used to post messages.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts reports to a chat.
type Telegram struct {
	bot    BotSender
	chatID int64
}

var _ domain.Notifier = (*Telegram)(nil)

func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) NotifyBackup(ctx context.Context, report domain.BackupReport) error {
	msg, err := RenderBackup(report)
	if err != nil {
		return err
	}
	return t.send("📦 " + msg.Text)
}

func (t *Telegram) NotifyHealth(ctx context.Context, report domain.HealthReport) error {
	msg := RenderHealth(report)
	icon := "✅"
	if report.HasError {
		icon = "🚨"
	}
	return t.send(fmt.Sprintf("%s %s\n\n%s", icon, msg.Subject, msg.Text))
}

func (t *Telegram) send(text string) error {
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
