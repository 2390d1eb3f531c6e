package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/replguard/internal/config"
	"github.com/semmidev/replguard/internal/domain"
)

// maxDocumentSize is the largest file the bot API accepts.
const maxDocumentSize = 50 << 20

// BotSender is the part of *tgbotapi.BotAPI used to post to a chat.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramChat posts dumps to a chat, or a notice when the file is too
// large or file sending is off. Posted messages cannot be listed back.
type TelegramChat struct {
	bot      BotSender
	chatID   int64
	sendFile bool
}

var _ domain.OffsiteStore = (*TelegramChat)(nil)

func NewTelegram(cfg *config.OffsiteTarget) (*TelegramChat, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramChat{
		bot:      bot,
		chatID:   chatID,
		sendFile: cfg.SendFile && !cfg.NotifyOnly,
	}, nil
}

func (t *TelegramChat) Put(ctx context.Context, localPath, name string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	sizeMB := float64(info.Size()) / (1 << 20)

	var msg tgbotapi.Chattable
	if t.sendFile && info.Size() <= maxDocumentSize {
		doc := tgbotapi.NewDocument(t.chatID, tgbotapi.FilePath(localPath))
		doc.Caption = fmt.Sprintf("📦 %s (%.2f MB)", name, sizeMB)
		msg = doc
	} else {
		msg = tgbotapi.NewMessage(t.chatID, fmt.Sprintf(
			"✅ SQL dump copied offsite\n\n📁 %s\n📊 %.2f MB\n🕐 %s",
			name, sizeMB, info.ModTime().Format("2006-01-02 15:04:05"),
		))
	}

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to post %s to telegram: %w", name, err)
	}
	return nil
}

func (t *TelegramChat) List(ctx context.Context) ([]string, error) {
	return nil, domain.ErrListingUnsupported
}

func (t *TelegramChat) Delete(ctx context.Context, name string) error {
	return domain.ErrListingUnsupported
}

func (t *TelegramChat) ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	return nil, domain.ErrListingUnsupported
}
