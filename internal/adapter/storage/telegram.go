package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
)

// Bot API upload limit for documents.
const telegramMaxFileMB = 50

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramStorage delivers backups, or a notice about them, to a chat. It
// also reports backup events as a notifier.
type TelegramStorage struct {
	bot        sender
	chatID     int64
	sendFile   bool
	notifyOnly bool
}

func NewTelegram(cfg *config.UploadTarget) (*TelegramStorage, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(cfg.ChatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat_id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramStorage{
		bot:        bot,
		chatID:     chatID,
		sendFile:   cfg.SendFile,
		notifyOnly: cfg.NotifyOnly,
	}, nil
}

func (t *TelegramStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	fileInfo, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	fileSizeMB := float64(fileInfo.Size()) / (1024 * 1024)

	if t.notifyOnly || !t.sendFile || fileSizeMB > telegramMaxFileMB {
		message := fmt.Sprintf(
			"✅ Backup Created\n\n"+
				"📁 File: %s\n"+
				"📊 Size: %.2f MB\n"+
				"🕐 Time: %s",
			remoteName,
			fileSizeMB,
			fileInfo.ModTime().Format("2006-01-02 15:04:05"),
		)
		if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, message)); err != nil {
			return fmt.Errorf("failed to send telegram notification: %w", err)
		}
		return nil
	}

	doc := tgbotapi.NewDocument(t.chatID, tgbotapi.FilePath(localPath))
	doc.Caption = fmt.Sprintf("📦 Backup: %s (%.2f MB)", remoteName, fileSizeMB)
	if _, err := t.bot.Send(doc); err != nil {
		return fmt.Errorf("failed to send telegram file: %w", err)
	}

	return nil
}

// Telegram cannot list or delete sent files.

func (t *TelegramStorage) List(ctx context.Context) ([]string, error) {
	return []string{}, nil
}

func (t *TelegramStorage) Delete(ctx context.Context, remoteName string) error {
	return nil
}

func (t *TelegramStorage) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	return []string{}, nil
}

func (t *TelegramStorage) Notify(ctx context.Context, event domain.Event) error {
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, FormatEvent(event)))
	if err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

// FormatEvent renders a backup event as a short chat message.
func FormatEvent(e domain.Event) string {
	var b strings.Builder
	if e.Status == domain.StatusSuccess {
		fmt.Fprintf(&b, "✅ Backup succeeded: %s (%s)\n", e.Database, e.Engine)
		fmt.Fprintf(&b, "📁 %s\n📊 %.2f MB\n", e.Path, float64(e.Bytes)/(1024*1024))
	} else {
		fmt.Fprintf(&b, "❌ Backup failed: %s (%s)\n", e.Database, e.Engine)
		fmt.Fprintf(&b, "⚠️ %s\n", e.Error)
	}
	fmt.Fprintf(&b, "⏱ %s, trigger: %s", e.Duration.Round(time.Second), e.Trigger)
	return b.String()
}
