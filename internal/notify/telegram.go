// Package notify pushes newly seen jobs to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pilotjobs/internal/model"
)

// Telegram caps a message at 4096 characters; stay clear of it.
const maxMessageLen = 3800

// Sender delivers one message; *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends new-job digests to one chat.
type Telegram struct {
	bot    Sender
	chatID int64
}

// NewTelegram connects to the Bot API with token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return NewTelegramWithSender(bot, chatID), nil
}

// NewTelegramWithSender uses an existing sender.
func NewTelegramWithSender(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

// NotifyNew sends every job flagged New, split across as many messages as
// needed. Nothing is sent when there are no new jobs.
func (t *Telegram) NotifyNew(ctx context.Context, jobs []model.Job) error {
	messages := FormatNew(jobs)
	for i, text := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("send message %d/%d: %w", i+1, len(messages), err)
		}
	}
	if len(messages) > 0 {
		log.Printf("[notify] Sent %d message(s) to chat %d", len(messages), t.chatID)
	}
	return nil
}

// FormatNew renders the New jobs as HTML message bodies no longer than
// maxMessageLen each.
func FormatNew(jobs []model.Job) []string {
	var entries []string
	for _, j := range jobs {
		if !j.New {
			continue
		}
		entries = append(entries, formatJob(j))
	}
	if len(entries) == 0 {
		return nil
	}

	header := fmt.Sprintf("✈️ <b>%d new pilot job(s)</b>\n\n", len(entries))
	var messages []string
	var b strings.Builder
	b.WriteString(header)
	for _, e := range entries {
		if b.Len()+len(e) > maxMessageLen && b.Len() > 0 {
			messages = append(messages, strings.TrimRight(b.String(), "\n"))
			b.Reset()
		}
		b.WriteString(e)
	}
	if b.Len() > 0 {
		messages = append(messages, strings.TrimRight(b.String(), "\n"))
	}
	return messages
}

func formatJob(j model.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(j.Title))
	fmt.Fprintf(&b, "🏢 %s", html.EscapeString(j.Company))
	if j.LocationMatch {
		b.WriteString(" 📍 AZ")
	}
	b.WriteString("\n")
	if len(j.Tags) > 0 {
		fmt.Fprintf(&b, "🏷 %s\n", html.EscapeString(strings.Join(j.Tags, ", ")))
	}
	if j.Link != "" {
		fmt.Fprintf(&b, "🔗 <a href=\"%s\">View job</a>\n", html.EscapeString(j.Link))
	}
	b.WriteString("\n")
	return b.String()
}
