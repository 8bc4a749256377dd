// Package telegram is the Telegram delivery sink: reminders go to one
// configured chat. Send-only; the bot never polls for updates.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"vitalsched/internal/notifier"
	logx "vitalsched/pkg/logx"
)

type Config struct {
	Token  string
	ChatID int64
}

type Sink struct {
	bot  *tele.Bot
	chat *tele.Chat
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &Sink{bot: b, chat: &tele.Chat{ID: cfg.ChatID}, log: log}, nil
}

func (s *Sink) Name() string { return "telegram" }

func (s *Sink) Send(ctx context.Context, r notifier.Reminder) error {
	text := "⏰ " + r.Text() + "\n" + r.At.Format(time.RFC822)
	if note := strings.TrimSpace(r.Entry.Note); note != "" {
		text += "\n" + note
	}

	done := make(chan error, 1)
	go func() { // telebot sends have no context parameter
		_, err := s.bot.Send(s.chat, text, &tele.SendOptions{DisableWebPagePreview: true})
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
