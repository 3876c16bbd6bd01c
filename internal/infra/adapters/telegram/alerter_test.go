//go:build !integration

package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"coach-storefront/internal/infra/logging"
)

type fakeBot struct {
	sent   []int64
	failOn map[int64]bool
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if f.failOn[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("chat not found")
	}
	f.sent = append(f.sent, msg.ChatID)
	return tgbotapi.Message{}, nil
}

func TestBotAlerter_Alert(t *testing.T) {
	t.Run("fans out to every admin", func(t *testing.T) {
		bot := &fakeBot{}
		a := newBotAlerter(bot, []int64{1, 2}, logging.Nop())
		if err := a.Alert(context.Background(), "oversold"); err != nil {
			t.Fatal(err)
		}
		if len(bot.sent) != 2 {
			t.Errorf("expected 2 deliveries, got %v", bot.sent)
		}
	})

	t.Run("partial failure is tolerated", func(t *testing.T) {
		bot := &fakeBot{failOn: map[int64]bool{1: true}}
		a := newBotAlerter(bot, []int64{1, 2}, logging.Nop())
		if err := a.Alert(context.Background(), "x"); err != nil {
			t.Fatalf("expected success with one admin reached, got %v", err)
		}
	})

	t.Run("total failure is reported", func(t *testing.T) {
		bot := &fakeBot{failOn: map[int64]bool{1: true}}
		a := newBotAlerter(bot, []int64{1}, logging.Nop())
		if err := a.Alert(context.Background(), "x"); err == nil {
			t.Fatal("expected an error")
		}
	})
}
