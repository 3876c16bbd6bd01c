package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"coach-storefront/internal/config"
	"coach-storefront/internal/domain/ports/adapter"
)

var _ adapter.OperatorAlerter = (*BotAlerter)(nil)

// messageSender is the slice of *tgbotapi.BotAPI the alerter uses.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotAlerter pushes operator alerts (oversold slots, failed notifications) to admin chats.
type BotAlerter struct {
	bot      messageSender
	adminIDs []int64
	logger   *zerolog.Logger
}

func NewBotAlerter(cfg config.TelegramConfig, logger *zerolog.Logger) (*BotAlerter, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if len(cfg.AdminIDs) == 0 {
		return nil, errors.New("telegram admin_ids is empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return newBotAlerter(bot, cfg.AdminIDs, logger), nil
}

func newBotAlerter(bot messageSender, adminIDs []int64, logger *zerolog.Logger) *BotAlerter {
	l := logger.With().Str("component", "TelegramAlerter").Logger()
	return &BotAlerter{bot: bot, adminIDs: adminIDs, logger: &l}
}

// Alert fans out to every admin. It fails only when no admin could be reached.
func (a *BotAlerter) Alert(ctx context.Context, text string) error {
	var lastErr error
	delivered := 0
	for _, id := range a.adminIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := a.bot.Send(msg); err != nil {
			lastErr = err
			a.logger.Warn().Err(err).Int64("chat_id", id).Msg("alert delivery failed")
			continue
		}
		delivered++
	}
	if delivered == 0 && lastErr != nil {
		return fmt.Errorf("telegram alert: %w", lastErr)
	}
	return nil
}
