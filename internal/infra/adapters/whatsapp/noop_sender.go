package whatsapp

import (
	"context"

	"github.com/rs/zerolog"

	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/adapter"
	"coach-storefront/internal/infra/i18n"
)

var _ adapter.ChatSender = (*NoopSender)(nil)

// NoopSender logs the chat message instead of sending it.
type NoopSender struct {
	tr        *i18n.Translator
	coachName string
	logger    *zerolog.Logger
}

func NewNoopSender(tr *i18n.Translator, coachName string, logger *zerolog.Logger) *NoopSender {
	l := logger.With().Str("component", "NoopWhatsApp").Logger()
	return &NoopSender{tr: tr, coachName: coachName, logger: &l}
}

func (n *NoopSender) SendOrderNotification(ctx context.Context, o *model.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info().Str("order_ref", o.OrderRef).Str("text", Text(n.tr, n.coachName, o)).Msg("whatsapp (not sent)")
	return nil
}
