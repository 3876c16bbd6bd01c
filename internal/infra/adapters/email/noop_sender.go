package email

import (
	"context"

	"github.com/rs/zerolog"

	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/adapter"
	"coach-storefront/internal/infra/i18n"
)

var _ adapter.EmailSender = (*NoopSender)(nil)

// NoopSender logs the rendered email instead of sending it. Used when SMTP is not configured.
type NoopSender struct {
	tr         *i18n.Translator
	coachName  string
	supportURL string
	logger     *zerolog.Logger
}

func NewNoopSender(tr *i18n.Translator, coachName, supportURL string, logger *zerolog.Logger) *NoopSender {
	l := logger.With().Str("component", "NoopEmail").Logger()
	return &NoopSender{tr: tr, coachName: coachName, supportURL: supportURL, logger: &l}
}

func (n *NoopSender) SendOrderConfirmation(ctx context.Context, o *model.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body := Compose(n.tr, n.coachName, n.supportURL, o)
	n.logger.Info().Str("order_ref", o.OrderRef).Str("subject", subject).Str("body", body).Msg("email (not sent)")
	return nil
}
