package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"coach-storefront/internal/domain/ports/adapter"
)

var _ adapter.OperatorAlerter = (*NoopAlerter)(nil)

// NoopAlerter writes alerts to the log at WARN. Used when no bot token is configured.
type NoopAlerter struct {
	logger *zerolog.Logger
}

func NewNoopAlerter(logger *zerolog.Logger) *NoopAlerter {
	l := logger.With().Str("component", "NoopAlerter").Logger()
	return &NoopAlerter{logger: &l}
}

func (n *NoopAlerter) Alert(ctx context.Context, text string) error {
	n.logger.Warn().Str("alert", text).Msg("operator alert")
	return nil
}
