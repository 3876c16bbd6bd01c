package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/adapter"
	"coach-storefront/internal/infra/i18n"
	"coach-storefront/internal/infra/metrics"
	"coach-storefront/internal/infra/worker"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

type NotificationUseCase interface {
	// DispatchOrderPaid queues the confirmation email and chat message. It never blocks on
	// delivery and never returns an error; failures are logged and alerted.
	DispatchOrderPaid(ctx context.Context, o *model.Order)
}

type TaskSubmitter interface {
	Submit(task worker.Task) error
}

type notificationUC struct {
	email   adapter.EmailSender
	chat    adapter.ChatSender
	alerter adapter.OperatorAlerter
	pool    TaskSubmitter
	tr      *i18n.Translator
	timeout time.Duration

	log *zerolog.Logger
}

func NewNotificationUseCase(email adapter.EmailSender, chat adapter.ChatSender, alerter adapter.OperatorAlerter, pool TaskSubmitter, tr *i18n.Translator, timeout time.Duration, logger *zerolog.Logger) *notificationUC {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{email: email, chat: chat, alerter: alerter, pool: pool, tr: tr, timeout: timeout, log: &l}
}

func (n *notificationUC) DispatchOrderPaid(_ context.Context, o *model.Order) {
	snapshot := *o
	n.submit(ChannelEmail, &snapshot, func(ctx context.Context) error {
		return n.email.SendOrderConfirmation(ctx, &snapshot)
	})
	n.submit(ChannelWhatsApp, &snapshot, func(ctx context.Context) error {
		return n.chat.SendOrderNotification(ctx, &snapshot)
	})
}

// submit runs send on the pool under its own timeout, detached from the request context.
func (n *notificationUC) submit(channel string, o *model.Order, send func(ctx context.Context) error) {
	task := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		if err := send(ctx); err != nil {
			n.fail(channel, o, err)
			return nil
		}
		metrics.IncNotification(channel, "sent")
		return nil
	}
	if err := n.pool.Submit(task); err != nil {
		n.fail(channel, o, err)
	}
}

func (n *notificationUC) fail(channel string, o *model.Order, err error) {
	metrics.IncNotification(channel, "failed")
	n.log.Error().
		Err(err).
		Str("channel", channel).
		Str("order_ref", o.OrderRef).
		Str("buyer_name", o.Buyer.Name).
		Str("buyer_email", o.Buyer.Email).
		Str("buyer_phone", o.Buyer.Phone).
		Msg("notification failed; resend manually")

	actx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if aerr := n.alerter.Alert(actx, n.tr.T("alert_notification_failed", channel, o.OrderRef, err.Error())); aerr != nil {
		n.log.Warn().Err(aerr).Str("order_ref", o.OrderRef).Msg("operator alert failed")
	}
}
