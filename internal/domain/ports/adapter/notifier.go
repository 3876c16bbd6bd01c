package adapter

import (
	"context"

	"coach-storefront/internal/domain/model"
)

// EmailSender delivers the purchase confirmation email.
type EmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *model.Order) error
}

// ChatSender delivers a short chat message (WhatsApp) to the buyer's phone.
type ChatSender interface {
	SendOrderNotification(ctx context.Context, order *model.Order) error
}

// OperatorAlerter notifies the operator about conditions requiring manual action.
type OperatorAlerter interface {
	Alert(ctx context.Context, text string) error
}
