package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/adapter"
	"coach-storefront/internal/domain/ports/repository"
	"coach-storefront/internal/infra/i18n"
	"coach-storefront/internal/infra/logging"
	"coach-storefront/internal/infra/metrics"
)

// Compile-time check
var _ FulfillmentUseCase = (*fulfillmentUC)(nil)

// Source labels the ingress that triggered a reconciliation.
type Source string

const (
	SourcePoll    Source = "poll"
	SourceWebhook Source = "webhook"
	SourceSweeper Source = "sweeper"
)

type FulfillmentUseCase interface {
	// Initiate checks capacity (read only), persists a PENDING order and registers it with the gateway.
	Initiate(ctx context.Context, in InitiateInput) (*CheckoutSession, error)
	// Reconcile applies the gateway's authoritative status to the local order.
	// Safe to call any number of times, concurrently, for the same order.
	Reconcile(ctx context.Context, source Source, remoteOrderID string) (*FulfillmentResult, error)
	// SweepStale reconciles PENDING orders older than olderThan and fails the ones the gateway expired.
	SweepStale(ctx context.Context, olderThan time.Time, limit int) (SweepReport, error)
}

type CartItem struct {
	ProductID      string
	DurationMonths int
}

type InitiateInput struct {
	Buyer  model.Buyer
	Items  []CartItem
	Amount int64 // client-computed total; must match the catalog
}

type CheckoutSession struct {
	SessionHandle string
	RemoteOrderID string
	Environment   string
	Order         *model.Order
}

type FulfillmentResult struct {
	Success          bool
	AlreadyFulfilled bool
	RemoteStatus     string
	Order            *model.Order
}

type SweepReport struct {
	Scanned   int
	Fulfilled int
	Failed    int
	Errors    int
}

type FulfillmentConfig struct {
	MaxSlots int
	Location *time.Location
	// ReturnURL and NotifyURL are passed to the gateway verbatim; {order_id} is expanded by the provider.
	ReturnURL string
	NotifyURL string
}

type fulfillmentUC struct {
	orders   repository.OrderRepository
	capacity repository.CapacityRepository
	products repository.ProductRepository
	gateway  adapter.PaymentGateway
	notifier NotificationUseCase
	alerter  adapter.OperatorAlerter
	tr       *i18n.Translator
	cfg      FulfillmentConfig
	now      func() time.Time

	log *zerolog.Logger
}

func NewFulfillmentUseCase(
	orders repository.OrderRepository,
	capacity repository.CapacityRepository,
	products repository.ProductRepository,
	gateway adapter.PaymentGateway,
	notifier NotificationUseCase,
	alerter adapter.OperatorAlerter,
	tr *i18n.Translator,
	cfg FulfillmentConfig,
	logger *zerolog.Logger,
) *fulfillmentUC {
	if cfg.MaxSlots <= 0 {
		cfg.MaxSlots = model.DefaultMaxSlots
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	l := logger.With().Str("component", "FulfillmentUC").Logger()
	return &fulfillmentUC{
		orders:   orders,
		capacity: capacity,
		products: products,
		gateway:  gateway,
		notifier: notifier,
		alerter:  alerter,
		tr:       tr,
		cfg:      cfg,
		now:      time.Now,
		log:      &l,
	}
}

func (u *fulfillmentUC) resolveItems(ctx context.Context, cart []CartItem) ([]model.LineItem, error) {
	if len(cart) == 0 {
		return nil, domain.NewValidationError("productId")
	}
	items := make([]model.LineItem, 0, len(cart))
	for _, c := range cart {
		if strings.TrimSpace(c.ProductID) == "" {
			return nil, domain.NewValidationError("productId")
		}
		p, err := u.products.FindByID(ctx, repository.NoTX, c.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewValidationError("productId")
			}
			return nil, fmt.Errorf("load product %s: %w", c.ProductID, err)
		}
		li, err := p.Snapshot(c.DurationMonths)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, nil
}

func (u *fulfillmentUC) Initiate(ctx context.Context, in InitiateInput) (*CheckoutSession, error) {
	defer logging.TraceDuration(u.log, "FulfillmentUC.Initiate")()

	items, err := u.resolveItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	now := u.now()
	month := model.MonthKey(now, u.cfg.Location)

	order, err := model.NewOrder(in.Buyer, items, month, now)
	if err != nil {
		return nil, err
	}
	if in.Amount != order.Amount {
		return nil, domain.NewValidationError("amount")
	}

	// Read-only check; the slot is taken only once payment is confirmed.
	if order.HasCourse() {
		entry, err := u.capacity.GetOrInit(ctx, repository.NoTX, month, u.cfg.MaxSlots)
		if err != nil {
			return nil, fmt.Errorf("capacity lookup: %w", err)
		}
		if entry.IsFull() {
			u.log.Info().Str("month", month).Int("used", entry.UsedSlots).Int("max", entry.MaxSlots).Msg("course sold out")
			return nil, domain.ErrSlotsExhausted
		}
	}

	if err := u.orders.Create(ctx, repository.NoTX, order); err != nil {
		return nil, err
	}
	metrics.IncOrder(string(model.OrderStatusPending))

	log := u.log.With().Str("order_ref", order.OrderRef).Logger()
	sess, err := u.gateway.CreateRemoteOrder(ctx, adapter.CreateOrderRequest{
		OrderRef:  order.OrderRef,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Buyer:     order.Buyer,
		ReturnURL: u.cfg.ReturnURL,
		NotifyURL: u.cfg.NotifyURL,
	})
	if err != nil {
		u.handleCreateFailure(ctx, &log, order, err)
		return nil, err
	}

	if err := u.orders.SetSessionHandle(ctx, repository.NoTX, order.ID, sess.SessionHandle); err != nil {
		log.Warn().Err(err).Msg("failed to store session handle")
	}
	order.SessionHandle = sess.SessionHandle

	log.Info().Int64("amount", order.Amount).Str("month", month).Bool("course", order.HasCourse()).Msg("checkout initiated")
	return &CheckoutSession{
		SessionHandle: sess.SessionHandle,
		RemoteOrderID: sess.RemoteOrderID,
		Environment:   sess.Environment,
		Order:         order,
	}, nil
}

// handleCreateFailure marks the order FAILED only on a definitive rejection.
// Timeouts and transport errors leave it PENDING so the sweeper can still pick it up.
func (u *fulfillmentUC) handleCreateFailure(ctx context.Context, log *zerolog.Logger, order *model.Order, err error) {
	switch {
	case errors.Is(err, domain.ErrGatewayAuth):
		log.Error().Err(err).Msg("gateway rejected credentials")
		if aerr := u.alerter.Alert(ctx, u.tr.T("alert_gateway_auth", u.gateway.Environment())); aerr != nil {
			log.Warn().Err(aerr).Msg("operator alert failed")
		}
	case errors.Is(err, domain.ErrGatewayRejected):
		if ok, ferr := u.orders.MarkFailed(ctx, repository.NoTX, order.ID); ferr != nil {
			log.Error().Err(ferr).Msg("failed to mark order FAILED after gateway rejection")
		} else if ok {
			metrics.IncOrder(string(model.OrderStatusFailed))
		}
		log.Warn().Err(err).Msg("gateway rejected order")
	default:
		log.Warn().Err(err).Msg("gateway create failed; order left PENDING")
	}
}

func (u *fulfillmentUC) Reconcile(ctx context.Context, source Source, remoteOrderID string) (res *FulfillmentResult, err error) {
	start := u.now()
	defer func() {
		metrics.ObserveReconcile(string(source), reconcileOutcome(res, err), time.Since(start))
	}()
	log := u.log.With().Str("source", string(source)).Str("order_ref", remoteOrderID).Logger()

	if strings.TrimSpace(remoteOrderID) == "" {
		return nil, domain.ErrInvalidArgument
	}

	remote, err := u.gateway.FetchRemoteOrder(ctx, remoteOrderID)
	if err != nil {
		// The provider not knowing the order usually means we never created it either.
		if errors.Is(err, domain.ErrGatewayRejected) {
			if _, lerr := u.orders.FindByGatewayRef(ctx, repository.NoTX, remoteOrderID); errors.Is(lerr, domain.ErrNotFound) {
				log.Error().Err(err).Msg("integrity fault: reconcile for unknown order")
				return nil, domain.ErrOrderNotFound
			}
		}
		log.Warn().Err(err).Msg("remote order fetch failed")
		return nil, fmt.Errorf("fetch remote order: %w", err)
	}

	order, err := u.orders.FindByGatewayRef(ctx, repository.NoTX, remoteOrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Error().Str("remote_status", remote.Status).Msg("integrity fault: reconcile for unknown order")
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	if !remote.IsPaid() {
		return &FulfillmentResult{Success: false, RemoteStatus: remote.Status, Order: order}, nil
	}

	switch order.Status {
	case model.OrderStatusPaid:
		return &FulfillmentResult{Success: true, AlreadyFulfilled: true, RemoteStatus: remote.Status, Order: order}, nil
	case model.OrderStatusFailed:
		// Terminal states never move; money arrived for an order we gave up on.
		log.Error().Msg("remote order paid but local order is FAILED")
		u.alert(context.WithoutCancel(ctx), &log, fmt.Sprintf("Payment received for FAILED order %s (%s, %s). Manual follow-up needed.",
			order.OrderRef, order.Buyer.Email, order.Buyer.Phone))
		return &FulfillmentResult{Success: false, RemoteStatus: remote.Status, Order: order}, nil
	}

	var paymentRef *string
	if ref, ok := remote.SuccessfulPaymentRef(); ok {
		paymentRef = &ref
	} else {
		log.Warn().Msg("paid order has no successful payment reference")
	}

	paidAt := u.now()
	won, err := u.orders.MarkPaid(ctx, repository.NoTX, order.ID, paymentRef, paidAt)
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	if !won {
		// Lost the race to a concurrent reconciler.
		latest, ferr := u.orders.FindByID(ctx, repository.NoTX, order.ID)
		if ferr != nil {
			latest = order
		}
		return &FulfillmentResult{Success: true, AlreadyFulfilled: true, RemoteStatus: remote.Status, Order: latest}, nil
	}

	// The PAID transition is committed; the slot, flag and alerts must not die with the request.
	ctx = context.WithoutCancel(ctx)

	order.Status = model.OrderStatusPaid
	order.PaymentRef = paymentRef
	order.PaidAt = &paidAt
	metrics.IncOrder(string(model.OrderStatusPaid))
	metrics.AddRevenue(order.Currency, order.Amount)

	if order.HasCourse() {
		u.reserveSlot(ctx, &log, order)
	}

	u.notifier.DispatchOrderPaid(ctx, order)

	log.Info().Int64("amount", order.Amount).Bool("oversold", order.CapacityOversold).Msg("order fulfilled")
	return &FulfillmentResult{Success: true, RemoteStatus: remote.Status, Order: order}, nil
}

// reserveSlot takes the month's slot. On a sold-out month (or a ledger error) the payment
// stands and the order is flagged for manual remediation.
func (u *fulfillmentUC) reserveSlot(ctx context.Context, log *zerolog.Logger, order *model.Order) {
	ok, err := u.capacity.TryReserve(ctx, repository.NoTX, order.CapacityMonth, u.cfg.MaxSlots)
	if err != nil {
		log.Error().Err(err).Str("month", order.CapacityMonth).Msg("capacity reservation failed")
	}
	metrics.IncCapacityReservation(ok)
	if ok {
		return
	}

	order.CapacityOversold = true
	metrics.IncCapacityOversold()
	if ferr := u.orders.FlagCapacityOversold(ctx, repository.NoTX, order.ID); ferr != nil {
		log.Error().Err(ferr).Msg("failed to flag oversold order")
	}
	log.Error().
		Str("month", order.CapacityMonth).
		Str("buyer_email", order.Buyer.Email).
		Str("buyer_phone", order.Buyer.Phone).
		Msg("capacity oversold: paid course order has no slot")
	u.alert(ctx, log, u.tr.T("alert_capacity_oversold",
		order.OrderRef, order.Buyer.Email, order.Amount, order.Summary(), order.CapacityMonth))
}

func (u *fulfillmentUC) alert(ctx context.Context, log *zerolog.Logger, text string) {
	if err := u.alerter.Alert(ctx, text); err != nil {
		log.Warn().Err(err).Msg("operator alert failed")
	}
}

func (u *fulfillmentUC) SweepStale(ctx context.Context, olderThan time.Time, limit int) (SweepReport, error) {
	var rep SweepReport
	pending, err := u.orders.ListPendingOlderThan(ctx, repository.NoTX, olderThan, limit)
	if err != nil {
		return rep, err
	}
	for _, o := range pending {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		rep.Scanned++
		res, err := u.Reconcile(ctx, SourceSweeper, o.OrderRef)
		if err != nil {
			rep.Errors++
			continue
		}
		if res.Success {
			if !res.AlreadyFulfilled {
				rep.Fulfilled++
			}
			continue
		}
		if res.RemoteStatus == adapter.RemoteStatusExpired || res.RemoteStatus == adapter.RemoteStatusTerminated {
			ok, err := u.orders.MarkFailed(ctx, repository.NoTX, o.ID)
			if err != nil {
				rep.Errors++
				u.log.Warn().Err(err).Str("order_ref", o.OrderRef).Msg("failed to expire order")
				continue
			}
			if ok {
				rep.Failed++
				metrics.IncOrder(string(model.OrderStatusFailed))
				u.log.Info().Str("order_ref", o.OrderRef).Str("remote_status", res.RemoteStatus).Msg("stale order marked FAILED")
			}
		}
	}
	return rep, nil
}

func reconcileOutcome(res *FulfillmentResult, err error) string {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrGatewayAuth), errors.Is(err, domain.ErrGatewayUnavailable), errors.Is(err, domain.ErrGatewayRejected):
		return "gateway_error"
	case err != nil:
		return "error"
	case res.AlreadyFulfilled:
		return "already_fulfilled"
	case res.Success:
		return "fulfilled"
	default:
		return "not_paid"
	}
}
