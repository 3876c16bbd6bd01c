//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"coach-storefront/internal/config"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/infra/adapters/payment"
	"coach-storefront/internal/infra/db/memory"
	"coach-storefront/internal/infra/i18n"
	"coach-storefront/internal/infra/logging"
	"coach-storefront/internal/infra/worker"
	"coach-storefront/internal/usecase"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger { return logging.Nop() }

// MockEmailSender records confirmations and optionally fails.
type MockEmailSender struct {
	mu   sync.Mutex
	Sent []string
	Err  error
}

func (m *MockEmailSender) SendOrderConfirmation(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, o.OrderRef)
	return nil
}

func (m *MockEmailSender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

type MockChatSender struct {
	mu   sync.Mutex
	Sent []string
	Err  error
}

func (m *MockChatSender) SendOrderNotification(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, o.OrderRef)
	return nil
}

func (m *MockChatSender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

type MockAlerter struct {
	mu     sync.Mutex
	Alerts []string
}

func (m *MockAlerter) Alert(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts = append(m.Alerts, text)
	return nil
}

func (m *MockAlerter) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Alerts)
}

// InlineSubmitter runs tasks on the caller's goroutine so assertions need no waiting.
type InlineSubmitter struct {
	Err error
}

func (s InlineSubmitter) Submit(task worker.Task) error {
	if s.Err != nil {
		return s.Err
	}
	return task(context.Background())
}

var errQueueFull = errors.New("worker queue full")

const (
	courseID = "course-12w"
	ebookID  = "ebook-meals"
)

func testCatalog() *memory.ProductStore {
	return memory.NewProductStore(
		&model.Product{ID: courseID, Title: "12 Week Recomp", Type: model.ProductTypeCourse, Price: 5800,
			Durations: map[int]int64{3: 5800, 6: 9800}, Active: true, CreatedAt: time.Now()},
		&model.Product{ID: ebookID, Title: "Meal Prep Playbook", Type: model.ProductTypeEbook, Price: 499, Active: true, CreatedAt: time.Now()},
	)
}

func testTranslator() *i18n.Translator {
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		panic(err)
	}
	return tr
}

func ist() *time.Location {
	loc, err := time.LoadLocation(config.DefaultTimezone)
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// fulfillmentDeps wires the orchestrator against in-memory stores and the fake gateway.
type fulfillmentDeps struct {
	orders   *memory.OrderStore
	capacity *memory.CapacityStore
	gateway  *payment.NoopPaymentGateway
	email    *MockEmailSender
	chat     *MockChatSender
	alerts   *MockAlerter
	month    string
	uc       usecase.FulfillmentUseCase
}

func newFulfillmentDeps(maxSlots int) *fulfillmentDeps {
	d := &fulfillmentDeps{
		orders:   memory.NewOrderStore(),
		capacity: memory.NewCapacityStore(),
		gateway:  payment.NewNoopPaymentGateway(),
		email:    &MockEmailSender{},
		chat:     &MockChatSender{},
		alerts:   &MockAlerter{},
		month:    model.MonthKey(time.Now(), ist()),
	}
	tr := testTranslator()
	notifier := usecase.NewNotificationUseCase(d.email, d.chat, d.alerts, InlineSubmitter{}, tr, time.Second, newTestLogger())
	d.uc = usecase.NewFulfillmentUseCase(d.orders, d.capacity, testCatalog(), d.gateway, notifier, d.alerts, tr,
		usecase.FulfillmentConfig{MaxSlots: maxSlots, Location: ist(), ReturnURL: "https://shop.test/return?order_id={order_id}"},
		newTestLogger())
	return d
}

// fillMonth consumes n slots of the current month.
func (d *fulfillmentDeps) fillMonth(n, maxSlots int) {
	for i := 0; i < n; i++ {
		_, _ = d.capacity.TryReserve(context.Background(), nil, d.month, maxSlots)
	}
}

func (d *fulfillmentDeps) used() int {
	e, _ := d.capacity.GetOrInit(context.Background(), nil, d.month, 0)
	return e.UsedSlots
}

func buyer() model.Buyer {
	return model.Buyer{Name: "Ananya Rao", Email: "ananya@example.com", Phone: "+91 98450 12345"}
}

func courseCart() usecase.InitiateInput {
	return usecase.InitiateInput{Buyer: buyer(), Items: []usecase.CartItem{{ProductID: courseID, DurationMonths: 3}}, Amount: 5800}
}

func ebookCart() usecase.InitiateInput {
	return usecase.InitiateInput{Buyer: buyer(), Items: []usecase.CartItem{{ProductID: ebookID}}, Amount: 499}
}
