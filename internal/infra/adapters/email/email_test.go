//go:build !integration

package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	"coach-storefront/internal/config"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/infra/i18n"
	"coach-storefront/internal/infra/logging"
)

func translator(t *testing.T) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func paidOrder(items ...model.LineItem) *model.Order {
	return &model.Order{
		OrderRef:      "ord_abc",
		Buyer:         model.Buyer{Name: "Meera", Email: "meera@example.com", Phone: "+919812345678"},
		Items:         items,
		Amount:        model.TotalOf(items),
		CapacityMonth: "2024-06",
		Status:        model.OrderStatusPaid,
	}
}

func TestCompose(t *testing.T) {
	tr := translator(t)
	course := model.LineItem{ProductID: "c", Title: "Fat Loss", Price: 4999, DurationMonths: 3, ProductType: model.ProductTypeCourse}
	ebook := model.LineItem{ProductID: "e", Title: "Recipes", Price: 499, ProductType: model.ProductTypeEbook}

	t.Run("course variant", func(t *testing.T) {
		subject, body := Compose(tr, "Coach Kiran", "https://wa.me/91999", paidOrder(course, ebook))
		if !strings.Contains(subject, "Meera") {
			t.Errorf("course subject should greet the buyer: %q", subject)
		}
		for _, want := range []string{"Fat Loss (3 months)", "Recipes", "INR 5498", "ord_abc", "2024-06", "WhatsApp", "https://wa.me/91999"} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q:\n%s", want, body)
			}
		}
	})

	t.Run("ebook variant", func(t *testing.T) {
		subject, body := Compose(tr, "Coach Kiran", "", paidOrder(ebook))
		if !strings.Contains(subject, "Coach Kiran") {
			t.Errorf("unexpected ebook subject %q", subject)
		}
		if strings.Contains(body, "onboarding") || !strings.Contains(body, "download") {
			t.Errorf("ebook body should not mention onboarding:\n%s", body)
		}
	})
}

func TestSMTPSender_SendOrderConfirmation(t *testing.T) {
	s, err := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", From: "coach@example.com"}, translator(t), "Coach Kiran", "", logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	var gotTo []string
	var gotMsg string
	s.deliver = func(ctx context.Context, from string, to []string, msg []byte) error {
		gotTo, gotMsg = to, string(msg)
		return nil
	}

	o := paidOrder(model.LineItem{ProductID: "e", Title: "Recipes", Price: 499, ProductType: model.ProductTypeEbook})
	if err := s.SendOrderConfirmation(context.Background(), o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotTo) != 1 || gotTo[0] != "meera@example.com" {
		t.Errorf("unexpected recipients %v", gotTo)
	}
	if !strings.Contains(gotMsg, "From: coach@example.com\r\n") || !strings.Contains(gotMsg, "Content-Type: text/plain") {
		t.Errorf("malformed message headers:\n%s", gotMsg)
	}

	s.deliver = func(ctx context.Context, from string, to []string, msg []byte) error { return errors.New("relay down") }
	if err := s.SendOrderConfirmation(context.Background(), o); err == nil {
		t.Error("expected delivery error to surface")
	}
}
