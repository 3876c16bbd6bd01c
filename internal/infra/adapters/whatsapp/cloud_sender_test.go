//go:build !integration

package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coach-storefront/internal/config"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/infra/i18n"
	"coach-storefront/internal/infra/logging"
)

func TestRecipient(t *testing.T) {
	tests := []struct{ in, want string }{
		{"+919876543210", "919876543210"},
		{"9876543210", "919876543210"},
		{"447700900123", "447700900123"},
	}
	for _, tt := range tests {
		if got := Recipient(tt.in, "91"); got != tt.want {
			t.Errorf("Recipient(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCloudSender_SendOrderNotification(t *testing.T) {
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatal(err)
	}
	o := &model.Order{
		OrderRef: "ord_x",
		Buyer:    model.Buyer{Name: "Dev", Phone: "9876543210"},
		Items:    []model.LineItem{{Title: "Recipes", Price: 499, ProductType: model.ProductTypeEbook}},
		Amount:   499,
	}

	t.Run("posts a text message with bearer auth", func(t *testing.T) {
		var got textMessage
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/PHONE_ID/messages" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("missing bearer token")
			}
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
		}))
		defer srv.Close()

		s, err := NewCloudSender(config.WhatsAppConfig{BaseURL: srv.URL, PhoneNumberID: "PHONE_ID", Token: "tok", DefaultPrefix: "91"}, tr, "Coach Kiran", time.Second, logging.Nop())
		if err != nil {
			t.Fatal(err)
		}
		if err := s.SendOrderNotification(context.Background(), o); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.To != "919876543210" || got.Type != "text" || !strings.Contains(got.Text.Body, "ord_x") {
			t.Errorf("unexpected payload %+v", got)
		}
	})

	t.Run("api error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Recipient not on allow list","code":131030}}`))
		}))
		defer srv.Close()

		s, _ := NewCloudSender(config.WhatsAppConfig{BaseURL: srv.URL, PhoneNumberID: "P", Token: "t"}, tr, "Coach", time.Second, logging.Nop())
		err := s.SendOrderNotification(context.Background(), o)
		if err == nil || !strings.Contains(err.Error(), "131030") {
			t.Fatalf("expected api error code in error, got %v", err)
		}
	})
}
