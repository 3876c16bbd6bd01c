//go:build !integration

package i18n

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("greeting: Hello\nwelcome_user: Welcome %s\nfarewell: Bye")},
		"locales/hi.yaml": {Data: []byte("greeting: Namaste\nwelcome_user: Swagat hai %s")},
	}
	tr, err := NewTranslator(fsys, "hi")
	if err != nil {
		t.Fatalf("NewTranslator failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := tr.T("greeting"); got != "Namaste" {
			t.Errorf("wanted 'Namaste', got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := tr.T("welcome_user", "Priya"); got != "Swagat hai Priya" {
			t.Errorf("wanted 'Swagat hai Priya', got '%s'", got)
		}
	})

	t.Run("should fall back to the base catalog", func(t *testing.T) {
		if got := tr.T("farewell"); got != "Bye" {
			t.Errorf("wanted 'Bye', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := tr.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted 'nonexistent_key', got '%s'", got)
		}
		if m := tr.Missing("greeting", "nonexistent_key"); len(m) != 1 || m[0] != "nonexistent_key" {
			t.Errorf("unexpected missing keys %v", m)
		}
	})

	t.Run("should reject a malformed catalog", func(t *testing.T) {
		bad := fstest.MapFS{"locales/en.yaml": {Data: []byte("- not\n- a map")}}
		if _, err := NewTranslator(bad, "en"); err == nil {
			t.Error("expected a parse error")
		}
	})
}

func TestEmbeddedCatalog(t *testing.T) {
	tr, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("NewTranslator(en) failed: %v", err)
	}
	if m := tr.Missing("email_subject_course", "email_subject_ebook", "whatsapp_order_paid", "alert_capacity_oversold", "alert_notification_failed", "alert_gateway_auth"); len(m) > 0 {
		t.Errorf("missing keys in en catalog: %v", m)
	}
	if got := tr.T("email_item_line", "Meal Plan", 499); !strings.Contains(got, "INR 499") {
		t.Errorf("unexpected item line %q", got)
	}
	if _, err := NewTranslator(LocalesFS, "xx"); err == nil {
		t.Error("expected an error for a missing language")
	}
}
