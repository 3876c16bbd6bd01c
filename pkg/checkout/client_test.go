//go:build !integration

package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", srv.Client())
	c.sleep = noSleep
	return c, srv
}

func TestCreateOrder(t *testing.T) {
	t.Run("returns the session", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/create-order" || r.Method != http.MethodPost {
				t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			}
			var req CreateOrderRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.ProductID != "course-12w" || req.Amount != 5800 {
				t.Errorf("unexpected body %+v", req)
			}
			_, _ = w.Write([]byte(`{"sessionHandle":"session_1","remoteOrderId":"ord_1","environment":"sandbox"}`))
		})

		s, err := c.CreateOrder(context.Background(), CreateOrderRequest{Amount: 5800, ProductID: "course-12w", DurationMonths: 3})
		if err != nil {
			t.Fatal(err)
		}
		if s.SessionHandle != "session_1" || s.RemoteOrderID != "ord_1" {
			t.Errorf("unexpected session %+v", s)
		}
	})

	t.Run("sold out surfaces as APIError", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"All coaching slots for this month are booked.","code":"slots_exhausted"}`))
		})

		_, err := c.CreateOrder(context.Background(), CreateOrderRequest{})
		var ae *APIError
		if !errors.As(err, &ae) || !ae.SoldOut() || ae.StatusCode != 400 {
			t.Fatalf("expected sold-out APIError, got %v", err)
		}
	})
}

func TestVerifyWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("paid on the second attempt", func(t *testing.T) {
		var n int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&n, 1) == 1 {
				_, _ = w.Write([]byte(`{"success":false,"status":"ACTIVE","message":"payment not completed"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"status":"PAID","order":{"orderRef":"ord_1","status":"PAID","amount":5800}}`))
		})

		res, err := c.VerifyWithRetry(ctx, "ord_1")
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != OutcomePaid || res.Attempts != 2 || res.Order.Amount != 5800 {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("inconclusive after the retry budget, never failed", func(t *testing.T) {
		var n int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&n, 1)
			_, _ = w.Write([]byte(`{"success":false,"status":"ACTIVE"}`))
		})
		var slept []time.Duration
		c.sleep = func(_ context.Context, d time.Duration) error { slept = append(slept, d); return nil }

		res, err := c.VerifyWithRetry(ctx, "ord_1")
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != OutcomeInconclusive || res.Status != "ACTIVE" || res.Message != ManualFollowUpMessage {
			t.Errorf("unexpected result %+v", res)
		}
		if n != 3 || len(slept) != 2 || slept[0] != DefaultDelay {
			t.Errorf("expected 3 attempts with 2 fixed delays, got %d / %v", n, slept)
		}
	})

	t.Run("gateway errors are retried", func(t *testing.T) {
		var n int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&n, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"success":false,"message":"payment status unavailable, please retry"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"status":"PAID","order":{"orderRef":"ord_1"}}`))
		})

		res, err := c.VerifyWithRetry(ctx, "ord_1")
		if err != nil || res.Outcome != OutcomePaid {
			t.Fatalf("expected paid after retries, got %+v (%v)", res, err)
		}
	})

	t.Run("only errors still reports inconclusive with the cause", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		res, err := c.VerifyWithRetry(ctx, "ord_1")
		if err != nil {
			t.Fatal(err)
		}
		var ae *APIError
		if res.Outcome != OutcomeInconclusive || !errors.As(res.LastErr, &ae) || ae.StatusCode != http.StatusBadGateway {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("not found stops immediately", func(t *testing.T) {
		var n int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&n, 1)
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"order not found"}`))
		})

		res, err := c.VerifyWithRetry(ctx, "ord_missing")
		if err != nil || res.Outcome != OutcomeNotFound || n != 1 {
			t.Errorf("expected a single not-found attempt, got %+v (%v) after %d", res, err, n)
		}
	})

	t.Run("context cancellation stops polling", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":false,"status":"ACTIVE"}`))
		})
		c.sleep = sleepCtx
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := c.VerifyWithRetry(cctx, "ord_1"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
