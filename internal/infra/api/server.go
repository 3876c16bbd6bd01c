package api

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/adapter"
	"coach-storefront/internal/infra/adapters/payment"
	"coach-storefront/internal/infra/logging"
	"coach-storefront/internal/infra/metrics"
	"coach-storefront/internal/usecase"
)

const maxBodyBytes = 1 << 20

// Server wires the storefront's public endpoints to the fulfillment orchestrator.
type Server struct {
	fulfill     usecase.FulfillmentUseCase
	catalog     usecase.CatalogUseCase
	verifier    *payment.WebhookVerifier // nil disables signature checks
	limiter     Limiter
	createLimit int
	coachName   string
	supportURL  string
	log         *zerolog.Logger
}

type ServerOptions struct {
	Verifier    *payment.WebhookVerifier
	Limiter     Limiter
	CreateLimit int // per client ip per minute
	CoachName   string
	SupportURL  string
}

func NewServer(fulfill usecase.FulfillmentUseCase, catalog usecase.CatalogUseCase, opts ServerOptions, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "PublicAPI").Logger()
	return &Server{
		fulfill:     fulfill,
		catalog:     catalog,
		verifier:    opts.Verifier,
		limiter:     opts.Limiter,
		createLimit: opts.CreateLimit,
		coachName:   opts.CoachName,
		supportURL:  opts.SupportURL,
		log:         &l,
	}
}

// Register attaches the public routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Route("/api", func(r chi.Router) {
		r.With(RateLimit(s.limiter, "create_order", s.createLimit, s.log)).Post("/create-order", s.handleCreateOrder)
		r.Get("/verify/{orderId}", s.handleVerify)
		r.Post("/webhook", s.handleWebhook)
		r.Get("/products", s.handleProducts)
	})
	r.Get("/checkout/return", s.handleReturn)
}

type cartItemRequest struct {
	ProductID      string `json:"productId"`
	DurationMonths int    `json:"durationMonths"`
}

type createOrderRequest struct {
	Amount         json.Number       `json:"amount"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone"`
	ProductID      string            `json:"productId"`
	DurationMonths int               `json:"durationMonths"`
	Items          []cartItemRequest `json:"items"`
}

func (req createOrderRequest) toInput() (usecase.InitiateInput, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return usecase.InitiateInput{}, domain.NewValidationError("amount")
	}
	in := usecase.InitiateInput{
		Buyer:  model.Buyer{Name: req.Name, Email: req.Email, Phone: req.Phone},
		Amount: amount,
	}
	if len(req.Items) > 0 {
		for _, it := range req.Items {
			in.Items = append(in.Items, usecase.CartItem{ProductID: it.ProductID, DurationMonths: it.DurationMonths})
		}
	} else if req.ProductID != "" {
		in.Items = []usecase.CartItem{{ProductID: req.ProductID, DurationMonths: req.DurationMonths}}
	}
	return in, nil
}

// parseAmount accepts whole rupees, also when sent as 5800.0.
func parseAmount(n json.Number) (int64, error) {
	if n == "" {
		return 0, errors.New("missing amount")
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, errors.New("amount must be whole rupees")
	}
	return int64(f), nil
}

type createOrderResponse struct {
	SessionHandle string `json:"sessionHandle"`
	RemoteOrderID string `json:"remoteOrderId"`
	Environment   string `json:"environment"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	var req createOrderRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := req.toInput()
	if err == nil {
		var sess *usecase.CheckoutSession
		sess, err = s.fulfill.Initiate(r.Context(), in)
		if err == nil {
			writeJSON(w, http.StatusOK, createOrderResponse{
				SessionHandle: sess.SessionHandle,
				RemoteOrderID: sess.RemoteOrderID,
				Environment:   sess.Environment,
			})
			return
		}
	}

	var ve *domain.ValidationError
	var ge *domain.GatewayError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid order details", Fields: ve.Fields})
	case errors.Is(err, domain.ErrSlotsExhausted):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "All coaching slots for this month are booked. Please check back next month.", Code: "slots_exhausted"})
	case errors.As(err, &ge):
		log.Error().Err(err).Msg("create order: gateway failure")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not start payment, please try again", Code: ge.Diagnostic()})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid order details")
	default:
		log.Error().Err(err).Msg("create order failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type verifyResponse struct {
	Success          bool       `json:"success"`
	AlreadyFulfilled bool       `json:"alreadyFulfilled,omitempty"`
	Status           string     `json:"status,omitempty"`
	Message          string     `json:"message,omitempty"`
	Order            *orderView `json:"order,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	id := chi.URLParam(r, "orderId")

	res, err := s.fulfill.Reconcile(r.Context(), usecase.SourcePoll, id)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, verifyResponse{Message: "order not found"})
		return
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, verifyResponse{Message: "missing order id"})
		return
	case errors.Is(err, domain.ErrGatewayUnavailable), errors.Is(err, domain.ErrGatewayAuth), errors.Is(err, domain.ErrGatewayRejected):
		log.Warn().Err(err).Str("order_ref", id).Msg("verify: gateway unreachable")
		writeJSON(w, http.StatusBadGateway, verifyResponse{Message: "payment status unavailable, please retry"})
		return
	default:
		log.Error().Err(err).Str("order_ref", id).Msg("verify failed")
		writeJSON(w, http.StatusInternalServerError, verifyResponse{Message: "internal error"})
		return
	}

	if !res.Success {
		msg := "payment not completed"
		if res.RemoteStatus == adapter.RemoteStatusPaid {
			// paid remotely for an order we already gave up on; the operator has been alerted
			msg = "payment received, our team will contact you to complete your order"
		}
		writeJSON(w, http.StatusOK, verifyResponse{Status: res.RemoteStatus, Message: msg})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Success:          true,
		AlreadyFulfilled: res.AlreadyFulfilled,
		Status:           res.RemoteStatus,
		Order:            newOrderView(res.Order),
	})
}

// handleWebhook acknowledges every delivery it can act on or must ignore. Storage failures
// answer 500 so the provider redelivers; the payload only names the order.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	ack := func() { writeJSON(w, http.StatusOK, map[string]bool{"received": true}) }

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("webhook: read body")
		ack()
		return
	}
	if s.verifier != nil {
		ts, sig := r.Header.Get(payment.HeaderWebhookTimestamp), r.Header.Get(payment.HeaderWebhookSignature)
		if err := s.verifier.Verify(ts, sig, body); err != nil {
			metrics.IncWebhookSignatureFailure()
			log.Warn().Err(err).Msg("webhook: signature rejected")
			ack()
			return
		}
	}
	ev, err := payment.ParseWebhook(body)
	if err != nil || strings.TrimSpace(ev.OrderID()) == "" {
		log.Warn().Err(err).Msg("webhook: malformed payload")
		ack()
		return
	}

	res, err := s.fulfill.Reconcile(r.Context(), usecase.SourceWebhook, ev.OrderID())
	l := log.With().Str("order_ref", ev.OrderID()).Str("event", ev.Type).Logger()
	switch {
	case err != nil && retryableWebhookErr(err):
		l.Error().Err(err).Msg("webhook: reconcile failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	case err != nil:
		l.Warn().Err(err).Msg("webhook: reconcile failed")
	case res.AlreadyFulfilled:
		l.Debug().Msg("webhook: already fulfilled")
	case res.Success:
		l.Info().Msg("webhook: order fulfilled")
	default:
		l.Info().Str("remote_status", res.RemoteStatus).Msg("webhook: order not paid")
	}
	ack()
}

// retryableWebhookErr reports failures on our side. Unknown orders, bad ids and gateway
// errors are acknowledged; the sweeper re-fetches those.
func retryableWebhookErr(err error) bool {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrGatewayUnavailable),
		errors.Is(err, domain.ErrGatewayAuth),
		errors.Is(err, domain.ErrGatewayRejected):
		return false
	}
	return true
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.ListProducts(r.Context())
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("list products failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, newProductView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// handleReturn is where the hosted checkout sends the buyer back. It reconciles once
// and renders the outcome; a lagging status is shown as pending rather than failed.
func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("order_id")
	if id == "" {
		s.renderHTML(w, http.StatusBadRequest, pageFailed, "Missing order reference.", "")
		return
	}
	res, err := s.fulfill.Reconcile(r.Context(), usecase.SourcePoll, id)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		s.renderHTML(w, http.StatusNotFound, pageFailed, "We could not find this order.", id)
	case err != nil:
		logging.With(r.Context(), s.log).Warn().Err(err).Str("order_ref", id).Msg("return page: reconcile failed")
		s.renderHTML(w, http.StatusOK, pagePending, "We are still confirming your payment. Refresh this page in a minute.", id)
	case res.Success:
		s.renderHTML(w, http.StatusOK, pagePaid, "Payment received. A confirmation is on its way to "+res.Order.Buyer.Email+".", id)
	default:
		s.renderHTML(w, http.StatusOK, pagePending, "Payment status: "+res.RemoteStatus+". If you were charged, refresh this page in a minute.", id)
	}
}

const (
	pagePaid    = "paid"
	pagePending = "pending"
	pageFailed  = "failed"
)

var page = template.Must(template.New("return").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>{{if eq .State "paid"}}Payment Successful{{else}}Payment Status{{end}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.paid{color:#057a55} .pending{color:#b7791f} .failed{color:#b00020}
.btn{display:inline-block;margin-top:16px;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{.State}}">{{if eq .State "paid"}}Payment Successful{{else if eq .State "pending"}}Payment Processing{{else}}Something Went Wrong{{end}}</h2>
  <p>{{.Msg}}</p>
  {{if .Ref}}<div class="small">Order reference: {{.Ref}}</div>{{end}}
  {{if .SupportURL}}<a class="btn" href="{{.SupportURL}}">Contact {{.Coach}}</a>{{end}}
</div>
</body>
</html>`))

func (s *Server) renderHTML(w http.ResponseWriter, code int, state, msg, ref string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = page.Execute(w, struct {
		State      string
		Msg        string
		Ref        string
		Coach      string
		SupportURL string
	}{state, msg, ref, s.coachName, s.supportURL})
}
