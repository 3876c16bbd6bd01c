package api

import (
	"encoding/json"
	"net/http"
	"time"

	"coach-storefront/internal/domain/model"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string   `json:"error"`
	Code   string   `json:"code,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

type lineItemView struct {
	ProductID      string `json:"productId"`
	Title          string `json:"title"`
	Type           string `json:"type"`
	DurationMonths int    `json:"durationMonths,omitempty"`
	Price          int64  `json:"price"`
}

// orderView is what the buyer's browser may see; internal ids and flags stay out.
type orderView struct {
	OrderRef  string         `json:"orderRef"`
	Status    string         `json:"status"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Items     []lineItemView `json:"items"`
	PaymentID string         `json:"paymentId,omitempty"`
	PaidAt    *time.Time     `json:"paidAt,omitempty"`
}

func newOrderView(o *model.Order) *orderView {
	if o == nil {
		return nil
	}
	v := &orderView{
		OrderRef: o.OrderRef,
		Status:   string(o.Status),
		Amount:   o.Amount,
		Currency: o.Currency,
		Name:     o.Buyer.Name,
		Email:    o.Buyer.Email,
		Items:    make([]lineItemView, 0, len(o.Items)),
		PaidAt:   o.PaidAt,
	}
	if o.PaymentRef != nil {
		v.PaymentID = *o.PaymentRef
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, lineItemView{
			ProductID:      it.ProductID,
			Title:          it.Title,
			Type:           string(it.ProductType),
			DurationMonths: it.DurationMonths,
			Price:          it.Price,
		})
	}
	return v
}

type durationView struct {
	Months int   `json:"months"`
	Price  int64 `json:"price"`
}

type productView struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Type      string         `json:"type"`
	Price     int64          `json:"price"`
	Durations []durationView `json:"durations,omitempty"`
}

func newProductView(p *model.Product) productView {
	v := productView{ID: p.ID, Title: p.Title, Type: string(p.Type), Price: p.Price}
	for _, m := range p.DurationOptions() {
		v.Durations = append(v.Durations, durationView{Months: m, Price: p.Durations[m]})
	}
	return v
}
