package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
	"coach-storefront/internal/infra/metrics"
	"coach-storefront/internal/usecase"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func loginHandler(auth *AuthManager, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		token, exp, err := auth.Login(w, req.Password)
		if err != nil {
			metrics.IncAdminAction("login", "unauthorized")
			if !errors.Is(err, ErrBadPassword) {
				log.Error().Err(err).Msg("failed to mint admin token")
				http.Error(w, "Login failed", http.StatusInternalServerError)
				return
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		metrics.IncAdminAction("login", "ok")
		writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp})
	}
}

// statsHandler serves order counts, revenue windows and the current month's capacity.
func statsHandler(statsUC usecase.StatsUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ov, err := statsUC.Overview(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("stats overview failed")
			http.Error(w, "Failed to get stats", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, ov)
	}
}

// ordersListHandler returns a page of orders, newest first.
// It accepts 'offset', 'limit' and 'status' query parameters.
func ordersListHandler(adminUC usecase.AdminUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		orders, err := adminUC.ListOrders(r.Context(), repository.OrderFilter{
			Status: model.OrderStatus(q.Get("status")),
			Offset: offset,
			Limit:  limit,
		})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, "Invalid status filter", http.StatusBadRequest)
				return
			}
			log.Error().Err(err).Msg("list orders failed")
			http.Error(w, "Failed to list orders", http.StatusInternalServerError)
			return
		}
		if orders == nil {
			orders = []*model.Order{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items":  orders,
			"offset": offset,
			"limit":  limit,
		})
	}
}

func slotsGetHandler(adminUC usecase.AdminUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := adminUC.Capacity(r.Context(), chi.URLParam(r, "month"))
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, "Month must be YYYY-MM", http.StatusBadRequest)
				return
			}
			log.Error().Err(err).Msg("capacity lookup failed")
			http.Error(w, "Failed to read capacity", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"month":      entry.Month,
			"max_slots":  entry.MaxSlots,
			"used_slots": entry.UsedSlots,
			"remaining":  entry.Remaining(),
		})
	}
}

func slotsResetHandler(adminUC usecase.AdminUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month := chi.URLParam(r, "month")
		err := adminUC.ResetCapacity(r.Context(), month)
		switch {
		case err == nil:
			metrics.IncAdminAction("slots_reset", "ok")
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Month must be YYYY-MM", http.StatusBadRequest)
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "No ledger for month", http.StatusNotFound)
		default:
			metrics.IncAdminAction("slots_reset", "error")
			log.Error().Err(err).Str("month", month).Msg("capacity reset failed")
			http.Error(w, "Failed to reset capacity", http.StatusInternalServerError)
		}
	}
}
