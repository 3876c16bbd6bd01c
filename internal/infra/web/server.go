package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"coach-storefront/internal/infra/metrics"
	"coach-storefront/internal/usecase"
)

type Server struct {
	statsUC usecase.StatsUseCase
	adminUC usecase.AdminUseCase
	auth    *AuthManager
	log     *zerolog.Logger
}

func NewServer(statsUC usecase.StatsUseCase, adminUC usecase.AdminUseCase, auth *AuthManager, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "AdminAPI").Logger()
	return &Server{statsUC: statsUC, adminUC: adminUC, auth: auth, log: &l}
}

// RegisterRoutes mounts the admin API under /api/v1/admin.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Post("/login", loginHandler(s.auth, s.log))
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/stats", statsHandler(s.statsUC, s.log))
			r.Get("/orders", ordersListHandler(s.adminUC, s.log))
			r.Get("/slots/{month}", slotsGetHandler(s.adminUC, s.log))
			r.Post("/slots/{month}/reset", slotsResetHandler(s.adminUC, s.log))
		})
	})
}

// authMiddleware accepts the session token from the Authorization header or the cookie.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("admin auth is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			metrics.IncAdminAction("auth", "unauthorized")
			if errors.Is(err, ErrMissingToken) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
