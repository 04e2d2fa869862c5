package api

import (
	"net/http"
	"serwer-kart/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

func (s *Server) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if s.config.Server.TrustedProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Serwer kart działa! Dokumentacja dostępna pod /swagger/index.html"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Get("/ws", s.ServeWsHandler)
	r.Get("/health", s.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	limit, window := s.config.Auth.RateLimit, s.config.Auth.RateWindow

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limit > 0 && window > 0 {
				r.Use(middleware.RateLimit(limit, window, s.config.Server.TrustedProxy))
			}
			r.Post("/auth/register", s.RegisterHandler)
			r.Post("/auth/login", s.LoginHandler)
			r.Post("/auth/forgot-password", s.ForgotPasswordHandler)
			r.Post("/auth/reset-password", s.ResetPasswordHandler)
			r.Delete("/auth/delete", s.DeleteAccountHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.AuthMiddleware)
			r.Get("/auth/tokens", s.GetTokensHandler)
			r.Post("/auth/claim-tokens", s.ClaimTokensHandler)
			r.Get("/me", s.GetCurrentUserHandler)
			r.Get("/cards", s.ListCardsHandler)
			r.Post("/cards", s.CreateCardHandler)
			r.Get("/cards/{cardId}", s.GetCardHandler)
			r.Get("/collections-grouped", s.GroupedCollectionHandler)
			r.Get("/random-card", s.RandomCardHandler)
			r.Get("/events", s.GetEventsHandler)
		})
	})

	return r
}
