package api

import (
	"context"
	"serwer-kart/internal/account"
	"serwer-kart/internal/config"
	"serwer-kart/internal/database"
	"serwer-kart/internal/models"
	"serwer-kart/internal/websocket"

	gorillaws "github.com/gorilla/websocket"
)

// CardDrawer produces one random catalog card per call.
type CardDrawer interface {
	DrawRandomCard(ctx context.Context) (*models.CardDraft, error)
}

// Pinger is an optional dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	config   *config.Config
	store    *database.Store
	accounts *account.Service
	catalog  CardDrawer
	wsHub    *websocket.Hub
	upgrader *gorillaws.Upgrader
	cache    Pinger
}

type ServerOption func(*Server)

// WithCache adds the catalog page cache to the health check.
func WithCache(cache Pinger) ServerOption {
	return func(s *Server) {
		s.cache = cache
	}
}

func NewServer(cfg *config.Config, store *database.Store, accounts *account.Service, catalog CardDrawer, wsHub *websocket.Hub, opts ...ServerOption) *Server {
	s := &Server{
		config:   cfg,
		store:    store,
		accounts: accounts,
		catalog:  catalog,
		wsHub:    wsHub,
		upgrader: websocket.NewUpgrader(cfg.CORS.AllowedOrigins),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) drawCost() int {
	if s.config.Auth.DrawCost <= 0 {
		return 1
	}
	return s.config.Auth.DrawCost
}
