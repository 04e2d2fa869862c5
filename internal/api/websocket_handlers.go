package api

import (
	"log/slog"
	"net/http"
	"serwer-kart/internal/apperrors"
	"serwer-kart/internal/websocket"
)

// ServeWsHandler authenticates with ?token= since browsers cannot set headers
// on a websocket handshake.
func (s *Server) ServeWsHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		apperrors.WriteError(w, r, apperrors.Unauthorized("no token"))
		return
	}

	claims, err := s.accounts.VerifyToken(tokenString)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(s.wsHub, conn, claims.UserID)
	s.wsHub.Register <- client

	go client.ReadPump()
	go client.WritePump()
}
