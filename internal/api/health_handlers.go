package api

import (
	"context"
	"net/http"
	"serwer-kart/internal/apperrors"
	"time"
)

type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
	Cache    string `json:"cache,omitempty" example:"ok"`
}

// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	if err := s.store.Ping(ctx); err != nil {
		resp.Database = "unavailable"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	// the page cache is optional, so losing it does not fail the check
	if s.cache != nil {
		resp.Cache = "ok"
		if err := s.cache.Ping(ctx); err != nil {
			resp.Cache = "unavailable"
			if status == http.StatusOK {
				resp.Status = "degraded"
			}
		}
	}

	apperrors.WriteJSON(w, status, resp)
}
