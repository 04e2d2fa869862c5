package api

import (
	"encoding/json"
	"net/http"
	"serwer-kart/internal/apperrors"
	"strconv"
	"time"
)

type EventResponse struct {
	ID        int64           `json:"id" example:"123"`
	EventType string          `json:"event_type" example:"card_saved"`
	EventTime time.Time       `json:"event_time"`
	Payload   json.RawMessage `json:"payload" swaggertype:"object"`
}

// @Summary      Get new events
// @Description  Retrieves events recorded since a given event ID: saved cards, draws and token claims.
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        since  query     int  false  "The ID of the last event received. Omit or use 0 to get all events."
// @Success      200    {array}   EventResponse
// @Failure      400    {object}  apperrors.ErrorResponse
// @Failure      401    {object}  apperrors.ErrorResponse
// @Router       /events [get]
func (s *Server) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	sinceStr := r.URL.Query().Get("since")
	if sinceStr == "" {
		sinceStr = "0"
	}

	sinceID, err := strconv.ParseInt(sinceStr, 10, 64)
	if err != nil {
		apperrors.WriteError(w, r, apperrors.Validation("invalid 'since' parameter, must be a number"))
		return
	}

	events, err := s.store.GetEventsSince(r.Context(), claims.UserID, sinceID)
	if err != nil {
		apperrors.WriteError(w, r, apperrors.Internal("failed to retrieve events").WithCause(err))
		return
	}

	apperrors.WriteJSON(w, http.StatusOK, events)
}
