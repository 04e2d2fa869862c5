package api

import (
	"net/http"
	"serwer-kart/internal/apperrors"

	_ "serwer-kart/internal/models"
)

// @Summary      Get current user info
// @Description  Returns the authenticated user's profile and token balance.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {object}  apperrors.ErrorResponse
// @Failure      404  {object}  apperrors.ErrorResponse
// @Router       /me [get]
func (s *Server) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	user, err := s.accounts.GetUser(r.Context(), claims.UserID)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	apperrors.WriteJSON(w, http.StatusOK, user)
}
