package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"serwer-kart/internal/apperrors"
	"serwer-kart/internal/models"
	"time"
)

type CredentialsRequest struct {
	Email    string `json:"email" example:"ash@pallet.town"`
	Password string `json:"password" example:"pikachu"`
}

type RegisterResponse struct {
	Message          string `json:"message" example:"user registered"`
	ShowWelcomeModal bool   `json:"showWelcomeModal"`
}

type TokenResponse struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" example:"ash@pallet.town"`
}

type ForgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken,omitempty"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DeleteAccountResponse struct {
	Message      string `json:"message" example:"account deleted"`
	DeletedCards int64  `json:"deletedCards" example:"12"`
}

type ClaimResponse struct {
	Message        string     `json:"message" example:"claimed 5 tokens"`
	Tokens         int        `json:"tokens" example:"5"`
	LastTokenClaim *time.Time `json:"lastTokenClaim"`
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("invalid request body")
	}
	return nil
}

// @Summary      Register a new account
// @Description  Creates a user with a zero token balance. The welcome address always succeeds and asks the client to show the welcome flow.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      CredentialsRequest  true  "Credentials"
// @Success      201      {object}  RegisterResponse
// @Failure      400      {object}  apperrors.ErrorResponse
// @Failure      429      {object}  apperrors.ErrorResponse
// @Failure      500      {object}  apperrors.ErrorResponse
// @Router       /auth/register [post]
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	res, err := s.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	apperrors.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Message:          "user registered",
		ShowWelcomeModal: res.ShowWelcomeModal,
	})
}

// @Summary      Log in
// @Description  Returns a bearer token valid for seven days.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      CredentialsRequest  true  "Credentials"
// @Success      200      {object}  TokenResponse
// @Failure      400      {object}  apperrors.ErrorResponse
// @Failure      401      {object}  apperrors.ErrorResponse "invalid credentials"
// @Failure      429      {object}  apperrors.ErrorResponse
// @Router       /auth/login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	token, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	apperrors.WriteJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// @Summary      Request a password reset
// @Description  Stores a one-hour reset token. It is emailed when mail delivery is configured and returned in the body otherwise.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      ForgotPasswordRequest  true  "Account email"
// @Success      200      {object}  ForgotPasswordResponse
// @Failure      404      {object}  apperrors.ErrorResponse
// @Router       /auth/forgot-password [post]
func (s *Server) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	res, err := s.accounts.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	resp := ForgotPasswordResponse{Message: "reset token created", ResetToken: res.Token}
	if res.Delivered {
		resp.Message = "reset instructions sent"
	}
	apperrors.WriteJSON(w, http.StatusOK, resp)
}

// @Summary      Reset a password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      ResetPasswordRequest  true  "Reset token and new password"
// @Success      200      {object}  MessageResponse
// @Failure      400      {object}  apperrors.ErrorResponse "invalid or expired reset token"
// @Router       /auth/reset-password [post]
func (s *Server) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	if err := s.accounts.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	apperrors.WriteJSON(w, http.StatusOK, MessageResponse{Message: "password updated"})
}

// @Summary      Delete an account
// @Description  Requires the account credentials in the body. Removes all of the user's cards and then the user.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      CredentialsRequest  true  "Credentials"
// @Success      200      {object}  DeleteAccountResponse
// @Failure      401      {object}  apperrors.ErrorResponse
// @Failure      404      {object}  apperrors.ErrorResponse
// @Router       /auth/delete [delete]
func (s *Server) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	deleted, err := s.accounts.DeleteAccount(r.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	apperrors.WriteJSON(w, http.StatusOK, DeleteAccountResponse{
		Message:      "account deleted",
		DeletedCards: deleted,
	})
}

// @Summary      Get token balance
// @Tags         tokens
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.TokenBalance
// @Failure      401  {object}  apperrors.ErrorResponse
// @Router       /auth/tokens [get]
func (s *Server) GetTokensHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	balance, err := s.accounts.GetBalance(r.Context(), claims.UserID)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	apperrors.WriteJSON(w, http.StatusOK, balance)
}

// @Summary      Claim daily tokens
// @Description  Adds the daily grant once per cooldown window.
// @Tags         tokens
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ClaimResponse
// @Failure      400  {object}  apperrors.ErrorResponse "cooldown, details.hoursRemaining"
// @Failure      401  {object}  apperrors.ErrorResponse
// @Router       /auth/claim-tokens [post]
func (s *Server) ClaimTokensHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	balance, err := s.accounts.ClaimDailyTokens(r.Context(), claims.UserID)
	if err != nil {
		if appErr := apperrors.As(err); appErr.Kind == apperrors.KindCooldown {
			tokenClaimsTotal.WithLabelValues("cooldown").Inc()
		}
		apperrors.WriteError(w, r, err)
		return
	}
	tokenClaimsTotal.WithLabelValues("granted").Inc()

	granted := s.accounts.Grant()
	if _, err := s.store.LogEvent(r.Context(), claims.UserID, models.EventTokensClaimed, map[string]int{
		"granted": granted,
		"tokens":  balance.Tokens,
	}); err != nil {
		slog.WarnContext(r.Context(), "failed to journal token claim", "user_id", claims.UserID, "error", err)
	}

	apperrors.WriteJSON(w, http.StatusOK, ClaimResponse{
		Message:        fmt.Sprintf("claimed %d tokens", granted),
		Tokens:         balance.Tokens,
		LastTokenClaim: balance.LastTokenClaim,
	})
}
