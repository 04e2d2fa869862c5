// Package apperrors maps failures of the card service onto HTTP responses.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindAuth       Kind = "AUTH_ERROR"
	KindNotFound   Kind = "NOT_FOUND"
	KindCooldown   Kind = "COOLDOWN"
	KindUpstream   Kind = "UPSTREAM_ERROR"
	KindRateLimit  Kind = "RATE_LIMITED"
	KindServer     Kind = "SERVER_ERROR"
)

// AppError is an error that knows which status and message the client should see.
type AppError struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Details    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

type ErrorResponse struct {
	Error   string         `json:"error" example:"invalid credentials"`
	Code    Kind           `json:"code" example:"AUTH_ERROR"`
	Details map[string]any `json:"details,omitempty"`
}

func New(kind Kind, message string, status int) *AppError {
	return &AppError{Kind: kind, Message: message, HTTPStatus: status}
}

func Validation(message string) *AppError {
	return New(KindValidation, message, http.StatusBadRequest)
}

func Unauthorized(message string) *AppError {
	return New(KindAuth, message, http.StatusUnauthorized)
}

// InvalidCredentials is shared by "no such user" and "wrong password".
func InvalidCredentials() *AppError {
	return Unauthorized("invalid credentials")
}

func NotFound(resource string) *AppError {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func Cooldown(hoursRemaining int) *AppError {
	return New(KindCooldown,
		fmt.Sprintf("tokens already claimed, try again in %d hour(s)", hoursRemaining),
		http.StatusBadRequest,
	).WithDetails(map[string]any{"hoursRemaining": hoursRemaining})
}

func InsufficientTokens(balance, cost int) *AppError {
	return New(KindValidation, "not enough tokens", http.StatusBadRequest).
		WithDetails(map[string]any{"tokens": balance, "cost": cost})
}

// Upstream relays a non-success answer of the card catalog. The catalog's
// 401/403 are answered with 502 so clients never read them as their own
// session failing; the original status stays in details.
func Upstream(status int, body string) *AppError {
	relayed := status
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		relayed = http.StatusBadGateway
	case status < 400 || status > 599:
		relayed = http.StatusBadGateway
	}
	return New(KindUpstream, "card catalog error", relayed).
		WithDetails(map[string]any{"status": status, "body": body})
}

func UpstreamUnavailable() *AppError {
	return New(KindUpstream, "failed to fetch card from catalog", http.StatusInternalServerError)
}

func RateLimited() *AppError {
	return New(KindRateLimit, "too many requests", http.StatusTooManyRequests)
}

func Internal(message string) *AppError {
	return New(KindServer, message, http.StatusInternalServerError)
}

// As extracts an AppError from err. Anything else becomes a generic server error.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error").WithCause(err)
}

// WriteError renders err as JSON. Server errors are logged with their cause and
// never expose it to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := As(err)

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	WriteJSON(w, appErr.HTTPStatus, ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Kind,
		Details: appErr.Details,
	})
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
