package api

import (
	"context"
	"net/http"
	"serwer-kart/internal/account"
	"serwer-kart/internal/apperrors"
	"serwer-kart/internal/auth"
)

type contextKey string

const userContextKey = contextKey("user")

func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := account.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			apperrors.WriteError(w, r, err)
			return
		}

		claims, err := s.accounts.VerifyToken(tokenString)
		if err != nil {
			apperrors.WriteError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserFromContext(ctx context.Context) *auth.AppClaims {
	if claims, ok := ctx.Value(userContextKey).(*auth.AppClaims); ok {
		return claims
	}
	return nil
}
