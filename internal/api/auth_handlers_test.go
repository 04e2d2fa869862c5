package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"serwer-kart/internal/auth"
)

func TestRegisterAndLogin(t *testing.T) {
	email := "Misty-" + uuid.NewString()[:8] + "@Cerulean.gym"

	rr := doRequest(t, http.MethodPost, "/api/auth/register", "", CredentialsRequest{Email: email, Password: testPassword})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	reg := decodeBody[RegisterResponse](t, rr)
	require.False(t, reg.ShowWelcomeModal)

	t.Run("duplicate email", func(t *testing.T) {
		rr := doRequest(t, http.MethodPost, "/api/auth/register", "", CredentialsRequest{Email: strings.ToLower(email), Password: testPassword})
		requireError(t, rr, http.StatusBadRequest, "email already registered")
	})

	t.Run("login is case insensitive on email", func(t *testing.T) {
		rr := doRequest(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{Email: strings.ToUpper(email), Password: testPassword})
		require.Equal(t, http.StatusOK, rr.Code)
		require.NotEmpty(t, decodeBody[TokenResponse](t, rr).Token)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := doRequest(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{Email: email, Password: "raichu"})
		unknown := doRequest(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{Email: "nobody@pallet.town", Password: testPassword})
		requireError(t, wrong, http.StatusUnauthorized, "invalid credentials")
		requireError(t, unknown, http.StatusUnauthorized, "invalid credentials")
		require.Equal(t, wrong.Body.String(), unknown.Body.String())
	})

	t.Run("invalid input", func(t *testing.T) {
		rr := doRequest(t, http.MethodPost, "/api/auth/register", "", CredentialsRequest{Email: "not-an-email", Password: testPassword})
		requireError(t, rr, http.StatusBadRequest, "")
		rr = doRequest(t, http.MethodPost, "/api/auth/register", "", CredentialsRequest{Email: "brock@pewter.gym", Password: "onix"})
		requireError(t, rr, http.StatusBadRequest, "")
		rr = doRequest(t, http.MethodPost, "/api/auth/login", "", "not an object")
		requireError(t, rr, http.StatusBadRequest, "invalid request body")
	})
}

func TestRegisterWelcomeEmail(t *testing.T) {
	for range 2 {
		rr := doRequest(t, http.MethodPost, "/api/auth/register", "", CredentialsRequest{Email: "welcome@demo.local", Password: "welcome1"})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		require.True(t, decodeBody[RegisterResponse](t, rr).ShowWelcomeModal)
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	user := createTestUser(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.AppClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-8 * 24 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	})
	expiredToken, err := expired.SignedString([]byte(testConfig.JWT.Secret))
	require.NoError(t, err)

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/cards"},
		{http.MethodPost, "/api/cards"},
		{http.MethodGet, "/api/collections-grouped"},
		{http.MethodGet, "/api/auth/tokens"},
		{http.MethodPost, "/api/auth/claim-tokens"},
		{http.MethodGet, "/api/random-card"},
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/events"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			rr := doRequest(t, ep.method, ep.path, "", nil)
			requireError(t, rr, http.StatusUnauthorized, "no token")

			rr = doRequest(t, ep.method, ep.path, "garbage", nil)
			requireError(t, rr, http.StatusUnauthorized, "invalid or expired token")

			rr = doRequest(t, ep.method, ep.path, expiredToken, nil)
			requireError(t, rr, http.StatusUnauthorized, "invalid or expired token")
		})
	}
}

func TestClaimTokensHandler(t *testing.T) {
	user := createTestUser(t)

	rr := doRequest(t, http.MethodGet, "/api/auth/tokens", user.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Zero(t, decodeBody[ClaimResponse](t, rr).Tokens)

	rr = doRequest(t, http.MethodPost, "/api/auth/claim-tokens", user.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	first := decodeBody[ClaimResponse](t, rr)
	require.Equal(t, 5, first.Tokens)
	require.NotNil(t, first.LastTokenClaim)

	rr = doRequest(t, http.MethodPost, "/api/auth/claim-tokens", user.Token, nil)
	body := requireError(t, rr, http.StatusBadRequest, "tokens already claimed, try again in 24 hour(s)")
	require.Equal(t, "COOLDOWN", string(body.Code))

	setLastClaim := func(hoursAgo int) {
		_, err := testServer.store.GetPool().Exec(t.Context(),
			`UPDATE users SET last_token_claim = now() - make_interval(hours => $2) WHERE id = $1`,
			user.ID, hoursAgo)
		require.NoError(t, err)
	}

	setLastClaim(23)
	rr = doRequest(t, http.MethodPost, "/api/auth/claim-tokens", user.Token, nil)
	body = requireError(t, rr, http.StatusBadRequest, "tokens already claimed, try again in 1 hour(s)")
	require.EqualValues(t, 1, body.Details["hoursRemaining"])

	setLastClaim(25)
	rr = doRequest(t, http.MethodPost, "/api/auth/claim-tokens", user.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	second := decodeBody[ClaimResponse](t, rr)
	require.Equal(t, 10, second.Tokens)
	require.WithinDuration(t, time.Now(), *second.LastTokenClaim, time.Minute)
}

func TestPasswordResetFlow(t *testing.T) {
	user := createTestUser(t)

	rr := doRequest(t, http.MethodPost, "/api/auth/forgot-password", "", ForgotPasswordRequest{Email: user.Email})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resetToken := decodeBody[ForgotPasswordResponse](t, rr).ResetToken
	require.Len(t, resetToken, 64)

	rr = doRequest(t, http.MethodPost, "/api/auth/reset-password", "", ResetPasswordRequest{Token: resetToken, Password: "raichu"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{Email: user.Email, Password: "raichu"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, http.MethodPost, "/api/auth/reset-password", "", ResetPasswordRequest{Token: resetToken, Password: "another"})
	requireError(t, rr, http.StatusBadRequest, "invalid or expired reset token")

	rr = doRequest(t, http.MethodPost, "/api/auth/forgot-password", "", ForgotPasswordRequest{Email: "nobody@pallet.town"})
	requireError(t, rr, http.StatusNotFound, "user not found")
}

func TestDeleteAccountHandler(t *testing.T) {
	user := createTestUser(t)
	saveCard(t, user, "Bulbasaur", 1)
	saveCard(t, user, "Chikorita", 152)

	rr := doRequest(t, http.MethodDelete, "/api/auth/delete", "", CredentialsRequest{Email: user.Email, Password: "wrong-password"})
	requireError(t, rr, http.StatusUnauthorized, "invalid credentials")

	rr = doRequest(t, http.MethodDelete, "/api/auth/delete", "", CredentialsRequest{Email: user.Email, Password: testPassword})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.EqualValues(t, 2, decodeBody[DeleteAccountResponse](t, rr).DeletedCards)

	var remaining int
	err := testServer.store.GetPool().QueryRow(t.Context(), `SELECT count(*) FROM cards WHERE owner_id = $1`, user.ID).Scan(&remaining)
	require.NoError(t, err)
	require.Zero(t, remaining)

	rr = doRequest(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{Email: user.Email, Password: testPassword})
	requireError(t, rr, http.StatusUnauthorized, "invalid credentials")

	rr = doRequest(t, http.MethodDelete, "/api/auth/delete", "", CredentialsRequest{Email: user.Email, Password: testPassword})
	requireError(t, rr, http.StatusNotFound, "user not found")

	// token wydany przed usunięciem konta nie daje już dostępu do danych
	rr = doRequest(t, http.MethodGet, "/api/me", user.Token, nil)
	requireError(t, rr, http.StatusNotFound, "user not found")
}

func TestRateLimitedCredentialEndpoints(t *testing.T) {
	cfg := *testConfig
	cfg.Auth.RateLimit = 2
	limited := NewServer(&cfg, testServer.store, testServer.accounts, testDrawer, testServer.wsHub).NewRouter()

	send := func() int {
		rr := doRequestTo(t, limited, http.MethodPost, "/api/auth/login", CredentialsRequest{Email: "nobody@pallet.town", Password: testPassword})
		return rr.Code
	}

	require.Equal(t, http.StatusUnauthorized, send())
	require.Equal(t, http.StatusUnauthorized, send())
	require.Equal(t, http.StatusTooManyRequests, send())
}

func TestRateLimitNotResetBySpoofedForwardedFor(t *testing.T) {
	cfg := *testConfig
	cfg.Auth.RateLimit = 2
	limited := NewServer(&cfg, testServer.store, testServer.accounts, testDrawer, testServer.wsHub).NewRouter()

	send := func(forwarded string) int {
		raw, err := json.Marshal(CredentialsRequest{Email: "nobody@pallet.town", Password: testPassword})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwarded)
		rr := httptest.NewRecorder()
		limited.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusUnauthorized, send("198.51.100.1"))
	require.Equal(t, http.StatusUnauthorized, send("198.51.100.2"))
	require.Equal(t, http.StatusTooManyRequests, send("198.51.100.3"))
}
