package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"serwer-kart/internal/apperrors"
	"serwer-kart/internal/models"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testPassword = "pikachu"

type testUser struct {
	ID    uuid.UUID
	Email string
	Token string
}

func doRequest(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return serve(t, testRouter, method, path, token, body)
}

func doRequestTo(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return serve(t, handler, method, path, "", body)
}

func serve(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) apperrors.ErrorResponse {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	body := decodeBody[apperrors.ErrorResponse](t, rr)
	if message != "" {
		require.Equal(t, message, body.Error)
	}
	return body
}

func createTestUser(t *testing.T) testUser {
	t.Helper()
	email := "trainer-" + uuid.NewString()[:8] + "@pallet.town"

	rr := doRequest(t, http.MethodPost, "/api/auth/register", "", CredentialsRequest{Email: email, Password: testPassword})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doRequest(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{Email: email, Password: testPassword})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	token := decodeBody[TokenResponse](t, rr).Token

	claims, err := testServer.accounts.VerifyToken(token)
	require.NoError(t, err)
	return testUser{ID: claims.UserID, Email: email, Token: token}
}

func saveCard(t *testing.T, user testUser, name string, catalogIndex int) models.Card {
	t.Helper()
	rr := doRequest(t, http.MethodPost, "/api/cards", user.Token, models.CardDraft{
		Name:         name,
		Type:         "Grass",
		ImageURL:     "https://images.example/" + name + ".png",
		CatalogIndex: &catalogIndex,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[SaveCardResponse](t, rr).Card
}

func giveTokens(t *testing.T, user testUser, tokens int) {
	t.Helper()
	_, err := testServer.store.GetPool().Exec(t.Context(), `UPDATE users SET tokens = $2 WHERE id = $1`, user.ID, tokens)
	require.NoError(t, err)
}

func cardIDs(cards []models.Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}
