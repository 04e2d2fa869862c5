package api

import (
	"errors"
	"net/http"
	"serwer-kart/internal/catalog"
	"serwer-kart/internal/collection"
	"serwer-kart/internal/models"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateCardHandler(t *testing.T) {
	user := createTestUser(t)

	t.Run("defaults missing type", func(t *testing.T) {
		idx := 25
		rr := doRequest(t, http.MethodPost, "/api/cards", user.Token, models.CardDraft{Name: "Pikachu", CatalogIndex: &idx})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		resp := decodeBody[SaveCardResponse](t, rr)
		require.Equal(t, "card saved", resp.Message)
		require.Equal(t, models.UnknownCardType, resp.Card.Type)
		require.Equal(t, user.ID, resp.Card.OwnerID)
		require.Len(t, resp.Card.ID, 21)
	})

	t.Run("empty name", func(t *testing.T) {
		rr := doRequest(t, http.MethodPost, "/api/cards", user.Token, models.CardDraft{Name: "   "})
		requireError(t, rr, http.StatusBadRequest, "card name cannot be empty")
	})

	t.Run("negative index", func(t *testing.T) {
		idx := -3
		rr := doRequest(t, http.MethodPost, "/api/cards", user.Token, models.CardDraft{Name: "MissingNo", CatalogIndex: &idx})
		requireError(t, rr, http.StatusBadRequest, "")
	})
}

func TestOwnershipIsolation(t *testing.T) {
	alice := createTestUser(t)
	bob := createTestUser(t)

	a1 := saveCard(t, alice, "Bulbasaur", 1)
	a2 := saveCard(t, alice, "Treecko", 252)
	b1 := saveCard(t, bob, "Snivy", 495)

	rr := doRequest(t, http.MethodGet, "/api/cards", alice.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{a1.ID, a2.ID}, cardIDs(decodeBody[[]models.Card](t, rr)))

	rr = doRequest(t, http.MethodGet, "/api/cards", bob.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{b1.ID}, cardIDs(decodeBody[[]models.Card](t, rr)))

	t.Run("single card lookup", func(t *testing.T) {
		rr := doRequest(t, http.MethodGet, "/api/cards/"+a1.ID, alice.Token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, a1.ID, decodeBody[models.Card](t, rr).ID)

		rr = doRequest(t, http.MethodGet, "/api/cards/"+a1.ID, bob.Token, nil)
		requireError(t, rr, http.StatusNotFound, "card not found")

		rr = doRequest(t, http.MethodGet, "/api/cards/short", alice.Token, nil)
		requireError(t, rr, http.StatusNotFound, "card not found")
	})

	t.Run("grouped collection", func(t *testing.T) {
		rr := doRequest(t, http.MethodGet, "/api/collections-grouped", bob.Token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		grouped := decodeBody[collection.Grouped](t, rr)
		require.Len(t, grouped, len(collection.Generations))
		require.Equal(t, []string{b1.ID}, cardIDs(grouped["gen5"]))
		require.Empty(t, grouped["gen1"])
		require.Empty(t, grouped["gen3"])
	})
}

func TestGroupedCollectionHandler(t *testing.T) {
	user := createTestUser(t)

	rr := doRequest(t, http.MethodGet, "/api/collections-grouped", user.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	empty := decodeBody[collection.Grouped](t, rr)
	for _, g := range collection.Generations {
		require.Contains(t, empty, g.Label)
		require.Empty(t, empty[g.Label])
	}

	mew := saveCard(t, user, "Mew", 151)
	celebi := saveCard(t, user, "Celebi", 251)
	unknown := saveCard(t, user, "Trainer", 0)
	future := saveCard(t, user, "Future", 1010)
	pichu := saveCard(t, user, "Pichu", 172)
	zacian := saveCard(t, user, "Zacian", 888)

	rr = doRequest(t, http.MethodGet, "/api/collections-grouped", user.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	grouped := decodeBody[collection.Grouped](t, rr)

	require.Equal(t, []string{mew.ID}, cardIDs(grouped["gen1"]))
	require.Equal(t, []string{celebi.ID, pichu.ID}, cardIDs(grouped["gen2"]))
	require.Equal(t, []string{unknown.ID, future.ID, zacian.ID}, cardIDs(grouped["gen8"]))
}

func TestRandomCardHandler(t *testing.T) {
	user := createTestUser(t)
	idx := 6
	charizard := &models.CardDraft{Name: "Charizard", Type: "Fire", ImageURL: "https://images.example/4.png", CatalogIndex: &idx}

	balance := func() int {
		rr := doRequest(t, http.MethodGet, "/api/auth/tokens", user.Token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		return decodeBody[models.TokenBalance](t, rr).Tokens
	}

	t.Run("no tokens, no upstream call", func(t *testing.T) {
		testDrawer.set(charizard, nil)
		rr := doRequest(t, http.MethodGet, "/api/random-card", user.Token, nil)
		requireError(t, rr, http.StatusBadRequest, "not enough tokens")
		require.Zero(t, testDrawer.callCount())
	})

	giveTokens(t, user, 2)

	t.Run("successful draw costs one token", func(t *testing.T) {
		testDrawer.set(charizard, nil)
		rr := doRequest(t, http.MethodGet, "/api/random-card", user.Token, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		resp := decodeBody[DrawResponse](t, rr)
		require.Len(t, resp.Data, 1)
		require.Equal(t, "Charizard", resp.Data[0].Name)
		require.Equal(t, 1, resp.Tokens)
		require.Equal(t, 1, balance())
	})

	t.Run("upstream status is relayed and nothing is charged", func(t *testing.T) {
		testDrawer.set(nil, &catalog.StatusError{StatusCode: http.StatusServiceUnavailable, Body: "maintenance"})
		rr := doRequest(t, http.MethodGet, "/api/random-card", user.Token, nil)
		body := requireError(t, rr, http.StatusServiceUnavailable, "card catalog error")
		require.Equal(t, "maintenance", body.Details["body"])
		require.Equal(t, 1, balance())
	})

	t.Run("catalog rejecting our api key is a bad gateway", func(t *testing.T) {
		testDrawer.set(nil, &catalog.StatusError{StatusCode: http.StatusUnauthorized, Body: "invalid api key"})
		rr := doRequest(t, http.MethodGet, "/api/random-card", user.Token, nil)
		body := requireError(t, rr, http.StatusBadGateway, "card catalog error")
		require.Equal(t, "UPSTREAM_ERROR", string(body.Code))
		require.EqualValues(t, http.StatusUnauthorized, body.Details["status"])
		require.Equal(t, 1, balance())
	})

	t.Run("unreachable catalog", func(t *testing.T) {
		testDrawer.set(nil, errors.Join(catalog.ErrUnavailable, errors.New("dial tcp: connection refused")))
		rr := doRequest(t, http.MethodGet, "/api/random-card", user.Token, nil)
		requireError(t, rr, http.StatusInternalServerError, "failed to fetch card from catalog")
		require.Equal(t, 1, balance())
	})

	t.Run("draw does not save", func(t *testing.T) {
		rr := doRequest(t, http.MethodGet, "/api/cards", user.Token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Empty(t, decodeBody[[]models.Card](t, rr))
	})
}
