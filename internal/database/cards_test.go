package database

import (
	"context"
	"serwer-kart/internal/models"
	"testing"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"github.com/stretchr/testify/require"
)

func createTestCard(t *testing.T, ownerID uuid.UUID, name string, index int) *models.Card {
	t.Helper()
	generateID, err := nanoid.Standard(21)
	require.NoError(t, err)

	card, err := testStore.CreateCard(context.Background(), CreateCardParams{
		ID:           generateID(),
		OwnerID:      ownerID,
		Name:         name,
		Type:         "Fire",
		ImageURL:     "https://images.example/" + name + ".png",
		CatalogIndex: index,
	})
	require.NoError(t, err)
	return card
}

func TestCreateCard(t *testing.T) {
	user := createRandomUser(t)
	card := createTestCard(t, user.ID, "Charmander", 4)

	require.Len(t, card.ID, 21)
	require.Equal(t, user.ID, card.OwnerID)
	require.Equal(t, "Charmander", card.Name)
	require.Equal(t, 4, card.CatalogIndex)

	exists, err := testStore.CardExists(context.Background(), card.ID)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestCreateCard_DefaultType(t *testing.T) {
	user := createRandomUser(t)

	card, err := testStore.CreateCard(context.Background(), CreateCardParams{
		ID:      "no-type-card-000000000",
		OwnerID: user.ID,
		Name:    "Missingno",
	})
	require.NoError(t, err)
	require.Equal(t, models.UnknownCardType, card.Type)
	require.Equal(t, 0, card.CatalogIndex)
}

func TestCreateCard_UnknownOwner(t *testing.T) {
	_, err := testStore.CreateCard(context.Background(), CreateCardParams{
		ID:      "orphan-card-0000000000",
		OwnerID: uuid.New(),
		Name:    "Ghost",
	})
	require.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestListCardsByOwner_IsolatedAndOrdered(t *testing.T) {
	ctx := context.Background()
	alice := createRandomUser(t)
	bob := createRandomUser(t)

	first := createTestCard(t, alice.ID, "Bulbasaur", 1)
	second := createTestCard(t, alice.ID, "Chikorita", 152)
	createTestCard(t, bob.ID, "Treecko", 252)

	cards, err := testStore.ListCardsByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	require.Equal(t, first.ID, cards[0].ID)
	require.Equal(t, second.ID, cards[1].ID)

	for _, card := range cards {
		require.Equal(t, alice.ID, card.OwnerID)
	}

	empty, err := testStore.ListCardsByOwner(ctx, uuid.New())
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestGetCardByID_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	alice := createRandomUser(t)
	bob := createRandomUser(t)
	card := createTestCard(t, alice.ID, "Squirtle", 7)

	found, err := testStore.GetCardByID(ctx, card.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, card.Name, found.Name)

	foreign, err := testStore.GetCardByID(ctx, card.ID, bob.ID)
	require.NoError(t, err)
	require.Nil(t, foreign)
}

func TestDeleteCardsByOwner(t *testing.T) {
	ctx := context.Background()
	alice := createRandomUser(t)
	bob := createRandomUser(t)
	createTestCard(t, alice.ID, "Pidgey", 16)
	createTestCard(t, alice.ID, "Rattata", 19)
	createTestCard(t, bob.ID, "Spearow", 21)

	deleted, err := testStore.DeleteCardsByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	left, err := testStore.ListCardsByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Empty(t, left)

	bobs, err := testStore.ListCardsByOwner(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobs, 1)
}
