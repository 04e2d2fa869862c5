package database

import (
	"context"
	"errors"
	"serwer-kart/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrOwnerNotFound = errors.New("card owner does not exist")

const cardColumns = `id, owner_id, name, type, image_url, catalog_index, created_at`

func scanCard(row pgx.Row) (*models.Card, error) {
	var card models.Card
	err := row.Scan(
		&card.ID,
		&card.OwnerID,
		&card.Name,
		&card.Type,
		&card.ImageURL,
		&card.CatalogIndex,
		&card.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

type CreateCardParams struct {
	ID           string
	OwnerID      uuid.UUID
	Name         string
	Type         string
	ImageURL     string
	CatalogIndex int
}

func (q *Queries) CreateCard(ctx context.Context, arg CreateCardParams) (*models.Card, error) {
	if arg.Type == "" {
		arg.Type = models.UnknownCardType
	}

	query := `
		INSERT INTO cards (id, owner_id, name, type, image_url, catalog_index)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + cardColumns

	card, err := scanCard(q.db.QueryRow(ctx, query,
		arg.ID, arg.OwnerID, arg.Name, arg.Type, arg.ImageURL, arg.CatalogIndex,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}
	return card, nil
}

func (q *Queries) CardExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM cards WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// GetCardByID only ever matches cards of ownerID; a foreign card looks missing.
func (q *Queries) GetCardByID(ctx context.Context, id string, ownerID uuid.UUID) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 AND owner_id = $2`
	card, err := scanCard(q.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return card, nil
}

// ListCardsByOwner returns cards in the order they were saved.
func (q *Queries) ListCardsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1 ORDER BY seq ASC`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if cards == nil {
		return []models.Card{}, nil
	}

	return cards, nil
}

func (q *Queries) DeleteCardsByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM cards WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
