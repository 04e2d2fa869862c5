package database

import (
	"context"
	"encoding/json"
	"fmt"
	"serwer-kart/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Publisher fans journal entries out to a user's live connections.
type Publisher interface {
	PublishEvent(userID uuid.UUID, eventData []byte)
}

type Store struct {
	pool *pgxpool.Pool
	*Queries
	publisher Publisher
}

func NewStore(pool *pgxpool.Pool, publisher Publisher) *Store {
	return &Store{
		pool:      pool,
		Queries:   New(pool),
		publisher: publisher,
	}
}

func (s *Store) ExecTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := New(tx)
	err = fn(q)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

// LogEvent journals the event and pushes it to the user's open sockets.
func (s *Store) LogEvent(ctx context.Context, userID uuid.UUID, eventType string, payload interface{}) (*models.Event, error) {
	event, err := s.Queries.LogEvent(ctx, userID, eventType, payload)
	if err != nil {
		return nil, err
	}
	if err := s.publish(userID, event); err != nil {
		return nil, err
	}
	return event, nil
}

// ChargeDraw takes cost tokens and journals the drawn card in one transaction.
// spent is false, with nothing written, when the balance is below cost.
func (s *Store) ChargeDraw(ctx context.Context, userID uuid.UUID, cost int, draft *models.CardDraft) (tokens int, spent bool, err error) {
	var event *models.Event
	err = s.ExecTx(ctx, func(q *Queries) error {
		tokens, spent, err = q.SpendTokens(ctx, userID, cost)
		if err != nil || !spent {
			return err
		}
		event, err = q.LogEvent(ctx, userID, models.EventCardDrawn, draft)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	if event != nil {
		if err := s.publish(userID, event); err != nil {
			return tokens, spent, err
		}
	}
	return tokens, spent, nil
}

func (s *Store) publish(userID uuid.UUID, event *models.Event) error {
	if s.publisher == nil {
		return nil
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	s.publisher.PublishEvent(userID, eventBytes)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}
