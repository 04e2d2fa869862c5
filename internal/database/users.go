package database

import (
	"context"
	"errors"
	"serwer-kart/internal/models"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, reset_token, reset_token_expires_at, tokens, last_token_claim, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.ResetToken,
		&user.ResetTokenExpiresAt,
		&user.Tokens,
		&user.LastTokenClaim,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

type CreateUserParams struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	user, err := scanUser(q.db.QueryRow(ctx, query, arg.ID, arg.Email, arg.PasswordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(q.db.QueryRow(ctx, query, email))
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.db.QueryRow(ctx, query, id))
}

func (q *Queries) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	query := `UPDATE users SET reset_token = $2, reset_token_expires_at = $3 WHERE id = $1`
	_, err := q.db.Exec(ctx, query, userID, token, expiresAt)
	return err
}

// ResetPassword swaps the password hash for the holder of an unexpired reset
// token and burns the token. It reports false when no such token exists.
func (q *Queries) ResetPassword(ctx context.Context, token, newPasswordHash string, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_token_expires_at = NULL
		WHERE reset_token = $1 AND reset_token_expires_at > $3
	`
	res, err := q.db.Exec(ctx, query, token, newPasswordHash, now)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ClaimTokens grants amount tokens if the previous claim is at least cooldown
// old. The check and the write are one statement, so concurrent claims for the
// same user cannot both succeed. A nil balance means nothing was granted.
func (q *Queries) ClaimTokens(ctx context.Context, userID uuid.UUID, amount int, now time.Time, cooldown time.Duration) (*models.TokenBalance, error) {
	query := `
		UPDATE users
		SET tokens = tokens + $2, last_token_claim = $3
		WHERE id = $1 AND (last_token_claim IS NULL OR last_token_claim <= $4)
		RETURNING tokens, last_token_claim
	`
	var balance models.TokenBalance
	err := q.db.QueryRow(ctx, query, userID, amount, now, now.Add(-cooldown)).Scan(&balance.Tokens, &balance.LastTokenClaim)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

// SpendTokens takes cost tokens from the balance unless that would make it
// negative. It returns the new balance and whether anything was spent.
func (q *Queries) SpendTokens(ctx context.Context, userID uuid.UUID, cost int) (int, bool, error) {
	query := `
		UPDATE users SET tokens = tokens - $2
		WHERE id = $1 AND tokens >= $2
		RETURNING tokens
	`
	var tokens int
	err := q.db.QueryRow(ctx, query, userID, cost).Scan(&tokens)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return tokens, true, nil
}

func (q *Queries) DeleteUser(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
