package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	ResetToken          *string    `json:"-" db:"reset_token"`
	ResetTokenExpiresAt *time.Time `json:"-" db:"reset_token_expires_at"`
	Tokens              int        `json:"tokens" db:"tokens"`
	LastTokenClaim      *time.Time `json:"lastTokenClaim" db:"last_token_claim"`
	CreatedAt           time.Time  `json:"createdAt" db:"created_at"`
}

type TokenBalance struct {
	Tokens         int        `json:"tokens" example:"5"`
	LastTokenClaim *time.Time `json:"lastTokenClaim"`
}
