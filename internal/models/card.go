package models

import (
	"time"

	"github.com/google/uuid"
)

// UnknownCardType is stored when a card arrives without a category label.
const UnknownCardType = "Unknown"

type Card struct {
	ID           string    `json:"id" example:"V1StGXR8_Z5jdHi6B-myT"`
	OwnerID      uuid.UUID `json:"ownerId"`
	Name         string    `json:"name" example:"Pikachu"`
	Type         string    `json:"type" example:"Lightning"`
	ImageURL     string    `json:"imageUrl" example:"https://images.pokemontcg.io/base1/58_hires.png"`
	CatalogIndex int       `json:"catalogIndex" example:"25"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CardDraft is a single catalog draw, not yet saved to anyone's collection.
type CardDraft struct {
	Name         string `json:"name" example:"Pikachu"`
	Type         string `json:"type" example:"Lightning"`
	ImageURL     string `json:"imageUrl"`
	CatalogIndex *int   `json:"catalogIndex"`
}
