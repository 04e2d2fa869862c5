package models

import (
	"encoding/json"
	"time"
)

const (
	EventCardSaved     = "card_saved"
	EventCardDrawn     = "card_drawn"
	EventTokensClaimed = "tokens_claimed"
)

type Event struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	EventTime time.Time       `json:"event_time"`
	Payload   json.RawMessage `json:"payload"`
}
