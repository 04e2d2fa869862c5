package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"serwer-kart/internal/apperrors"
	"serwer-kart/internal/catalog"
	"serwer-kart/internal/collection"
	"serwer-kart/internal/database"
	"serwer-kart/internal/models"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jaevor/go-nanoid"
)

const cardIDLength = 21

type SaveCardResponse struct {
	Message string      `json:"message" example:"card saved"`
	Card    models.Card `json:"card"`
}

type DrawResponse struct {
	Data   []models.CardDraft `json:"data"`
	Tokens int                `json:"tokens" example:"4"`
}

func (s *Server) generateUniqueID(ctx context.Context) (string, error) {
	maxRetries := 10

	generateID, err := nanoid.Standard(cardIDLength)
	if err != nil {
		return "", fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}

	for i := 0; i < maxRetries; i++ {
		id := generateID()
		exists, err := s.store.CardExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check for card existence: %w", err)
		}
		if !exists {
			return id, nil
		}
	}

	return "", fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}

// @Summary      List saved cards
// @Description  Returns the caller's cards in the order they were saved.
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Card
// @Failure      401  {object}  apperrors.ErrorResponse
// @Router       /cards [get]
func (s *Server) ListCardsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	cards, err := s.store.ListCardsByOwner(r.Context(), claims.UserID)
	if err != nil {
		apperrors.WriteError(w, r, apperrors.Internal("failed to fetch cards").WithCause(err))
		return
	}

	apperrors.WriteJSON(w, http.StatusOK, cards)
}

// @Summary      Save a card
// @Description  Saves a drawn card to the caller's collection. Missing type becomes "Unknown".
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        card  body      models.CardDraft  true  "Card to save"
// @Success      201   {object}  SaveCardResponse
// @Failure      400   {object}  apperrors.ErrorResponse
// @Failure      401   {object}  apperrors.ErrorResponse
// @Router       /cards [post]
func (s *Server) CreateCardHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req models.CardDraft
	if err := decodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		apperrors.WriteError(w, r, apperrors.Validation("card name cannot be empty"))
		return
	}
	catalogIndex := 0
	if req.CatalogIndex != nil {
		if *req.CatalogIndex < 0 {
			apperrors.WriteError(w, r, apperrors.Validation("catalogIndex cannot be negative"))
			return
		}
		catalogIndex = *req.CatalogIndex
	}

	id, err := s.generateUniqueID(r.Context())
	if err != nil {
		apperrors.WriteError(w, r, apperrors.Internal("failed to save card").WithCause(err))
		return
	}

	card, err := s.store.CreateCard(r.Context(), database.CreateCardParams{
		ID:           id,
		OwnerID:      claims.UserID,
		Name:         req.Name,
		Type:         strings.TrimSpace(req.Type),
		ImageURL:     strings.TrimSpace(req.ImageURL),
		CatalogIndex: catalogIndex,
	})
	if err != nil {
		if errors.Is(err, database.ErrOwnerNotFound) {
			apperrors.WriteError(w, r, apperrors.Unauthorized("invalid or expired token").WithCause(err))
			return
		}
		apperrors.WriteError(w, r, apperrors.Internal("failed to save card").WithCause(err))
		return
	}

	if _, err := s.store.LogEvent(r.Context(), claims.UserID, models.EventCardSaved, card); err != nil {
		slog.WarnContext(r.Context(), "failed to journal saved card", "card_id", card.ID, "error", err)
	}

	apperrors.WriteJSON(w, http.StatusCreated, SaveCardResponse{Message: "card saved", Card: *card})
}

// @Summary      Get a saved card
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        cardId  path      string  true  "Card ID"
// @Success      200     {object}  models.Card
// @Failure      404     {object}  apperrors.ErrorResponse
// @Router       /cards/{cardId} [get]
func (s *Server) GetCardHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	cardID := chi.URLParam(r, "cardId")

	if len(cardID) != cardIDLength {
		apperrors.WriteError(w, r, apperrors.NotFound("card"))
		return
	}

	card, err := s.store.GetCardByID(r.Context(), cardID, claims.UserID)
	if err != nil {
		apperrors.WriteError(w, r, apperrors.Internal("failed to fetch card").WithCause(err))
		return
	}
	if card == nil {
		apperrors.WriteError(w, r, apperrors.NotFound("card"))
		return
	}

	apperrors.WriteJSON(w, http.StatusOK, card)
}

// @Summary      Get the collection grouped by generation
// @Description  Every generation label is present, in saved order within each bucket.
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string][]models.Card
// @Failure      401  {object}  apperrors.ErrorResponse
// @Router       /collections-grouped [get]
func (s *Server) GroupedCollectionHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	cards, err := s.store.ListCardsByOwner(r.Context(), claims.UserID)
	if err != nil {
		apperrors.WriteError(w, r, apperrors.Internal("failed to group cards").WithCause(err))
		return
	}

	apperrors.WriteJSON(w, http.StatusOK, collection.Group(cards))
}

// @Summary      Draw a random card
// @Description  Costs tokens. The balance is checked before the catalog call and charged only after a successful draw.
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  DrawResponse
// @Failure      400  {object}  apperrors.ErrorResponse "not enough tokens"
// @Failure      401  {object}  apperrors.ErrorResponse
// @Failure      500  {object}  apperrors.ErrorResponse "catalog unreachable"
// @Failure      502  {object}  apperrors.ErrorResponse
// @Router       /random-card [get]
func (s *Server) RandomCardHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	cost := s.drawCost()

	user, err := s.accounts.GetUser(r.Context(), claims.UserID)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	if user.Tokens < cost {
		cardDrawsTotal.WithLabelValues("insufficient_tokens").Inc()
		apperrors.WriteError(w, r, apperrors.InsufficientTokens(user.Tokens, cost))
		return
	}

	draft, err := s.catalog.DrawRandomCard(r.Context())
	if err != nil {
		cardDrawsTotal.WithLabelValues("upstream_error").Inc()
		apperrors.WriteError(w, r, catalogError(err))
		return
	}

	tokens, spent, err := s.store.ChargeDraw(r.Context(), claims.UserID, cost, draft)
	if err != nil {
		apperrors.WriteError(w, r, apperrors.Internal("failed to charge draw").WithCause(err))
		return
	}
	if !spent {
		// balance went below cost while the catalog call was in flight
		cardDrawsTotal.WithLabelValues("insufficient_tokens").Inc()
		apperrors.WriteError(w, r, apperrors.InsufficientTokens(0, cost))
		return
	}
	cardDrawsTotal.WithLabelValues("ok").Inc()

	apperrors.WriteJSON(w, http.StatusOK, DrawResponse{Data: []models.CardDraft{*draft}, Tokens: tokens})
}

func catalogError(err error) error {
	var statusErr *catalog.StatusError
	switch {
	case errors.As(err, &statusErr):
		return apperrors.Upstream(statusErr.StatusCode, statusErr.Body).WithCause(err)
	case errors.Is(err, catalog.ErrEmptyPage):
		return apperrors.New(apperrors.KindUpstream, "card catalog returned no cards", http.StatusBadGateway).WithCause(err)
	default:
		return apperrors.UpstreamUnavailable().WithCause(err)
	}
}
