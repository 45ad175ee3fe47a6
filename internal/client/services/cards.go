package services

import (
	"context"
	"net/url"

	"flashcards/internal/client/api"
	"flashcards/internal/client/validate"
	"flashcards/pkg/protocol"
)

// CardService maps card operations onto REST calls scoped by deck.
type CardService struct {
	client *api.Client
}

// NewCardService creates a CardService.
func NewCardService(client *api.Client) *CardService {
	return &CardService{client: client}
}

func cardsPath(deckID string) string {
	return deckPath(deckID) + "/cards"
}

func cardPath(deckID, cardID string) string {
	return cardsPath(deckID) + "/" + url.PathEscape(cardID)
}

// List returns every card in a deck.
func (s *CardService) List(ctx context.Context, deckID string) ([]protocol.Card, error) {
	var cards []protocol.Card
	if err := s.client.Get(ctx, cardsPath(deckID), &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// Get returns one card.
func (s *CardService) Get(ctx context.Context, deckID, cardID string) (*protocol.Card, error) {
	var card protocol.Card
	if err := s.client.Get(ctx, cardPath(deckID, cardID), &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// Create adds a card to a deck.
func (s *CardService) Create(ctx context.Context, deckID string, req protocol.CreateCardRequest) (*protocol.Card, error) {
	if err := validate.Card(req.Front, req.Back); err != nil {
		return nil, err
	}
	var card protocol.Card
	if err := s.client.Post(ctx, cardsPath(deckID), req, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// Update applies a partial update to a card.
func (s *CardService) Update(ctx context.Context, deckID, cardID string, req protocol.UpdateCardRequest) (*protocol.Card, error) {
	if err := validate.CardUpdate(req.Front, req.Back); err != nil {
		return nil, err
	}
	var card protocol.Card
	if err := s.client.Patch(ctx, cardPath(deckID, cardID), req, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// Delete removes a card.
func (s *CardService) Delete(ctx context.Context, deckID, cardID string) error {
	return s.client.Delete(ctx, cardPath(deckID, cardID))
}
