package services

import (
	"context"
	"net/url"

	"flashcards/internal/client/api"
	"flashcards/internal/client/validate"
	"flashcards/pkg/protocol"
)

// DeckService maps deck operations onto REST calls.
type DeckService struct {
	client *api.Client
}

// NewDeckService creates a DeckService.
func NewDeckService(client *api.Client) *DeckService {
	return &DeckService{client: client}
}

func deckPath(id string) string {
	return "/decks/" + url.PathEscape(id)
}

// List returns all decks of the current user.
func (s *DeckService) List(ctx context.Context) ([]protocol.Deck, error) {
	var decks []protocol.Deck
	if err := s.client.Get(ctx, "/decks", &decks); err != nil {
		return nil, err
	}
	return decks, nil
}

// Get returns one deck.
func (s *DeckService) Get(ctx context.Context, id string) (*protocol.Deck, error) {
	var deck protocol.Deck
	if err := s.client.Get(ctx, deckPath(id), &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

// Create creates a deck.
func (s *DeckService) Create(ctx context.Context, req protocol.CreateDeckRequest) (*protocol.Deck, error) {
	if err := validate.Deck(req.Name); err != nil {
		return nil, err
	}
	var deck protocol.Deck
	if err := s.client.Post(ctx, "/decks", req, &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

// Update applies a partial update.
func (s *DeckService) Update(ctx context.Context, id string, req protocol.UpdateDeckRequest) (*protocol.Deck, error) {
	if err := validate.DeckUpdate(req.Name, req.Description); err != nil {
		return nil, err
	}
	var deck protocol.Deck
	if err := s.client.Patch(ctx, deckPath(id), req, &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

// Delete removes a deck and, server side, its cards.
func (s *DeckService) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, deckPath(id))
}
