package query

import (
	"context"
	"fmt"

	"flashcards/pkg/protocol"
)

// Decks fetches the deck list through c.
func Decks(ctx context.Context, c *Cache) ([]protocol.Deck, error) {
	return fetchAs[[]protocol.Deck](ctx, c, DecksKey())
}

// Deck fetches one deck through c. An empty id yields ErrDisabled.
func Deck(ctx context.Context, c *Cache, id string) (*protocol.Deck, error) {
	return fetchAs[*protocol.Deck](ctx, c, DeckKey(id))
}

// Cards fetches a deck's cards through c. An empty deckID yields ErrDisabled.
func Cards(ctx context.Context, c *Cache, deckID string) ([]protocol.Card, error) {
	return fetchAs[[]protocol.Card](ctx, c, CardsKey(deckID))
}

// Card fetches one card through c.
func Card(ctx context.Context, c *Cache, deckID, cardID string) (*protocol.Card, error) {
	return fetchAs[*protocol.Card](ctx, c, CardKey(deckID, cardID))
}

// Value returns the entry's value as T, if it holds one.
func Value[T any](e Entry) (T, bool) {
	v, ok := e.Value.(T)
	return v, ok && e.HasValue
}

func fetchAs[T any](ctx context.Context, c *Cache, key Key) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %s: unexpected value %T", key, v)
	}
	return out, nil
}
