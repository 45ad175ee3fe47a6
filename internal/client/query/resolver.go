package query

import (
	"context"
	"fmt"

	"flashcards/pkg/protocol"
)

// DeckReader is the read side of the deck service.
type DeckReader interface {
	List(ctx context.Context) ([]protocol.Deck, error)
	Get(ctx context.Context, id string) (*protocol.Deck, error)
}

// CardReader is the read side of the card service.
type CardReader interface {
	List(ctx context.Context, deckID string) ([]protocol.Card, error)
	Get(ctx context.Context, deckID, cardID string) (*protocol.Card, error)
}

// Resolver routes cache keys to service reads.
type Resolver struct {
	decks DeckReader
	cards CardReader
}

// NewResolver creates a Resolver.
func NewResolver(decks DeckReader, cards CardReader) *Resolver {
	return &Resolver{decks: decks, cards: cards}
}

// Fetch implements Fetcher.
//
//	decks                    -> []protocol.Deck
//	decks/{id}               -> *protocol.Deck
//	decks/{id}/cards         -> []protocol.Card
//	decks/{id}/cards/{card}  -> *protocol.Card
func (r *Resolver) Fetch(ctx context.Context, key Key) (any, error) {
	if len(key) == 0 || key[0] != "decks" {
		return nil, fmt.Errorf("unknown query key %q", key.String())
	}

	switch {
	case len(key) == 1:
		return r.decks.List(ctx)
	case len(key) == 2:
		return r.decks.Get(ctx, key[1])
	case len(key) == 3 && key[2] == "cards":
		return r.cards.List(ctx, key[1])
	case len(key) == 4 && key[2] == "cards":
		return r.cards.Get(ctx, key[1], key[3])
	default:
		return nil, fmt.Errorf("unknown query key %q", key.String())
	}
}
