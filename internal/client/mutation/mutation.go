// Package mutation runs writes against the server and keeps the query cache
// consistent with them. Invalidation happens only after the server confirms a
// write; a failed write leaves every cache entry untouched.
package mutation

import (
	"context"

	"flashcards/internal/client/events"
	"flashcards/internal/client/query"
	"flashcards/pkg/protocol"
)

// Operation names carried in mutation events.
const (
	OpCreateDeck = "create-deck"
	OpUpdateDeck = "update-deck"
	OpDeleteDeck = "delete-deck"
	OpCreateCard = "create-card"
	OpUpdateCard = "update-card"
	OpDeleteCard = "delete-card"
)

// DeckWriter is the write side of the deck service.
type DeckWriter interface {
	Create(ctx context.Context, req protocol.CreateDeckRequest) (*protocol.Deck, error)
	Update(ctx context.Context, id string, req protocol.UpdateDeckRequest) (*protocol.Deck, error)
	Delete(ctx context.Context, id string) error
}

// CardWriter is the write side of the card service.
type CardWriter interface {
	Create(ctx context.Context, deckID string, req protocol.CreateCardRequest) (*protocol.Card, error)
	Update(ctx context.Context, deckID, cardID string, req protocol.UpdateCardRequest) (*protocol.Card, error)
	Delete(ctx context.Context, deckID, cardID string) error
}

// Invalidator marks cache entries stale by key prefix.
type Invalidator interface {
	Invalidate(prefix query.Key) int
}

// Coordinator pairs each write with the cache keys it affects.
type Coordinator struct {
	decks DeckWriter
	cards CardWriter
	cache Invalidator
	bus   *events.Bus
}

// New creates a Coordinator. bus may be nil.
func New(decks DeckWriter, cards CardWriter, cache Invalidator, bus *events.Bus) *Coordinator {
	return &Coordinator{decks: decks, cards: cards, cache: cache, bus: bus}
}

// Affected returns the key prefixes a successful op invalidates.
func Affected(op, deckID, cardID string) []query.Key {
	switch op {
	case OpCreateDeck, OpDeleteDeck:
		return []query.Key{query.DecksKey()}
	case OpUpdateDeck:
		return []query.Key{query.DecksKey(), query.DeckKey(deckID)}
	case OpCreateCard, OpDeleteCard:
		return []query.Key{query.CardsKey(deckID)}
	case OpUpdateCard:
		return []query.Key{query.CardsKey(deckID), query.CardKey(deckID, cardID)}
	default:
		return nil
	}
}

// CreateDeck creates a deck and invalidates [decks].
func (m *Coordinator) CreateDeck(ctx context.Context, req protocol.CreateDeckRequest) (*protocol.Deck, error) {
	deck, err := m.decks.Create(ctx, req)
	if err := m.settle(OpCreateDeck, err, Affected(OpCreateDeck, "", "")); err != nil {
		return nil, err
	}
	return deck, nil
}

// UpdateDeck patches a deck and invalidates [decks] and [decks id].
func (m *Coordinator) UpdateDeck(ctx context.Context, id string, req protocol.UpdateDeckRequest) (*protocol.Deck, error) {
	deck, err := m.decks.Update(ctx, id, req)
	if err := m.settle(OpUpdateDeck, err, Affected(OpUpdateDeck, id, "")); err != nil {
		return nil, err
	}
	return deck, nil
}

// DeleteDeck deletes a deck and invalidates [decks].
func (m *Coordinator) DeleteDeck(ctx context.Context, id string) error {
	err := m.decks.Delete(ctx, id)
	return m.settle(OpDeleteDeck, err, Affected(OpDeleteDeck, id, ""))
}

// CreateCard adds a card and invalidates [decks deckID cards].
func (m *Coordinator) CreateCard(ctx context.Context, deckID string, req protocol.CreateCardRequest) (*protocol.Card, error) {
	card, err := m.cards.Create(ctx, deckID, req)
	if err := m.settle(OpCreateCard, err, Affected(OpCreateCard, deckID, "")); err != nil {
		return nil, err
	}
	return card, nil
}

// UpdateCard patches a card and invalidates [decks deckID cards] and
// [decks deckID cards cardID].
func (m *Coordinator) UpdateCard(ctx context.Context, deckID, cardID string, req protocol.UpdateCardRequest) (*protocol.Card, error) {
	card, err := m.cards.Update(ctx, deckID, cardID, req)
	if err := m.settle(OpUpdateCard, err, Affected(OpUpdateCard, deckID, cardID)); err != nil {
		return nil, err
	}
	return card, nil
}

// DeleteCard deletes a card and invalidates [decks deckID cards].
func (m *Coordinator) DeleteCard(ctx context.Context, deckID, cardID string) error {
	err := m.cards.Delete(ctx, deckID, cardID)
	return m.settle(OpDeleteCard, err, Affected(OpDeleteCard, deckID, cardID))
}

// settle invalidates keys when err is nil and returns err unchanged.
func (m *Coordinator) settle(op string, err error, keys []query.Key) error {
	if err != nil {
		m.publish(events.EventMutationError, events.MutationData{Op: op, Err: err})
		return err
	}

	invalidated := make([][]string, 0, len(keys))
	for _, k := range keys {
		m.cache.Invalidate(k)
		invalidated = append(invalidated, k)
	}
	m.publish(events.EventMutationSuccess, events.MutationData{Op: op, Invalidated: invalidated})
	return nil
}

func (m *Coordinator) publish(t events.EventType, data events.MutationData) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.Event{Type: t, Data: data})
}
