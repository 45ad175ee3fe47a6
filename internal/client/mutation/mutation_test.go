package mutation

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashcards/internal/client/events"
	"flashcards/internal/client/query"
	"flashcards/pkg/protocol"
)

type fakeWriter struct {
	err   error
	calls []string
}

func (f *fakeWriter) Create(ctx context.Context, req protocol.CreateDeckRequest) (*protocol.Deck, error) {
	f.calls = append(f.calls, "create-deck")
	if f.err != nil {
		return nil, f.err
	}
	return &protocol.Deck{ID: "d3", Name: req.Name}, nil
}

func (f *fakeWriter) Update(ctx context.Context, id string, req protocol.UpdateDeckRequest) (*protocol.Deck, error) {
	f.calls = append(f.calls, "update-deck "+id)
	if f.err != nil {
		return nil, f.err
	}
	return &protocol.Deck{ID: id}, nil
}

func (f *fakeWriter) Delete(ctx context.Context, id string) error {
	f.calls = append(f.calls, "delete-deck "+id)
	return f.err
}

type fakeCardWriter struct{ fakeWriter }

func (f *fakeCardWriter) Create(ctx context.Context, deckID string, req protocol.CreateCardRequest) (*protocol.Card, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &protocol.Card{ID: "c9", DeckID: deckID, Front: req.Front, Back: req.Back}, nil
}

func (f *fakeCardWriter) Update(ctx context.Context, deckID, cardID string, req protocol.UpdateCardRequest) (*protocol.Card, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &protocol.Card{ID: cardID, DeckID: deckID}, nil
}

func (f *fakeCardWriter) Delete(ctx context.Context, deckID, cardID string) error {
	return f.err
}

var seeded = []query.Key{
	query.DecksKey(),
	query.DeckKey("d1"),
	query.CardsKey("d1"),
	query.CardKey("d1", "c1"),
	query.DeckKey("d2"),
	query.CardsKey("d2"),
}

// setup returns a coordinator over a cache holding a fresh value for every seeded key.
func setup(t *testing.T, err error) (*Coordinator, *query.Cache, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	cache := query.New(query.FetcherFunc(func(ctx context.Context, key query.Key) (any, error) {
		return key.String(), nil
	}), query.WithEventBus(bus))
	t.Cleanup(cache.Close)

	for _, k := range seeded {
		_, ferr := cache.Fetch(context.Background(), k)
		require.NoError(t, ferr)
	}
	decks := &fakeWriter{err: err}
	cards := &fakeCardWriter{fakeWriter{err: err}}
	return New(decks, cards, cache, bus), cache, bus
}

func staleKeys(cache *query.Cache) []string {
	var out []string
	for _, k := range seeded {
		if cache.Peek(k).Stale {
			out = append(out, k.String())
		}
	}
	sort.Strings(out)
	return out
}

func TestCoordinator_InvalidatesOperationKeys(t *testing.T) {
	all := []string{"decks", "decks/d1", "decks/d1/cards", "decks/d1/cards/c1", "decks/d2", "decks/d2/cards"}
	d1Cards := []string{"decks/d1/cards", "decks/d1/cards/c1"}
	ctx := context.Background()
	name := "renamed"
	back := "new back"

	tests := []struct {
		name string
		run  func(m *Coordinator) error
		want []string
	}{
		{"create deck", func(m *Coordinator) error {
			_, err := m.CreateDeck(ctx, protocol.CreateDeckRequest{Name: "Three"})
			return err
		}, all},
		{"update deck", func(m *Coordinator) error {
			_, err := m.UpdateDeck(ctx, "d1", protocol.UpdateDeckRequest{Name: &name})
			return err
		}, all},
		{"delete deck", func(m *Coordinator) error {
			return m.DeleteDeck(ctx, "d1")
		}, all},
		{"create card", func(m *Coordinator) error {
			_, err := m.CreateCard(ctx, "d1", protocol.CreateCardRequest{Front: "q", Back: "a"})
			return err
		}, d1Cards},
		{"update card", func(m *Coordinator) error {
			_, err := m.UpdateCard(ctx, "d1", "c1", protocol.UpdateCardRequest{Back: &back})
			return err
		}, d1Cards},
		{"delete card", func(m *Coordinator) error {
			return m.DeleteCard(ctx, "d1", "c1")
		}, d1Cards},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cache, _ := setup(t, nil)
			require.NoError(t, tt.run(m))
			assert.Equal(t, tt.want, staleKeys(cache))
		})
	}
}

func TestCoordinator_FailureLeavesCacheUntouched(t *testing.T) {
	serverErr := errors.New("500 internal")
	ctx := context.Background()

	m, cache, bus := setup(t, serverErr)
	sub := bus.SubscribeFunc(func(ev events.Event) bool { return ev.Type == events.EventMutationError })
	defer bus.Unsubscribe(sub)

	_, err := m.CreateDeck(ctx, protocol.CreateDeckRequest{Name: "x"})
	assert.Same(t, serverErr, err)
	assert.Same(t, serverErr, m.DeleteDeck(ctx, "d1"))
	_, err = m.CreateCard(ctx, "d1", protocol.CreateCardRequest{Front: "q", Back: "a"})
	assert.Same(t, serverErr, err)
	assert.Same(t, serverErr, m.DeleteCard(ctx, "d1", "c1"))

	assert.Empty(t, staleKeys(cache))
	for _, k := range seeded {
		assert.Equal(t, k.String(), cache.Peek(k).Value, "entry %s must keep its value", k)
	}

	ev := <-sub
	data := ev.Data.(events.MutationData)
	assert.Equal(t, OpCreateDeck, data.Op)
	assert.Same(t, serverErr, data.Err)
}

func TestCoordinator_CreateCardDoesNotTouchOtherDeck(t *testing.T) {
	m, cache, _ := setup(t, nil)

	_, err := m.CreateCard(context.Background(), "d1", protocol.CreateCardRequest{Front: "q", Back: "a"})
	require.NoError(t, err)

	assert.True(t, cache.Peek(query.CardsKey("d1")).Stale)
	assert.False(t, cache.Peek(query.CardsKey("d2")).Stale)
	assert.False(t, cache.Peek(query.DecksKey()).Stale)
}

func TestCoordinator_PublishesSuccess(t *testing.T) {
	m, _, bus := setup(t, nil)
	sub := bus.SubscribeFunc(func(ev events.Event) bool { return ev.Type == events.EventMutationSuccess })
	defer bus.Unsubscribe(sub)

	_, err := m.UpdateCard(context.Background(), "d1", "c1", protocol.UpdateCardRequest{})
	require.NoError(t, err)

	data := (<-sub).Data.(events.MutationData)
	assert.Equal(t, OpUpdateCard, data.Op)
	assert.Equal(t, [][]string{{"decks", "d1", "cards"}, {"decks", "d1", "cards", "c1"}}, data.Invalidated)
}
