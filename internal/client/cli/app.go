package cli

import (
	"context"
	"fmt"

	"flashcards/internal/client/api"
	"flashcards/internal/client/config"
	"flashcards/internal/client/events"
	"flashcards/internal/client/logger"
	"flashcards/internal/client/mutation"
	"flashcards/internal/client/query"
	"flashcards/internal/client/services"
	"flashcards/internal/client/session"
	"flashcards/internal/client/tui"
	"flashcards/pkg/protocol"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// app is the client stack for one command invocation.
type app struct {
	cfg       *config.Config
	baseURL   string
	bus       *events.Bus
	store     session.Store
	svc       *services.Services
	cache     *query.Cache
	mutations *mutation.Coordinator
	logSub    <-chan events.Event
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if c.cfgPath != "" {
		config.SetConfigPath(c.cfgPath)
	}
	logger.SetVerbose(c.verbose)

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseURL := cfg.APIURL
	if baseURL == config.DefaultAPIURL && c.buildURL != "" {
		baseURL = c.buildURL
	}
	if c.apiFlag != "" {
		baseURL = c.apiFlag
	}

	bus := events.NewBus()
	store := session.NewFileStore()
	client := api.NewClient(baseURL, store,
		api.WithTimeout(cfg.Timeout),
		api.WithEventBus(bus),
		api.WithUserAgent("flashcards/"+tui.Version),
	)
	svc := services.New(client, store)
	cache := query.New(query.NewResolver(svc.Decks, svc.Cards), query.WithEventBus(bus))

	a := &app{
		cfg:       cfg,
		baseURL:   baseURL,
		bus:       bus,
		store:     store,
		svc:       svc,
		cache:     cache,
		mutations: mutation.New(svc.Decks, svc.Cards, cache, bus),
	}
	if c.verbose {
		a.logSub = bus.SubscribeFunc(func(ev events.Event) bool {
			return ev.Type == events.EventRequestComplete
		})
		go logRequests(a.logSub)
	}
	c.app = a

	logger.Debug("api %s", baseURL)
	return nil
}

func logRequests(sub <-chan events.Event) {
	for ev := range sub {
		if data, ok := ev.Data.(events.RequestData); ok {
			logger.Request(data)
		}
	}
}

func (c *cli) close() {
	if c.app == nil {
		return
	}
	c.app.cache.Close()
	c.app.bus.Close()
}

func (c *cli) baseURL() string {
	if c.app != nil {
		return c.app.baseURL
	}
	return c.buildURL
}

func (c *cli) expireSession() {
	if c.app == nil {
		return
	}
	if err := c.app.store.Clear(); err != nil {
		logger.Warn("clear token: %v", err)
	}
	c.app.cache.Clear()
	c.app.bus.PublishType(events.EventLoggedOut)
}

func (c *cli) tuiDeps() tui.Deps {
	return tui.Deps{
		Cache:          c.app.cache,
		Mutations:      c.app.mutations,
		Bus:            c.app.bus,
		OnUnauthorized: c.expireSession,
	}
}

// loadDeck fetches a deck and its cards in parallel through the cache.
func (a *app) loadDeck(ctx context.Context, deckID string) (*protocol.Deck, []protocol.Card, error) {
	var (
		deck  *protocol.Deck
		cards []protocol.Card
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deck, err = query.Deck(gctx, a.cache, deckID)
		return err
	})
	g.Go(func() error {
		var err error
		cards, err = query.Cards(gctx, a.cache, deckID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return deck, cards, nil
}
