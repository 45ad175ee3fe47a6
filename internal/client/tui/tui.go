package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flashcards/internal/client/api"
	"flashcards/internal/client/events"
	"flashcards/internal/client/logger"
	"flashcards/internal/client/mutation"
	"flashcards/internal/client/practice"
	"flashcards/internal/client/query"
	"flashcards/internal/client/services"
	"flashcards/pkg/protocol"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Version can be set at build time
var Version = "dev"

const mutationTimeout = 15 * time.Second

type screen int

const (
	screenDecks screen = iota
	screenDeck
	screenPractice
)

type promptKind int

const (
	promptNone promptKind = iota
	promptDeckName
	promptDeckDescription
	promptCardFront
	promptCardBack
	promptConfirm
)

// Deps are the collaborators the views read from and write through.
type Deps struct {
	Cache     *query.Cache
	Mutations *mutation.Coordinator

	// Bus carries log and request events. Defaults to the cache's bus.
	Bus *events.Bus

	// OnUnauthorized runs once when the server rejects the session.
	OnUnauthorized func()
}

// RequestEntry is the most recent API request, shown in the status line.
type RequestEntry struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
}

type pendingMutation struct {
	op     string
	prompt string
	run    func(ctx context.Context) error
}

// Model is the main Bubble Tea model
type Model struct {
	cache          *query.Cache
	mutations      *mutation.Coordinator
	onUnauthorized func()

	querySub *query.Subscription
	eventSub <-chan events.Event
	bus      *events.Bus

	// Navigation
	screen     screen
	deckID     string
	deckCursor int
	cardCursor int
	flipped    map[string]bool
	session    *practice.Session

	// Input
	prompt  promptKind
	input   textinput.Model
	draft   []string
	confirm pendingMutation

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width  int
	height int

	lastRequest *RequestEntry
	lastLog     string
	notice      string
	lastError   string
	expired     bool
}

// NewModel creates a model showing the deck list.
func NewModel(d Deps) Model {
	bus := d.Bus
	if bus == nil {
		bus = d.Cache.Bus()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		cache:          d.Cache,
		mutations:      d.Mutations,
		onUnauthorized: d.OnUnauthorized,
		querySub:       d.Cache.Subscribe(query.DecksKey()),
		eventSub: bus.SubscribeFunc(func(ev events.Event) bool {
			switch ev.Type {
			case events.EventLog, events.EventError, events.EventRequestComplete:
				return true
			}
			return false
		}),
		bus:     bus,
		screen:  screenDecks,
		flipped: make(map[string]bool),
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
	}
}

// Messages
type queryMsg events.Event
type eventMsg events.Event
type mutationMsg struct {
	op  string
	err error
}

// Commands
func waitForQuery(sub *query.Subscription) tea.Cmd {
	return func() tea.Msg {
		if sub == nil {
			return nil
		}
		event, ok := <-sub.Events()
		if !ok {
			return nil
		}
		return queryMsg(event)
	}
}

func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		if sub == nil {
			return nil
		}
		event, ok := <-sub
		if !ok {
			return nil
		}
		return eventMsg(event)
	}
}

func (m Model) mutate(op string, run func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return mutationMsg{op: op, err: run(ctx)}
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	m.readScreen()
	return tea.Batch(m.spinner.Tick, waitForQuery(m.querySub), waitForEvent(m.eventSub))
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		m.notice = ""
		switch m.screen {
		case screenDeck:
			return m.updateDeck(msg)
		case screenPractice:
			return m.updatePractice(msg)
		default:
			return m.updateDecks(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case queryMsg:
		m = m.handleQueryEvent(events.Event(msg))
		return m, waitForQuery(m.querySub)

	case eventMsg:
		m = m.handleEvent(events.Event(msg))
		return m, waitForEvent(m.eventSub)

	case mutationMsg:
		if msg.err != nil {
			if api.IsUnauthorized(msg.err) {
				return m.expire(), nil
			}
			m.lastError = services.Describe(msg.err)
			return m, nil
		}
		m.lastError = ""
		m.notice = strings.ReplaceAll(msg.op, "-", " ") + ": done"
		// The bus may drop the invalidation under load; stale watched keys
		// refetch here either way.
		m.readScreen()
	}

	return m, nil
}

func (m Model) updateDecks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	decks := m.decks()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.deckCursor > 0 {
			m.deckCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.deckCursor < len(decks)-1 {
			m.deckCursor++
		}
	case key.Matches(msg, m.keys.Open):
		if m.deckCursor < len(decks) {
			m = m.openDeck(decks[m.deckCursor].ID)
		}
	case key.Matches(msg, m.keys.New):
		m.draft = nil
		return m.startPrompt(promptDeckName, "Deck name")
	case key.Matches(msg, m.keys.Delete):
		if m.deckCursor < len(decks) {
			deck := decks[m.deckCursor]
			mut := m.mutations
			m.prompt = promptConfirm
			m.confirm = pendingMutation{
				op:     mutation.OpDeleteDeck,
				prompt: fmt.Sprintf("Delete deck %q and all its cards? (y/n)", deck.Name),
				run: func(ctx context.Context) error {
					return mut.DeleteDeck(ctx, deck.ID)
				},
			}
		}
	case key.Matches(msg, m.keys.Refresh):
		m.refresh()
	}
	return m, nil
}

func (m Model) updateDeck(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cards := m.cards()
	switch {
	case key.Matches(msg, m.keys.Back):
		m.screen = screenDecks
		m.readScreen()
	case key.Matches(msg, m.keys.Up):
		if m.cardCursor > 0 {
			m.cardCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cardCursor < len(cards)-1 {
			m.cardCursor++
		}
	case key.Matches(msg, m.keys.Flip):
		if m.cardCursor < len(cards) {
			id := cards[m.cardCursor].ID
			m.flipped[id] = !m.flipped[id]
		}
	case key.Matches(msg, m.keys.New):
		m.draft = nil
		return m.startPrompt(promptCardFront, "Front")
	case key.Matches(msg, m.keys.Delete):
		if m.cardCursor < len(cards) {
			card := cards[m.cardCursor]
			deckID := m.deckID
			mut := m.mutations
			m.prompt = promptConfirm
			m.confirm = pendingMutation{
				op:     mutation.OpDeleteCard,
				prompt: fmt.Sprintf("Delete card %q? (y/n)", truncate(card.Front, 40)),
				run: func(ctx context.Context) error {
					return mut.DeleteCard(ctx, deckID, card.ID)
				},
			}
		}
	case key.Matches(msg, m.keys.Practice):
		if len(cards) > 0 {
			m.screen = screenPractice
			m.session = practice.New(cards)
		}
	case key.Matches(msg, m.keys.Refresh):
		m.refresh()
	}
	return m, nil
}

func (m Model) updatePractice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.screen = screenDeck
		m.session = nil
		m.readScreen()
		return m, nil
	}
	if m.session == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Next):
		m.session.Next()
	case key.Matches(msg, m.keys.Prev):
		m.session.Previous()
	case key.Matches(msg, m.keys.Flip):
		m.session.Flip()
	case key.Matches(msg, m.keys.Shuffle):
		m.session.Shuffle()
	}
	return m, nil
}

// startPrompt opens a text prompt. Values entered so far stay in m.draft.
func (m Model) startPrompt(kind promptKind, placeholder string) (Model, tea.Cmd) {
	m.prompt = kind
	m.input = newInput(placeholder)
	return m, m.input.Focus()
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 500
	ti.Width = 50
	return ti
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt == promptConfirm {
		m.prompt = promptNone
		if msg.String() == "y" || msg.String() == "Y" {
			return m, m.mutate(m.confirm.op, m.confirm.run)
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = promptNone
		m.input.Blur()
		return m, nil

	case tea.KeyEnter:
		m.draft = append(m.draft, strings.TrimSpace(m.input.Value()))
		mut := m.mutations
		switch m.prompt {
		case promptDeckName:
			return m.startPrompt(promptDeckDescription, "Description (optional)")
		case promptCardFront:
			return m.startPrompt(promptCardBack, "Back")
		case promptDeckDescription:
			req := protocol.CreateDeckRequest{Name: m.draft[0], Description: m.draft[1]}
			m.prompt = promptNone
			return m, m.mutate(mutation.OpCreateDeck, func(ctx context.Context) error {
				_, err := mut.CreateDeck(ctx, req)
				return err
			})
		case promptCardBack:
			deckID := m.deckID
			req := protocol.CreateCardRequest{Front: m.draft[0], Back: m.draft[1]}
			m.prompt = promptNone
			return m, m.mutate(mutation.OpCreateCard, func(ctx context.Context) error {
				_, err := mut.CreateCard(ctx, deckID, req)
				return err
			})
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) openDeck(id string) Model {
	m.screen = screenDeck
	m.deckID = id
	m.cardCursor = 0
	m.flipped = make(map[string]bool)
	m.session = nil
	m.readScreen()
	return m
}

// watched returns the keys the current screen renders.
func (m Model) watched() []query.Key {
	switch m.screen {
	case screenDeck, screenPractice:
		return []query.Key{query.DeckKey(m.deckID), query.CardsKey(m.deckID)}
	default:
		return []query.Key{query.DecksKey()}
	}
}

func (m Model) watches(k query.Key) bool {
	for _, w := range m.watched() {
		if w.Equal(k) {
			return true
		}
	}
	return false
}

// readScreen starts fetches for whatever the current screen shows and is not fresh.
func (m Model) readScreen() {
	for _, k := range m.watched() {
		m.cache.Read(k)
	}
}

func (m Model) refresh() {
	for _, k := range m.watched() {
		m.cache.Invalidate(k)
	}
	m.readScreen()
}

func (m Model) handleQueryEvent(event events.Event) Model {
	k := query.EventKey(event)

	switch event.Type {
	case events.EventQueryInvalidated:
		if m.watches(k) {
			m.cache.Read(k)
		}

	case events.EventQueryCleared:
		m.readScreen()

	case events.EventQueryError:
		if data, ok := event.Data.(events.QueryData); ok && api.IsUnauthorized(data.Err) {
			return m.expire()
		}

	case events.EventQuerySuccess:
		switch {
		case k.Equal(query.DecksKey()):
			m.deckCursor = clampCursor(m.deckCursor, len(m.decks()))
		case m.deckID != "" && k.Equal(query.CardsKey(m.deckID)):
			cards := m.cards()
			m.cardCursor = clampCursor(m.cardCursor, len(cards))
			if m.screen == screenPractice {
				if m.session == nil {
					m.session = practice.New(cards)
				} else {
					m.session.Reload(cards)
				}
			}
		}
	}

	return m
}

func (m Model) handleEvent(event events.Event) Model {
	switch event.Type {
	case events.EventRequestComplete:
		if data, ok := event.Data.(events.RequestData); ok {
			m.lastRequest = &RequestEntry{
				Method:   data.Method,
				Path:     data.Path,
				Status:   data.Status,
				Duration: data.Duration,
			}
		}

	case events.EventLog:
		if data, ok := event.Data.(events.LogData); ok {
			m.lastLog = fmt.Sprintf("[%s] %s", data.Level, data.Message)
		}

	case events.EventError:
		if data, ok := event.Data.(events.ErrorData); ok {
			m.lastError = fmt.Sprintf("%s: %v", data.Context, data.Error)
		}
	}

	return m
}

// expire reports a rejected session once.
func (m Model) expire() Model {
	m.lastError = "session expired, run login"
	if !m.expired {
		m.expired = true
		if m.onUnauthorized != nil {
			m.onUnauthorized()
		}
	}
	return m
}

func (m Model) decks() []protocol.Deck {
	decks, _ := query.Value[[]protocol.Deck](m.cache.Peek(query.DecksKey()))
	return decks
}

func (m Model) deck() *protocol.Deck {
	deck, _ := query.Value[*protocol.Deck](m.cache.Peek(query.DeckKey(m.deckID)))
	return deck
}

func (m Model) cards() []protocol.Card {
	cards, _ := query.Value[[]protocol.Card](m.cache.Peek(query.CardsKey(m.deckID)))
	return cards
}

func (m Model) close() {
	if m.querySub != nil {
		m.querySub.Close()
	}
	if m.eventSub != nil {
		m.bus.Unsubscribe(m.eventSub)
	}
}

// View renders the model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.screen {
	case screenDeck:
		b.WriteString(m.renderDeck())
	case screenPractice:
		b.WriteString(m.renderPractice())
	default:
		b.WriteString(m.renderDecks())
	}
	b.WriteString("\n")

	if m.prompt != promptNone {
		b.WriteString("\n")
		b.WriteString(m.renderPrompt())
		b.WriteString("\n")
	}

	if m.lastError != "" {
		b.WriteString("\n" + errorStyle.Render(m.lastError) + "\n")
	} else if m.notice != "" {
		b.WriteString("\n" + successStyle.Render(m.notice) + "\n")
	}

	if line := m.renderStatusLine(); line != "" {
		b.WriteString("\n" + line)
	}
	b.WriteString("\n" + m.help.View(m.keys.forScreen(m.screen, len(m.cards()) > 0)))

	return b.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("flashcards")
	hint := hintStyle.Render("(q to quit, ? for help)")

	spacing := ""
	if m.width > 0 {
		spaces := m.width - lipgloss.Width(title) - lipgloss.Width(hint)
		if spaces > 0 {
			spacing = strings.Repeat(" ", spaces)
		}
	} else {
		spacing = strings.Repeat(" ", 40)
	}

	return title + spacing + hint
}

// renderState renders the placeholder for an entry without a value.
// ok is true when the entry has a value to render instead.
func (m Model) renderState(e query.Entry, what string) (string, bool) {
	if e.HasValue {
		return "", true
	}
	if e.Status == query.StatusError {
		return errorStyle.Render(fmt.Sprintf("Failed to load %s: %s", what, services.Describe(e.Err))) +
			"\n" + hintStyle.Render("press r to retry"), false
	}
	return m.spinner.View() + " Loading " + what + "...", false
}

// marker flags an entry that is refreshing or failed to refresh.
func (m Model) marker(e query.Entry) string {
	switch {
	case e.Status == query.StatusLoading:
		return " " + m.spinner.View()
	case e.Status == query.StatusError:
		return " " + errorStyle.Render("(refresh failed)")
	case e.Stale:
		return " " + staleStyle.Render("(stale)")
	}
	return ""
}

func (m Model) renderDecks() string {
	e := m.cache.Peek(query.DecksKey())
	if body, ok := m.renderState(e, "decks"); !ok {
		return body
	}
	decks, _ := query.Value[[]protocol.Deck](e)

	lines := []string{titleStyle.Render("Decks") + m.marker(e), ""}
	if len(decks) == 0 {
		lines = append(lines, hintStyle.Render("No decks yet. Press n to create one."))
		return strings.Join(lines, "\n")
	}

	for i, d := range decks {
		cursor, style := "  ", valueStyle
		if i == m.deckCursor {
			cursor, style = "> ", selectedStyle
		}
		count := ""
		if d.CardCount != nil {
			count = pluralCards(*d.CardCount)
		}
		lines = append(lines, cursor+style.Width(40).Render(truncate(d.Name, 38))+countStyle.Render(count))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDeck() string {
	de := m.cache.Peek(query.DeckKey(m.deckID))
	if body, ok := m.renderState(de, "deck"); !ok {
		return body
	}
	deck, _ := query.Value[*protocol.Deck](de)

	lines := []string{titleStyle.Render(deck.Name) + m.marker(de)}
	if deck.Description != "" {
		lines = append(lines, hintStyle.Render(deck.Description))
	}
	lines = append(lines, "")

	ce := m.cache.Peek(query.CardsKey(m.deckID))
	if body, ok := m.renderState(ce, "cards"); !ok {
		return strings.Join(append(lines, body), "\n")
	}
	cards, _ := query.Value[[]protocol.Card](ce)

	lines = append(lines, labelStyle.Render("Cards")+valueStyle.Render(pluralCards(len(cards)))+m.marker(ce), "")
	if len(cards) == 0 {
		lines = append(lines, hintStyle.Render("No cards yet. Press n to add one."))
		return strings.Join(lines, "\n")
	}

	for i, c := range cards {
		cursor, style := "  ", valueStyle
		if i == m.cardCursor {
			cursor, style = "> ", selectedStyle
		}
		side, text := "Q", c.Front
		if m.flipped[c.ID] {
			side, text = "A", c.Back
		}
		lines = append(lines, cursor+hintStyle.Render(side+": ")+style.Render(truncate(text, 60)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPractice() string {
	title := "Practice"
	if deck := m.deck(); deck != nil {
		title = "Practice: " + deck.Name
	}
	lines := []string{titleStyle.Render(title), ""}

	s := m.session
	if s == nil {
		ce := m.cache.Peek(query.CardsKey(m.deckID))
		if body, ok := m.renderState(ce, "cards"); !ok {
			return strings.Join(append(lines, body), "\n")
		}
	}
	if s == nil || s.Empty() {
		lines = append(lines, hintStyle.Render("No cards to practice."), hintStyle.Render("esc back to deck"))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, valueStyle.Render(s.Progress())+"  "+ProgressBar(s.Fraction(), 30), "")

	label := "Question:"
	if s.Flipped() {
		label = "Answer:"
	}
	lines = append(lines, cardStyle.Render(hintStyle.Render(label)+"\n\n"+faceStyle.Render(s.Face())))

	prev, next := hintStyle.Render("← Previous"), hintStyle.Render("Next →")
	if s.CanPrevious() {
		prev = valueStyle.Render("← Previous")
	}
	if s.CanNext() {
		next = valueStyle.Render("Next →")
	}
	flip := "Show Answer"
	if s.Flipped() {
		flip = "Show Question"
	}
	lines = append(lines, prev+"    "+valueStyle.Render(flip)+"    "+next)

	if s.AtEnd() {
		lines = append(lines, "", successStyle.Render("You've reached the end!"),
			hintStyle.Render("s practice again • esc back to deck"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPrompt() string {
	switch m.prompt {
	case promptConfirm:
		return staleStyle.Render(m.confirm.prompt)
	case promptDeckName:
		return labelStyle.Render("New deck") + m.input.View()
	case promptDeckDescription:
		return labelStyle.Render("Description") + m.input.View()
	case promptCardFront:
		return labelStyle.Render("New card front") + m.input.View()
	case promptCardBack:
		return labelStyle.Render("Back") + m.input.View()
	}
	return ""
}

func (m Model) renderStatusLine() string {
	if r := m.lastRequest; r != nil {
		return fmt.Sprintf("%s %s %s %s",
			MethodText(r.Method),
			pathStyle.Render(truncate(r.Path, 40)),
			StatusCodeText(r.Status),
			durationStyle.Render(formatDuration(r.Duration)))
	}
	if m.lastLog != "" {
		return hintStyle.Render(m.lastLog)
	}
	return ""
}

// Helper functions

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func pluralCards(n int) string {
	if n == 1 {
		return "1 card"
	}
	return fmt.Sprintf("%d cards", n)
}

func clampCursor(cursor, n int) int {
	if cursor >= n {
		return max(n-1, 0)
	}
	return cursor
}

// Run opens the deck browser.
func Run(d Deps) error {
	return run(NewModel(d))
}

// RunPractice opens the practice screen for deckID directly.
func RunPractice(d Deps, deckID string) error {
	m := NewModel(d).openDeck(deckID)
	m.screen = screenPractice
	if cards := m.cards(); cards != nil {
		m.session = practice.New(cards)
	}
	return run(m)
}

func run(m Model) error {
	defer m.close()

	logger.SetEventBus(m.bus)
	logger.SetTUIMode(true)
	defer logger.SetTUIMode(false)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
