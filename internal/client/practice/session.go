// Package practice holds the state of one practice run over a deck's cards.
package practice

import (
	"fmt"
	"math/rand/v2"

	"flashcards/pkg/protocol"
)

// Session is the Browsing(index, order, flipped) state machine. The zero
// value is an empty session. A Session is not safe for concurrent use; the
// view that owns it drives it from one goroutine.
type Session struct {
	cards   []protocol.Card
	order   []int
	index   int
	flipped bool
	perm    func(n int) []int
}

// Option configures a Session.
type Option func(*Session)

// WithRand draws shuffles from r.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.perm = r.Perm }
}

// New starts a session over cards in the order given.
func New(cards []protocol.Card, opts ...Option) *Session {
	s := &Session{perm: rand.Perm}
	for _, opt := range opts {
		opt(s)
	}
	s.load(cards)
	return s
}

func (s *Session) load(cards []protocol.Card) {
	s.cards = append([]protocol.Card(nil), cards...)
	s.order = make([]int, len(cards))
	for i := range s.order {
		s.order[i] = i
	}
}

// Reload replaces the cards after a refetch. When the refetch holds the same
// card IDs the current order, position and side are kept and only the card
// contents change. Any other set restarts at the first card in fetch order.
func (s *Session) Reload(cards []protocol.Card) {
	if order, ok := s.remap(cards); ok {
		s.cards = append([]protocol.Card(nil), cards...)
		s.order = order
		return
	}
	s.load(cards)
	s.index = 0
	s.flipped = false
}

// remap translates the current order onto cards by ID. It fails unless cards
// is a reordering of exactly the current IDs.
func (s *Session) remap(cards []protocol.Card) ([]int, bool) {
	if len(cards) != len(s.cards) {
		return nil, false
	}
	pos := make(map[string]int, len(cards))
	for i, c := range cards {
		if c.ID == "" {
			return nil, false
		}
		pos[c.ID] = i
	}
	if len(pos) != len(cards) {
		return nil, false
	}
	order := make([]int, len(s.order))
	for i, old := range s.order {
		j, ok := pos[s.cards[old].ID]
		if !ok {
			return nil, false
		}
		order[i] = j
	}
	return order, true
}

// Len is the number of cards.
func (s *Session) Len() int { return len(s.order) }

// Empty reports whether there is nothing to practice.
func (s *Session) Empty() bool { return len(s.order) == 0 }

// Index is the zero-based position in the current order.
func (s *Session) Index() int { return s.index }

// Flipped reports whether the answer side is showing.
func (s *Session) Flipped() bool { return s.flipped }

// Order returns a copy of the current permutation of card indexes.
func (s *Session) Order() []int {
	return append([]int(nil), s.order...)
}

// Current returns the card at the current position.
func (s *Session) Current() (protocol.Card, bool) {
	if s.Empty() {
		return protocol.Card{}, false
	}
	return s.cards[s.order[s.index]], true
}

// Face returns the visible side of the current card.
func (s *Session) Face() string {
	card, ok := s.Current()
	if !ok {
		return ""
	}
	if s.flipped {
		return card.Back
	}
	return card.Front
}

func (s *Session) CanNext() bool     { return s.index < len(s.order)-1 }
func (s *Session) CanPrevious() bool { return s.index > 0 }

// AtEnd reports whether the last card is showing.
func (s *Session) AtEnd() bool {
	return !s.Empty() && s.index == len(s.order)-1
}

// Next advances one card, clamped at the last, and shows the front.
func (s *Session) Next() bool {
	if !s.CanNext() {
		return false
	}
	s.index++
	s.flipped = false
	return true
}

// Previous steps back one card, clamped at the first, and shows the front.
func (s *Session) Previous() bool {
	if !s.CanPrevious() {
		return false
	}
	s.index--
	s.flipped = false
	return true
}

// Flip toggles between front and back.
func (s *Session) Flip() {
	if s.Empty() {
		return
	}
	s.flipped = !s.flipped
}

// Shuffle draws a new random order over all cards and restarts at the first.
func (s *Session) Shuffle() {
	s.order = s.perm(len(s.cards))
	s.index = 0
	s.flipped = false
}

// Progress renders the position as "Card i of n".
func (s *Session) Progress() string {
	if s.Empty() {
		return "No cards to practice."
	}
	return fmt.Sprintf("Card %d of %d", s.index+1, len(s.order))
}

// Fraction is the completed share used for progress bars, in (0, 1].
func (s *Session) Fraction() float64 {
	if s.Empty() {
		return 0
	}
	return float64(s.index+1) / float64(len(s.order))
}
