package query

import "strings"

// Key identifies one logical query as an ordered path, e.g. ["decks", id, "cards"].
type Key []string

// DecksKey is the key of the deck list.
func DecksKey() Key { return Key{"decks"} }

// DeckKey is the key of a single deck.
func DeckKey(id string) Key { return Key{"decks", id} }

// CardsKey is the key of a deck's card list.
func CardsKey(deckID string) Key { return Key{"decks", deckID, "cards"} }

// CardKey is the key of a single card.
func CardKey(deckID, cardID string) Key { return Key{"decks", deckID, "cards", cardID} }

// HasPrefix reports whether k starts with every segment of prefix.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, seg := range prefix {
		if k[i] != seg {
			return false
		}
	}
	return true
}

// Equal reports whether k and other have the same segments.
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

// Enabled reports whether every segment is non-empty. Queries with a missing
// identifier are disabled and never fetched.
func (k Key) Enabled() bool {
	if len(k) == 0 {
		return false
	}
	for _, seg := range k {
		if seg == "" {
			return false
		}
	}
	return true
}

// String renders the key for display, e.g. "decks/42/cards".
func (k Key) String() string {
	return strings.Join(k, "/")
}

// id is the map key. NUL cannot appear in a URL path segment.
func (k Key) id() string {
	return strings.Join(k, "\x00")
}

func (k Key) clone() Key {
	out := make(Key, len(k))
	copy(out, k)
	return out
}
