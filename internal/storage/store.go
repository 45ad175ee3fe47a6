package storage

import "flashcards/internal/models"

// Store defines the persistence operations used by the API handlers.
// Deck and card operations are scoped to the owning user: records owned by
// someone else are reported as not found.
type Store interface {
	// User operations
	CreateUser(username, email, password string) (*models.User, error)
	Authenticate(email, password string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)

	// Deck operations
	ListDecks(userID string) ([]models.Deck, error)
	GetDeck(userID, deckID string) (*models.Deck, error)
	CreateDeck(deck *models.Deck) error
	UpdateDeck(userID, deckID string, patch DeckPatch) (*models.Deck, error)
	DeleteDeck(userID, deckID string) error

	// Card operations
	ListCards(userID, deckID string) ([]models.Card, error)
	GetCard(userID, deckID, cardID string) (*models.Card, error)
	CreateCard(userID string, card *models.Card) error
	UpdateCard(userID, deckID, cardID string, patch CardPatch) (*models.Card, error)
	DeleteCard(userID, deckID, cardID string) error

	// Lifecycle
	Close() error
}

// DeckPatch carries the fields of a partial deck update. Nil fields are left unchanged.
type DeckPatch struct {
	Name        *string
	Description *string
}

// CardPatch carries the fields of a partial card update. Nil fields are left unchanged.
type CardPatch struct {
	Front *string
	Back  *string
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
