package protocol

import "time"

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest exchanges credentials for an access token.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
}

// Deck is a named collection of cards owned by one user.
type Deck struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CardCount   *int      `json:"cardCount,omitempty"`
}

// CreateDeckRequest is the body of POST /decks.
type CreateDeckRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
}

// UpdateDeckRequest is the body of PATCH /decks/{id}. Nil fields are left unchanged.
type UpdateDeckRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Card is a front/back pair belonging to exactly one deck.
type Card struct {
	ID        string    `json:"id"`
	Front     string    `json:"front"`
	Back      string    `json:"back"`
	DeckID    string    `json:"deckId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateCardRequest is the body of POST /decks/{deckId}/cards.
type CreateCardRequest struct {
	Front string `json:"front" binding:"required"`
	Back  string `json:"back" binding:"required"`
}

// UpdateCardRequest is the body of PATCH /decks/{deckId}/cards/{cardId}.
type UpdateCardRequest struct {
	Front *string `json:"front,omitempty"`
	Back  *string `json:"back,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
// Errors maps field names to messages for validation failures.
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}
