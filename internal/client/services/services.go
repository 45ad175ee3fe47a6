// Package services wraps the REST API in typed, stateless calls, one service
// per resource family. Errors from the api package are returned unchanged;
// create and update calls return *validate.ValidationError before any request
// is sent when the input is invalid.
package services

import (
	"errors"
	"sort"
	"strings"

	"flashcards/internal/client/api"
	"flashcards/internal/client/session"
	"flashcards/internal/client/validate"
)

// Services bundles the domain services sharing one API client.
type Services struct {
	Auth  *AuthService
	Decks *DeckService
	Cards *CardService
}

// New builds all services on top of client.
func New(client *api.Client, store session.Store) *Services {
	return &Services{
		Auth:  NewAuthService(client, store),
		Decks: NewDeckService(client),
		Cards: NewCardService(client),
	}
}

// Describe renders err as a one-line message for display: field messages for
// validation failures, the server's message for status errors.
func Describe(err error) string {
	var ve *validate.ValidationError
	if errors.As(err, &ve) {
		msgs := make([]string, len(ve.Fields))
		for i, f := range ve.Fields {
			msgs[i] = f.Message
		}
		return strings.Join(msgs, "; ")
	}

	var se *api.HTTPStatusError
	if errors.As(err, &se) && se.Message != "" {
		if len(se.Fields) == 0 {
			return se.Message
		}
		fields := make([]string, 0, len(se.Fields))
		for name, msg := range se.Fields {
			fields = append(fields, name+": "+msg)
		}
		sort.Strings(fields)
		return se.Message + " (" + strings.Join(fields, "; ") + ")"
	}
	return err.Error()
}
