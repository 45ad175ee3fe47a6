// Package validate checks form input before it reaches the network.
package validate

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

var v = validator.New()

// FieldError is one failed constraint on a named form field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned when one or more form fields are invalid.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return e.Fields[0].Field + ": " + e.Fields[0].Message
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Message returns the message for field, or "" if that field passed.
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// Result accumulates field errors in the order checks run.
type Result struct {
	fields []FieldError
}

// Add records a failure for field.
func (r *Result) Add(field, message string) {
	r.fields = append(r.fields, FieldError{Field: field, Message: message})
}

// Check records message for field when ok is false.
func (r *Result) Check(ok bool, field, message string) {
	if !ok {
		r.Add(field, message)
	}
}

// Err returns a *ValidationError, or nil if nothing failed.
func (r *Result) Err() error {
	if len(r.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: r.fields}
}

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return v.Var(s, "required,email") == nil
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Register validates the registration form.
func Register(username, email, password, confirmPassword string) error {
	var r Result
	r.Check(len([]rune(strings.TrimSpace(username))) >= minUsernameLen, "username", "Username must be at least 3 characters")
	r.Check(IsEmail(email), "email", "Invalid email address")
	r.Check(len([]rune(password)) >= minPasswordLen, "password", "Password must be at least 6 characters")
	r.Check(password == confirmPassword, "confirmPassword", "Passwords don't match")
	return r.Err()
}

// Login validates the login form.
func Login(email, password string) error {
	var r Result
	r.Check(IsEmail(email), "email", "Invalid email address")
	r.Check(password != "", "password", "Password is required")
	return r.Err()
}

// Deck validates the create-deck form. Description is optional.
func Deck(name string) error {
	var r Result
	r.Check(notBlank(name), "name", "Name is required")
	return r.Err()
}

// DeckUpdate validates a partial deck update: a provided name must not be blank
// and at least one field must be set.
func DeckUpdate(name, description *string) error {
	var r Result
	if name == nil && description == nil {
		r.Add("deck", "Nothing to update")
	}
	if name != nil {
		r.Check(notBlank(*name), "name", "Name is required")
	}
	return r.Err()
}

// Card validates the create-card form.
func Card(front, back string) error {
	var r Result
	r.Check(notBlank(front), "front", "Front is required")
	r.Check(notBlank(back), "back", "Back is required")
	return r.Err()
}

// CardUpdate validates a partial card update.
func CardUpdate(front, back *string) error {
	var r Result
	if front == nil && back == nil {
		r.Add("card", "Nothing to update")
	}
	if front != nil {
		r.Check(notBlank(*front), "front", "Front is required")
	}
	if back != nil {
		r.Check(notBlank(*back), "back", "Back is required")
	}
	return r.Err()
}
