package validate

import (
	"errors"
	"testing"
)

func fieldsOf(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Fields
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		email      string
		password   string
		confirm    string
		wantFields []string
	}{
		{"valid", "alice", "alice@example.com", "secret1", "secret1", nil},
		{"short username", "al", "alice@example.com", "secret1", "secret1", []string{"username"}},
		{"bad email", "alice", "alice-at-example", "secret1", "secret1", []string{"email"}},
		{"short password", "alice", "alice@example.com", "12345", "12345", []string{"password"}},
		{"mismatch", "alice", "alice@example.com", "secret1", "secret2", []string{"confirmPassword"}},
		{"everything wrong", "", "", "", "x", []string{"username", "email", "password", "confirmPassword"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldsOf(t, Register(tt.username, tt.email, tt.password, tt.confirm))
			if len(got) != len(tt.wantFields) {
				t.Fatalf("got %d field errors %v, want %v", len(got), got, tt.wantFields)
			}
			for i, f := range got {
				if f.Field != tt.wantFields[i] {
					t.Errorf("field[%d] = %s, want %s", i, f.Field, tt.wantFields[i])
				}
			}
		})
	}
}

func TestRegister_MismatchMessage(t *testing.T) {
	err := Register("alice", "alice@example.com", "secret1", "other")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("expected ValidationError")
	}
	if got := ve.Message("confirmPassword"); got != "Passwords don't match" {
		t.Errorf("Message(confirmPassword) = %q", got)
	}
	if got := ve.Message("email"); got != "" {
		t.Errorf("Message(email) = %q, want empty", got)
	}
}

func TestLogin(t *testing.T) {
	if err := Login("a@b.co", "x"); err != nil {
		t.Errorf("valid login rejected: %v", err)
	}
	got := fieldsOf(t, Login("nope", ""))
	if len(got) != 2 {
		t.Errorf("got %v, want email and password errors", got)
	}
}

func TestDeckAndCard(t *testing.T) {
	if err := Deck("Spanish"); err != nil {
		t.Errorf("Deck(Spanish) = %v", err)
	}
	if err := Deck("   "); err == nil {
		t.Error("blank deck name accepted")
	}
	if err := Card("hola", "hello"); err != nil {
		t.Errorf("Card() = %v", err)
	}
	got := fieldsOf(t, Card("", ""))
	if len(got) != 2 || got[0].Message != "Front is required" || got[1].Message != "Back is required" {
		t.Errorf("Card(\"\", \"\") fields = %v", got)
	}
}

func TestPartialUpdates(t *testing.T) {
	empty := ""
	name := "New"

	if err := DeckUpdate(nil, nil); err == nil {
		t.Error("empty deck update accepted")
	}
	if err := DeckUpdate(&empty, nil); err == nil {
		t.Error("blank deck name accepted on update")
	}
	if err := DeckUpdate(nil, &empty); err != nil {
		t.Errorf("clearing description rejected: %v", err)
	}
	if err := DeckUpdate(&name, nil); err != nil {
		t.Errorf("rename rejected: %v", err)
	}

	if err := CardUpdate(nil, nil); err == nil {
		t.Error("empty card update accepted")
	}
	if err := CardUpdate(nil, &empty); err == nil {
		t.Error("blank back accepted on update")
	}
}

func TestValidationError_Error(t *testing.T) {
	one := &ValidationError{Fields: []FieldError{{"name", "Name is required"}}}
	if one.Error() != "name: Name is required" {
		t.Errorf("Error() = %q", one.Error())
	}
	two := &ValidationError{Fields: []FieldError{{"front", "a"}, {"back", "b"}}}
	if two.Error() != "invalid input: front: a; back: b" {
		t.Errorf("Error() = %q", two.Error())
	}
}
