package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "flashcards/internal/errors"
)

// Helper to create a token issuer for tests (allows random keys)
func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer(TokenConfig{AllowInsecureKeys: true})
	if err != nil {
		t.Fatalf("Failed to create token issuer: %v", err)
	}
	return ti
}

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	ti := newTestIssuer(t)

	token, err := ti.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	data, err := ti.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if data.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", data.UserID)
	}
	if data.IssuedAt == 0 {
		t.Error("IssuedAt should not be 0")
	}
}

func TestTokenIssuer_InvalidToken(t *testing.T) {
	ti := newTestIssuer(t)

	for _, token := range []string{"", "invalid-token-value"} {
		if _, err := ti.Parse(token); !errors.Is(err, apperrors.ErrInvalidToken) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestTokenIssuer_ForeignKeysRejected(t *testing.T) {
	token, err := newTestIssuer(t).Issue("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := newTestIssuer(t).Parse(token); err == nil {
		t.Error("Parse() should reject a token signed with other keys")
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	ti := newTestIssuer(t)
	start := time.Now()
	ti.now = func() time.Time { return start }

	token, err := ti.Issue("user-1")
	if err != nil {
		t.Fatal(err)
	}

	ti.now = func() time.Time { return start.Add(DefaultTTL) }
	if _, err := ti.Parse(token); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Errorf("Parse() of expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := BearerToken(req); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestNewTokenIssuer_FailsWithoutKeysInProductionMode(t *testing.T) {
	t.Setenv("SESSION_HASH_KEY", "")
	t.Setenv("SESSION_BLOCK_KEY", "")

	_, err := NewTokenIssuer(TokenConfig{AllowInsecureKeys: false})
	if err != ErrMissingSessionKey {
		t.Errorf("Expected ErrMissingSessionKey, got %v", err)
	}
}

func TestNewTokenIssuer_InvalidKeyFormat(t *testing.T) {
	t.Setenv("SESSION_HASH_KEY", "not-hex")

	_, err := NewTokenIssuer(TokenConfig{})
	if err != ErrInvalidSessionKey {
		t.Errorf("Expected ErrInvalidSessionKey, got %v", err)
	}
}
