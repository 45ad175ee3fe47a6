package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	apperrors "flashcards/internal/errors"

	"github.com/gorilla/securecookie"
)

// Errors for token key management
var (
	ErrMissingSessionKey = errors.New("session keys not configured")
	ErrInvalidSessionKey = errors.New("invalid session key format")
)

// DefaultTTL is how long an issued access token stays valid.
const DefaultTTL = 30 * 24 * time.Hour

const tokenName = "access_token"

// TokenConfig holds token issuer configuration
type TokenConfig struct {
	// TTL bounds token lifetime. Zero means DefaultTTL.
	TTL time.Duration
	// AllowInsecureKeys allows random key generation in dev mode
	// If false and keys are missing, NewTokenIssuer returns an error
	AllowInsecureKeys bool
}

// TokenIssuer signs and encrypts bearer access tokens with securecookie.
type TokenIssuer struct {
	sc  *securecookie.SecureCookie
	ttl time.Duration
	now func() time.Time
}

// TokenData is the payload carried inside an access token.
type TokenData struct {
	UserID    string `json:"user_id"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// Track whether we've already warned about missing keys (warn only once)
var (
	keyWarningOnce sync.Once
	keyWarningMsg  string
)

// NewTokenIssuer creates a token issuer.
// In production (AllowInsecureKeys=false), returns error if keys are not configured.
// In development (AllowInsecureKeys=true), generates random keys with a warning.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	hashKey, err := getKey("SESSION_HASH_KEY", 32, cfg.AllowInsecureKeys)
	if err != nil {
		return nil, err
	}

	blockKey, err := getKey("SESSION_BLOCK_KEY", 32, cfg.AllowInsecureKeys)
	if err != nil {
		return nil, err
	}

	keyWarningOnce.Do(func() {
		if keyWarningMsg != "" {
			log.Println(keyWarningMsg)
		}
	})

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(ttl / time.Second))

	return &TokenIssuer{sc: sc, ttl: ttl, now: time.Now}, nil
}

// getKey reads key from environment or generates a random one if allowed
func getKey(envVar string, length int, allowRandom bool) ([]byte, error) {
	keyHex := os.Getenv(envVar)
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, ErrInvalidSessionKey
		}
		if len(key) < length {
			return nil, ErrInvalidSessionKey
		}
		return key[:length], nil
	}

	if !allowRandom {
		return nil, ErrMissingSessionKey
	}

	// Random keys: tokens won't survive a restart
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	keyWarningMsg = "WARNING: Session keys not configured. Using random keys - access tokens will not survive server restarts. Set SESSION_HASH_KEY and SESSION_BLOCK_KEY environment variables for production."

	return key, nil
}

// Issue returns a new access token for userID.
func (ti *TokenIssuer) Issue(userID string) (string, error) {
	now := ti.now()
	return ti.sc.Encode(tokenName, TokenData{
		UserID:    userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ti.ttl).Unix(),
	})
}

// Parse validates token and returns its payload. Any failure, including
// expiry, is reported as apperrors.ErrInvalidToken.
func (ti *TokenIssuer) Parse(token string) (*TokenData, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidToken
	}
	var data TokenData
	if err := ti.sc.Decode(tokenName, token, &data); err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if data.UserID == "" || ti.now().Unix() >= data.ExpiresAt {
		return nil, apperrors.ErrInvalidToken
	}
	return &data, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
