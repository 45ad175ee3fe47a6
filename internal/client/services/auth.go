package services

import (
	"context"
	"fmt"

	"flashcards/internal/client/api"
	"flashcards/internal/client/session"
	"flashcards/internal/client/validate"
	"flashcards/pkg/protocol"
)

// RegisterInput is the registration form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthService registers users and manages the stored access token.
type AuthService struct {
	client *api.Client
	store  session.Store
}

// NewAuthService creates an AuthService writing tokens to store.
func NewAuthService(client *api.Client, store session.Store) *AuthService {
	return &AuthService{client: client, store: store}
}

// Register creates the account and then logs in with the same credentials,
// so a successful Register leaves a token in the store.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	if err := validate.Register(in.Username, in.Email, in.Password, in.ConfirmPassword); err != nil {
		return err
	}

	req := protocol.RegisterRequest{Username: in.Username, Email: in.Email, Password: in.Password}
	var resp protocol.AuthResponse
	if err := s.client.Post(ctx, "/auth/register", req, &resp); err != nil {
		return err
	}

	_, err := s.Login(ctx, in.Email, in.Password)
	return err
}

// Login exchanges credentials for a token and stores it when the reply
// carries one.
// On failure the stored token is left untouched.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	if err := validate.Login(email, password); err != nil {
		return "", err
	}

	var resp protocol.AuthResponse
	if err := s.client.Post(ctx, "/auth/login", protocol.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	// A reply without a token is still a successful login; nothing is stored.
	if resp.AccessToken == "" {
		return "", nil
	}
	if err := s.store.Set(resp.AccessToken); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return resp.AccessToken, nil
}

// Logout forgets the stored token. The server is not contacted.
func (s *AuthService) Logout() error {
	return s.store.Clear()
}

// IsAuthenticated reports whether a token is stored. It does not check validity.
func (s *AuthService) IsAuthenticated() bool {
	_, ok := s.store.Get()
	return ok
}

// Token returns the stored token, if any.
func (s *AuthService) Token() (string, bool) {
	return s.store.Get()
}
