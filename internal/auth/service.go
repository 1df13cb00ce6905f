package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

type userStore interface {
	Upsert(ctx context.Context, lineUserID, displayName, pictureURL string) (*User, error)
}

type sessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	FindValid(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

type loginProvider interface {
	AuthorizeURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// Service runs the LINE Login flow end to end: authorization redirect,
// code exchange, profile-keyed user upsert, and session lifecycle.
type Service struct {
	provider        loginProvider
	users           userStore
	sessions        sessionStore
	redirectURI     string
	sessionDuration time.Duration
	logger          *logging.Logger
}

// NewService wires the login flow. redirectURI is this server's public
// callback URL, registered with the LINE channel.
func NewService(provider loginProvider, users userStore, sessions sessionStore, redirectURI string, sessionDuration time.Duration, logger *logging.Logger) *Service {
	if provider == nil || users == nil || sessions == nil {
		panic("auth: service dependencies missing")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if sessionDuration <= 0 {
		sessionDuration = 7 * 24 * time.Hour
	}
	return &Service{
		provider:        provider,
		users:           users,
		sessions:        sessions,
		redirectURI:     redirectURI,
		sessionDuration: sessionDuration,
		logger:          logger,
	}
}

// AuthorizeURL returns the LINE consent page URL for a fresh login attempt.
func (s *Service) AuthorizeURL() (string, error) {
	state, err := randomToken(8)
	if err != nil {
		return "", err
	}
	return s.provider.AuthorizeURL(s.redirectURI, state), nil
}

// CompleteLogin finishes the OAuth callback: exchanges the code, upserts
// the user from their profile, and mints a session token.
func (s *Service) CompleteLogin(ctx context.Context, code string) (string, error) {
	accessToken, err := s.provider.ExchangeCode(ctx, code, s.redirectURI)
	if err != nil {
		return "", err
	}

	profile, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		return "", err
	}

	user, err := s.users.Upsert(ctx, profile.UserID, profile.DisplayName, profile.PictureURL)
	if err != nil {
		return "", err
	}

	token, err := randomToken(32)
	if err != nil {
		return "", err
	}
	expiresAt := time.Now().Add(s.sessionDuration)
	if err := s.sessions.Create(ctx, user.ID, token, expiresAt); err != nil {
		return "", err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "line_user_id", profile.UserID)
	return token, nil
}

// Verify resolves a session token to its user, or ErrSessionNotFound.
func (s *Service) Verify(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	return s.sessions.FindValid(ctx, token)
}

// Logout revokes the session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

func randomToken(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
