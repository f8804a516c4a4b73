package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/b13-niass/esign/db"
	"github.com/rs/zerolog/log"
)

// Store is the session store the Service needs: the coordinator's view plus
// read access to the session flags.
type Store interface {
	SessionStore
	SignedIn() bool
	User() db.UserProfile
}

// Service orchestrates sign-in and sign-out using its dependencies.
type Service struct {
	Store         Store
	Authenticator Authenticator
}

// NewService is the constructor for our auth service.
func NewService(store Store, authenticator Authenticator) *Service {
	return &Service{
		Store:         store,
		Authenticator: authenticator,
	}
}

// SignIn authenticates against the backend and persists the new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (db.UserProfile, error) {
	creds, err := s.Authenticator.SignIn(ctx, email, password)
	if err != nil {
		return db.UserProfile{}, fmt.Errorf("failed to sign in: %w", err)
	}
	if creds.AccessToken == "" {
		return db.UserProfile{}, fmt.Errorf("failed to sign in: no access token in response")
	}

	if err := s.Store.SetToken(ctx, creds.AccessToken); err != nil {
		return db.UserProfile{}, fmt.Errorf("failed to save access token: %w", err)
	}
	if err := s.Store.SetRefreshToken(ctx, creds.RefreshToken); err != nil {
		return db.UserProfile{}, fmt.Errorf("failed to save refresh token: %w", err)
	}
	if err := s.Store.SetUser(ctx, creds.User); err != nil {
		return db.UserProfile{}, err
	}
	if err := s.Store.SetTokenValidity(ctx, true); err != nil {
		return db.UserProfile{}, err
	}
	if err := s.Store.SetSignedIn(ctx, true); err != nil {
		return db.UserProfile{}, err
	}

	log.Info().Str("email", email).Msg("Signed in successfully")
	return creds.User, nil
}

// SignOut clears the tokens and the session.
func (s *Service) SignOut(ctx context.Context) error {
	if err := s.Store.SetToken(ctx, ""); err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}
	if err := s.Store.SetRefreshToken(ctx, ""); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	if err := s.Store.SetUser(ctx, db.UserProfile{}); err != nil {
		return err
	}
	if err := s.Store.SetSignedIn(ctx, false); err != nil {
		return err
	}
	log.Info().Msg("Signed out")
	return nil
}

// Authenticated reports whether the session is signed in and holds a token
// to authenticate with. An access token kept only in memory is gone in a new
// process; the refresh token is then enough, as the first request fails with
// 401 and is recovered by a refresh.
func (s *Service) Authenticated(ctx context.Context) bool {
	if !s.Store.SignedIn() {
		return false
	}
	token, err := s.Store.Token(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read access token")
		return false
	}
	if token != "" {
		return true
	}
	refreshToken, err := s.Store.RefreshToken(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read refresh token")
		return false
	}
	return refreshToken != ""
}

// TokenStatus describes the stored access token.
type TokenStatus struct {
	Present   bool
	Valid     bool
	ExpiresAt time.Time
}

// Status inspects the stored access token.
func (s *Service) Status(ctx context.Context) (TokenStatus, error) {
	token, err := s.Store.Token(ctx)
	if err != nil {
		return TokenStatus{}, fmt.Errorf("failed to read access token: %w", err)
	}
	st := TokenStatus{Present: token != "", Valid: isTokenValid(token)}
	if exp, err := TokenExpiry(token); err == nil {
		st.ExpiresAt = exp
	}
	return st, nil
}
