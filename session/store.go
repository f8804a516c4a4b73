package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/b13-niass/esign/db"
	"github.com/rs/zerolog/log"
)

const (
	// TokenKey is the name the access token is stored under.
	TokenKey = "token"
	// RefreshTokenCookie is the cookie holding the refresh token.
	RefreshTokenCookie = "refresh_token"
)

var now = time.Now

// State is a snapshot of the session.
type State struct {
	SignedIn      bool
	User          db.UserProfile
	TokenValidity bool
}

// Store holds the session state and the tokens. The access token goes to the
// Storage chosen by the persist strategy; the refresh token always goes to
// the cookie jar.
type Store struct {
	mu       sync.Mutex
	state    State
	tokens   Storage
	cookies  db.CookieRepository
	sessions db.SessionRepository
}

// NewStore creates a Store and loads the persisted session, if any.
func NewStore(ctx context.Context, tokens Storage, cookies db.CookieRepository, sessions db.SessionRepository) (*Store, error) {
	s := &Store{
		tokens:   tokens,
		cookies:  cookies,
		sessions: sessions,
		state:    State{TokenValidity: true},
	}
	rec, err := sessions.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if rec != nil {
		s.state = State{SignedIn: rec.SignedIn, User: rec.User, TokenValidity: rec.TokenValid}
	}
	return s, nil
}

// Open builds a Store on the global database for the given strategy.
func Open(ctx context.Context, strategy string) (*Store, error) {
	gdb := db.GetDB()
	tokens, err := NewStorage(strategy, gdb)
	if err != nil {
		return nil, err
	}
	return NewStore(ctx, tokens, db.NewCookieRepository(gdb), db.NewSessionRepository(gdb))
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Token(ctx context.Context) (string, error) {
	return s.tokens.GetItem(ctx, TokenKey)
}

// SetToken stores the access token. An empty token removes it.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.tokens.RemoveItem(ctx, TokenKey)
	}
	return s.tokens.SetItem(ctx, TokenKey, token)
}

func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	c, err := s.cookies.Get(ctx, RefreshTokenCookie)
	if err != nil || c == nil {
		return "", err
	}
	if c.Expired(now()) {
		log.Debug().Msg("Refresh token cookie expired")
		return "", nil
	}
	return c.Value, nil
}

// SetRefreshToken stores the refresh token cookie. An empty token removes it.
func (s *Store) SetRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		return s.cookies.Delete(ctx, RefreshTokenCookie)
	}
	return s.cookies.Set(ctx, &db.Cookie{Name: RefreshTokenCookie, Value: token})
}

func (s *Store) User() db.UserProfile {
	return s.Snapshot().User
}

// SetUser replaces the user profile. The zero value clears it.
func (s *Store) SetUser(ctx context.Context, user db.UserProfile) error {
	return s.update(ctx, func(st *State) { st.User = user })
}

func (s *Store) SignedIn() bool {
	return s.Snapshot().SignedIn
}

func (s *Store) SetSignedIn(ctx context.Context, signedIn bool) error {
	return s.update(ctx, func(st *State) { st.SignedIn = signedIn })
}

func (s *Store) TokenValid() bool {
	return s.Snapshot().TokenValidity
}

func (s *Store) SetTokenValidity(ctx context.Context, valid bool) error {
	return s.update(ctx, func(st *State) { st.TokenValidity = valid })
}

func (s *Store) update(ctx context.Context, fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	fn(&next)
	rec := &db.SessionRecord{
		SignedIn:   next.SignedIn,
		TokenValid: next.TokenValidity,
		User:       next.User,
	}
	if err := s.sessions.Upsert(ctx, rec); err != nil {
		log.Error().Err(err).Msg("Failed to persist session")
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.state = next
	return nil
}
