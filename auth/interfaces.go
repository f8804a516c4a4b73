package auth

import (
	"context"
	"time"

	"github.com/b13-niass/esign/db"
)

// SessionStore defines what the coordinator and the transport need from the
// persisted session.
type SessionStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	RefreshToken(ctx context.Context) (string, error)
	SetRefreshToken(ctx context.Context, token string) error
	SetUser(ctx context.Context, user db.UserProfile) error
	SetSignedIn(ctx context.Context, signedIn bool) error
	SetTokenValidity(ctx context.Context, valid bool) error
}

// RefreshResult is what the backend returns for a successful refresh.
// RefreshToken is empty when the backend does not rotate it.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// TokenRefresher defines the contract for any component that can perform a token refresh action.
type TokenRefresher interface {
	PerformTokenRefresh(ctx context.Context, refreshToken string) (RefreshResult, error)
}

// Credentials is what a successful sign-in yields.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	User         db.UserProfile
}

// Authenticator signs a user in with email and password.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Credentials, error)
}

// Observer is notified of coordinator events. Implementations must be safe
// for concurrent use.
type Observer interface {
	RefreshStarted()
	RefreshCompleted(err error, elapsed time.Duration)
	RequestQueued()
	RequestReplayed(err error)
}

type nopObserver struct{}

func (nopObserver) RefreshStarted()                       {}
func (nopObserver) RefreshCompleted(error, time.Duration) {}
func (nopObserver) RequestQueued()                        {}
func (nopObserver) RequestReplayed(error)                 {}
