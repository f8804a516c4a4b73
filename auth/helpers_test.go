package auth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/b13-niass/esign/auth"
	"github.com/b13-niass/esign/db"
)

type memStore struct {
	mu            sync.Mutex
	token         string
	refreshToken  string
	user          db.UserProfile
	signedIn      bool
	tokenValid    bool
	signOutCalls  int
	validityTrail []bool
}

func newMemStore(token, refreshToken string) *memStore {
	return &memStore{
		token:        token,
		refreshToken: refreshToken,
		user:         db.UserProfile{ID: "1", Email: "awa@esign.sn"},
		signedIn:     true,
		tokenValid:   true,
	}
}

func (s *memStore) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *memStore) RefreshToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken, nil
}

func (s *memStore) SetRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshToken = token
	return nil
}

func (s *memStore) SetUser(_ context.Context, user db.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	return nil
}

func (s *memStore) User() db.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *memStore) SetSignedIn(_ context.Context, signedIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signedIn && !signedIn {
		s.signOutCalls++
	}
	s.signedIn = signedIn
	return nil
}

func (s *memStore) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signedIn
}

func (s *memStore) SetTokenValidity(_ context.Context, valid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenValid = valid
	s.validityTrail = append(s.validityTrail, valid)
	return nil
}

// storeState is a copy of a memStore's fields taken under its lock.
type storeState struct {
	token        string
	refreshToken string
	user         db.UserProfile
	signedIn     bool
	tokenValid   bool
	signOutCalls int
}

func (s *memStore) snapshot() storeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storeState{
		token:        s.token,
		refreshToken: s.refreshToken,
		user:         s.user,
		signedIn:     s.signedIn,
		tokenValid:   s.tokenValid,
		signOutCalls: s.signOutCalls,
	}
}

// blockingRefresher counts calls and blocks each one until release is closed.
type blockingRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	result  auth.RefreshResult
	err     error
}

func newBlockingRefresher(result auth.RefreshResult, err error) *blockingRefresher {
	return &blockingRefresher{release: make(chan struct{}), result: result, err: err}
}

func (r *blockingRefresher) PerformTokenRefresh(ctx context.Context, _ string) (auth.RefreshResult, error) {
	r.calls.Add(1)
	select {
	case <-r.release:
	case <-ctx.Done():
		return auth.RefreshResult{}, ctx.Err()
	}
	return r.result, r.err
}

type countingObserver struct {
	started, completed, queued, replayed atomic.Int32
}

func (o *countingObserver) RefreshStarted() { o.started.Add(1) }
func (o *countingObserver) RefreshCompleted(error, time.Duration) {
	o.completed.Add(1)
}
func (o *countingObserver) RequestQueued()        { o.queued.Add(1) }
func (o *countingObserver) RequestReplayed(error) { o.replayed.Add(1) }
