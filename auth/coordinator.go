package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/b13-niass/esign/db"
	"github.com/rs/zerolog/log"
)

// DefaultRefreshTimeout bounds a single refresh call.
const DefaultRefreshTimeout = 30 * time.Second

// ReplayFunc reissues a failed request with the given access token.
type ReplayFunc func(ctx context.Context, token string) (*http.Response, error)

type outcome struct {
	token string
	err   error
}

type waiter struct {
	ch   chan outcome
	done chan struct{}
}

// Coordinator recovers requests that failed because the access token expired.
// Only one refresh call is in flight at a time. Requests failing while it runs
// are queued and released in arrival order once it resolves. Their replays
// run concurrently unless WithOrderedReplay is set.
type Coordinator struct {
	store     SessionStore
	refresher TokenRefresher
	timeout   time.Duration
	observer  Observer
	ordered   bool

	mu         sync.Mutex
	refreshing bool
	pending    []*waiter
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRefreshTimeout sets the refresh call timeout. Zero or less disables it.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithObserver registers an Observer for refresh and replay events.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithOrderedReplay makes each replay wait for the previous one to complete,
// starting with the request that triggered the refresh.
func WithOrderedReplay() Option {
	return func(c *Coordinator) { c.ordered = true }
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(store SessionStore, refresher TokenRefresher, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		refresher: refresher,
		timeout:   DefaultRefreshTimeout,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refreshing reports whether a refresh call is currently in flight.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// Pending returns the number of queued requests.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Recover handles one authentication failure of a request sent with
// sentToken. The first caller refreshes the access token and replays its
// request; callers arriving while the refresh is in flight wait for it and
// then replay theirs with the new token. A request whose token was already
// replaced by an earlier refresh is replayed with the stored token at once.
func (c *Coordinator) Recover(ctx context.Context, sentToken string, replay ReplayFunc) (*http.Response, error) {
	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh token: %w", err)
	}
	if refreshToken == "" {
		log.Warn().Msg("Refresh token missing, signing out")
		c.signOut(ctx)
		return nil, ErrRefreshUnavailable
	}

	c.mu.Lock()
	if c.refreshing {
		w := &waiter{ch: make(chan outcome, 1), done: make(chan struct{})}
		c.pending = append(c.pending, w)
		queued := len(c.pending)
		c.mu.Unlock()
		c.observer.RequestQueued()
		log.Debug().Int("queued", queued).Msg("Refresh in flight, request queued")
		return c.wait(ctx, w, replay)
	}
	if current := c.currentToken(ctx); current != "" && current != sentToken {
		c.mu.Unlock()
		log.Debug().Msg("Access token renewed since the request was sent, replaying")
		return c.replay(ctx, replay, current)
	}
	c.refreshing = true
	c.mu.Unlock()

	return c.lead(ctx, refreshToken, replay)
}

// currentToken reads the stored access token. It is called with c.mu held
// and no refresh in flight, so it sees the result of the last refresh.
func (c *Coordinator) currentToken(ctx context.Context) string {
	token, err := c.store.Token(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read access token")
		return ""
	}
	return token
}

func (c *Coordinator) lead(ctx context.Context, refreshToken string, replay ReplayFunc) (*http.Response, error) {
	if err := c.store.SetTokenValidity(ctx, false); err != nil {
		log.Warn().Err(err).Msg("Failed to mark token invalid")
	}

	c.observer.RefreshStarted()
	start := time.Now()
	token, err := c.refresh(ctx, refreshToken)
	c.observer.RefreshCompleted(err, time.Since(start))

	if err != nil {
		log.Error().Err(err).Msg("Token refresh failed, signing out")
		c.signOut(ctx)
		waiters := c.resolve()
		for _, w := range waiters {
			w.ch <- outcome{err: err}
		}
		return nil, err
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("Token refreshed")
	waiters := c.resolve()

	if c.ordered {
		resp, rerr := c.replay(ctx, replay, token)
		go release(waiters, token)
		return resp, rerr
	}
	for _, w := range waiters {
		w.ch <- outcome{token: token}
	}
	return c.replay(ctx, replay, token)
}

// refresh performs the refresh call and persists its result. The call is
// detached from the caller's cancellation so that waiters are not failed by
// the leader going away, but it is bounded by the refresh timeout.
func (c *Coordinator) refresh(ctx context.Context, refreshToken string) (string, error) {
	rctx := context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, c.timeout)
		defer cancel()
	}

	res, err := c.refresher.PerformTokenRefresh(rctx, refreshToken)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrRefreshTimeout, err)
		}
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token in response", ErrRefreshFailed)
	}

	if err := c.store.SetToken(rctx, res.AccessToken); err != nil {
		return "", fmt.Errorf("%w: failed to store access token: %w", ErrRefreshFailed, err)
	}
	if res.RefreshToken != "" && res.RefreshToken != refreshToken {
		if err := c.store.SetRefreshToken(rctx, res.RefreshToken); err != nil {
			log.Warn().Err(err).Msg("Failed to store rotated refresh token")
		}
	}
	if err := c.store.SetTokenValidity(rctx, true); err != nil {
		log.Warn().Err(err).Msg("Failed to mark token valid")
	}
	return res.AccessToken, nil
}

// resolve ends the refresh and hands back the queued waiters in arrival order.
func (c *Coordinator) resolve() []*waiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	waiters := c.pending
	c.pending = nil
	c.refreshing = false
	return waiters
}

func (c *Coordinator) wait(ctx context.Context, w *waiter, replay ReplayFunc) (*http.Response, error) {
	defer close(w.done)
	select {
	case o := <-w.ch:
		if o.err != nil {
			return nil, o.err
		}
		return c.replay(ctx, replay, o.token)
	case <-ctx.Done():
		c.dequeue(w)
		return nil, ctx.Err()
	}
}

func (c *Coordinator) dequeue(w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.pending {
		if p == w {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

func (c *Coordinator) replay(ctx context.Context, replay ReplayFunc, token string) (*http.Response, error) {
	resp, err := replay(ctx, token)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrReplayFailed, err)
		log.Warn().Err(err).Msg("Replayed request failed")
	}
	c.observer.RequestReplayed(err)
	return resp, err
}

// release hands the token to each waiter in turn, waiting for its replay to
// finish before releasing the next one.
func release(waiters []*waiter, token string) {
	for _, w := range waiters {
		w.ch <- outcome{token: token}
		<-w.done
	}
}

func (c *Coordinator) signOut(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if err := c.store.SetToken(ctx, ""); err != nil {
		log.Warn().Err(err).Msg("Failed to clear access token")
	}
	if err := c.store.SetUser(ctx, db.UserProfile{}); err != nil {
		log.Warn().Err(err).Msg("Failed to clear user profile")
	}
	if err := c.store.SetSignedIn(ctx, false); err != nil {
		log.Warn().Err(err).Msg("Failed to clear signed-in flag")
	}
}
