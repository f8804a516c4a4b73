package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthExpired marks a response the backend rejected for an expired or
	// invalid access token (401, 419, 440).
	ErrAuthExpired = errors.New("access token expired")
	// ErrRefreshUnavailable is returned when there is no refresh token to use.
	ErrRefreshUnavailable = errors.New("no refresh token available")
	// ErrRefreshFailed is returned to the leader and every queued caller when
	// the refresh call fails.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrRefreshTimeout is a refresh failure caused by the refresh timeout.
	ErrRefreshTimeout = fmt.Errorf("%w: timed out", ErrRefreshFailed)
	// ErrReplayFailed wraps a transport error on a replayed request.
	ErrReplayFailed = errors.New("replay failed")
)
