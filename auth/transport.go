package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// RequestIDHeader carries a per-request correlation id.
	RequestIDHeader = "X-Request-ID"
	tokenType       = "Bearer "
	// maxDrainBytes caps how much of a rejected response body is read before closing it.
	maxDrainBytes = 1 << 20
)

// unauthorizedCodes are the statuses that mean the access token is no longer accepted.
var unauthorizedCodes = map[int]bool{
	http.StatusUnauthorized: true,
	419:                     true,
	440:                     true,
}

// IsUnauthorized reports whether status means the access token was rejected.
func IsUnauthorized(status int) bool {
	return unauthorizedCodes[status]
}

// Transport is an http.RoundTripper that attaches the stored access token to
// outgoing requests and hands authentication failures to a Coordinator.
type Transport struct {
	Base        http.RoundTripper
	Store       SessionStore
	Coordinator *Coordinator
	// RefreshOnNetworkError also treats connection-level failures as a trigger.
	RefreshOnNetworkError bool
}

// NewTransport creates a Transport over base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, store SessionStore, coordinator *Coordinator, refreshOnNetworkError bool) *Transport {
	return &Transport{Base: base, Store: store, Coordinator: coordinator, RefreshOnNetworkError: refreshOnNetworkError}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	token, err := t.Store.Token(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read access token")
	}
	out, err := prepare(ctx, req, getBody, token, requestID)
	if err != nil {
		return nil, err
	}

	resp, err := t.base().RoundTrip(out)
	if !t.shouldRecover(ctx, resp, err) {
		return resp, err
	}

	l := log.With().Str("request_id", requestID).Str("method", req.Method).Str("url", req.URL.String()).Logger()
	if resp != nil {
		l.Debug().Int("status", resp.StatusCode).Msg("Authentication rejected, recovering")
		discard(resp)
	} else {
		l.Debug().Err(err).Msg("Network error, recovering")
	}

	if t.Coordinator == nil {
		return nil, ErrAuthExpired
	}
	return t.Coordinator.Recover(ctx, token, func(ctx context.Context, token string) (*http.Response, error) {
		r, err := prepare(ctx, req, getBody, token, requestID)
		if err != nil {
			return nil, err
		}
		l.Debug().Msg("Replaying request")
		return t.base().RoundTrip(r)
	})
}

// prepare clones req for one attempt, with a fresh body and the auth headers.
func prepare(ctx context.Context, req *http.Request, getBody func() (io.ReadCloser, error), token, requestID string) (*http.Request, error) {
	r := req.Clone(ctx)
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		r.Body = body
		r.GetBody = getBody
	}
	if token != "" {
		r.Header.Set("Authorization", tokenType+token)
	}
	r.Header.Set(RequestIDHeader, requestID)
	return r, nil
}

func (t *Transport) shouldRecover(ctx context.Context, resp *http.Response, err error) bool {
	if err != nil {
		if !t.RefreshOnNetworkError || ctx.Err() != nil {
			return false
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		var netErr net.Error
		return errors.As(err, &netErr)
	}
	return resp != nil && IsUnauthorized(resp.StatusCode)
}

// replayableBody returns a function yielding a fresh copy of the request
// body, buffering it when the request cannot rewind it itself.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		_ = req.Body.Close()
		return req.GetBody, nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

func discard(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()
}
