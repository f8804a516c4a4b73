package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/b13-niass/esign/auth"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
	statusOK          = "OK"
)

// API is a client for the e-signature backend. Calls under /private and
// /api go through the authenticated http.Client; sign-in and token refresh
// use the public one so they never pass through the refresh coordinator.
type API struct {
	BaseURL string
	// MaxRetries bounds attempts for idempotent requests.
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles on each retry.
	Backoff time.Duration

	http   *http.Client
	public *http.Client
}

// New creates an API client. Nil clients get a plain client with the default timeout.
func New(baseURL string, authenticated, public *http.Client) *API {
	if authenticated == nil {
		authenticated = &http.Client{Timeout: defaultTimeout}
	}
	if public == nil {
		public = &http.Client{Timeout: defaultTimeout}
	}
	return &API{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		MaxRetries: defaultMaxRetries,
		Backoff:    defaultBackoff,
		http:       authenticated,
		public:     public,
	}
}

// Envelope is the response format shared by every backend endpoint.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// APIError is a non-2xx response or an envelope whose status is not OK.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap lets callers match a rejected access token with auth.ErrAuthExpired.
func (e *APIError) Unwrap() error {
	if auth.IsUnauthorized(e.StatusCode) {
		return auth.ErrAuthExpired
	}
	return nil
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Seconds is a duration in seconds the backend may send as a number or a string.
type Seconds int64

func (s *Seconds) UnmarshalJSON(b []byte) error {
	str := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if str == "" || str == "null" {
		*s = 0
		return nil
	}
	v, err := json.Number(str).Int64()
	if err != nil {
		return fmt.Errorf("invalid seconds value %q: %w", str, err)
	}
	*s = Seconds(v)
	return nil
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	accept      string
	public      bool
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func (a *API) endpoint(path string, query url.Values) string {
	u := a.BaseURL + path
	if isAbsoluteURL(path) {
		u = path
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// createRequest builds one attempt of r. The body is a bytes.Reader so the
// request carries a GetBody and can be replayed after a token refresh.
func (a *API) createRequest(ctx context.Context, r request) (*http.Request, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, a.endpoint(r.path, r.query), body)
	if err != nil {
		log.Error().Err(err).Str("method", r.method).Str("path", r.path).Msg("Failed to create request")
		return nil, err
	}
	accept := r.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	return req, nil
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// sessionError reports whether err ended the session; retrying cannot help.
func sessionError(err error) bool {
	return errors.Is(err, auth.ErrRefreshUnavailable) ||
		errors.Is(err, auth.ErrRefreshFailed) ||
		errors.Is(err, auth.ErrAuthExpired)
}

// sendRequest sends r and checks the status. Idempotent requests are retried
// on transport failures and 5xx responses with a doubling backoff.
func (a *API) sendRequest(ctx context.Context, r request) (*http.Response, error) {
	client := a.http
	if r.public {
		client = a.public
	}
	attempts := 1
	if idempotent(r.method) && a.MaxRetries > 1 {
		attempts = a.MaxRetries
	}
	backoff := a.Backoff

	var resp *http.Response
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var req *http.Request
		req, err = a.createRequest(ctx, r)
		if err != nil {
			return nil, err
		}
		resp, err = client.Do(req)
		if err != nil {
			if ctx.Err() != nil || sessionError(err) {
				return nil, err
			}
			log.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", attempts).Msg("Request failed, retrying...")
			continue
		}

		if resp.StatusCode >= 500 && i < attempts-1 {
			log.Warn().Int("status", resp.StatusCode).Int("attempt", i+1).Int("max_attempts", attempts).Msg("Server error, retrying...")
			closeResponseBody(resp)
			continue
		}
		break
	}

	if err != nil {
		log.Error().Err(err).Str("method", r.method).Str("path", r.path).Msg("Failed to send request")
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		closeResponseBody(resp)
		log.Error().Int("status", resp.StatusCode).Str("method", r.method).Str("path", r.path).Str("message", apiErr.Message).Msg("HTTP request failed with non-successful status")
		return nil, apiErr
	}
	log.Debug().Int("status", resp.StatusCode).Str("method", r.method).Str("path", r.path).Msg("HTTP request successful")
	return resp, nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(body) == 0 {
		return apiErr
	}
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil {
		apiErr.Status = env.Status
		apiErr.Message = env.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

// call sends r and decodes the enveloped response data into T.
func call[T any](ctx context.Context, a *API, r request) (T, error) {
	var zero T
	resp, err := a.sendRequest(ctx, r)
	if err != nil {
		return zero, err
	}
	defer closeResponseBody(resp)

	body, err := readResponseBody(resp)
	if err != nil {
		return zero, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return zero, nil
	}

	var env Envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		log.Error().Err(err).Str("path", r.path).Msg("Failed to parse response")
		return zero, fmt.Errorf("failed to parse response from %s: %w", r.path, err)
	}
	if env.Status != "" && !strings.EqualFold(env.Status, statusOK) {
		return zero, &APIError{StatusCode: resp.StatusCode, Status: env.Status, Message: env.Message}
	}
	return env.Data, nil
}

func getJSON[T any](ctx context.Context, a *API, path string, query url.Values) (T, error) {
	return call[T](ctx, a, request{method: http.MethodGet, path: path, query: query})
}

func postJSON[T any](ctx context.Context, a *API, path string, in any) (T, error) {
	r := request{method: http.MethodPost, path: path}
	if in != nil {
		body, err := jsonBody(in)
		if err != nil {
			var zero T
			return zero, err
		}
		r.body = body
		r.contentType = "application/json"
	}
	return call[T](ctx, a, r)
}

func jsonBody(in any) ([]byte, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return body, nil
}

func readResponseBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read response body")
		return nil, err
	}
	return body, nil
}

func closeResponseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, 1024*1024)
	_ = resp.Body.Close()
}
