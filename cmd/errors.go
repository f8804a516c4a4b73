package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/b13-niass/esign/auth"
	"github.com/b13-niass/esign/client"
	"github.com/b13-niass/esign/pkg/clierr"
)

// describe turns an error from the client stack into a user-facing clierr.Error.
func describe(err error) error {
	var ce *clierr.Error
	if err == nil || errors.As(err, &ce) {
		return err
	}

	switch {
	case errors.Is(err, auth.ErrRefreshUnavailable),
		errors.Is(err, auth.ErrRefreshFailed),
		errors.Is(err, auth.ErrAuthExpired):
		return clierr.New(clierr.Auth, "session expired, please run `esign login`", err)
	case errors.Is(err, context.DeadlineExceeded):
		return clierr.New(clierr.Network, "the request timed out", err)
	case errors.Is(err, context.Canceled):
		return clierr.New(clierr.Internal, "cancelled", err)
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return clierr.New(clierr.NotFound, msg, err)
		case apiErr.StatusCode == http.StatusForbidden:
			return clierr.New(clierr.Auth, "permission denied: "+msg, err)
		case apiErr.StatusCode >= 500:
			return clierr.New(clierr.Network, fmt.Sprintf("server error (HTTP %d): %s", apiErr.StatusCode, msg), err)
		case apiErr.StatusCode >= 400:
			return clierr.New(clierr.Validation, msg, err)
		}
		return clierr.New(clierr.Internal, msg, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return clierr.New(clierr.Network, "cannot reach the backend: "+err.Error(), err)
	}
	return err
}
