package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/b13-niass/esign/auth"
	"github.com/b13-niass/esign/db"
	"github.com/rs/zerolog/log"
)

type signInResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    Seconds        `json:"expires_in"`
	TokenType    string         `json:"token_type"`
	User         db.UserProfile `json:"user"`
}

type refreshResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    Seconds `json:"expires_in"`
}

// SignIn implements auth.Authenticator against the login endpoint.
func (a *API) SignIn(ctx context.Context, email, password string) (auth.Credentials, error) {
	body := map[string]string{"email": email, "password": password}
	res, err := callPublic[signInResponse](ctx, a, EndpointSignIn, body)
	if err != nil {
		return auth.Credentials{}, err
	}
	if res.AccessToken == "" {
		return auth.Credentials{}, fmt.Errorf("login response did not contain an access token")
	}
	return auth.Credentials{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    int64(res.ExpiresIn),
		User:         res.User,
	}, nil
}

// PerformTokenRefresh implements auth.TokenRefresher. It is sent on the public
// client, outside the refresh coordinator.
func (a *API) PerformTokenRefresh(ctx context.Context, refreshToken string) (auth.RefreshResult, error) {
	body := map[string]string{"refreshToken": refreshToken}
	res, err := callPublic[refreshResponse](ctx, a, EndpointRefreshToken, body)
	if err != nil {
		log.Debug().Err(err).Msg("Refresh endpoint rejected the request")
		return auth.RefreshResult{}, fmt.Errorf("failed to refresh token: %w", err)
	}
	return auth.RefreshResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    int64(res.ExpiresIn),
	}, nil
}

func callPublic[T any](ctx context.Context, a *API, endpoint string, in any) (T, error) {
	r := request{method: http.MethodPost, path: endpoint, public: true, contentType: "application/json"}
	body, err := jsonBody(in)
	if err != nil {
		var zero T
		return zero, err
	}
	r.body = body
	return call[T](ctx, a, r)
}
