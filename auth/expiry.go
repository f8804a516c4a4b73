package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry returns the expiry of a JWT access token without verifying its
// signature. The backend is the only party that can verify it.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read expiration claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("access token has no expiration claim")
	}
	return exp.Time, nil
}

// isTokenValid checks if the access token is still valid, with a margin of
// five minutes.
func isTokenValid(token string) bool {
	if token == "" {
		return false
	}
	exp, err := TokenExpiry(token)
	if err != nil {
		// Opaque tokens are judged by the backend.
		return true
	}
	return time.Now().Add(5 * time.Minute).Before(exp)
}
