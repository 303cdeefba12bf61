package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry reads the exp claim without verifying the signature; the token
// is only inspected to schedule a refresh, never trusted.
func tokenExpiry(accessToken string) time.Time {
	if accessToken == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
