package client

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type tokenClaims struct {
	jwt.RegisteredClaims
	Name  string           `json:"name"`
	Roles jwt.ClaimStrings `json:"role,omitempty"`
}

// parseSession reads the identity claims from token without checking the
// signature.
func parseSession(token string) (*Session, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}

	s := &Session{UserID: claims.Subject, Name: claims.Name, Roles: []string(claims.Roles)}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
