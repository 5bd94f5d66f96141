package services

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleTokenClaims is the subset of a verified Google ID token the auth
// flow needs.
type GoogleTokenClaims struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifier validates a Google ID token and extracts its claims.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*GoogleTokenClaims, error)
}

type idTokenVerifier struct {
	audience string
}

// NewGoogleVerifier creates a GoogleVerifier bound to the given OAuth client ID
func NewGoogleVerifier(clientID string) GoogleVerifier {
	return &idTokenVerifier{audience: clientID}
}

func (v *idTokenVerifier) Verify(ctx context.Context, token string) (*GoogleTokenClaims, error) {
	payload, err := idtoken.Validate(ctx, token, v.audience)
	if err != nil {
		return nil, fmt.Errorf("failed to verify google token: %w", err)
	}

	claims := &GoogleTokenClaims{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		claims.Name = name
	}

	if claims.Email == "" {
		return nil, fmt.Errorf("google token carries no email claim")
	}

	return claims, nil
}
