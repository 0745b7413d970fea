// Package google verifies Google sign-in ID tokens.
package google

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"

	"github.com/oksasatya/house-marketplace/internal/application"
)

// Verifier checks ID tokens against Google's public keys for one client id.
type Verifier struct {
	ClientID string
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{ClientID: clientID}
}

func (v *Verifier) Verify(ctx context.Context, token string) (application.GoogleIdentity, error) {
	if v.ClientID == "" {
		return application.GoogleIdentity{}, errors.New("google sign-in not configured")
	}
	payload, err := idtoken.Validate(ctx, token, v.ClientID)
	if err != nil {
		return application.GoogleIdentity{}, err
	}
	id := application.GoogleIdentity{Subject: payload.Subject}
	id.Email, _ = payload.Claims["email"].(string)
	id.Name, _ = payload.Claims["name"].(string)
	id.EmailVerified, _ = payload.Claims["email_verified"].(bool)
	return id, nil
}
