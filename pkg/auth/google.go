package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
)

// GoogleCredentialSource acquires access tokens through Application Default
// Credentials. Under workload identity federation the credential file is a
// federation config, so the exchange happens inside the SDK; this type never
// sees a static credential.
type GoogleCredentialSource struct{}

// NewGoogleCredentialSource creates a credential source backed by
// Application Default Credentials.
func NewGoogleCredentialSource() *GoogleCredentialSource {
	return &GoogleCredentialSource{}
}

// AccessToken mints a bearer token for the given scopes. Each call creates a
// fresh token source, so tokens are re-acquired per request rather than
// cached locally.
func (*GoogleCredentialSource) AccessToken(ctx context.Context, scopes ...string) (string, error) {
	ts, err := google.DefaultTokenSource(ctx, scopes...)
	if err != nil {
		return "", fmt.Errorf("failed to locate default credentials: %w", err)
	}

	token, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("credential exchange failed: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("credential exchange returned an empty token")
	}

	return token.AccessToken, nil
}
