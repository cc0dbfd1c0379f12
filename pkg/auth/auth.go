// Package auth computes the HTTP headers the gateway attaches to outbound
// backend requests, acquiring a bearer token through workload identity
// federation when the deployment type requires one.
package auth

import (
	"context"

	"github.com/agentgate/agentgate/pkg/deployment"
	"github.com/agentgate/agentgate/pkg/errors"
)

// CloudPlatformScope is the single OAuth scope requested for backend calls.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// CredentialSource mints short-lived access tokens for a set of scopes.
// Implementations wrap the external credential-exchange SDK; test doubles
// can be substituted directly.
type CredentialSource interface {
	// AccessToken returns a bearer token valid for the given scopes.
	AccessToken(ctx context.Context, scopes ...string) (string, error)
}

// HeaderProvider computes the headers for outbound backend requests.
// It is safe for concurrent use; the injected config is read-only.
type HeaderProvider struct {
	cfg   *deployment.Config
	creds CredentialSource
}

// NewHeaderProvider creates a HeaderProvider for the given endpoint
// configuration and credential source.
func NewHeaderProvider(cfg *deployment.Config, creds CredentialSource) *HeaderProvider {
	return &HeaderProvider{
		cfg:   cfg,
		creds: creds,
	}
}

// Headers returns the headers to attach to a backend request. Only
// agent-engine deployments carry an Authorization header; every call
// re-acquires the token, there is no local caching or refresh.
func (p *HeaderProvider) Headers(ctx context.Context) (map[string]string, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	if p.cfg.Type != deployment.TypeAgentEngine {
		return headers, nil
	}

	token, err := p.creds.AccessToken(ctx, CloudPlatformScope)
	if err != nil {
		return nil, errors.NewAuthenticationError("failed to acquire access token", err)
	}
	if token == "" {
		return nil, errors.NewAuthenticationError("credential source returned no token", nil)
	}

	headers["Authorization"] = "Bearer " + token
	return headers, nil
}
