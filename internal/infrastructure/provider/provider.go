// Package provider turns provider-specific credentials into normalized
// external identities. Clients never touch account storage; auth decisions
// belong to the application layer.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/omnisphere/auth-service/internal/domain"
)

// Credential carries the provider-specific input of a login or link
// request. Exactly one field group is used per client kind.
type Credential struct {
	// Code is the authorization code of the code flow (github).
	Code string
	// AccessToken is a token already issued to the client (google).
	AccessToken string
	// Payload is the signed field map of the widget flow (telegram),
	// including its "hash" field.
	Payload map[string]string
}

// Client normalizes credentials for one provider.
type Client interface {
	// Name returns the provider this client serves.
	Name() domain.Provider

	// Normalize verifies the credential with the provider and returns the
	// identity it asserts. No account decisions are made here.
	Normalize(ctx context.Context, cred Credential) (domain.ExternalIdentity, error)
}

// Provider endpoints are plain blocking HTTP; a bounded client timeout keeps
// a slow upstream from pinning request workers.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
