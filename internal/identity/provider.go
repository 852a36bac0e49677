package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Provider resolves the contributor's external identity.
type Provider interface {
	// User returns the identity record for the configured credential.
	User(ctx context.Context) (*IdentityRecord, error)
}

// HTTPProvider fetches the identity record from an OAuth2 userinfo
// endpoint using a bearer token. A failed call is terminal for the run;
// it is never retried.
type HTTPProvider struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewHTTPProvider creates a provider for the given endpoint and token.
func NewHTTPProvider(baseURL, token string) *HTTPProvider {
	return &HTTPProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		token:   token,
	}
}

// User fetches the userinfo endpoint and decodes the identity record.
func (p *HTTPProvider) User(ctx context.Context) (*IdentityRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?alt=json", nil)
	if err != nil {
		return nil, eris.Wrap(err, "identity: create request")
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "identity: userinfo request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("identity: unexpected status %d from userinfo", resp.StatusCode)
	}

	var rec IdentityRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, eris.Wrap(err, "identity: decode userinfo")
	}

	return &rec, nil
}
