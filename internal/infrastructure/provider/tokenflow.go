package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/omnisphere/auth-service/internal/domain"
)

// TokenFlowConfig configures a token-flow client.
type TokenFlowConfig struct {
	Provider    domain.Provider
	UserInfoURL string
}

// TokenFlowClient handles providers whose client-side SDK already holds an
// access token (google). There is no exchange step; the token is presented
// as-is against the userinfo endpoint, which also verifies it.
type TokenFlowClient struct {
	cfg        TokenFlowConfig
	httpClient *http.Client
}

func NewTokenFlowClient(cfg TokenFlowConfig) *TokenFlowClient {
	return &TokenFlowClient{
		cfg:        cfg,
		httpClient: newHTTPClient(),
	}
}

func (c *TokenFlowClient) Name() domain.Provider { return c.cfg.Provider }

// googleProfile is the subset of the openid userinfo payload this service
// reads. The stable identifier is "sub".
type googleProfile struct {
	Sub       string `json:"sub"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	GivenName string `json:"given_name"`
	Picture   string `json:"picture"`
}

func (c *TokenFlowClient) Normalize(ctx context.Context, cred Credential) (domain.ExternalIdentity, error) {
	if cred.AccessToken == "" {
		return domain.ExternalIdentity{}, domain.ErrMissingCredential("access_token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL, nil)
	if err != nil {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("userinfo request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("failed to read userinfo response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("userinfo fetch failed: %s", string(body)))
	}

	var p googleProfile
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("failed to parse userinfo: %w", err))
	}
	if p.Sub == "" {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("userinfo missing sub"))
	}

	return domain.ExternalIdentity{
		Provider:     c.cfg.Provider,
		ExternalID:   p.Sub,
		Email:        p.Email,
		UsernameHint: p.Name,
		DisplayName:  p.GivenName,
		AvatarURL:    p.Picture,
	}, nil
}
