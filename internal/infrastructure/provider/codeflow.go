package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/omnisphere/auth-service/internal/domain"
)

// CodeFlowConfig configures an authorization-code-flow client.
type CodeFlowConfig struct {
	Provider     domain.Provider
	ClientID     string
	ClientSecret string
	TokenURL     string
	UserInfoURL  string
}

// CodeFlowClient implements the authorization-code flow: exchange the code
// for an access token, then fetch the profile with it. GitHub is the only
// code-flow provider currently configured.
type CodeFlowClient struct {
	cfg        CodeFlowConfig
	httpClient *http.Client
}

func NewCodeFlowClient(cfg CodeFlowConfig) *CodeFlowClient {
	return &CodeFlowClient{
		cfg:        cfg,
		httpClient: newHTTPClient(),
	}
}

func (c *CodeFlowClient) Name() domain.Provider { return c.cfg.Provider }

// IsConfigured returns true if client credentials are set.
func (c *CodeFlowClient) IsConfigured() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

func (c *CodeFlowClient) Normalize(ctx context.Context, cred Credential) (domain.ExternalIdentity, error) {
	if cred.Code == "" {
		return domain.ExternalIdentity{}, domain.ErrMissingCredential("code")
	}

	token, err := c.exchangeCode(ctx, cred.Code)
	if err != nil {
		return domain.ExternalIdentity{}, err
	}

	return c.fetchProfile(ctx, token)
}

// exchangeCode trades the authorization code for an access token. A
// non-success response or a response without an access_token field means
// the token is absent and the profile fetch must not run.
func (c *CodeFlowClient) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"code":          {code},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", domain.ErrUpstreamAuth(c.cfg.Provider, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("token exchange request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("failed to read token response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("token exchange failed: %s", string(body)))
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("failed to parse token response: %w", err))
	}
	if token.AccessToken == "" {
		return "", domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("token response missing access_token"))
	}

	return token.AccessToken, nil
}

// githubProfile is the subset of the /user payload this service reads.
// The id is numeric on the wire; the external id is its decimal form.
type githubProfile struct {
	ID        json.Number `json:"id"`
	Login     string      `json:"login"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	AvatarURL string      `json:"avatar_url"`
}

func (c *CodeFlowClient) fetchProfile(ctx context.Context, accessToken string) (domain.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL, nil)
	if err != nil {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("profile request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("failed to read profile response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("profile fetch failed: %s", string(body)))
	}

	var p githubProfile
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("failed to parse profile: %w", err))
	}
	if p.ID.String() == "" {
		return domain.ExternalIdentity{}, domain.ErrUpstreamAuth(c.cfg.Provider, fmt.Errorf("profile missing id"))
	}

	return domain.ExternalIdentity{
		Provider:     c.cfg.Provider,
		ExternalID:   p.ID.String(),
		Email:        p.Email,
		UsernameHint: p.Login,
		DisplayName:  p.Name,
		AvatarURL:    p.AvatarURL,
	}, nil
}
