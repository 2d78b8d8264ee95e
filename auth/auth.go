// Package auth obtains OAuth2 client-credentials tokens for outgoing
// requests to the optimizer service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Conf represents the client credentials used against the token endpoint.
// An empty TokenURL disables authentication.
type Conf struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

// Enabled reports whether requests must carry a token.
func (c Conf) Enabled() bool { return c.TokenURL != "" }

// Validate checks an enabled configuration.
func (c Conf) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.ClientID == "" {
		return errors.New("client_id is required when token_url is set")
	}
	u, err := url.Parse(c.TokenURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid token_url %q", c.TokenURL)
	}
	return nil
}

func (c Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}

// ClientCred caches a token and refreshes it once expired.
type ClientCred struct {
	conf clientcredentials.Config
	src  oauth2.TokenSource
}

// NewClientCred creates a token source for conf. ctx carries the HTTP client
// used to reach the token endpoint (see oauth2.HTTPClient).
func NewClientCred(ctx context.Context, conf Conf) *ClientCred {
	cc := conf.toOauth2Config()
	return &ClientCred{conf: cc, src: cc.TokenSource(ctx)}
}

// GetToken returns a valid access token, requesting a new one when needed.
func (c *ClientCred) GetToken() (string, error) {
	tok, err := c.src.Token()
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return tok.AccessToken, nil
}

// ForceRefresh discards the cached token and requests a new one.
func (c *ClientCred) ForceRefresh(ctx context.Context) (string, error) {
	c.src = c.conf.TokenSource(ctx)
	return c.GetToken()
}

// Authorize sets the Authorization header of r.
func (c *ClientCred) Authorize(r *http.Request) error {
	tok, err := c.src.Token()
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	tok.SetAuthHeader(r)
	return nil
}
