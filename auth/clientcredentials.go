package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ClientCredentialsConfig configures an OAuth2 client-credentials grant.
type ClientCredentialsConfig struct {
	// TokenURL is the token endpoint.
	TokenURL string

	// ClientID and ClientSecret identify the client.
	ClientID     string
	ClientSecret string

	// Scopes are sent space-separated in the "scope" parameter.
	Scopes []string

	// AuthMethod is how the client authenticates to the token endpoint.
	// Options: "client_secret_basic" (default), "client_secret_post"
	AuthMethod string

	// HTTPClient is the client used for token requests.
	// Default: a client with a 10s timeout
	HTTPClient *http.Client
}

// ClientCredentials fetches tokens from an OAuth2 token endpoint. Wrap it
// with ReuseTokenSource to avoid a token request per RPC.
type ClientCredentials struct {
	config ClientCredentialsConfig
	now    func() time.Time
}

// NewClientCredentials creates a client-credentials token source.
func NewClientCredentials(config ClientCredentialsConfig) (*ClientCredentials, error) {
	if config.TokenURL == "" || config.ClientID == "" {
		return nil, ErrMissingCredentials
	}
	if config.AuthMethod == "" {
		config.AuthMethod = "client_secret_basic"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ClientCredentials{config: config, now: time.Now}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token requests a new access token.
func (c *ClientCredentials) Token(ctx context.Context) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if len(c.config.Scopes) > 0 {
		form.Set("scope", strings.Join(c.config.Scopes, " "))
	}
	if c.config.AuthMethod == "client_secret_post" {
		form.Set("client_id", c.config.ClientID)
		form.Set("client_secret", c.config.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.config.AuthMethod == "client_secret_basic" {
		credentials := base64.StdEncoding.EncodeToString([]byte(
			url.QueryEscape(c.config.ClientID) + ":" + url.QueryEscape(c.config.ClientSecret)))
		req.Header.Set("Authorization", "Basic "+credentials)
	}

	issuedAt := c.now()
	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTokenRequest, resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrTokenMalformed, err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access_token", ErrTokenMalformed)
	}

	tok := &Token{Value: body.AccessToken}
	if body.TokenType != "" && !strings.EqualFold(body.TokenType, "bearer") {
		tok.Type = body.TokenType
	}
	if body.ExpiresIn > 0 {
		tok.ExpiresAt = issuedAt.Add(time.Duration(body.ExpiresIn) * time.Second)
	}
	return tok, nil
}
