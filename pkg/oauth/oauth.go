// Package oauth obtains and stores app-only bearer tokens for packfeed.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrMissingSecrets = errors.New("client id and secret are required")
)

// TwitterTokenURL is the OAuth2 token endpoint for app-only authentication.
const TwitterTokenURL = "https://api.twitter.com/oauth2/token" // #nosec G101 -- public endpoint, not a credential

type Config struct {
	ClientID     string
	ClientSecret string // #nosec G117 - config field, not an exposed secret
	TokenURL     string
}

// TwitterAppConfig returns the client credentials config for a Twitter API
// key and secret.
func TwitterAppConfig(apiKey, apiSecret string) Config {
	return Config{
		ClientID:     apiKey,
		ClientSecret: apiSecret,
		TokenURL:     TwitterTokenURL,
	}
}

// Validate reports whether the config can be used for a token request.
func (c Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrMissingSecrets
	}
	if c.TokenURL == "" {
		return errors.New("token URL is required")
	}
	return nil
}

type Token struct {
	AccessToken string `json:"access_token"` // #nosec G117 - JSON field for OAuth token, not an exposed secret
	TokenType   string `json:"token_type"`
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Flow struct {
	config     Config
	httpClient HTTPClient
}

type FlowOption func(*Flow)

func WithHTTPClient(client HTTPClient) FlowOption {
	return func(f *Flow) { f.httpClient = client }
}

// WithTokenURL overrides the token endpoint.
func WithTokenURL(tokenURL string) FlowOption {
	return func(f *Flow) { f.config.TokenURL = tokenURL }
}

func NewFlow(config Config, opts ...FlowOption) *Flow {
	f := &Flow{config: config, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAppToken runs the client credentials grant and returns the bearer
// token issued for the application.
func (f *Flow) FetchAppToken(ctx context.Context) (*Token, error) {
	if err := f.config.Validate(); err != nil {
		return nil, err
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.SetBasicAuth(url.QueryEscape(f.config.ClientID), url.QueryEscape(f.config.ClientSecret))

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token request failed: status %d", resp.StatusCode)
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("token response has no access_token")
	}
	if !strings.EqualFold(token.TokenType, "bearer") {
		return nil, fmt.Errorf("unexpected token type %q", token.TokenType)
	}

	return &token, nil
}

type TokenStorage struct {
	dir string
}

func NewTokenStorage(dir string) *TokenStorage {
	return &TokenStorage{dir: dir}
}

// Dir returns the directory tokens are stored in.
func (s *TokenStorage) Dir() string {
	return s.dir
}

func (s *TokenStorage) Save(provider string, token *Token) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	return os.WriteFile(s.path(provider), data, 0600)
}

func (s *TokenStorage) Load(provider string) (*Token, error) {
	data, err := os.ReadFile(s.path(provider)) // #nosec G304 -- provider is sanitized
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &token, nil
}

func (s *TokenStorage) path(provider string) string {
	return filepath.Join(s.dir, filepath.Base(provider)+"_token.json")
}
