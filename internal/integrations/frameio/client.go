package frameio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumenworks/frameio-relay/internal/storage"
)

const (
	defaultAPIBase  = "https://api.frame.io/v2"
	defaultTokenURL = "https://ims-na1.adobelogin.com/ims/token/v3"

	providerName = "adobe"
)

var ErrNotConnected = errors.New("no frame.io credentials on file")

// APIError is a non-2xx answer from the Frame.io API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("frame.io api: %d %s", e.StatusCode, e.Message)
}

// TokenStore supplies and persists the per-user Adobe tokens the API calls
// run under. Satisfied by storage.TokenRepository.
type TokenStore interface {
	Get(ctx context.Context, userID, provider string) (storage.OAuthToken, error)
	Save(ctx context.Context, userID string, token storage.OAuthToken) error
}

// Client talks to the Frame.io v2 API on behalf of a signed-in user,
// refreshing the stored access token when it has expired.
type Client struct {
	httpClient   *http.Client
	apiBase      string
	tokenURL     string
	clientID     string
	clientSecret string
	tokens       TokenStore
	logger       *slog.Logger
	now          func() time.Time
}

type Option func(*Client)

// WithEndpoints overrides the API and token endpoints. Tests point these at
// local servers.
func WithEndpoints(apiBase, tokenURL string) Option {
	return func(c *Client) {
		c.apiBase = strings.TrimRight(apiBase, "/")
		c.tokenURL = tokenURL
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(tokens TokenStore, clientID, clientSecret string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		apiBase:      defaultAPIBase,
		tokenURL:     defaultTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokens:       tokens,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Account is the profile behind the connected token.
type Account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Asset is the subset of an asset record the relay exposes.
type Asset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	OriginalURL string `json:"original"`
	Filesize    int64  `json:"filesize"`
}

// Me returns the profile of the user the stored token belongs to.
func (c *Client) Me(ctx context.Context, userID string) (Account, error) {
	var account Account
	err := c.get(ctx, userID, "/me", &account)
	return account, err
}

// Asset fetches a single asset. The OriginalURL field is a short-lived
// signed download link for the original media.
func (c *Client) Asset(ctx context.Context, userID, assetID string) (Asset, error) {
	var asset Asset
	err := c.get(ctx, userID, "/assets/"+url.PathEscape(assetID), &asset)
	return asset, err
}

func (c *Client) get(ctx context.Context, userID, path string, out any) error {
	token, err := c.accessToken(ctx, userID)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("frame.io request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Message string `json:"message"`
	}
	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
		message = envelope.Message
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

// accessToken loads the stored token and refreshes it first if expired.
func (c *Client) accessToken(ctx context.Context, userID string) (string, error) {
	token, err := c.tokens.Get(ctx, userID, providerName)
	if storage.IsNotFound(err) {
		return "", ErrNotConnected
	}
	if err != nil {
		return "", err
	}
	if !token.Expired(c.now()) {
		return token.AccessToken, nil
	}
	if token.RefreshToken == "" {
		return "", ErrNotConnected
	}

	refreshed, err := c.refresh(ctx, token)
	if err != nil {
		return "", err
	}
	if err := c.tokens.Save(ctx, userID, refreshed); err != nil {
		c.logger.Warn("failed to persist refreshed token", "user_id", userID, "err", err)
	}
	return refreshed.AccessToken, nil
}

func (c *Client) refresh(ctx context.Context, old storage.OAuthToken) (storage.OAuthToken, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {old.RefreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return storage.OAuthToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return storage.OAuthToken{}, fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return storage.OAuthToken{}, c.apiError(resp)
	}

	var grant struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return storage.OAuthToken{}, fmt.Errorf("token refresh failed: %w", err)
	}

	token := storage.OAuthToken{
		Provider:     old.Provider,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenType:    grant.TokenType,
		Scope:        old.Scope,
	}
	if token.RefreshToken == "" {
		token.RefreshToken = old.RefreshToken
	}
	if grant.ExpiresIn > 0 {
		expires := c.now().Add(time.Duration(grant.ExpiresIn) * time.Second)
		token.ExpiresAt = &expires
	}
	c.logger.Info("refreshed frame.io access token", "provider", token.Provider)
	return token, nil
}
