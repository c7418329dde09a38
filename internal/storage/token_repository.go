package storage

import (
	"context"
	"time"

	"github.com/lumenworks/frameio-relay/internal/db"
	"github.com/lumenworks/frameio-relay/internal/secrets"
)

// OAuthToken is a connected provider's token set for one user. Access and
// refresh tokens live encrypted in the database; this struct always holds
// the plaintext side.
type OAuthToken struct {
	Provider     string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    *time.Time
	ConnectedAt  time.Time
}

// Expired reports whether the access token is past its expiry. Tokens with
// no recorded expiry are assumed live.
func (t OAuthToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// TokenRepository persists OAuth tokens, one row per (user, provider).
type TokenRepository struct {
	pool *db.Pool
	box  *secrets.Box
}

func NewTokenRepository(pool *db.Pool, box *secrets.Box) *TokenRepository {
	return &TokenRepository{pool: pool, box: box}
}

// Save upserts the token for (userID, provider). Reconnecting a provider
// replaces the stored token set.
func (r *TokenRepository) Save(ctx context.Context, userID string, token OAuthToken) error {
	access, err := r.box.EncryptString(token.AccessToken)
	if err != nil {
		return err
	}
	refresh := ""
	if token.RefreshToken != "" {
		if refresh, err = r.box.EncryptString(token.RefreshToken); err != nil {
			return err
		}
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO oauth_tokens (user_id, provider, access_token, refresh_token, token_type, scope, expires_at, connected_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, now())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			expires_at = EXCLUDED.expires_at,
			connected_at = now()
	`, userID, token.Provider, access, refresh, token.TokenType, token.Scope, token.ExpiresAt)
	return err
}

func (r *TokenRepository) Get(ctx context.Context, userID, provider string) (OAuthToken, error) {
	var token OAuthToken
	var access string
	var refresh *string
	err := r.pool.QueryRow(ctx, `
		SELECT provider, access_token, refresh_token, token_type, scope, expires_at, connected_at
		FROM oauth_tokens
		WHERE user_id = $1 AND provider = $2
	`, userID, provider).Scan(&token.Provider, &access, &refresh, &token.TokenType, &token.Scope, &token.ExpiresAt, &token.ConnectedAt)
	if err != nil {
		return OAuthToken{}, err
	}

	if token.AccessToken, err = r.box.DecryptString(access); err != nil {
		return OAuthToken{}, err
	}
	if refresh != nil {
		if token.RefreshToken, err = r.box.DecryptString(*refresh); err != nil {
			return OAuthToken{}, err
		}
	}
	return token, nil
}

func (r *TokenRepository) ListProviders(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT provider
		FROM oauth_tokens
		WHERE user_id = $1
		ORDER BY provider
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

func (r *TokenRepository) Delete(ctx context.Context, userID, provider string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM oauth_tokens
		WHERE user_id = $1 AND provider = $2
	`, userID, provider)
	return err
}
