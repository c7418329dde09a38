package oauth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/markbates/goth/gothic"

	"github.com/lumenworks/frameio-relay/internal/auth"
	"github.com/lumenworks/frameio-relay/internal/httpx"
	"github.com/lumenworks/frameio-relay/internal/storage"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// TokenStore persists the tokens obtained from a completed authorization.
type TokenStore interface {
	Save(ctx context.Context, userID string, token storage.OAuthToken) error
	Delete(ctx context.Context, userID, provider string) error
}

type Handler struct {
	tokens  TokenStore
	logger  *slog.Logger
	enabled map[string]bool
}

func NewHandler(tokens TokenStore, logger *slog.Logger, providers []string) *Handler {
	enabled := make(map[string]bool, len(providers))
	for _, p := range providers {
		enabled[p] = true
	}
	return &Handler{tokens: tokens, logger: logger, enabled: enabled}
}

// Connect starts the authorization code flow by redirecting to the provider.
// The caller must already hold a session; the session user is who the
// resulting tokens belong to.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.enabled[r.PathValue("provider")] {
		httpx.WriteError(w, http.StatusNotFound, "unknown provider")
		return
	}
	gothic.BeginAuthHandler(w, r)
}

// Callback completes the flow, encrypts and stores the tokens, and sends the
// user back to the dashboard.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	provider := r.PathValue("provider")
	if !h.enabled[provider] {
		httpx.WriteError(w, http.StatusNotFound, "unknown provider")
		return
	}
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "session required")
		return
	}

	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		h.logger.Warn("oauth exchange failed", "provider", provider, "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "authorization failed")
		return
	}

	token := storage.OAuthToken{
		Provider:     provider,
		AccessToken:  gothUser.AccessToken,
		RefreshToken: gothUser.RefreshToken,
		TokenType:    "bearer",
	}
	if !gothUser.ExpiresAt.IsZero() {
		expires := gothUser.ExpiresAt
		token.ExpiresAt = &expires
	}
	if err := h.tokens.Save(r.Context(), claims.Sub, token); err != nil {
		h.logger.Error("failed to store oauth token", "provider", provider, "user_id", claims.Sub, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to store credentials")
		return
	}

	h.logger.Info("oauth provider connected", "provider", provider, "user_id", claims.Sub)
	http.Redirect(w, r, "/dashboard?connected="+provider, http.StatusFound)
}

// Disconnect removes the stored tokens for a provider.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	provider := r.PathValue("provider")
	if !h.enabled[provider] {
		httpx.WriteError(w, http.StatusNotFound, "unknown provider")
		return
	}
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "session required")
		return
	}
	if err := h.tokens.Delete(r.Context(), claims.Sub, provider); err != nil {
		h.logger.Error("failed to delete oauth token", "provider", provider, "user_id", claims.Sub, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to disconnect provider")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "disconnected", "provider": provider})
}
