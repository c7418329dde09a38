package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lumenworks/frameio-relay/internal/httpx"
)

var validate = validator.New()

// ProviderLister reports which OAuth providers a user has connected.
// Satisfied by storage.TokenRepository.
type ProviderLister interface {
	ListProviders(ctx context.Context, userID string) ([]string, error)
}

type Handler struct {
	magic         *MagicLinkService
	tokens        ProviderLister
	logger        *slog.Logger
	sessionTTL    time.Duration
	secureCookies bool
}

func NewHandler(
	magic *MagicLinkService,
	tokens ProviderLister,
	logger *slog.Logger,
	sessionTTL time.Duration,
	secureCookies bool,
) *Handler {
	return &Handler{
		magic:         magic,
		tokens:        tokens,
		logger:        logger,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

type sendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Send handles POST /auth/magic/send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	if err := h.magic.Send(r.Context(), req.Email); err != nil {
		h.logger.Error("failed to generate magic link", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to generate magic link")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Magic link generated. Check server logs.",
	})
}

// Callback handles GET /auth/magic/callback?token&email.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := r.URL.Query().Get("token")
	email := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("email")))
	if token == "" || email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "token and email are required")
		return
	}

	session, user, err := h.magic.Redeem(r.Context(), token, email)
	if err != nil {
		if !errors.Is(err, ErrLinkInvalid) {
			h.logger.Error("magic link redemption failed", "err", err)
		}
		httpx.WriteError(w, http.StatusBadRequest, "authentication failed")
		return
	}
	h.logger.Info("user signed in", "user_id", user.ID, "email", user.Email)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		MaxAge:   int(h.sessionTTL.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Dashboard handles GET /dashboard (session required).
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	providers, err := h.tokens.ListProviders(r.Context(), claims.Sub)
	if err != nil {
		h.logger.Error("failed to list connected providers", "user_id", claims.Sub, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	if providers == nil {
		providers = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":   claims.Sub,
		"email":     claims.Email,
		"connected": providers,
	})
}

// Logout handles POST /auth/logout by expiring the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}
