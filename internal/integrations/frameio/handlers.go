package frameio

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lumenworks/frameio-relay/internal/auth"
	"github.com/lumenworks/frameio-relay/internal/httpx"
)

// Handler exposes a small read-only surface over the Frame.io API for the
// signed-in user.
type Handler struct {
	client *Client
	logger *slog.Logger
}

func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// Me answers GET /integrations/frameio/me with the connected profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "session required")
		return
	}

	account, err := h.client.Me(r.Context(), claims.Sub)
	if err != nil {
		h.writeError(w, claims.Sub, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, account)
}

// AssetOriginal answers GET /integrations/frameio/assets/{id}/original with
// a signed download link for the asset's original media.
func (h *Handler) AssetOriginal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "session required")
		return
	}
	assetID := r.PathValue("id")
	if assetID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "asset id is required")
		return
	}

	asset, err := h.client.Asset(r.Context(), claims.Sub, assetID)
	if err != nil {
		h.writeError(w, claims.Sub, err)
		return
	}
	if asset.OriginalURL == "" {
		httpx.WriteError(w, http.StatusNotFound, "asset has no original media")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"asset_id":     asset.ID,
		"name":         asset.Name,
		"filesize":     asset.Filesize,
		"download_url": asset.OriginalURL,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, userID string, err error) {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNotConnected):
		httpx.WriteError(w, http.StatusConflict, "Connect your Frame.io account first")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		h.logger.Warn("frame.io rejected stored token", "user_id", userID)
		httpx.WriteError(w, http.StatusUnauthorized, "Frame.io rejected the stored credentials - reconnect the account")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		httpx.WriteError(w, http.StatusNotFound, "asset not found")
	default:
		h.logger.Error("frame.io request failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusBadGateway, "Frame.io is unavailable")
	}
}
