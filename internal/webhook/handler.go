package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/lumenworks/frameio-relay/internal/event"
	"github.com/lumenworks/frameio-relay/internal/httpx"
	"github.com/lumenworks/frameio-relay/internal/publish"
)

const (
	timestampHeader = "X-Frameio-Request-Timestamp"
	signatureHeader = "X-Frameio-Signature"
)

// Handler translates between HTTP and the pipeline service. It makes no
// business decisions of its own: every outcome comes from the service, and
// writeError is the one place outcomes map to status codes.
type Handler struct {
	service  *Service
	verifier *SignatureVerifier // nil disables signature checks
	logger   *slog.Logger
}

func NewHandler(service *Service, verifier *SignatureVerifier, logger *slog.Logger) *Handler {
	return &Handler{service: service, verifier: verifier, logger: logger}
}

// Receive handles POST /api/v1/frameio/webhook.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if h.verifier != nil {
		err := h.verifier.Verify(r.Header.Get(timestampHeader), r.Header.Get(signatureHeader), body)
		if err != nil {
			h.logger.Warn("webhook signature rejected", "reason", err.Error(), "client_ip", httpx.ClientIP(r))
			httpx.WriteError(w, http.StatusUnauthorized, "invalid webhook signature")
			return
		}
	}

	messageID, err := h.service.Process(r.Context(), body, r.Header, httpx.ClientIP(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message_id": messageID})
}

// writeError maps the pipeline's error taxonomy to HTTP statuses. The status
// alone tells Frame.io whether to retry: 422 means never retry unmodified,
// 500 means safe to retry.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *event.ValidationError
	var perr *publish.Error
	switch {
	case errors.As(err, &verr):
		h.logger.Error("webhook payload rejected", "field", verr.Field, "err", verr.Error())
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"status":  "error",
			"message": "Invalid payload schema",
			"field":   verr.Field,
		})
	case errors.As(err, &perr):
		h.logger.Error("webhook publish failed", "err", perr.Error())
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to publish event - please retry")
	default:
		h.logger.Error("webhook processing failed", "err", err.Error())
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
