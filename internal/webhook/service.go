// Package webhook implements the Frame.io ingestion pipeline:
// validate, log, publish, with a two-class error taxonomy that tells the
// sender whether a retry can succeed.
package webhook

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lumenworks/frameio-relay/internal/event"
	"github.com/lumenworks/frameio-relay/internal/publish"
)

// Service is the only place the pipeline's business rules live. Side effects
// (logging, publishing) are explicit and strictly ordered: the log records
// are written before publishing is attempted, and a publish failure does not
// roll them back. The log is the durable trace even when the topic is down.
type Service struct {
	logger    *slog.Logger
	publisher publish.Publisher
}

func NewService(logger *slog.Logger, publisher publish.Publisher) *Service {
	return &Service{logger: logger, publisher: publisher}
}

// Process runs a single ingestion attempt and returns the transport's
// message id. There is no retry loop here: retry is the sender's job,
// driven by the HTTP status the caller maps errors to.
//
// Error classes: *event.ValidationError (permanent, sender must fix the
// payload) and *publish.Error (transient, identical retry may succeed).
func (s *Service) Process(ctx context.Context, body []byte, headers http.Header, clientIP string) (string, error) {
	ev, err := event.Parse(body, time.Now().UTC())
	if err != nil {
		return "", err
	}

	// One self-contained record per concern. Multi-line output would
	// fragment into partial entries in log aggregation, so each record
	// is a single JSON line.
	fields := []any{
		"event_type", ev.Type,
		"resource_type", ev.Resource.Type,
		"resource_id", ev.Resource.ID,
	}
	if ev.AccountID != "" {
		fields = append(fields, "account_id", ev.AccountID)
	}
	if ev.WorkspaceID != "" {
		fields = append(fields, "workspace_id", ev.WorkspaceID)
	}
	if ev.ProjectID != "" {
		fields = append(fields, "project_id", ev.ProjectID)
	}
	if ev.UserID != "" {
		fields = append(fields, "user_id", ev.UserID)
	}
	fields = append(fields,
		"user_agent", headers.Get("User-Agent"),
		"timestamp", ev.ReceivedAt.Format(time.RFC3339),
		"client_ip", clientIP,
	)
	s.logger.Info("frameio webhook received", fields...)
	s.logger.Info("frameio webhook headers", "headers", flattenHeaders(headers))
	s.logger.Info("frameio webhook payload", "payload", ev.Raw)

	messageID, err := s.publisher.Publish(ctx, ev)
	if err != nil {
		return "", err
	}
	if messageID == "" {
		return "", &publish.Error{Err: errors.New("publisher returned no message id")}
	}
	return messageID, nil
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
