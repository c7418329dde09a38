// Package event holds the canonical representation of an inbound Frame.io
// webhook event. Validation happens once, at construction; downstream code
// treats the event as read-only.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValidationError reports a payload the sender must fix before resending.
// It is the permanent-error class of the pipeline: retrying the same body
// will always fail.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid webhook payload: %s %s", e.Field, e.Reason)
}

// Resource is the entity the event refers to. Identifiers are opaque
// strings; their format is the sender's concern.
type Resource struct {
	ID   string
	Type string
}

// Event is a validated Frame.io V4 webhook delivery.
//
// Raw carries the original body byte-for-byte. Unknown fields the model does
// not promote to typed attributes survive there, so new event shapes from
// Frame.io never break ingestion, and logging/publishing reflect exactly
// what was received.
type Event struct {
	Type     string
	Resource Resource

	// Optional context identifiers, empty when the payload omits them.
	AccountID   string
	WorkspaceID string
	ProjectID   string
	UserID      string

	Raw        json.RawMessage
	ReceivedAt time.Time
}

type idRef struct {
	ID string `json:"id"`
}

type envelope struct {
	Type     string `json:"type"`
	Resource *struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"resource"`
	Account   *idRef `json:"account"`
	Workspace *idRef `json:"workspace"`
	Project   *idRef `json:"project"`
	User      *idRef `json:"user"`
}

// Parse builds an Event from a raw request body. receivedAt is the
// server-assigned ingestion timestamp, never taken from the sender.
func Parse(body []byte, receivedAt time.Time) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ValidationError{Field: "body", Reason: "is not valid JSON"}
	}
	if env.Type == "" {
		return nil, &ValidationError{Field: "type", Reason: "is required"}
	}
	if env.Resource == nil {
		return nil, &ValidationError{Field: "resource", Reason: "is required"}
	}
	if env.Resource.ID == "" {
		return nil, &ValidationError{Field: "resource.id", Reason: "is required"}
	}
	if env.Resource.Type == "" {
		return nil, &ValidationError{Field: "resource.type", Reason: "is required"}
	}

	ev := &Event{
		Type: env.Type,
		Resource: Resource{
			ID:   env.Resource.ID,
			Type: env.Resource.Type,
		},
		Raw:        json.RawMessage(append([]byte(nil), body...)),
		ReceivedAt: receivedAt,
	}
	if env.Account != nil {
		ev.AccountID = env.Account.ID
	}
	if env.Workspace != nil {
		ev.WorkspaceID = env.Workspace.ID
	}
	if env.Project != nil {
		ev.ProjectID = env.Project.ID
	}
	if env.User != nil {
		ev.UserID = env.User.ID
	}
	return ev, nil
}

// Attributes returns the metadata published alongside the serialized event
// so subscribers can filter without deserializing the body.
func (e *Event) Attributes() map[string]string {
	return map[string]string{
		"event_type":    e.Type,
		"resource_type": e.Resource.Type,
		"resource_id":   e.Resource.ID,
	}
}
