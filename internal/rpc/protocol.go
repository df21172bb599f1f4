// Package rpc implements the framed request/response protocol between the
// daemon (the single owner of the store) and its callers. Each frame is a
// 4-byte little-endian length prefix followed by a JSON message. Frames
// travel over stdio for the native-messaging channel or over a unix socket
// for local tooling; the protocol is identical on both.
package rpc

import (
	"encoding/json/jsontext"
	"errors"

	apperrors "github.com/convomarkapp/convomark-host/internal/errors"
)

// Actions understood by the daemon.
const (
	ActionPing = "ping"

	ActionPutAnnotation    = "put-annotation"
	ActionGetAnnotation    = "get-annotation"
	ActionListAnnotations  = "list-annotations"
	ActionDeleteAnnotation = "delete-annotation"

	ActionPutMessageAnnotation    = "put-message-annotation"
	ActionGetMessageAnnotation    = "get-message-annotation"
	ActionListMessageAnnotations  = "list-message-annotations"
	ActionDeleteMessageAnnotation = "delete-message-annotation"

	ActionPutReminder    = "put-reminder"
	ActionGetReminder    = "get-reminder"
	ActionListReminders  = "list-reminders"
	ActionDeleteReminder = "delete-reminder"

	ActionPutLabel    = "put-label"
	ActionListLabels  = "list-labels"
	ActionDeleteLabel = "delete-label"

	ActionGetSettings   = "get-settings"
	ActionPatchSettings = "patch-settings"

	ActionExportAll = "export-all"
	ActionImportAll = "import-all"

	ActionSearchAnnotations = "search-annotations"
	ActionGetStats          = "get-stats"
)

// Request is a single call from a caller to the daemon. ID correlates the
// eventual Response; callers must not reuse an ID while a call is in flight.
type Request struct {
	ID      string         `json:"id"`
	Action  string         `json:"action"`
	Payload jsontext.Value `json:"payload,omitempty"`
}

// Response answers exactly one Request. OK with null Data is a valid
// outcome: lookups of absent records answer that way rather than erroring.
type Response struct {
	ID    string         `json:"id"`
	OK    bool           `json:"ok"`
	Data  jsontext.Value `json:"data,omitempty"`
	Error *ErrorPayload  `json:"error,omitempty"`
}

// ErrorPayload carries a failed call's error across the wire.
type ErrorPayload struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
	Details any            `json:"details,omitempty"`
}

// Err converts the wire payload back into a domain error.
func (p *ErrorPayload) Err() *apperrors.Error {
	return &apperrors.Error{Code: p.Code, Message: p.Message, Details: p.Details}
}

// errorPayloadFrom maps any handler error onto the wire shape. Errors that
// are not domain errors surface as INTERNAL without leaking detail.
func errorPayloadFrom(err error) *ErrorPayload {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return &ErrorPayload{
			Code:    domainErr.Code,
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}
	return &ErrorPayload{Code: apperrors.CodeInternal, Message: err.Error()}
}

// IDPayload addresses a single record by its composite id.
type IDPayload struct {
	ID string `json:"id" validate:"required"`
}

// PutLabelPayload creates or updates a label. An omitted id is derived
// from the display name; an omitted color is generated from the slug.
type PutLabelPayload struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name"    validate:"required,max=80"`
	Color       string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// ListAnnotationsPayload carries the optional filters for list actions.
// Zero-valued fields apply no filter.
type ListAnnotationsPayload struct {
	Origin          string `json:"origin,omitempty"`
	Label           string `json:"label,omitempty"`
	Text            string `json:"text,omitempty"`
	Fingerprint     string `json:"fingerprint,omitempty"`
	UpdatedWithinMs int64  `json:"updated_within_ms,omitempty" validate:"gte=0"`
}

// DeletedPayload reports whether a delete removed anything.
type DeletedPayload struct {
	Deleted bool `json:"deleted"`
}
