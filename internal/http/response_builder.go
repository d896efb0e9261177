// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the mapping
// from ledger and identity errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finanzas/internal/core"
	"finanzas/internal/identity"
	"finanzas/internal/ledger"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Warn("Failed to encode response", "status_code", b.statusCode, "error", err)
	}
}

// messageBody is the shape of every mutation and error response.
type messageBody struct {
	OK      bool              `json:"ok"`
	Message string            `json:"message"`
	Entry   *ledger.EntryView `json:"entry,omitempty"`
	Reset   *resetBody        `json:"reset,omitempty"`
}

type resetBody struct {
	Deleted     int           `json:"deleted"`
	Failed      []failureBody `json:"failed,omitempty"`
	SnapshotKey string        `json:"snapshot_key,omitempty"`
}

type failureBody struct {
	Category string `json:"category"`
	ID       string `json:"id"`
}

// ErrorResponse creates a {ok:false} response with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(messageBody{OK: false, Message: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// OutcomeResponse turns a command outcome into a response.
func OutcomeResponse(o ledger.Outcome, success int) *JSONResponseBuilder {
	body := messageBody{OK: o.OK, Message: o.Message, Entry: o.Entry}
	if o.Report != nil {
		rb := &resetBody{Deleted: o.Report.Deleted, SnapshotKey: o.Report.SnapshotKey}
		for _, f := range o.Report.Failed {
			rb.Failed = append(rb.Failed, failureBody{Category: f.Category.Collection(), ID: f.ID})
		}
		body.Reset = rb
	}
	status := success
	if !o.OK {
		status = StatusFor(o.Err)
	}
	return NewJSONResponse().Status(status).Body(body)
}

// StatusFor maps a ledger or identity error to an HTTP status.
func StatusFor(err error) int {
	var ve *core.ValidationError
	var ae *identity.AuthError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, core.ErrUnauthenticated), errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnknownCategory), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &ae):
		switch ae.Code {
		case identity.InvalidCredentials:
			return http.StatusUnauthorized
		case identity.UserDisabled:
			return http.StatusForbidden
		case identity.EmailInUse:
			return http.StatusConflict
		}
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
