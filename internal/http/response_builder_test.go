package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/identity"
	"finanzas/internal/ledger"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Body(map[string]string{"a": "b"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
	if w.Body.String() != "{\"a\":\"b\"}\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestOutcomeResponse(t *testing.T) {
	w := httptest.NewRecorder()
	OutcomeResponse(ledger.Outcome{
		OK:      false,
		Message: "Error al eliminar datos",
		Err:     core.ErrPartialReset,
		Report: &ledger.ResetReport{
			Deleted: 1,
			Failed:  []ledger.FailedDeletion{{Category: core.Expense, ID: "e1", Err: errors.New("boom")}},
		},
	}, http.StatusOK).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d", w.Code)
	}
	var body messageBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.OK || body.Reset == nil || len(body.Reset.Failed) != 1 || body.Reset.Failed[0].Category != "expenses" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{core.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("verify: %w", identity.ErrInvalidToken), http.StatusUnauthorized},
		{&core.ValidationError{Field: "amount", Err: core.ErrInsufficientFunds}, http.StatusUnprocessableEntity},
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrUnknownCategory, http.StatusNotFound},
		{core.ErrConfirmationRequired, http.StatusPreconditionRequired},
		{core.StoreError("list", errors.New("timeout")), http.StatusServiceUnavailable},
		{&identity.AuthError{Code: identity.EmailInUse}, http.StatusConflict},
		{&identity.AuthError{Code: identity.UserDisabled}, http.StatusForbidden},
		{&identity.AuthError{Code: identity.WeakPassword}, http.StatusUnprocessableEntity},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
