package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finanzas/internal/core"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		want    entryRequest
	}{
		{name: "string amount", body: `{"description":"Renta","amount":"1,250.50"}`, want: entryRequest{"Renta", "1,250.50"}},
		{name: "number amount", body: `{"description":"Renta","amount":1250.5}`, want: entryRequest{"Renta", "1250.5"}},
		{name: "empty body", body: ``, wantErr: errEmptyBody},
		{name: "two documents", body: `{"description":"a"} {"description":"b"}`, wantErr: errTrailingDoc},
		{name: "unknown field", body: `{"descripcion":"a"}`, wantErr: errors.New("any")},
		{name: "bool amount", body: `{"amount":true}`, wantErr: errors.New("any")},
		{name: "too large", body: `{"description":"` + strings.Repeat("x", maxBodyBytes) + `"}`, wantErr: errBodyTooBig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got entryRequest
			err := DecodeJSON(httptest.NewRecorder(), req, &got)
			switch {
			case tt.wantErr == nil && err != nil:
				t.Fatalf("unexpected error: %v", err)
			case tt.wantErr != nil && err == nil:
				t.Fatalf("expected error, got %+v", got)
			case tt.wantErr != nil && tt.wantErr.Error() != "any" && !errors.Is(err, tt.wantErr):
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Renta  ", "Renta"},
		{"Ren\x00ta\x07", "Renta"},
		{"línea\tuno", "línea\tuno"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if sanitizePtr(nil) != nil {
		t.Error("sanitizePtr(nil) should stay nil")
	}
}

func TestPathCategoryAndQueryFlag(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/ledger/ahorros/x?confirm=1", nil)
	req.SetPathValue("category", "ahorros")
	cat, err := PathCategory(req)
	if err != nil || cat != core.Saving {
		t.Fatalf("PathCategory = %v, %v", cat, err)
	}
	if !QueryFlag(req, "confirm") {
		t.Error("confirm=1 should be true")
	}

	req = httptest.NewRequest(http.MethodDelete, "/?confirm=si", nil)
	req.SetPathValue("category", "bonos")
	if _, err := PathCategory(req); !errors.Is(err, core.ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
	if QueryFlag(req, "confirm") {
		t.Error("unparsable flag should be false")
	}
}
