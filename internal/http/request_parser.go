// Package http provides the JSON API server and its handlers.
//
// This file implements parsing and sanitizing of request bodies, path values
// and query flags.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"finanzas/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

var (
	errEmptyBody   = errors.New("empty request body")
	errBodyTooBig  = errors.New("request body too large")
	errTrailingDoc = errors.New("request body must hold a single JSON object")
)

// AmountText accepts an amount written as a JSON string ("1,250.50") or a
// JSON number (1250.5). Either way it is parsed later by core.ParseAmount.
type AmountText string

func (a *AmountText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number: %w", err)
	}
	*a = AmountText(n.String())
	return nil
}

type entryRequest struct {
	Description string     `json:"description"`
	Amount      AmountText `json:"amount"`
}

// editRequest leaves absent fields untouched.
type editRequest struct {
	Description *string     `json:"description"`
	Amount      *AmountText `json:"amount"`
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

// DecodeJSON reads exactly one JSON object from r's body into v. Unknown
// fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errEmptyBody
		case errors.As(err, &mbe):
			return errBodyTooBig
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errTrailingDoc
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sanitizePtr sanitizes *s in place, keeping nil as nil.
func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}

func amountPtr(a *AmountText) *string {
	if a == nil {
		return nil
	}
	v := strings.TrimSpace(string(*a))
	return &v
}

// PathCategory reads the {category} path value.
func PathCategory(r *http.Request) (core.Category, error) {
	return core.ParseCategory(r.PathValue("category"))
}

// QueryFlag reads a boolean query parameter; anything unparsable is false.
func QueryFlag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return err == nil && v
}
