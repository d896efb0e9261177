package identity

import (
	"errors"
	"fmt"
)

// Code classifies an authentication failure.
type Code string

const (
	InvalidCredentials Code = "invalid-credentials"
	EmailInUse         Code = "email-already-in-use"
	WeakPassword       Code = "weak-password"
	InvalidEmail       Code = "invalid-email"
	UserDisabled       Code = "user-disabled"
	MissingFields      Code = "missing-fields"
)

var messages = map[Code]string{
	InvalidCredentials: "Correo o contraseña incorrectos",
	EmailInUse:         "Ya existe una cuenta con este correo",
	WeakPassword:       "La contraseña debe tener al menos 6 caracteres",
	InvalidEmail:       "Correo electrónico inválido",
	UserDisabled:       "Esta cuenta ha sido deshabilitada",
	MissingFields:      "Por favor completa todos los campos",
}

const unknownMessage = "Error desconocido"

var ErrInvalidToken = errors.New("invalid session token")

type AuthError struct {
	Code Code
	Err  error
}

func newAuthError(code Code, err error) *AuthError {
	return &AuthError{Code: code, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Code, e.Err)
	}
	return "auth: " + string(e.Code)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Message is the text shown to the user.
func (e *AuthError) Message() string {
	if m, ok := messages[e.Code]; ok {
		return m
	}
	return unknownMessage
}

// HasCode reports whether err is an AuthError with code.
func HasCode(err error, code Code) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Code == code
}

// Message maps any error from this package to user text.
func Message(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return unknownMessage
}
