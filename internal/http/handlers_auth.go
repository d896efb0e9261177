package http

import (
	"net/http"
	"time"

	"finanzas/internal/identity"
	applog "finanzas/internal/log"
)

type sessionBody struct {
	OK        bool      `json:"ok"`
	Message   string    `json:"message"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	userID, err := s.provider.SignUp(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.Email), req.Password)
	if err != nil {
		s.authFailed(w, r, "signup", err)
		return
	}
	s.startSession(w, r, userID, http.StatusCreated, "Cuenta creada")
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	userID, err := s.provider.SignIn(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		s.authFailed(w, r, "signin", err)
		return
	}
	s.startSession(w, r, userID, http.StatusOK, "Sesión iniciada")
}

// handleSignOut revokes the presented token before closing the session, so
// neither the cookie nor a copied bearer token reopens it.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.tokens.Revoke(bearerToken(r)); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Failed to revoke session token",
			applog.FieldUserID, userIDFrom(r.Context()),
			applog.FieldError, err)
	}
	s.provider.SignOut(r.Context(), userIDFrom(r.Context()))
	s.clearCookie(w)
	NewJSONResponse().Body(messageBody{OK: true, Message: "Sesión cerrada"}).Write(w)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID string, status int, msg string) {
	token, expires, err := s.tokens.Issue(userID)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to issue session token",
			applog.FieldUserID, userID,
			applog.FieldError, err)
		InternalServerError("Error al iniciar sesión").Write(w)
		return
	}
	s.setSessionCookie(w, token, expires)
	NewJSONResponse().Status(status).Body(sessionBody{
		OK:        true,
		Message:   msg,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expires,
	}).Write(w)
}

func (s *Server) authFailed(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Authentication failed",
			applog.FieldOperation, op,
			applog.FieldError, err)
	}
	ErrorResponse(status, identity.Message(err)).Write(w)
}
