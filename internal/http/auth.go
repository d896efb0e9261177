package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
)

// SessionCookie holds the signed session token.
const SessionCookie = "finanzas_session"

type ctxKey int

const (
	userIDKey ctxKey = iota
	commandsKey
)

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func commandsFrom(ctx context.Context) *ledger.Commands {
	c, _ := ctx.Value(commandsKey).(*ledger.Commands)
	return c
}

// bearerToken reads the token from the Authorization header, then the cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// authenticated rejects requests without a valid token and stores the
// user id in the context.
func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			UnauthorizedError(ledger.LoadMessage(core.ErrUnauthenticated)).Write(w)
			return
		}
		userID, err := s.tokens.Verify(token)
		if err != nil {
			applog.FromContext(r.Context()).DebugContext(r.Context(), "Rejected session token",
				applog.FieldError, err)
			s.clearCookie(w)
			UnauthorizedError(ledger.LoadMessage(core.ErrUnauthenticated)).Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withLedger authenticates and attaches the user's ledger session, loading
// it on first use.
func (s *Server) withLedger(next http.Handler) http.Handler {
	return s.authenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r.Context())
		cmds, err := s.registry.Acquire(r.Context(), userID)
		if err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to open ledger session",
				applog.FieldUserID, userID,
				applog.FieldOperation, applog.OpLoad,
				applog.FieldError, err)
			ErrorResponse(StatusFor(err), ledger.LoadMessage(err)).Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), commandsKey, cmds)
		next.ServeHTTP(w, r.WithContext(ctx))
	}))
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
