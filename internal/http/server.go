package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/identity"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
)

// Pinger reports whether the store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the API server.
type Deps struct {
	Registry *ledger.Registry
	Provider *identity.Provider
	Tokens   *identity.Tokens
	Store    Pinger
	Logger   *applog.Logger

	// Location decides the export date; nil means UTC.
	Location *time.Location

	// RateLimit bounds ledger writes per user.
	RateLimit ratelimit.Config

	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

type Server struct {
	http.Server
	registry *ledger.Registry
	provider *identity.Provider
	tokens   *identity.Tokens
	store    Pinger
	logger   *applog.Logger
	loc      *time.Location
	now      func() time.Time
	secure   bool
	started  time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	unsubscribe  func()
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Server{
		registry:         deps.Registry,
		provider:         deps.Provider,
		tokens:           deps.Tokens,
		store:            deps.Store,
		logger:           logger.WithComponent(applog.ComponentHTTP),
		loc:              loc,
		now:              time.Now,
		secure:           deps.SecureCookie,
		started:          time.Now(),
		rateLimiter:      ratelimit.NewLimiter(deps.RateLimit),
		securityDetector: security.NewDetector(),
	}
	if s.provider != nil && s.registry != nil {
		// a sign-out ends the ledger session and clears its cache
		s.unsubscribe = s.provider.OnAuthStateChange(func(st identity.AuthState) {
			s.registry.SetSignedIn(st.UserID, st.SignedIn)
		})
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)
	identityLogs := applog.ComponentMiddleware(applog.ComponentIdentity)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("POST /api/auth/signup", identityLogs(s.limited(http.HandlerFunc(s.handleSignUp))))
	mux.Handle("POST /api/auth/signin", identityLogs(s.limited(http.HandlerFunc(s.handleSignIn))))
	mux.Handle("POST /api/auth/signout", identityLogs(s.authenticated(http.HandlerFunc(s.handleSignOut))))

	mux.Handle("GET /api/ledger", s.withLedger(http.HandlerFunc(s.handleGetLedger)))
	mux.Handle("GET /api/ledger/export.xlsx", s.withLedger(http.HandlerFunc(s.handleExport)))
	mux.Handle("POST /api/ledger/reset", s.withLedger(s.limited(http.HandlerFunc(s.handleReset))))
	mux.Handle("POST /api/ledger/{category}", s.withLedger(s.limited(http.HandlerFunc(s.handleAddEntry))))
	mux.Handle("PATCH /api/ledger/{category}/{id}", s.withLedger(s.limited(http.HandlerFunc(s.handleEditEntry))))
	mux.Handle("DELETE /api/ledger/{category}/{id}", s.withLedger(s.limited(http.HandlerFunc(s.handleDeleteEntry))))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = headers.Middleware(s.detect(mux))
	handler = applog.RequestIDMiddleware(trace.RequestID)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = applog.Middleware(s.logger)(handler)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// detect logs requests that look like probes. They are still served.
func (s *Server) detect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request detected",
				applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// limited rate limits by user when signed in, by client IP otherwise.
func (s *Server) limited(next http.Handler) http.Handler {
	key := func(r *http.Request) string {
		if id := userIDFrom(r.Context()); id != "" {
			return "user:" + id
		}
		return "ip:" + s.securityDetector.ExtractClientIP(r)
	}
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Demasiadas solicitudes, intenta de nuevo en un momento").Write(w)
	}
	return s.rateLimiter.Middleware(key, onLimit)(next)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
