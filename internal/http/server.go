package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"litfunds/internal/core"
	applog "litfunds/internal/log"
	"litfunds/internal/middleware/ratelimit"
	"litfunds/internal/middleware/security"
	"litfunds/internal/middleware/trace"
	"litfunds/internal/services"
	appweb "litfunds/web"
)

// Authenticator manages accounts and sessions.
type Authenticator interface {
	SignUp(ctx context.Context, req services.SignUpRequest) (services.Session, error)
	SignIn(ctx context.Context, email, password string) (services.Session, error)
	SignOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (string, error)
}

// Transactions is the transaction use-case surface the handlers need.
type Transactions interface {
	Create(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error)
	Get(ctx context.Context, userID, id string) (core.Transaction, error)
	Update(ctx context.Context, userID, id string, changes core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
	Snapshot(ctx context.Context, userID string) ([]core.Transaction, error)
	CacheStats() (hits, misses uint64)
}

// Profiles reads and writes display settings and budgets.
type Profiles interface {
	Profile(ctx context.Context, userID string) (core.Profile, error)
	UpdateProfile(ctx context.Context, userID, displayName, currency string) (core.Profile, error)
	Budgets(ctx context.Context, userID string) ([]core.Budget, error)
	SetBudget(ctx context.Context, userID, category string, limitCents int64) (core.Budget, error)
}

// Config configures a Server. Ready, when set, backs /readyz.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	SecureCookies      bool
	Logger             *applog.Logger
	Ready              func(ctx context.Context) error
}

type Server struct {
	http.Server
	templates map[string]*template.Template
	logger    *applog.Logger
	structLog *applog.StructuredLogger

	auth         Authenticator
	transactions Transactions
	profiles     Profiles
	ready        func(ctx context.Context) error

	secureCookies    bool
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	startedAt        time.Time
	now              func() time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and mounts every route.
func NewServer(cfg Config, auth Authenticator, txs Transactions, profiles Profiles) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}

	templates, err := parseTemplates(appweb.TemplatesFS)
	if err != nil {
		return nil, err
	}

	detector := security.NewDetector()
	s := &Server{
		templates:        templates,
		logger:           logger,
		structLog:        applog.NewStructuredLogger(logger),
		auth:             auth,
		transactions:     txs,
		profiles:         profiles,
		ready:            cfg.Ready,
		secureCookies:    cfg.SecureCookies,
		securityDetector: detector,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Methods:           []string{http.MethodPost},
		}),
		traceMiddleware: trace.NewMiddleware(logger, detector.ExtractClientIP),
		startedAt:       time.Now(),
		now:             time.Now,
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

var pages = []string{
	"login.html", "signup.html", "home.html", "analytics.html",
	"transaction_form.html", "profile.html", "error.html",
}

// parseTemplates builds one set per page so every page can define its own
// "content" block on top of base.html.
func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New(page).Funcs(templateFuncs).ParseFS(fsys, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /signup", s.handleSignupPage)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /logout", s.handleLogout)

	private := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(s.requireAuth(h))
	}
	mux.Handle("GET /home", private(s.handleHome))
	mux.Handle("GET /analytics", private(s.handleAnalytics))
	mux.Handle("GET /transactions/new", private(s.handleNewTransactionPage))
	mux.Handle("POST /transactions/new", private(s.handleCreateTransaction))
	mux.Handle("GET /transactions/{id}", private(s.handleEditTransactionPage))
	mux.Handle("POST /transactions/{id}", private(s.handleUpdateTransaction))
	mux.Handle("POST /transactions/{id}/delete", private(s.handleDeleteTransaction))
	mux.Handle("GET /profile", private(s.handleProfile))
	mux.Handle("POST /profile", private(s.handleUpdateProfile))
	mux.Handle("POST /profile/budgets", private(s.handleSetBudget))
	mux.Handle("GET /api/summary", security.NoStore(s.requireAPIAuth(s.handleAPISummary)))

	// Outermost first: trace, then security, then rate limiting.
	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(h)
	h = s.securityDetector.Middleware(h)
	headers := security.DefaultHeadersConfig()
	headers.ForceHSTS = s.secureCookies
	h = security.NewHeadersMiddleware(headers).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request, d ratelimit.Decision) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		"retry_after", d.RetryAfter())
	s.renderError(w, r, http.StatusTooManyRequests, "Too many requests. Please try again in a minute.")
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
