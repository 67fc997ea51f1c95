package security

import (
	"net/http"
	"strconv"
	"strings"
)

// HeadersConfig lists the response headers applied to every request.
// Empty values are not sent. HSTS goes out on TLS requests, or on every
// request when ForceHSTS is set for deployments behind a TLS proxy.
type HeadersConfig struct {
	CSP []string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	ForceHSTS             bool

	FrameOptions        string
	ContentTypeOptions  string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string
}

// DefaultHeadersConfig allows only same-origin resources. Pages use inline
// width styles for the budget and daily bars, and forms post to self.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: []string{
			"default-src 'self'",
			"style-src 'self' 'unsafe-inline'",
			"img-src 'self' data:",
			"object-src 'none'",
			"frame-ancestors 'none'",
			"base-uri 'self'",
			"form-action 'self'",
		},
		HSTSMaxAge:            365 * 24 * 60 * 60,
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ContentTypeOptions:    "nosniff",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:     "same-origin",
		CrossOriginResource:   "same-origin",
	}
}

type header struct{ name, value string }

// HeadersMiddleware sets a header list computed once from HeadersConfig.
type HeadersMiddleware struct {
	static    []header
	hsts      string
	forceHSTS bool
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	m := &HeadersMiddleware{forceHSTS: cfg.ForceHSTS}
	for _, h := range []header{
		{"Content-Security-Policy", strings.Join(cfg.CSP, "; ")},
		{"X-Frame-Options", cfg.FrameOptions},
		{"X-Content-Type-Options", cfg.ContentTypeOptions},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Permissions-Policy", cfg.PermissionsPolicy},
		{"Cross-Origin-Opener-Policy", cfg.CrossOriginOpener},
		{"Cross-Origin-Resource-Policy", cfg.CrossOriginResource},
	} {
		if h.value != "" {
			m.static = append(m.static, h)
		}
	}
	if cfg.HSTSMaxAge > 0 {
		m.hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			m.hsts += "; includeSubDomains"
		}
	}
	return m
}

func (m *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, sh := range m.static {
			h.Set(sh.name, sh.value)
		}
		if m.hsts != "" && (r.TLS != nil || m.forceHSTS) {
			h.Set("Strict-Transport-Security", m.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware lets browsers cache embedded assets for maxAge
// seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	cacheControl := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", cacheControl)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks responses as private, for pages showing account data.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
