package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds the cross-origin policy for browser callers.
type CORSConfig struct {
	// AllowedOrigins are exact origins, "*", or "scheme://*.domain" patterns.
	AllowedOrigins []string

	// AllowedMethods defaults to GET, POST and OPTIONS.
	AllowedMethods []string

	// AllowedHeaders defaults to Content-Type and X-Request-ID.
	AllowedHeaders []string

	// MaxAge is how long preflight results may be cached, in seconds.
	// Default: 86400
	MaxAge int
}

// originMatcher checks origins against exact entries and "*." host patterns.
type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	suffixes []suffixPattern
}

type suffixPattern struct {
	scheme string // "https://"
	suffix string // ".example.com"
}

func newOriginMatcher(origins []string) *originMatcher {
	m := &originMatcher{exact: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		origin = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
		switch {
		case origin == "":
		case origin == "*":
			m.any = true
		case strings.Contains(origin, "://*."):
			scheme, host, _ := strings.Cut(origin, "://*")
			m.suffixes = append(m.suffixes, suffixPattern{scheme: scheme + "://", suffix: host})
		default:
			m.exact[origin] = struct{}{}
		}
	}
	return m
}

func (m *originMatcher) allowed(origin string) bool {
	if origin == "" {
		return false
	}
	if m.any {
		return true
	}
	origin = strings.TrimSuffix(strings.ToLower(origin), "/")
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, p := range m.suffixes {
		host, ok := strings.CutPrefix(origin, p.scheme)
		if ok && strings.HasSuffix(host, p.suffix) && len(host) > len(p.suffix) {
			return true
		}
	}
	return false
}

// CORS sets cross-origin headers for allowed origins and answers preflight
// requests with 204. Requests without an Origin header, or from origins not
// on the list, pass through untouched.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "X-Request-ID", "Traceparent"}
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 86400
	}
	matcher := newOriginMatcher(cfg.AllowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !matcher.allowed(origin) {
				slog.Debug("CORS: origin not allowed",
					slog.String("origin", origin),
					slog.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-Trace-Id, X-Data-Source")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(headers, ", "))
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
