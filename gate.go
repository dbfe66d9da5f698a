package authcore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// RouteClass is the gate's classification of a request path.
type RouteClass int

const (
	RequiresSession RouteClass = iota
	Public
)

func (c RouteClass) String() string {
	if c == Public {
		return "PUBLIC"
	}
	return "REQUIRES_SESSION"
}

// DefaultPublicRoutes is the allow-list used when a gate has none configured.
var DefaultPublicRoutes = []string{
	"/",
	"/error",
	"/health",
	"/webjars/**",
	"/api/login",
	"/api/register",
	"/api/whoami",
	"/api/user",
	"/api/logout",
	"/oauth2/**",
}

type sessionCtxKey struct{}

// SessionFromContext returns the SessionContext the gate attached to a request.
func SessionFromContext(ctx context.Context) (SessionContext, bool) {
	sc, ok := ctx.Value(sessionCtxKey{}).(SessionContext)
	return sc, ok
}

// ContextWithSession attaches sc to ctx the way the gate does.
func ContextWithSession(ctx context.Context, sc SessionContext) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sc)
}

// RouteGate is the perimeter check run before any handler. Paths matching
// PublicRoutes pass through; everything else needs an established session.
//
// Patterns are exact ("/api/login"), prefix ("/oauth2/**") or suffix ("**.css").
type RouteGate struct {
	Sessions     *SessionManager
	PublicRoutes []string

	// LoginURL, when set, is where browsers asking for HTML are redirected
	// instead of receiving a 401.
	LoginURL         string
	CallbackURLParam string

	Logger *slog.Logger
}

func (g *RouteGate) EnsureDefaults() *RouteGate {
	if g.PublicRoutes == nil {
		g.PublicRoutes = DefaultPublicRoutes
	}
	if g.CallbackURLParam == "" {
		g.CallbackURLParam = "callbackURL"
	}
	if g.Logger == nil {
		g.Logger = slog.Default()
	}
	return g
}

// Classify returns Public for allow-listed paths and RequiresSession otherwise.
func (g *RouteGate) Classify(path string) RouteClass {
	return ClassifyPath(g.PublicRoutes, path)
}

// ClassifyPath matches path against patterns.
func ClassifyPath(patterns []string, path string) RouteClass {
	for _, p := range patterns {
		if MatchRoute(p, path) {
			return Public
		}
	}
	return RequiresSession
}

// MatchRoute reports whether path matches a single allow-list pattern.
func MatchRoute(pattern, path string) bool {
	switch {
	case pattern == "":
		return false
	case strings.HasSuffix(pattern, "/**"):
		prefix := strings.TrimSuffix(pattern, "/**")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	case strings.HasPrefix(pattern, "**"):
		return strings.HasSuffix(path, strings.TrimPrefix(pattern, "**"))
	default:
		return path == pattern
	}
}

// Wrap returns a handler enforcing the gate in front of next.
// It must run inside the session manager's LoadAndSave.
func (g *RouteGate) Wrap(next http.Handler) http.Handler {
	g.EnsureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc, ok := g.Sessions.Current(r.Context())
		if ok {
			r = r.WithContext(ContextWithSession(r.Context(), sc))
		}
		if g.Classify(r.URL.Path) == Public || ok {
			next.ServeHTTP(w, r)
			return
		}
		g.reject(w, r)
	})
}

func (g *RouteGate) reject(w http.ResponseWriter, r *http.Request) {
	g.Logger.Info("request rejected by route gate", "method", r.Method, "path", r.URL.Path)
	if g.LoginURL != "" && strings.Contains(r.Header.Get("Accept"), "text/html") {
		encoded := strings.ReplaceAll(url.QueryEscape(r.URL.RequestURI()), "+", "%20")
		http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", g.LoginURL, g.CallbackURLParam, encoded), http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"error": "Not authenticated",
		"code":  ErrCodeNotAuthenticated,
	})
}
