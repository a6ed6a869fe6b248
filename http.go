package auth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// DefaultRejectedRouteKey names the cookie remembering the location a
// login redirect bounced the user away from.
const DefaultRejectedRouteKey = "rejected_route"

// HTTPRouteGuard executes guard decisions as HTTP redirects over the
// go-router abstraction. Rejected locations are remembered in a cookie so
// login can send the user back.
type HTTPRouteGuard struct {
	sessions         *SessionStore
	rejectedRouteKey string
	Debug            bool
	Logger           Logger
	// LoadingHandler renders the loading placeholder while the session
	// is still resolving. Defaults to rendering the "loading" view.
	LoadingHandler func(router.Context) error
}

// HTTPRouteGuardOption customizes guard construction.
type HTTPRouteGuardOption func(*HTTPRouteGuard)

// WithGuardLogger overrides the guard logger.
func WithGuardLogger(logger Logger) HTTPRouteGuardOption {
	return func(g *HTTPRouteGuard) {
		if logger != nil {
			g.Logger = logger
		}
	}
}

// WithGuardRejectedRouteKey overrides the remember-location cookie name.
func WithGuardRejectedRouteKey(key string) HTTPRouteGuardOption {
	return func(g *HTTPRouteGuard) {
		if key != "" {
			g.rejectedRouteKey = key
		}
	}
}

// WithGuardLoadingHandler overrides the loading placeholder response.
func WithGuardLoadingHandler(h func(router.Context) error) HTTPRouteGuardOption {
	return func(g *HTTPRouteGuard) {
		if h != nil {
			g.LoadingHandler = h
		}
	}
}

// WithGuardDebug enables decision dumps at debug level.
func WithGuardDebug(debug bool) HTTPRouteGuardOption {
	return func(g *HTTPRouteGuard) {
		g.Debug = debug
	}
}

// NewHTTPRouteGuard builds a guard over the given session store.
func NewHTTPRouteGuard(sessions *SessionStore, opts ...HTTPRouteGuardOption) *HTTPRouteGuard {
	g := &HTTPRouteGuard{
		sessions:         sessions,
		rejectedRouteKey: DefaultRejectedRouteKey,
		Logger:           defLogger{},
	}
	g.LoadingHandler = func(c router.Context) error {
		return c.Status(http.StatusOK).Render("loading", router.ViewContext{})
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Protected wraps a handler so it only runs when the route guard decides
// the content may render. RequiredRole may be empty to accept any
// authenticated, verified user.
func (g *HTTPRouteGuard) Protected(required Role) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			snap := g.sessions.Snapshot()
			decision := EvaluateRoute(snap, RouteRequest{
				Location:     c.OriginalURL(),
				RequiredRole: required,
			})

			if g.Debug {
				g.Logger.Debug("route guard decision %s", print.MaybePrettyJSON(decision))
			}

			switch decision.Action {
			case GuardActionLoading:
				return g.LoadingHandler(c)
			case GuardActionRedirect:
				if decision.Remember != "" {
					g.setRejectedRoute(c, decision.Remember)
				}
				return c.Redirect(decision.Target, g.redirectStatus(c))
			default:
				if snap.Session != nil {
					c.Locals(SessionContextKey, snap.Session)
					c.SetContext(WithContext(c.Context(), snap.Session))
				}
				return next(c)
			}
		}
	}
}

// GetRedirect returns and clears the remembered location, falling back to
// the given default.
func (g *HTTPRouteGuard) GetRedirect(c router.Context, def string) string {
	r := c.Cookies(g.rejectedRouteKey)
	if r == "" {
		return def
	}
	g.cookieDel(c, g.rejectedRouteKey)
	return r
}

func (g *HTTPRouteGuard) redirectStatus(c router.Context) int {
	if c.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

func (g *HTTPRouteGuard) setRejectedRoute(c router.Context, location string) {
	g.Logger.Info("Setting redirect cookie", "key", g.rejectedRouteKey, "path", location)

	c.Cookie(&router.Cookie{
		Name:     g.rejectedRouteKey,
		Value:    location,
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *HTTPRouteGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
