package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// FiberRouteGuard is the fiber-native variant of HTTPRouteGuard for apps
// mounting dashboards straight on a fiber router.
type FiberRouteGuard struct {
	sessions         *SessionStore
	rejectedRouteKey string
	Logger           Logger
	// LoadingHandler renders the loading placeholder while the session
	// is still resolving. Defaults to a 204 response.
	LoadingHandler fiber.Handler
}

// NewFiberRouteGuard builds a fiber guard over the given session store.
func NewFiberRouteGuard(sessions *SessionStore) *FiberRouteGuard {
	g := &FiberRouteGuard{
		sessions:         sessions,
		rejectedRouteKey: DefaultRejectedRouteKey,
		Logger:           defLogger{},
	}
	g.LoadingHandler = func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return g
}

// WithRejectedRouteKey overrides the remember-location cookie name.
func (g *FiberRouteGuard) WithRejectedRouteKey(key string) *FiberRouteGuard {
	if key != "" {
		g.rejectedRouteKey = key
	}
	return g
}

// WithLogger overrides the guard logger.
func (g *FiberRouteGuard) WithLogger(logger Logger) *FiberRouteGuard {
	if logger != nil {
		g.Logger = logger
	}
	return g
}

// Protected returns a fiber middleware that runs the route guard before
// the handler chain continues.
func (g *FiberRouteGuard) Protected(required Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := g.sessions.Snapshot()
		decision := EvaluateRoute(snap, RouteRequest{
			Location:     c.OriginalURL(),
			RequiredRole: required,
		})

		switch decision.Action {
		case GuardActionLoading:
			return g.LoadingHandler(c)
		case GuardActionRedirect:
			if decision.Remember != "" {
				c.Cookie(&fiber.Cookie{
					Name:     g.rejectedRouteKey,
					Value:    decision.Remember,
					Expires:  time.Now().Add(time.Minute * 5),
					HTTPOnly: true,
					Secure:   true,
					SameSite: "Lax",
				})
			}
			status := fiber.StatusSeeOther
			if c.Method() == fiber.MethodGet {
				status = fiber.StatusFound
			}
			return c.Redirect(decision.Target, status)
		default:
			if snap.Session != nil {
				c.Locals(SessionContextKey, snap.Session)
			}
			return c.Next()
		}
	}
}

// GetRedirect returns and clears the remembered location, falling back to
// the given default.
func (g *FiberRouteGuard) GetRedirect(c *fiber.Ctx, def string) string {
	r := c.Cookies(g.rejectedRouteKey)
	if r == "" {
		return def
	}
	c.Cookie(&fiber.Cookie{
		Name:     g.rejectedRouteKey,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
	return r
}
