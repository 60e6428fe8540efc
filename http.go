package session

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteGuard wires EvaluateRoute into an HTTP stack: it reads the store on
// every request, renders a neutral loading view while the session is
// resolving, and issues the redirects the guard decides on, preserving the
// rejected route so the visitor returns there after login.
type RouteGuard struct {
	store        *Store
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

// NewRouteGuard builds a guard over the given store and config.
func NewRouteGuard(store *Store, cfg Config) *RouteGuard {
	g := &RouteGuard{
		store:  store,
		cfg:    cfg,
		Logger: defLogger{},
	}
	g.ErrorHandler = g.defaultErrHandler
	return g
}

// Middleware returns the guard middleware for a route policy. It is
// evaluated per request, so a session change between requests lands on the
// next evaluation without any cached verdict going stale.
func (g *RouteGuard) Middleware(policy RoutePolicy) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			snap := g.store.Snapshot()

			switch EvaluateRoute(snap, policy) {
			case DecisionShowLoading:
				return ctx.Render(g.cfg.GetLoadingView(), router.ViewContext{
					"message": "Checking authentication...",
				})
			case DecisionRedirectToAuth:
				g.SetRedirect(ctx)
				return ctx.Redirect(g.cfg.GetAuthEntryPath(), g.redirectStatus(ctx))
			case DecisionRedirectToApp:
				return ctx.Redirect(g.cfg.GetDefaultAuthedPath(), g.redirectStatus(ctx))
			}

			if snap.User != nil {
				ctx.Locals(userLocalsKey, snap.User)
				ctx.SetContext(WithContext(ctx.Context(), snap.User))
			}
			if err := hf(ctx); err != nil {
				return g.ErrorHandler(ctx, err)
			}
			return nil
		}
	}
}

// SetRedirect stores the originally requested location in the rejected
// route cookie so the auth flow can return there.
func (g *RouteGuard) SetRedirect(ctx router.Context) {
	rejectedRoute := g.cfg.GetRejectedRouteKey()

	g.Logger.Debug("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// GetRedirect pops the preserved location, falling back to the default
// authenticated path.
func (g *RouteGuard) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return g.cfg.GetDefaultAuthedPath()
	}
	g.cookieDel(ctx, rejectedRoute)
	return r
}

func (g *RouteGuard) redirectStatus(ctx router.Context) int {
	if ctx.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

func (g *RouteGuard) cookieDel(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) defaultErrHandler(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	g.Logger.Info(
		"Guard error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		g.SetRedirect(ctx)
		return ctx.Redirect(g.cfg.GetAuthEntryPath(), g.redirectStatus(ctx))
	default:
		return ctx.JSON(richErr.Code, map[string]any{
			"error": richErr.Message,
		})
	}
}
