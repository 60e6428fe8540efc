package session

// RoutePolicy declares a route's auth requirement. The zero value is the
// common case: the route requires an authenticated session.
type RoutePolicy struct {
	// PublicOnly inverts the requirement: the route is reserved for
	// unauthenticated visitors (the auth entry page itself) and
	// authenticated users are sent to the default authed view.
	PublicOnly bool
}

// ProtectedRoute is the policy for routes that require authentication.
func ProtectedRoute() RoutePolicy {
	return RoutePolicy{}
}

// PublicOnlyRoute is the policy for routes that forbid authentication.
func PublicOnlyRoute() RoutePolicy {
	return RoutePolicy{PublicOnly: true}
}

// RequiresAuth reports whether the policy demands an authenticated session.
func (p RoutePolicy) RequiresAuth() bool {
	return !p.PublicOnly
}

// Decision is the route guard's verdict for a render attempt.
type Decision string

const (
	// DecisionShowLoading renders a neutral loading indicator; no
	// redirect is issued while the session is still resolving, which is
	// what prevents redirect flicker during the initial session check.
	DecisionShowLoading Decision = "show_loading"
	// DecisionRender renders the requested view.
	DecisionRender Decision = "render"
	// DecisionRedirectToAuth sends the visitor to the auth entry point,
	// preserving the originally requested location for post-login return.
	DecisionRedirectToAuth Decision = "redirect_to_auth"
	// DecisionRedirectToApp sends an authenticated user away from a
	// public-only route to the default authenticated view.
	DecisionRedirectToApp Decision = "redirect_to_app"
)

// EvaluateRoute maps (session state, route policy) to a guard decision. It
// is a pure function: callers re-evaluate it on every store change, since
// session-changed events can arrive long after the first render.
func EvaluateRoute(snap Snapshot, policy RoutePolicy) Decision {
	if snap.IsLoading {
		return DecisionShowLoading
	}

	if policy.RequiresAuth() && !snap.IsAuthenticated {
		return DecisionRedirectToAuth
	}

	if policy.PublicOnly && snap.IsAuthenticated {
		return DecisionRedirectToApp
	}

	return DecisionRender
}
