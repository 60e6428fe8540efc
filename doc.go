// Package session implements the client-facing authentication session
// lifecycle for the InternMatch dashboard: a process-wide session store, the
// route guard that gates view rendering on it, and the orchestration entry
// points (sign-up, sign-in, sign-out, OAuth initiation) that map gateway
// outcomes onto store transitions.
//
// Session lifecycle:
//   - The Store holds {user, isAuthenticated, isLoading, err} and is mutated
//     exclusively through its transition methods. Phases move Unknown →
//     Authenticating → Authenticated | Unauthenticated over an explicit
//     transition table, so consumers never observe a half-applied state.
//   - Session-changed events pushed by the Gateway (OAuth redirects
//     completing, tokens refreshing or expiring) are processed in delivery
//     order. Profile fetches carry a generation counter so a superseded
//     in-flight fetch can never clobber the result of a later one.
//
// Route guarding:
//   - EvaluateRoute is a pure function of (Snapshot, RoutePolicy). It is
//     re-evaluated on every store change and never issues a redirect while
//     the session is still loading. The HTTP wiring preserves the originally
//     requested path in a cookie so callers return there after login.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the Store to
//     describe sign-in, sign-up, sign-out, and session-change events. Sinks
//     run best-effort (errors are logged) so you can forward to a database
//     or queue without blocking authentication.
package session
