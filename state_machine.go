package session

import (
	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidPhaseChange = "INVALID_SESSION_PHASE_CHANGE"

// ErrInvalidPhaseChange is returned when a requested phase change is not in
// the transition table. Transitions are driven internally, so hitting this
// means a store bug rather than bad input.
var ErrInvalidPhaseChange = goerrors.New("invalid session phase change", goerrors.CategoryInternal).
	WithTextCode(textCodeInvalidPhaseChange).
	WithCode(goerrors.CodeInternal)

// Phase is the coarse session lifecycle state.
type Phase string

const (
	// PhaseUnknown is the initial state before the first session check
	// resolves. isLoading is true for its whole duration.
	PhaseUnknown Phase = "unknown"
	// PhaseAuthenticating covers any outstanding sign-in, sign-up,
	// sign-out, or profile-fetch request.
	PhaseAuthenticating Phase = "authenticating"
	// PhaseAuthenticated is a rest state: user set, profile resolved.
	PhaseAuthenticated Phase = "authenticated"
	// PhaseUnauthenticated is a rest state: no user.
	PhaseUnauthenticated Phase = "unauthenticated"
)

// phaseTransitions is the complete lifecycle graph. Both rest states
// re-enter Authenticating; sign-out push events may collapse any state
// straight to Unauthenticated.
var phaseTransitions = map[Phase]map[Phase]struct{}{
	PhaseUnknown: {
		PhaseAuthenticating:  {},
		PhaseUnauthenticated: {},
	},
	PhaseAuthenticating: {
		PhaseAuthenticated:   {},
		PhaseUnauthenticated: {},
	},
	PhaseAuthenticated: {
		PhaseAuthenticating:  {},
		PhaseUnauthenticated: {},
	},
	PhaseUnauthenticated: {
		PhaseAuthenticating: {},
	},
}

func canChangePhase(from, to Phase) bool {
	if from == to {
		return true
	}
	if allowed, ok := phaseTransitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// changePhase validates a phase move against the table. The force flag
// exists for push-driven sign-outs, which must always win.
func changePhase(from, to Phase, force bool) (Phase, error) {
	if to == "" {
		return from, ErrInvalidPhaseChange.WithMetadata(map[string]any{
			"reason": "target phase is empty",
		})
	}
	if force || canChangePhase(from, to) {
		return to, nil
	}
	return from, ErrInvalidPhaseChange.WithMetadata(map[string]any{
		"from": from,
		"to":   to,
	})
}
