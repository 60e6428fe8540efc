package internships

import (
	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidStatusChange = "INVALID_APPLICATION_STATUS_CHANGE"

// ErrInvalidStatusChange is returned when a requested application status
// change is not in the transition table.
var ErrInvalidStatusChange = goerrors.New("invalid application status change", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidStatusChange).
	WithCode(goerrors.CodeBadRequest)

// ApplicationStatus is the review lifecycle state of an application.
type ApplicationStatus string

const (
	// StatusApplied is the initial state after submission.
	StatusApplied ApplicationStatus = "applied"
	// StatusReviewing means the company has picked the application up.
	StatusReviewing ApplicationStatus = "reviewing"
	// StatusAccepted is terminal.
	StatusAccepted ApplicationStatus = "accepted"
	// StatusRejected is terminal.
	StatusRejected ApplicationStatus = "rejected"
	// StatusWithdrawn is terminal, entered only by the student.
	StatusWithdrawn ApplicationStatus = "withdrawn"
)

// statusTransitions is the review lifecycle graph. Students may withdraw
// from any non-terminal state; companies move applications forward.
var statusTransitions = map[ApplicationStatus]map[ApplicationStatus]struct{}{
	StatusApplied: {
		StatusReviewing: {},
		StatusRejected:  {},
		StatusWithdrawn: {},
	},
	StatusReviewing: {
		StatusAccepted:  {},
		StatusRejected:  {},
		StatusWithdrawn: {},
	},
	StatusAccepted:  {},
	StatusRejected:  {},
	StatusWithdrawn: {},
}

// IsTerminal reports whether no further status changes are possible.
func (s ApplicationStatus) IsTerminal() bool {
	allowed, ok := statusTransitions[s]
	return ok && len(allowed) == 0
}

func canChangeStatus(from, to ApplicationStatus) bool {
	if allowed, ok := statusTransitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// changeStatus validates a status move against the table.
func changeStatus(from, to ApplicationStatus) (ApplicationStatus, error) {
	if to == "" {
		return from, ErrInvalidStatusChange.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}
	if canChangeStatus(from, to) {
		return to, nil
	}
	return from, ErrInvalidStatusChange.WithMetadata(map[string]any{
		"from": from,
		"to":   to,
	})
}
