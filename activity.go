package session

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignInSuccess  ActivityEventType = "session.sign_in.success"
	ActivityEventSignInFailure  ActivityEventType = "session.sign_in.failure"
	ActivityEventSignUpSuccess  ActivityEventType = "session.sign_up.success"
	ActivityEventSignUpPending  ActivityEventType = "session.sign_up.pending"
	ActivityEventSignUpFailure  ActivityEventType = "session.sign_up.failure"
	ActivityEventSignOut        ActivityEventType = "session.sign_out"
	ActivityEventSessionChanged ActivityEventType = "session.changed"
	ActivityEventOAuthStarted   ActivityEventType = "session.oauth.started"
	ActivityEventOAuthCompleted ActivityEventType = "session.oauth.completed"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	FromPhase  Phase
	ToPhase    Phase
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
