package session

import (
	"fmt"
	"strings"
	"time"
)

// UserType is the role a profile carries: the product only distinguishes
// students looking for placements from companies offering them.
type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeCompany UserType = "company"
)

// ParseUserType normalizes a raw role string. The bool is false for
// anything outside the two supported types.
func ParseUserType(raw string) (UserType, bool) {
	switch UserType(strings.ToLower(strings.TrimSpace(raw))) {
	case UserTypeStudent:
		return UserTypeStudent, true
	case UserTypeCompany:
		return UserTypeCompany, true
	}
	return "", false
}

// Profile is the application-specific record keyed by identity id. It is
// absent while unauthenticated and may legitimately be absent for a fresh
// identity whose profile row was never created.
type Profile struct {
	IdentityID  string         `json:"id,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	UserType    UserType       `json:"user_type,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   *time.Time     `json:"created_at,omitempty"`
}

// User is the combined identity + profile view the dashboard consumes.
type User struct {
	ID      string   `json:"id"`
	Email   string   `json:"email"`
	Profile *Profile `json:"profile,omitempty"`
}

// IsStudent reports whether the resolved profile is a student profile.
func (u *User) IsStudent() bool {
	return u != nil && u.Profile != nil && u.Profile.UserType == UserTypeStudent
}

// IsCompany reports whether the resolved profile is a company profile.
func (u *User) IsCompany() bool {
	return u != nil && u.Profile != nil && u.Profile.UserType == UserTypeCompany
}

// DisplayName returns the profile display name, falling back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Profile != nil && u.Profile.DisplayName != "" {
		return u.Profile.DisplayName
	}
	return u.Email
}

func userFromIdentity(identity Identity) *User {
	if identity == nil {
		return nil
	}
	return &User{
		ID:    identity.ID(),
		Email: identity.Email(),
	}
}

// Snapshot is an immutable view of session state handed to subscribers and
// the route guard. Reads are side-effect free; only store transitions
// produce new snapshots.
type Snapshot struct {
	Phase           Phase
	User            *User
	IsAuthenticated bool
	IsLoading       bool
	Err             error
}

// ErrorMessage returns the renderable text of the last failed operation,
// or "" when the last operation succeeded.
func (s Snapshot) ErrorMessage() string {
	return userMessage(s.Err, "authentication failed")
}

func (s Snapshot) String() string {
	user := "<nil>"
	if s.User != nil {
		user = s.User.ID
	}
	return fmt.Sprintf(
		"phase=%s user=%s authed=%t loading=%t err=%v",
		s.Phase, user, s.IsAuthenticated, s.IsLoading, s.Err,
	)
}
