package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/internmatch/go-session"
)

func TestParseUserType(t *testing.T) {
	ut, ok := session.ParseUserType("Student")
	require.True(t, ok)
	assert.Equal(t, session.UserTypeStudent, ut)

	ut, ok = session.ParseUserType("  company ")
	require.True(t, ok)
	assert.Equal(t, session.UserTypeCompany, ut)

	_, ok = session.ParseUserType("admin")
	assert.False(t, ok)

	_, ok = session.ParseUserType("")
	assert.False(t, ok)
}

func TestUserDisplayNameFallsBackToEmail(t *testing.T) {
	user := &session.User{ID: "user-1", Email: "ada@example.com"}
	assert.Equal(t, "ada@example.com", user.DisplayName())

	user.Profile = &session.Profile{DisplayName: "Ada"}
	assert.Equal(t, "Ada", user.DisplayName())
}

func TestParseIdentityUUID(t *testing.T) {
	_, err := session.ParseIdentityUUID(nil)
	assert.ErrorIs(t, err, session.ErrNoIdentity)

	id, err := session.ParseIdentityUUID(testIdentity{id: "0c9d2a4e-0000-4000-8000-000000000001"})
	require.NoError(t, err)
	assert.Equal(t, "0c9d2a4e-0000-4000-8000-000000000001", id.String())

	_, err = session.ParseIdentityUUID(testIdentity{id: "not-a-uuid"})
	assert.Error(t, err)
}
