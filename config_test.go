package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/internmatch/go-session"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := session.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/auth", cfg.GetAuthEntryPath())
	assert.Equal(t, "/my-applications", cfg.GetDefaultAuthedPath())
	assert.Equal(t, "rejected_route", cfg.GetRejectedRouteKey())
	assert.Equal(t, "loading", cfg.GetLoadingView())
	assert.Equal(t, 24, cfg.GetTokenExpiration())
	assert.Equal(t, "internmatch", cfg.GetIssuer())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SESSION_AUTH_ENTRY_PATH", "/login")
	t.Setenv("SESSION_DEFAULT_AUTHED_PATH", "/dashboard")
	t.Setenv("SESSION_TOKEN_EXPIRATION_HOURS", "2")

	cfg, err := session.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/login", cfg.GetAuthEntryPath())
	assert.Equal(t, "/dashboard", cfg.GetDefaultAuthedPath())
	assert.Equal(t, 2, cfg.GetTokenExpiration())
}
