package session

import (
	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig is the environment-driven configuration for the session core
// and its default gateway. It satisfies the Config interface.
type EnvConfig struct {
	AuthEntryPath     string `env:"SESSION_AUTH_ENTRY_PATH" envDefault:"/auth"`
	DefaultAuthedPath string `env:"SESSION_DEFAULT_AUTHED_PATH" envDefault:"/my-applications"`
	RejectedRouteKey  string `env:"SESSION_REJECTED_ROUTE_KEY" envDefault:"rejected_route"`
	LoadingView       string `env:"SESSION_LOADING_VIEW" envDefault:"loading"`

	SigningKey      string `env:"SESSION_SIGNING_KEY"`
	TokenExpiration int    `env:"SESSION_TOKEN_EXPIRATION_HOURS" envDefault:"24"`
	Issuer          string `env:"SESSION_ISSUER" envDefault:"internmatch"`

	RedisAddr   string `env:"SESSION_REDIS_ADDR" envDefault:"localhost:6379"`
	DatabaseDSN string `env:"SESSION_DATABASE_DSN" envDefault:"file::memory:?cache=shared"`
}

// LoadConfig parses configuration from environment variables.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse session config from environment")
	}
	return cfg, nil
}

func (c *EnvConfig) GetAuthEntryPath() string     { return c.AuthEntryPath }
func (c *EnvConfig) GetDefaultAuthedPath() string { return c.DefaultAuthedPath }
func (c *EnvConfig) GetRejectedRouteKey() string  { return c.RejectedRouteKey }
func (c *EnvConfig) GetLoadingView() string       { return c.LoadingView }
func (c *EnvConfig) GetSigningKey() string        { return c.SigningKey }
func (c *EnvConfig) GetTokenExpiration() int      { return c.TokenExpiration }
func (c *EnvConfig) GetIssuer() string            { return c.Issuer }
func (c *EnvConfig) GetRedisAddr() string         { return c.RedisAddr }
func (c *EnvConfig) GetDatabaseDSN() string       { return c.DatabaseDSN }

var _ Config = (*EnvConfig)(nil)
