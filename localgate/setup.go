package localgate

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/internmatch/go-session"
)

// Open wires a gateway from environment configuration: a sqlite-backed bun
// DB, a Redis session registry, and the token service.
func Open(cfg *session.EnvConfig, opts ...GatewayOption) (*Gateway, *bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.GetDatabaseDSN())
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open database")
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	rdb := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})

	tokens := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		session.DefaultLogger(),
	)

	opts = append([]GatewayOption{
		WithTokenTTL(time.Duration(cfg.GetTokenExpiration()) * time.Hour),
	}, opts...)

	gw := NewGateway(NewRepositoryManager(db), tokens, NewSessionRegistry(rdb), opts...)

	return gw, db, nil
}

// CreateSchema creates the gateway tables. Intended for tests and local
// development; production deployments run migrations instead.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*IdentityRecord)(nil),
		(*ProfileRecord)(nil),
		(*StudentRecord)(nil),
		(*CompanyRecord)(nil),
		(*VerificationToken)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create table")
		}
	}

	return nil
}
