package localgate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	session "github.com/internmatch/go-session"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return rdb
}

func newTestGateway(t *testing.T, opts ...GatewayOption) (*Gateway, *bun.DB) {
	t.Helper()

	db := newTestDB(t)
	tokens := NewTokenService([]byte("test-signing-key-0123456789abcdef"), 1, "internmatch-test", session.DefaultLogger())
	registry := NewSessionRegistry(newTestRedis(t))

	gw := NewGateway(NewRepositoryManager(db), tokens, registry,
		append([]GatewayOption{WithTokenTTL(time.Hour)}, opts...)...)
	t.Cleanup(gw.Close)
	return gw, db
}

func drain(ch <-chan session.SessionEvent) []session.SessionEvent {
	var out []session.SessionEvent
	for {
		select {
		case event := <-ch:
			out = append(out, event)
		default:
			return out
		}
	}
}
