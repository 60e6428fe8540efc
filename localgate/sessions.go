package localgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// SessionRegistry tracks active sessions in Redis so tokens can be revoked
// before they expire. Entries live exactly as long as the token they back.
type SessionRegistry struct {
	rdb *redis.Client
}

// NewSessionRegistry wraps a Redis client.
func NewSessionRegistry(rdb *redis.Client) *SessionRegistry {
	return &SessionRegistry{rdb: rdb}
}

func sessionKey(tokenID string) string {
	return sessionKeyPrefix + tokenID
}

// Register records an active session keyed by token id.
func (r *SessionRegistry) Register(ctx context.Context, tokenID, identityID string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, sessionKey(tokenID), identityID, ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to register session").
			WithMetadata(map[string]any{"token_id": tokenID})
	}
	return nil
}

// Lookup resolves the identity id behind an active session. An empty id
// with a nil error means the session does not exist (expired or revoked).
func (r *SessionRegistry) Lookup(ctx context.Context, tokenID string) (string, error) {
	identityID, err := r.rdb.Get(ctx, sessionKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", goerrors.Wrap(err, goerrors.CategoryExternal, "failed to look up session")
	}
	return identityID, nil
}

// Revoke removes a session. Revoking an unknown token is a no-op.
func (r *SessionRegistry) Revoke(ctx context.Context, tokenID string) error {
	if err := r.rdb.Del(ctx, sessionKey(tokenID)).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, fmt.Sprintf("failed to revoke session %s", tokenID))
	}
	return nil
}
