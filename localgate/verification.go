package localgate

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/internmatch/go-session"
)

// VerifyEmail consumes a confirmation token, activates the account, and
// establishes a session so the user lands signed in. The caller observes
// the sign-in through the session-changed channel like any other.
func (g *Gateway) VerifyEmail(ctx context.Context, token string) (session.Identity, error) {
	record, err := g.repos.VerificationTokens().GetByIdentifier(ctx, token)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrVerificationTokenInvalid
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification token")
	}

	if record.ConsumedAt != nil {
		return nil, ErrVerificationTokenInvalid
	}
	if record.ExpiresAt != nil && record.ExpiresAt.Before(time.Now()) {
		return nil, ErrVerificationTokenExpired
	}

	identity, err := g.repos.Identities().GetByID(ctx, record.IdentityID.String())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account for verification")
	}

	err = g.repos.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		record.ConsumedAt = &now
		if _, err := g.repos.VerificationTokens().UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String())); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification token")
		}

		if err := g.repos.Identities().MarkVerifiedTx(ctx, tx, record.IdentityID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark account verified")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	identity.EmailVerified = true

	return g.establishSession(ctx, identity, g.userTypeOf(ctx, identity.ID))
}
