package localgate

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identities is the identity row store.
type Identities interface {
	repository.Repository[*IdentityRecord]

	GetByEmail(ctx context.Context, email string) (*IdentityRecord, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*IdentityRecord, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error
}

type identities struct {
	repository.Repository[*IdentityRecord]
	db *bun.DB
}

var _ Identities = (*identities)(nil)

func NewIdentitiesRepository(db *bun.DB) Identities {
	repo := repository.NewRepository[*IdentityRecord](db, repository.ModelHandlers[*IdentityRecord]{
		NewRecord: func() *IdentityRecord { return &IdentityRecord{} },
		GetID: func(r *IdentityRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *IdentityRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &identities{
		Repository: repo,
		db:         db,
	}
}

func (a *identities) GetByEmail(ctx context.Context, email string) (*IdentityRecord, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *identities) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*IdentityRecord, error) {
	record := &IdentityRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}
	return record, nil
}

func (a *identities) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return a.MarkVerifiedTx(ctx, a.db, id)
}

func (a *identities) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*IdentityRecord)(nil)).
		Set("is_email_verified = TRUE").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (a *identities) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewUpdate().
		Model((*IdentityRecord)(nil)).
		Set("loggedin_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// Profiles is the profile row store.
type Profiles interface {
	repository.Repository[*ProfileRecord]
}

func NewProfilesRepository(db *bun.DB) Profiles {
	return repository.NewRepository[*ProfileRecord](db, repository.ModelHandlers[*ProfileRecord]{
		NewRecord: func() *ProfileRecord { return &ProfileRecord{} },
		GetID: func(r *ProfileRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *ProfileRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})
}

// RepositoryManager exposes all gateway repositories plus transactions.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Identities() Identities
	Profiles() Profiles
	Students() repository.Repository[*StudentRecord]
	Companies() repository.Repository[*CompanyRecord]
	VerificationTokens() repository.Repository[*VerificationToken]
}

type mngr struct {
	db                 *bun.DB
	identities         Identities
	profiles           Profiles
	students           repository.Repository[*StudentRecord]
	companies          repository.Repository[*CompanyRecord]
	verificationTokens repository.Repository[*VerificationToken]
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:         db,
		identities: NewIdentitiesRepository(db),
		profiles:   NewProfilesRepository(db),
		students: repository.NewRepository[*StudentRecord](db, repository.ModelHandlers[*StudentRecord]{
			NewRecord: func() *StudentRecord { return &StudentRecord{} },
			GetID: func(r *StudentRecord) uuid.UUID {
				if r == nil {
					return uuid.Nil
				}
				return r.ID
			},
			SetID: func(r *StudentRecord, id uuid.UUID) {
				if r != nil {
					r.ID = id
				}
			},
		}),
		companies: repository.NewRepository[*CompanyRecord](db, repository.ModelHandlers[*CompanyRecord]{
			NewRecord: func() *CompanyRecord { return &CompanyRecord{} },
			GetID: func(r *CompanyRecord) uuid.UUID {
				if r == nil {
					return uuid.Nil
				}
				return r.ID
			},
			SetID: func(r *CompanyRecord, id uuid.UUID) {
				if r != nil {
					r.ID = id
				}
			},
		}),
		verificationTokens: repository.NewRepository[*VerificationToken](db, repository.ModelHandlers[*VerificationToken]{
			NewRecord: func() *VerificationToken { return &VerificationToken{} },
			GetID: func(r *VerificationToken) uuid.UUID {
				if r == nil {
					return uuid.Nil
				}
				return r.ID
			},
			SetID: func(r *VerificationToken, id uuid.UUID) {
				if r != nil {
					r.ID = id
				}
			},
			GetIdentifier: func() string {
				return "token"
			},
		}),
	}
}

func (m *mngr) Identities() Identities { return m.identities }
func (m *mngr) Profiles() Profiles     { return m.profiles }

func (m *mngr) Students() repository.Repository[*StudentRecord]   { return m.students }
func (m *mngr) Companies() repository.Repository[*CompanyRecord]  { return m.companies }
func (m *mngr) VerificationTokens() repository.Repository[*VerificationToken] {
	return m.verificationTokens
}

func (m *mngr) Validate() error {
	if m.identities == nil {
		return errors.New("repository identities should be initialized")
	}
	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}
	return nil
}

func (m *mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}
