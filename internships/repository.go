package internships

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Internships is the internship row store.
type Internships interface {
	repository.Repository[*Internship]

	Search(ctx context.Context, filter Filter) ([]*Internship, int, error)
}

type internshipsRepo struct {
	repository.Repository[*Internship]
	db *bun.DB
}

var _ Internships = (*internshipsRepo)(nil)

func NewInternshipsRepository(db *bun.DB) Internships {
	repo := repository.NewRepository[*Internship](db, repository.ModelHandlers[*Internship]{
		NewRecord: func() *Internship { return &Internship{} },
		GetID: func(r *Internship) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Internship, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &internshipsRepo{
		Repository: repo,
		db:         db,
	}
}

// Search applies the filter's criteria and pagination in one query pair.
func (a *internshipsRepo) Search(ctx context.Context, filter Filter) ([]*Internship, int, error) {
	var records []*Internship

	page, perPage := filter.page(), filter.perPage()

	q := a.db.NewSelect().Model(&records)
	for _, c := range filter.criteria() {
		q.Apply(c)
	}
	q.Limit(perPage).Offset((page - 1) * perPage)

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to search internships")
	}

	return records, total, nil
}

// Applications is the application row store.
type Applications interface {
	repository.Repository[*Application]

	GetForStudent(ctx context.Context, studentID, internshipID uuid.UUID) (*Application, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]*Application, error)
	ListForInternship(ctx context.Context, internshipID uuid.UUID) ([]*Application, error)
}

type applicationsRepo struct {
	repository.Repository[*Application]
	db *bun.DB
}

var _ Applications = (*applicationsRepo)(nil)

func NewApplicationsRepository(db *bun.DB) Applications {
	repo := repository.NewRepository[*Application](db, repository.ModelHandlers[*Application]{
		NewRecord: func() *Application { return &Application{} },
		GetID: func(r *Application) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Application, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &applicationsRepo{
		Repository: repo,
		db:         db,
	}
}

func (a *applicationsRepo) GetForStudent(ctx context.Context, studentID, internshipID uuid.UUID) (*Application, error) {
	record := &Application{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.student_id = ?", studentID).
		Where("?TableAlias.internship_id = ?", internshipID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"student_id":    studentID.String(),
					"internship_id": internshipID.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

func (a *applicationsRepo) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]*Application, error) {
	var records []*Application
	err := a.db.NewSelect().
		Model(&records).
		Relation("Internship").
		Where("?TableAlias.student_id = ?", studentID).
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list applications")
	}
	return records, nil
}

func (a *applicationsRepo) ListForInternship(ctx context.Context, internshipID uuid.UUID) ([]*Application, error) {
	var records []*Application
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.internship_id = ?", internshipID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list applications")
	}
	return records, nil
}

// SavedInternships is the bookmark row store.
type SavedInternships interface {
	repository.Repository[*SavedInternship]

	GetForStudent(ctx context.Context, studentID, internshipID uuid.UUID) (*SavedInternship, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]*SavedInternship, error)
	DeleteForStudent(ctx context.Context, studentID, internshipID uuid.UUID) error
}

type savedRepo struct {
	repository.Repository[*SavedInternship]
	db *bun.DB
}

var _ SavedInternships = (*savedRepo)(nil)

func NewSavedInternshipsRepository(db *bun.DB) SavedInternships {
	repo := repository.NewRepository[*SavedInternship](db, repository.ModelHandlers[*SavedInternship]{
		NewRecord: func() *SavedInternship { return &SavedInternship{} },
		GetID: func(r *SavedInternship) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *SavedInternship, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &savedRepo{
		Repository: repo,
		db:         db,
	}
}

func (a *savedRepo) GetForStudent(ctx context.Context, studentID, internshipID uuid.UUID) (*SavedInternship, error) {
	record := &SavedInternship{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.student_id = ?", studentID).
		Where("?TableAlias.internship_id = ?", internshipID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"student_id":    studentID.String(),
					"internship_id": internshipID.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

func (a *savedRepo) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]*SavedInternship, error) {
	var records []*SavedInternship
	err := a.db.NewSelect().
		Model(&records).
		Relation("Internship").
		Where("?TableAlias.student_id = ?", studentID).
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list saved internships")
	}
	return records, nil
}

func (a *savedRepo) DeleteForStudent(ctx context.Context, studentID, internshipID uuid.UUID) error {
	_, err := a.db.NewDelete().
		Model((*SavedInternship)(nil)).
		Where("student_id = ?", studentID).
		Where("internship_id = ?", internshipID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove saved internship")
	}
	return nil
}
