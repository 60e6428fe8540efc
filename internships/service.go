package internships

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/internmatch/go-session"
)

const textCodeAlreadyApplied = "ALREADY_APPLIED"

// ErrAlreadyApplied is returned when a student re-submits against the same
// internship.
var ErrAlreadyApplied = goerrors.New("already applied to this internship", goerrors.CategoryConflict).
	WithTextCode(textCodeAlreadyApplied).
	WithCode(goerrors.CodeConflict)

// Service exposes the internship browsing and application workflows.
type Service struct {
	internships  Internships
	applications Applications
	saved        SavedInternships
	logger       session.Logger
	sink         session.ActivitySink
}

type ServiceOption func(*Service)

func WithServiceLogger(logger session.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithServiceActivitySink(sink session.ActivitySink) ServiceOption {
	return func(s *Service) {
		s.sink = sink
	}
}

func NewService(db *bun.DB, opts ...ServiceOption) *Service {
	s := &Service{
		internships:  NewInternshipsRepository(db),
		applications: NewApplicationsRepository(db),
		saved:        NewSavedInternshipsRepository(db),
		logger:       session.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// List returns one page of active internships matching the filter, newest
// first.
func (s *Service) List(ctx context.Context, filter Filter) (*Page, error) {
	items, total, err := s.internships.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	return buildPage(items, total, filter.page(), filter.perPage()), nil
}

// Get loads a single internship.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Internship, error) {
	return s.internships.GetByID(ctx, id.String())
}

// Post publishes a new internship for a company.
func (s *Service) Post(ctx context.Context, record *Internship) (*Internship, error) {
	if record.Title == "" {
		return nil, goerrors.New("internship title is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.IsActive = true
	return s.internships.Create(ctx, record)
}

// Apply submits an application. A student gets one application per
// internship; re-submission is a conflict even after withdrawal.
func (s *Service) Apply(ctx context.Context, studentID, internshipID uuid.UUID, coverLetter string) (*Application, error) {
	if _, err := s.internships.GetByID(ctx, internshipID.String()); err != nil {
		return nil, err
	}

	if existing, err := s.applications.GetForStudent(ctx, studentID, internshipID); err == nil && existing != nil {
		return nil, ErrAlreadyApplied
	} else if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}

	record, err := s.applications.Create(ctx, &Application{
		ID:           uuid.New(),
		InternshipID: internshipID,
		StudentID:    studentID,
		Status:       StatusApplied,
		CoverLetter:  coverLetter,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to submit application")
	}

	s.record(ctx, "internship.applied", studentID, map[string]any{
		"internship_id": internshipID.String(),
	})

	return record, nil
}

// MyApplications lists a student's applications newest first, each with its
// internship attached.
func (s *Service) MyApplications(ctx context.Context, studentID uuid.UUID) ([]*Application, error) {
	return s.applications.ListForStudent(ctx, studentID)
}

// ApplicationsFor lists the submissions against an internship for its
// posting company.
func (s *Service) ApplicationsFor(ctx context.Context, internshipID uuid.UUID) ([]*Application, error) {
	return s.applications.ListForInternship(ctx, internshipID)
}

// Withdraw moves a student's application to withdrawn.
func (s *Service) Withdraw(ctx context.Context, studentID, internshipID uuid.UUID) (*Application, error) {
	record, err := s.applications.GetForStudent(ctx, studentID, internshipID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, record, StatusWithdrawn)
}

// AdvanceStatus moves an application through the review lifecycle on
// behalf of the posting company.
func (s *Service) AdvanceStatus(ctx context.Context, applicationID uuid.UUID, to ApplicationStatus) (*Application, error) {
	record, err := s.applications.GetByID(ctx, applicationID.String())
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, record, to)
}

func (s *Service) transition(ctx context.Context, record *Application, to ApplicationStatus) (*Application, error) {
	next, err := changeStatus(record.Status, to)
	if err != nil {
		return nil, err
	}

	record.Status = next
	record, err = s.applications.Update(ctx, record, repository.UpdateByID(record.ID.String()))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update application status")
	}

	s.record(ctx, "internship.application."+string(next), record.StudentID, map[string]any{
		"application_id": record.ID.String(),
	})

	return record, nil
}

// Save bookmarks an internship for a student. Saving twice is a no-op.
func (s *Service) Save(ctx context.Context, studentID, internshipID uuid.UUID) error {
	if existing, err := s.saved.GetForStudent(ctx, studentID, internshipID); err == nil && existing != nil {
		return nil
	} else if err != nil && !repository.IsRecordNotFound(err) {
		return err
	}

	if _, err := s.saved.Create(ctx, &SavedInternship{
		ID:           uuid.New(),
		StudentID:    studentID,
		InternshipID: internshipID,
	}); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save internship")
	}

	return nil
}

// Unsave removes a bookmark. Removing an absent bookmark is a no-op.
func (s *Service) Unsave(ctx context.Context, studentID, internshipID uuid.UUID) error {
	return s.saved.DeleteForStudent(ctx, studentID, internshipID)
}

// Saved lists a student's bookmarks newest first.
func (s *Service) Saved(ctx context.Context, studentID uuid.UUID) ([]*SavedInternship, error) {
	return s.saved.ListForStudent(ctx, studentID)
}

func (s *Service) record(ctx context.Context, event string, userID uuid.UUID, meta map[string]any) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Record(ctx, session.ActivityEvent{
		EventType:  session.ActivityEventType(event),
		UserID:     userID.String(),
		Metadata:   meta,
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("failed to record activity event", "event", event, "error", err)
	}
}

// CreateSchema creates the internship tables. For tests and local use.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Internship)(nil),
		(*Application)(nil),
		(*SavedInternship)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create table")
		}
	}

	return nil
}
