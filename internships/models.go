package internships

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PositionType enumerates how an internship is staffed.
type PositionType string

const (
	PositionOnsite PositionType = "onsite"
	PositionRemote PositionType = "remote"
	PositionHybrid PositionType = "hybrid"
)

// Internship is a posted placement.
type Internship struct {
	bun.BaseModel `bun:"table:internships,alias:int"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	CompanyID     uuid.UUID    `bun:"company_id,notnull,type:uuid" json:"company_id,omitempty"`
	Title         string       `bun:"title,notnull" json:"title,omitempty"`
	Description   string       `bun:"description" json:"description,omitempty"`
	Location      string       `bun:"location" json:"location,omitempty"`
	Type          PositionType `bun:"type" json:"type,omitempty"`
	Duration      string       `bun:"duration" json:"duration,omitempty"`
	Stipend       string       `bun:"stipend" json:"stipend,omitempty"`
	Deadline      *time.Time   `bun:"deadline,nullzero" json:"deadline,omitempty"`
	IsActive      bool         `bun:"is_active" json:"is_active,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Application is a student's submission against an internship.
type Application struct {
	bun.BaseModel `bun:"table:applications,alias:app"`
	ID            uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	InternshipID  uuid.UUID         `bun:"internship_id,notnull,type:uuid" json:"internship_id,omitempty"`
	StudentID     uuid.UUID         `bun:"student_id,notnull,type:uuid" json:"student_id,omitempty"`
	Status        ApplicationStatus `bun:"status,notnull" json:"status,omitempty"`
	CoverLetter   string            `bun:"cover_letter" json:"cover_letter,omitempty"`
	CreatedAt     *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`

	Internship *Internship `bun:"rel:belongs-to,join:internship_id=id" json:"internship,omitempty"`
}

// SavedInternship is a student's bookmark.
type SavedInternship struct {
	bun.BaseModel `bun:"table:saved_internships,alias:sav"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	StudentID     uuid.UUID  `bun:"student_id,notnull,type:uuid" json:"student_id,omitempty"`
	InternshipID  uuid.UUID  `bun:"internship_id,notnull,type:uuid" json:"internship_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`

	Internship *Internship `bun:"rel:belongs-to,join:internship_id=id" json:"internship,omitempty"`
}
