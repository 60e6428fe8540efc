package localgate

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/internmatch/go-session"
)

// IdentityRecord is the gateway's authoritative user row.
type IdentityRecord struct {
	bun.BaseModel `bun:"table:identities,alias:idn"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string         `bun:"email,notnull,unique" json:"email,omitempty"`
	FullName      string         `bun:"full_name" json:"full_name,omitempty"`
	PasswordHash  string         `bun:"password_hash" json:"password_hash,omitempty"`
	EmailVerified bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	Provider      string         `bun:"provider" json:"provider,omitempty"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	LoggedInAt    *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// identityView adapts an IdentityRecord to session.Identity; the record's
// ID field collides with the interface's ID method, so the view carries
// plain values.
type identityView struct {
	id          string
	email       string
	displayName string
}

func (v identityView) ID() string          { return v.id }
func (v identityView) Email() string       { return v.email }
func (v identityView) DisplayName() string { return v.displayName }

func viewOf(r *IdentityRecord) session.Identity {
	if r == nil {
		return nil
	}
	return identityView{
		id:          r.ID.String(),
		email:       r.Email,
		displayName: r.FullName,
	}
}

// ProfileRecord is the application profile row keyed by identity id.
type ProfileRecord struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FullName      string           `bun:"full_name,notnull" json:"full_name,omitempty"`
	UserType      session.UserType `bun:"user_type,notnull" json:"user_type,omitempty"`
	Phone         string           `bun:"phone_number" json:"phone_number,omitempty"`
	CreatedAt     *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time       `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// StudentRecord holds student-specific profile fields.
type StudentRecord struct {
	bun.BaseModel `bun:"table:students,alias:stu"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Major         string     `bun:"major" json:"major,omitempty"`
	University    string     `bun:"university" json:"university,omitempty"`
	GradYear      int        `bun:"grad_year" json:"grad_year,omitempty"`
	ResumeURL     string     `bun:"resume_url" json:"resume_url,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// CompanyRecord holds company-specific profile fields.
type CompanyRecord struct {
	bun.BaseModel `bun:"table:companies,alias:cmp"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	CompanyName   string     `bun:"company_name,notnull" json:"company_name,omitempty"`
	Industry      string     `bun:"industry" json:"industry,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	Website       string     `bun:"website" json:"website,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// VerificationToken is an outstanding email-confirmation token.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vtk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	IdentityID    uuid.UUID  `bun:"identity_id,notnull,type:uuid" json:"identity_id,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ConsumedAt    *time.Time `bun:"consumed_at,nullzero" json:"consumed_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
