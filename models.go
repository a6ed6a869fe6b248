package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is a user's role
type Role string

const (
	// RoleAdmin manages branches and memberships
	RoleAdmin Role = "admin"
	// RoleAlumni is a graduated member
	RoleAlumni Role = "alumni"
	// RoleStudent is a currently enrolled member
	RoleStudent Role = "student"
)

// Identity holds the attributes of an externally authenticated principal.
// EmailVerified is the only mutable field; it flips once when the user
// completes the out-of-band verification link.
type Identity struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Profile is the application-owned record describing a person, stored in
// the global users collection keyed by the identity's uid.
type Profile struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	UID        uuid.UUID  `bun:"uid,pk,type:uuid" json:"uid"`
	FirstName  string     `bun:"first_name,notnull" json:"first_name"`
	MiddleName string     `bun:"middle_name" json:"middle_name,omitempty"`
	LastName   string     `bun:"last_name,notnull" json:"last_name"`
	Role       Role       `bun:"user_role,notnull" json:"user_role"`
	Branch     string     `bun:"branch,notnull" json:"branch"`
	BatchYear  int        `bun:"batch_year,notnull" json:"batch_year"`
	CreatedAt  *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt  *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// FullName joins the name parts, skipping an empty middle name.
func (p *Profile) FullName() string {
	if p == nil {
		return ""
	}
	name := p.FirstName
	if p.MiddleName != "" {
		name += " " + p.MiddleName
	}
	return name + " " + p.LastName
}

// RegistrationDraft accumulates signup fields across the registration
// steps. It is transient; it is discarded on submit success or when the
// flow restarts at role selection.
type RegistrationDraft struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       Role   `json:"role"`
	Branch     string `json:"branch"`
	BatchYear  int    `json:"batch_year"`
}

// ApprovedEmailDomains are the institutional suffixes allowed to register.
var ApprovedEmailDomains = []string{
	"@edu.in",
	"@university.edu",
	"@college.edu",
}

// Branches is the fixed set of academic branches offered at registration.
var Branches = []string{
	"Computer Science",
	"Information Technology",
	"Electronics and Communication",
	"Mechanical Engineering",
	"Civil Engineering",
	"Electrical Engineering",
	"Chemical Engineering",
	"Aerospace Engineering",
	"Biotechnology",
	"Business Administration",
}

// MinBatchYear is the earliest batch year accepted at registration. The
// upper bound is the current year plus BatchYearHorizon.
var MinBatchYear = 2000

// BatchYearHorizon is how many years past the current one a batch may be.
var BatchYearHorizon = 4
