package local

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/campusconnect/go-campus-auth"
)

// Account is the provider-owned credential record backing an identity.
// Profile data lives separately in the users and branch_members tables.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid"`
	Email         string     `bun:"email,notnull,unique"`
	PasswordHash  string     `bun:"password_hash,notnull"`
	EmailVerified bool       `bun:"is_email_verified"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// BranchMember is the branch-scoped copy of a profile written at signup,
// keyed by branch, segment (alumni or students), and uid. Rows are never
// reconciled back to the users table; both copies get the same values at
// creation time.
type BranchMember struct {
	bun.BaseModel `bun:"table:branch_members,alias:bm"`

	Branch     string     `bun:"branch,pk"`
	Segment    string     `bun:"segment,pk"`
	UID        uuid.UUID  `bun:"uid,pk,type:uuid"`
	Email      string     `bun:"email,notnull"`
	FirstName  string     `bun:"first_name,notnull"`
	MiddleName string     `bun:"middle_name"`
	LastName   string     `bun:"last_name,notnull"`
	Role       auth.Role  `bun:"user_role,notnull"`
	BatchYear  int        `bun:"batch_year,notnull"`
	CreatedAt  *time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func identityFromAccount(account *Account) auth.Identity {
	return auth.Identity{
		UID:           account.ID.String(),
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
	}
}
