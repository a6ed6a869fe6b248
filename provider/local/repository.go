package local

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/campusconnect/go-campus-auth"
)

// Profiles is the global users collection.
type Profiles interface {
	repository.Repository[*auth.Profile]

	GetByUID(ctx context.Context, uid uuid.UUID) (*auth.Profile, error)
	GetByUIDTx(ctx context.Context, tx bun.IDB, uid uuid.UUID) (*auth.Profile, error)
}

type profiles struct {
	repository.Repository[*auth.Profile]
	db *bun.DB
}

var (
	_ Profiles                             = (*profiles)(nil)
	_ repository.Repository[*auth.Profile] = (*profiles)(nil)
)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*auth.Profile](db, repository.ModelHandlers[*auth.Profile]{
		NewRecord: func() *auth.Profile { return &auth.Profile{} },
		GetID: func(p *auth.Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.UID
		},
		SetID: func(p *auth.Profile, id uuid.UUID) {
			if p != nil {
				p.UID = id
			}
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (a *profiles) GetByUID(ctx context.Context, uid uuid.UUID) (*auth.Profile, error) {
	return a.GetByUIDTx(ctx, a.db, uid)
}

func (a *profiles) GetByUIDTx(ctx context.Context, tx bun.IDB, uid uuid.UUID) (*auth.Profile, error) {
	record := &auth.Profile{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.uid = ?", uid).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"uid": uid.String(),
				})
		}
		return nil, err
	}

	return record, nil
}
