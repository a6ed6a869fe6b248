package local

import (
	"context"
	"database/sql"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/campusconnect/go-campus-auth"
)

// Provider is a credential-backed identity provider and profile store
// kept in a local bun database. It plays the role an external identity
// service would: password auth, profile documents in a global and a
// branch-scoped collection, emailed verification links, and an
// auth-state subscription that replays the current identity on attach.
type Provider struct {
	db       *bun.DB
	profiles Profiles
	tokens   *auth.VerificationTokenService
	mailer   auth.Mailer
	logger   auth.Logger
	sink     auth.ActivitySink
	config   Config

	mu      sync.Mutex
	current *auth.Identity
	subs    map[int]func(*auth.Identity)
	nextSub int
}

var (
	_ auth.IdentityProvider = (*Provider)(nil)
	_ auth.ProfileStore     = (*Provider)(nil)
)

type Option func(*Provider)

func WithLogger(logger auth.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMailer(mailer auth.Mailer) Option {
	return func(p *Provider) {
		if mailer != nil {
			p.mailer = mailer
		}
	}
}

func WithActivitySink(sink auth.ActivitySink) Option {
	return func(p *Provider) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// New creates a Provider on top of db. The schema must already be in
// place; see Setup.
func New(db *bun.DB, config Config, opts ...Option) *Provider {
	p := &Provider{
		db:       db,
		profiles: NewProfilesRepository(db),
		config:   config,
		logger:   defLogger{},
		subs:     map[int]func(*auth.Identity){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	if p.mailer == nil {
		p.mailer = &LogMailer{Logger: p.logger}
	}
	p.sink = auth.NormalizeActivitySink(p.sink)

	p.tokens = auth.NewVerificationTokenService(
		[]byte(config.GetSigningKey()),
		config.GetVerificationTokenExpiration(),
		config.GetIssuer(),
		p.logger,
	)

	return p
}

// SignIn checks the credentials against the accounts table and makes the
// matching identity current. Unknown emails and wrong passwords return
// the same error.
func (p *Provider) SignIn(ctx context.Context, email, password string) (auth.Identity, error) {
	account := &Account{}

	err := p.db.NewSelect().
		Model(account).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
			return auth.Identity{}, auth.ErrInvalidCredentials.WithMetadata(map[string]any{
				"email": email,
			})
		}
		return auth.Identity{}, goerrors.Wrap(err, goerrors.CategoryOperation, "account lookup failed")
	}

	if err := auth.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return auth.Identity{}, auth.ErrInvalidCredentials.WithMetadata(map[string]any{
			"email": email,
		})
	}

	identity := identityFromAccount(account)
	p.setCurrent(&identity)

	return identity, nil
}

// SignUp creates the account row, then writes the profile to the global
// and branch-scoped collections in one transaction, then dispatches the
// verification email, and finally makes the new identity current. The
// account insert is deliberately outside the profile transaction: if the
// profile writes fail the account stays behind as an orphan, matching
// how a remote identity service would behave after its half succeeded.
func (p *Provider) SignUp(ctx context.Context, draft auth.RegistrationDraft) (auth.Identity, error) {
	if len(draft.Password) < 6 {
		return auth.Identity{}, auth.ErrWeakPassword
	}

	if !draft.Role.IsRegistrable() {
		return auth.Identity{}, goerrors.New("role cannot be registered", goerrors.CategoryValidation).
			WithMetadata(map[string]any{
				"role": string(draft.Role),
			})
	}

	exists, err := p.db.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.email = ?", draft.Email).
		Exists(ctx)
	if err != nil {
		return auth.Identity{}, goerrors.Wrap(err, goerrors.CategoryOperation, "account lookup failed")
	}
	if exists {
		return auth.Identity{}, auth.ErrEmailInUse.WithMetadata(map[string]any{
			"email": draft.Email,
		})
	}

	hash, err := auth.HashPasswordWithCost(draft.Password, p.config.passwordCost())
	if err != nil {
		return auth.Identity{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	uid := accountID(draft.Email)
	now := time.Now()

	account := &Account{
		ID:           uid,
		Email:        draft.Email,
		PasswordHash: hash,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}

	if _, err := p.db.NewInsert().Model(account).Exec(ctx); err != nil {
		return auth.Identity{}, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
	}

	if err := p.persistProfile(ctx, uid, draft); err != nil {
		p.logger.Error("profile persistence failed for %s, account left orphaned: %v", uid, err)
		return auth.Identity{}, err
	}

	identity := auth.Identity{
		UID:   uid.String(),
		Email: draft.Email,
	}

	if err := p.deliverVerification(ctx, identity); err != nil {
		return auth.Identity{}, err
	}

	p.setCurrent(&identity)

	return identity, nil
}

// SignOut drops the current identity and notifies subscribers.
func (p *Provider) SignOut(ctx context.Context) error {
	p.setCurrent(nil)
	return nil
}

// SendVerificationEmail re-sends the verification link for the current
// identity.
func (p *Provider) SendVerificationEmail(ctx context.Context) error {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current == nil {
		return auth.ErrNoIdentity
	}

	return p.deliverVerification(ctx, *current)
}

// ConfirmVerification consumes an emailed link token and flips the
// account's verified flag. If the token belongs to the current identity
// subscribers are re-notified with the updated flag, the way a token
// refresh surfaces the change.
func (p *Provider) ConfirmVerification(ctx context.Context, token string) error {
	claims, err := p.tokens.Validate(token)
	if err != nil {
		return err
	}

	uid, err := uuid.Parse(claims.UID)
	if err != nil {
		return auth.ErrVerificationToken.WithMetadata(map[string]any{
			"uid": claims.UID,
		})
	}

	res, err := p.db.NewUpdate().
		Model((*Account)(nil)).
		Set("is_email_verified = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", uid).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "could not mark account verified")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return auth.ErrVerificationToken.WithMetadata(map[string]any{
			"uid": claims.UID,
		})
	}

	p.record(ctx, auth.ActivityEventVerificationComplete, claims.UID, claims.Email, nil)

	p.mu.Lock()
	if p.current != nil && p.current.UID == claims.UID {
		updated := *p.current
		updated.EmailVerified = true
		p.current = &updated
		p.mu.Unlock()
		p.notify()
		return nil
	}
	p.mu.Unlock()

	return nil
}

// Subscribe registers an auth-state callback. It fires synchronously
// with the current identity before returning.
func (p *Provider) Subscribe(onChange func(*auth.Identity)) auth.Unsubscribe {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = onChange
	current := cloneIdentity(p.current)
	p.mu.Unlock()

	onChange(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// GetProfile implements auth.ProfileStore against the global users
// collection.
func (p *Provider) GetProfile(ctx context.Context, uid string) (*auth.Profile, error) {
	id, err := uuid.Parse(uid)
	if err != nil {
		return nil, auth.ErrProfileNotFound.WithMetadata(map[string]any{
			"uid": uid,
		})
	}
	return p.profiles.GetByUID(ctx, id)
}

func (p *Provider) persistProfile(ctx context.Context, uid uuid.UUID, draft auth.RegistrationDraft) error {
	now := time.Now()

	profile := &auth.Profile{
		UID:        uid,
		FirstName:  draft.FirstName,
		MiddleName: draft.MiddleName,
		LastName:   draft.LastName,
		Role:       draft.Role,
		Branch:     draft.Branch,
		BatchYear:  draft.BatchYear,
		CreatedAt:  &now,
		UpdatedAt:  &now,
	}

	member := &BranchMember{
		Branch:     draft.Branch,
		Segment:    draft.Role.BranchSegment(),
		UID:        uid,
		Email:      draft.Email,
		FirstName:  draft.FirstName,
		MiddleName: draft.MiddleName,
		LastName:   draft.LastName,
		Role:       draft.Role,
		BatchYear:  draft.BatchYear,
		CreatedAt:  &now,
	}

	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := p.profiles.CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create profile document")
		}

		if _, err := tx.NewInsert().Model(member).Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create branch membership")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "profile transaction failed")
	}

	return nil
}

func (p *Provider) deliverVerification(ctx context.Context, identity auth.Identity) error {
	token, err := p.tokens.Mint(identity)
	if err != nil {
		return err
	}

	link := p.config.GetVerificationBaseURL() + "?token=" + token

	if err := p.mailer.SendVerification(ctx, identity.Email, link); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "could not deliver verification email")
	}

	p.record(ctx, auth.ActivityEventVerificationSent, identity.UID, identity.Email, nil)

	return nil
}

func (p *Provider) setCurrent(identity *auth.Identity) {
	p.mu.Lock()
	p.current = cloneIdentity(identity)
	p.mu.Unlock()

	p.notify()
}

func (p *Provider) notify() {
	p.mu.Lock()
	current := p.current
	subs := make([]func(*auth.Identity), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(cloneIdentity(current))
	}
}

func (p *Provider) record(ctx context.Context, eventType auth.ActivityEventType, uid, email string, metadata map[string]any) {
	event := auth.ActivityEvent{
		EventType:  eventType,
		UID:        uid,
		Email:      email,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if err := p.sink.Record(ctx, event); err != nil {
		p.logger.Warn("activity sink rejected %s: %v", eventType, err)
	}
}

// accountID derives a stable uid from the email so repeated test
// fixtures and idempotent imports land on the same identity.
func accountID(email string) uuid.UUID {
	if id, err := hashid.NewUUID(email); err == nil {
		return id
	}
	return uuid.New()
}

func cloneIdentity(identity *auth.Identity) *auth.Identity {
	if identity == nil {
		return nil
	}
	clone := *identity
	return &clone
}
