package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidStepTransition = "INVALID_REGISTRATION_STEP_TRANSITION"
)

// ErrInvalidStepTransition is returned when a registration step change is
// not allowed from the current step.
var ErrInvalidStepTransition = goerrors.New("invalid registration step transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidStepTransition).
	WithCode(goerrors.CodeBadRequest)

// RegistrationStep identifies a stage of the signup flow.
type RegistrationStep string

const (
	StepRoleSelect   RegistrationStep = "role-select"
	StepPersonalInfo RegistrationStep = "personal-info"
	StepAcademicInfo RegistrationStep = "academic-info"
	StepAccountSetup RegistrationStep = "account-setup"
	StepSubmitting   RegistrationStep = "submitting"
	StepSuccess      RegistrationStep = "success"
	StepFailed       RegistrationStep = "failed"
)

// EmailDomainErrorMessage is the field-level error shown while the email
// being typed does not end in an approved institutional suffix.
const EmailDomainErrorMessage = "Please use a valid college email domain (@edu.in, @university.edu, @college.edu)"

// HasApprovedDomain reports whether the email ends with one of the
// approved institutional suffixes.
func HasApprovedDomain(email string) bool {
	for _, domain := range ApprovedEmailDomains {
		if strings.HasSuffix(email, domain) {
			return true
		}
	}
	return false
}

// PersonalInfoPayload is the form payload for the personal info step.
type PersonalInfoPayload struct {
	FirstName  string `form:"first_name" json:"first_name"`
	MiddleName string `form:"middle_name" json:"middle_name"`
	LastName   string `form:"last_name" json:"last_name"`
}

// Validate will run validation rules
func (p PersonalInfoPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.LastName, validation.Required, validation.Length(1, 200)),
	)
}

// AcademicInfoPayload is the form payload for the academic info step.
type AcademicInfoPayload struct {
	Branch    string `form:"branch" json:"branch"`
	BatchYear int    `form:"batch_year" json:"batch_year"`
}

func (p AcademicInfoPayload) validate(maxYear int) error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Branch, validation.Required, validation.In(branchRuleValues()...)),
		validation.Field(&p.BatchYear, validation.Required, validation.By(ValidateBatchYear(maxYear))),
	)
}

// Validate will run validation rules against the current clock.
func (p AcademicInfoPayload) Validate() error {
	return p.validate(time.Now().Year() + BatchYearHorizon)
}

// AccountSetupPayload is the form payload for the account setup step.
type AccountSetupPayload struct {
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (p AccountSetupPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email, validation.By(ValidateApprovedDomain)),
		validation.Field(&p.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(
			&p.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(p.Password)),
		),
	)
}

// ValidateStringEquals validates a string is equal to the given value
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidateApprovedDomain validates an email carries an approved suffix
func ValidateApprovedDomain(value any) error {
	s, _ := value.(string)
	if !HasApprovedDomain(s) {
		return errors.New("must use an approved college email domain")
	}
	return nil
}

// ValidateBatchYear validates a batch year is within [MinBatchYear, maxYear]
func ValidateBatchYear(maxYear int) validation.RuleFunc {
	return func(value any) error {
		year, _ := value.(int)
		if year < MinBatchYear || year > maxYear {
			return errors.New("batch year is out of range")
		}
		return nil
	}
}

// RegistrationFlowOption customizes flow construction.
type RegistrationFlowOption func(*RegistrationFlow)

// WithRegistrationLogger overrides the flow logger.
func WithRegistrationLogger(logger Logger) RegistrationFlowOption {
	return func(f *RegistrationFlow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRegistrationActivitySink sets the sink receiving signup events.
func WithRegistrationActivitySink(sink ActivitySink) RegistrationFlowOption {
	return func(f *RegistrationFlow) {
		f.sink = NormalizeActivitySink(sink)
	}
}

// WithRegistrationClock injects a custom clock (useful for tests).
func WithRegistrationClock(clock func() time.Time) RegistrationFlowOption {
	return func(f *RegistrationFlow) {
		if clock != nil {
			f.now = clock
		}
	}
}

// RegistrationFlow drives the linear multi-step signup state machine:
// RoleSelect -> PersonalInfo -> AcademicInfo -> AccountSetup ->
// Submitting -> {Success, Failed}. The draft accumulates across steps and
// survives a failed submit so the user can retry without retyping.
type RegistrationFlow struct {
	provider IdentityProvider
	logger   Logger
	sink     ActivitySink
	now      func() time.Time

	step             RegistrationStep
	draft            RegistrationDraft
	confirmPassword  string
	emailDomainError string
	submitError      string

	transitions map[RegistrationStep]map[RegistrationStep]struct{}
}

// NewRegistrationFlow returns a flow positioned at role selection.
func NewRegistrationFlow(provider IdentityProvider, opts ...RegistrationFlowOption) *RegistrationFlow {
	f := &RegistrationFlow{
		provider: provider,
		logger:   defLogger{},
		sink:     noopActivitySink{},
		now:      time.Now,
		step:     StepRoleSelect,
		transitions: map[RegistrationStep]map[RegistrationStep]struct{}{
			StepRoleSelect: {
				StepPersonalInfo: {},
			},
			StepPersonalInfo: {
				StepAcademicInfo: {},
				StepRoleSelect:   {},
			},
			StepAcademicInfo: {
				StepAccountSetup: {},
				StepPersonalInfo: {},
			},
			StepAccountSetup: {
				StepSubmitting:   {},
				StepAcademicInfo: {},
			},
			StepSubmitting: {
				StepSuccess: {},
				StepFailed:  {},
			},
			StepFailed: {
				StepSubmitting:   {},
				StepAccountSetup: {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f
}

// Step returns the current registration step.
func (f *RegistrationFlow) Step() RegistrationStep {
	return f.step
}

// Draft returns a copy of the accumulated draft.
func (f *RegistrationFlow) Draft() RegistrationDraft {
	return f.draft
}

// EmailDomainError returns the eager field-level domain error, or "".
func (f *RegistrationFlow) EmailDomainError() string {
	return f.emailDomainError
}

// SubmitError returns the last provider failure message, or "".
func (f *RegistrationFlow) SubmitError() string {
	return f.submitError
}

// SelectRole starts (or restarts) the flow for the picked role. The
// previous draft is discarded; role selection restarts the whole flow.
func (f *RegistrationFlow) SelectRole(role Role) error {
	if !role.IsRegistrable() {
		return goerrors.New("role must be student or alumni", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"role": role})
	}

	f.draft = RegistrationDraft{
		Role:      role,
		BatchYear: f.now().Year(),
	}
	f.confirmPassword = ""
	f.emailDomainError = ""
	f.submitError = ""
	f.step = StepRoleSelect

	return f.transition(StepPersonalInfo)
}

// SubmitPersonalInfo validates the personal step and advances.
func (f *RegistrationFlow) SubmitPersonalInfo(p PersonalInfoPayload) error {
	if err := f.requireStep(StepPersonalInfo); err != nil {
		return err
	}

	if err := p.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "personal info is incomplete")
	}

	f.draft.FirstName = p.FirstName
	f.draft.MiddleName = p.MiddleName
	f.draft.LastName = p.LastName

	return f.transition(StepAcademicInfo)
}

// SubmitAcademicInfo validates the academic step and advances. The batch
// year must fall within [MinBatchYear, currentYear+BatchYearHorizon].
func (f *RegistrationFlow) SubmitAcademicInfo(p AcademicInfoPayload) error {
	if err := f.requireStep(StepAcademicInfo); err != nil {
		return err
	}

	if err := p.validate(f.now().Year() + BatchYearHorizon); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "academic info is incomplete")
	}

	f.draft.Branch = p.Branch
	f.draft.BatchYear = p.BatchYear

	return f.transition(StepAccountSetup)
}

// SetAccountEmail records the email as typed and runs the eager domain
// check. A failing check sets a field-level error without blocking other
// input. Account fields are only mutable while the account step (or its
// failed variant) is active.
func (f *RegistrationFlow) SetAccountEmail(email string) error {
	if err := f.requireAccountStep(); err != nil {
		return err
	}

	f.draft.Email = email
	if email != "" && !HasApprovedDomain(email) {
		f.emailDomainError = EmailDomainErrorMessage
	} else {
		f.emailDomainError = ""
	}
	return nil
}

// SetAccountPassword records the password as typed.
func (f *RegistrationFlow) SetAccountPassword(password string) error {
	if err := f.requireAccountStep(); err != nil {
		return err
	}
	f.draft.Password = password
	return nil
}

// SetAccountConfirmPassword records the confirmation as typed.
func (f *RegistrationFlow) SetAccountConfirmPassword(confirm string) error {
	if err := f.requireAccountStep(); err != nil {
		return err
	}
	f.confirmPassword = confirm
	return nil
}

// CanAdvance mirrors the "Next" button enablement for the current step.
func (f *RegistrationFlow) CanAdvance() bool {
	switch f.step {
	case StepRoleSelect:
		return f.draft.Role.IsRegistrable()
	case StepPersonalInfo:
		return f.draft.FirstName != "" && f.draft.LastName != ""
	case StepAcademicInfo:
		return f.draft.Branch != "" && f.draft.BatchYear != 0
	case StepAccountSetup, StepFailed:
		return f.draft.Email != "" &&
			f.draft.Password != "" &&
			f.confirmPassword != "" &&
			f.emailDomainError == ""
	default:
		return false
	}
}

// Submit runs the full account-setup validation, then hands the draft to
// the provider. Validation failures never reach the provider. A provider
// failure surfaces its message and leaves the draft intact for retry.
func (f *RegistrationFlow) Submit(ctx context.Context) error {
	if f.step != StepAccountSetup && f.step != StepFailed {
		return f.invalidTransition(StepSubmitting)
	}

	payload := AccountSetupPayload{
		Email:           f.draft.Email,
		Password:        f.draft.Password,
		ConfirmPassword: f.confirmPassword,
	}
	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "account setup is incomplete")
	}

	if err := f.transition(StepSubmitting); err != nil {
		return err
	}
	f.submitError = ""

	identity, err := f.provider.SignUp(ctx, f.draft)
	if err != nil {
		f.submitError = errorMessage(err)
		f.logger.Error("registration submit failed: %v", err)
		f.recordEvent(ctx, ActivityEventSignUpFailure, "", f.draft.Email, map[string]any{
			"error": err.Error(),
		})
		if terr := f.transition(StepFailed); terr != nil {
			return terr
		}
		return err
	}

	f.recordEvent(ctx, ActivityEventSignUpSuccess, identity.UID, identity.Email, map[string]any{
		"role":   f.draft.Role,
		"branch": f.draft.Branch,
	})

	return f.transition(StepSuccess)
}

// Back moves one step toward role selection. Backing out of the first
// step discards the entire draft, since picking a role restarts the flow.
func (f *RegistrationFlow) Back() error {
	switch f.step {
	case StepPersonalInfo:
		f.draft = RegistrationDraft{}
		f.confirmPassword = ""
		f.emailDomainError = ""
		f.submitError = ""
		return f.transition(StepRoleSelect)
	case StepAcademicInfo:
		return f.transition(StepPersonalInfo)
	case StepAccountSetup:
		return f.transition(StepAcademicInfo)
	case StepFailed:
		return f.transition(StepAccountSetup)
	default:
		return f.invalidTransition(StepRoleSelect)
	}
}

// Reset abandons the flow entirely, as navigation away would.
func (f *RegistrationFlow) Reset() {
	f.draft = RegistrationDraft{}
	f.confirmPassword = ""
	f.emailDomainError = ""
	f.submitError = ""
	f.step = StepRoleSelect
}

func (f *RegistrationFlow) transition(target RegistrationStep) error {
	if allowed, ok := f.transitions[f.step]; ok {
		if _, exists := allowed[target]; exists {
			f.step = target
			return nil
		}
	}
	return f.invalidTransition(target)
}

func (f *RegistrationFlow) requireStep(step RegistrationStep) error {
	if f.step != step {
		return ErrInvalidStepTransition.WithMetadata(map[string]any{
			"current":  f.step,
			"expected": step,
		})
	}
	return nil
}

func (f *RegistrationFlow) requireAccountStep() error {
	if f.step != StepAccountSetup && f.step != StepFailed {
		return ErrInvalidStepTransition.WithMetadata(map[string]any{
			"current":  f.step,
			"expected": StepAccountSetup,
		})
	}
	return nil
}

func (f *RegistrationFlow) invalidTransition(target RegistrationStep) error {
	return ErrInvalidStepTransition.WithMetadata(map[string]any{
		"from": f.step,
		"to":   target,
	})
}

func (f *RegistrationFlow) recordEvent(ctx context.Context, eventType ActivityEventType, uid, email string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UID:        uid,
		Email:      email,
		Metadata:   metadata,
		OccurredAt: f.now(),
	}

	if err := f.sink.Record(ctx, event); err != nil {
		f.logger.Warn("registration activity sink error: %v", err)
	}
}

func branchRuleValues() []any {
	values := make([]any, len(Branches))
	for i, b := range Branches {
		values[i] = b
	}
	return values
}

func errorMessage(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Message != "" {
		return rich.Message
	}
	return err.Error()
}
