// Package form implements the multi-step intake form session: the draft, the
// step pointer, per-step validation gating and the terminal submit.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"intakedesk/internal/intake/models"
	"intakedesk/internal/intake/normalize"
	"intakedesk/internal/intake/validation"
)

var (
	ErrUnknownField   = errors.New("unknown form field")
	ErrUnknownService = errors.New("unknown service")
	ErrStepInvalid    = errors.New("current step has validation errors")
	ErrNotLastStep    = errors.New("submit is only allowed on the last step")
	ErrSubmitInFlight = errors.New("a submission is already in flight")
)

// Submitter delivers a built submission to the intake endpoint.
type Submitter interface {
	Submit(ctx context.Context, sub models.Submission) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, sub models.Submission) error

func (f SubmitterFunc) Submit(ctx context.Context, sub models.Submission) error {
	return f(ctx, sub)
}

// Machine owns one form session. It is safe for concurrent use; the submit
// network call runs without holding the lock.
type Machine struct {
	mu         sync.Mutex
	draft      models.Submission
	step       Step
	status     Status
	showErrors bool
	lastErr    error

	submitter    Submitter
	logger       *slog.Logger
	onStepChange func(Step)
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for submit failures.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithStepChangeHook registers a callback run after every step change, e.g.
// to scroll the view back to the top.
func WithStepChangeHook(fn func(Step)) Option {
	return func(m *Machine) {
		m.onStepChange = fn
	}
}

// New creates a machine on the first step with an empty draft.
func New(submitter Submitter, opts ...Option) *Machine {
	m := &Machine{
		draft:     models.NewDraft(),
		step:      FirstStep,
		submitter: submitter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore resumes a session at step with a previously collected draft, e.g.
// when the draft travels with a stateless request.
func Restore(draft models.Submission, step Step, submitter Submitter, opts ...Option) *Machine {
	m := New(submitter, opts...)
	m.draft = draft.Clone()
	m.step = clamp(step)
	return m
}

var fieldSetters = map[string]func(*models.Submission, string){
	validation.FieldFullName:            func(s *models.Submission, v string) { s.FullName = v },
	validation.FieldEmail:               func(s *models.Submission, v string) { s.Email = v },
	validation.FieldPhoneNumber:         func(s *models.Submission, v string) { s.PhoneNumber = v },
	validation.FieldCompanyName:         func(s *models.Submission, v string) { s.CompanyName = v },
	validation.FieldRolePosition:        func(s *models.Submission, v string) { s.RolePosition = v },
	validation.FieldSelectedPackage:     func(s *models.Submission, v string) { s.SelectedPackage = v },
	validation.FieldNeedsAndGoals:       func(s *models.Submission, v string) { s.NeedsAndGoals = v },
	validation.FieldOfficeDuration:      func(s *models.Submission, v string) { s.OfficeDuration = v },
	validation.FieldTeamSize:            func(s *models.Submission, v string) { s.TeamSize = v },
	validation.FieldEventType:           func(s *models.Submission, v string) { s.EventType = v },
	validation.FieldExpectedAttendees:   func(s *models.Submission, v string) { s.ExpectedAttendees = v },
	validation.FieldPreferredDate:       func(s *models.Submission, v string) { s.PreferredDate = v },
	validation.FieldCurrentlyUsingTools: func(s *models.Submission, v string) { s.CurrentlyUsingTools = v },
	validation.FieldMainChallenge:       func(s *models.Submission, v string) { s.MainChallenge = v },
	validation.FieldOtherReferralSource: func(s *models.Submission, v string) { s.OtherReferralSource = v },
	validation.FieldPreferredContact:    func(s *models.Submission, v string) { s.PreferredContact = v },
	validation.FieldBestTimeToReach:     func(s *models.Submission, v string) { s.BestTimeToReach = v },
	validation.FieldBestTimeFrom:        func(s *models.Submission, v string) { s.BestTimeFrom = v },
	validation.FieldBestTimeTo:          func(s *models.Submission, v string) { s.BestTimeTo = v },
}

// UpdateField replaces one scalar field. It never validates.
func (m *Machine) UpdateField(name, value string) error {
	set, ok := fieldSetters[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set(&m.draft, value)
	return nil
}

// ToggleService flips one service flag.
func (m *Machine) ToggleService(key models.ServiceKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.draft.Services.Toggle(key) {
		return fmt.Errorf("%w: %q", ErrUnknownService, key)
	}
	return nil
}

// ToggleReferralTag removes tag when present and adds it otherwise.
func (m *Machine) ToggleReferralTag(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := slices.Index(m.draft.ReferralSource, tag); i >= 0 {
		m.draft.ReferralSource = slices.Delete(m.draft.ReferralSource, i, i+1)
		return
	}
	m.draft.ReferralSource = append(m.draft.ReferralSource, tag)
}

// Draft returns a copy of the current answers.
func (m *Machine) Draft() models.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft.Clone()
}

// Step returns the active step.
func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// Status returns the submission status.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastError returns the cause of the most recent failed submit.
func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Progress is the completed fraction shown in the progress bar.
func (m *Machine) Progress() float64 {
	return float64(m.Step().Number()) / float64(StepCount)
}

// Errors re-runs the active step's validator against the current draft.
func (m *Machine) Errors() validation.ErrorMap {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step.Validator()(m.draft)
}

// VisibleErrors returns the errors to display: empty until an advance or
// submit on this step has failed.
func (m *Machine) VisibleErrors() validation.ErrorMap {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.showErrors {
		return validation.ErrorMap{}
	}
	return m.step.Validator()(m.draft)
}

// CanAdvance reports whether the Next control should be enabled.
func (m *Machine) CanAdvance() bool {
	return m.Errors().Valid()
}

// Advance moves to the next step when the active step validates. Otherwise it
// makes the errors visible and returns ErrStepInvalid.
func (m *Machine) Advance() error {
	m.mu.Lock()
	if !m.step.Validator()(m.draft).Valid() {
		m.showErrors = true
		m.mu.Unlock()
		return ErrStepInvalid
	}
	changed := m.moveTo(m.step + 1)
	m.mu.Unlock()
	m.notify(changed)
	return nil
}

// Retreat moves to the previous step without validating.
func (m *Machine) Retreat() {
	m.mu.Lock()
	changed := m.moveTo(m.step - 1)
	m.mu.Unlock()
	m.notify(changed)
}

// moveTo must be called with mu held.
func (m *Machine) moveTo(s Step) Step {
	m.step = clamp(s)
	m.showErrors = false
	return m.step
}

func (m *Machine) notify(s Step) {
	if m.onStepChange != nil {
		m.onStepChange(s)
	}
}

// Submit validates the last step and sends the built submission. A failed
// call leaves the draft intact with StatusError so the user can retry; success
// discards the draft.
func (m *Machine) Submit(ctx context.Context) error {
	m.mu.Lock()
	if m.status == StatusSubmitting {
		m.mu.Unlock()
		return ErrSubmitInFlight
	}
	if m.step != LastStep {
		m.mu.Unlock()
		return ErrNotLastStep
	}
	if !m.step.Validator()(m.draft).Valid() {
		m.showErrors = true
		m.mu.Unlock()
		return ErrStepInvalid
	}
	m.status = StatusSubmitting
	m.lastErr = nil
	payload := normalize.BuildSubmission(m.draft)
	m.mu.Unlock()

	err := m.submitter.Submit(ctx, payload)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.status = StatusError
		m.lastErr = err
		m.logger.ErrorContext(ctx, "intake submission failed", "error", err)
		return err
	}
	m.status = StatusSuccess
	m.draft = models.NewDraft()
	m.showErrors = false
	return nil
}

// Reset starts a fresh session on the first step.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.draft = models.NewDraft()
	m.status = StatusIdle
	m.lastErr = nil
	changed := m.moveTo(FirstStep)
	m.mu.Unlock()
	m.notify(changed)
}
