package form

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"intakedesk/internal/intake/models"
	"intakedesk/internal/intake/validation"
	"intakedesk/pkg/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSubmitter struct {
	calls []models.Submission
	err   error
}

func (r *recordingSubmitter) Submit(_ context.Context, sub models.Submission) error {
	r.calls = append(r.calls, sub)
	return r.err
}

func newMachine(t *testing.T, sub Submitter, opts ...Option) *Machine {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(sub, opts...)
}

func fillContact(t *testing.T, m *Machine) {
	t.Helper()
	require.NoError(t, m.UpdateField(validation.FieldFullName, "Lauris Bawar"))
	require.NoError(t, m.UpdateField(validation.FieldEmail, "lauris@example.com"))
	require.NoError(t, m.UpdateField(validation.FieldPhoneNumber, "(091) 234-5678"))
}

func fillReferral(t *testing.T, m *Machine) {
	t.Helper()
	m.ToggleReferralTag("Website")
	require.NoError(t, m.UpdateField(validation.FieldPreferredContact, "Email"))
	require.NoError(t, m.UpdateField(validation.FieldBestTimeToReach, "Mornings"))
}

// walkToLastStep fills every required field and advances to the referral step.
func walkToLastStep(t *testing.T, m *Machine) {
	t.Helper()
	fillContact(t, m)
	require.NoError(t, m.Advance())
	require.NoError(t, m.ToggleService(models.ServiceSoftwareDevelopment))
	require.NoError(t, m.Advance())
	require.NoError(t, m.Advance())
	require.Equal(t, StepReferral, m.Step())
}

func TestAdvanceGating(t *testing.T) {
	testutil.Given(t, "a fresh form without a full name", func(t *testing.T) {
		m := newMachine(t, &recordingSubmitter{})
		require.NoError(t, m.UpdateField(validation.FieldEmail, "a@b.co"))
		require.NoError(t, m.UpdateField(validation.FieldPhoneNumber, "0912 345 6789"))

		testutil.Then(t, "errors are computed but hidden before any attempt", func(t *testing.T) {
			assert.Contains(t, m.Errors(), validation.FieldFullName)
			assert.Empty(t, m.VisibleErrors())
			assert.False(t, m.CanAdvance())
		})

		testutil.When(t, "advance is attempted", func(t *testing.T) {
			err := m.Advance()

			testutil.Then(t, "the step does not move and errors become visible", func(t *testing.T) {
				assert.ErrorIs(t, err, ErrStepInvalid)
				assert.Equal(t, StepContact, m.Step())
				assert.Equal(t, validation.MsgFullNameRequired, m.VisibleErrors()[validation.FieldFullName])
			})
		})

		testutil.When(t, "the name is filled in", func(t *testing.T) {
			require.NoError(t, m.UpdateField(validation.FieldFullName, "Lauris"))

			testutil.Then(t, "visible errors update reactively and advance succeeds", func(t *testing.T) {
				assert.Empty(t, m.VisibleErrors())
				assert.True(t, m.CanAdvance())
				require.NoError(t, m.Advance())
				assert.Equal(t, StepServices, m.Step())
				assert.Empty(t, m.VisibleErrors(), "visibility resets on the new step")
			})
		})
	})
}

func TestStepPointerIsClamped(t *testing.T) {
	var changes []Step
	m := newMachine(t, &recordingSubmitter{}, WithStepChangeHook(func(s Step) { changes = append(changes, s) }))

	m.Retreat()
	assert.Equal(t, StepContact, m.Step())

	walkToLastStep(t, m)
	fillReferral(t, m)
	require.NoError(t, m.Advance())
	assert.Equal(t, StepReferral, m.Step(), "advance stays on the last step")
	assert.InDelta(t, 1.0, m.Progress(), 0.0001)

	m.Retreat()
	assert.Equal(t, StepDetails, m.Step())
	assert.Equal(t, []Step{StepContact, StepServices, StepDetails, StepReferral, StepReferral, StepDetails}, changes)
}

func TestRetreatNeverValidates(t *testing.T) {
	m := newMachine(t, &recordingSubmitter{})
	fillContact(t, m)
	require.NoError(t, m.Advance())

	m.Retreat()

	assert.Equal(t, StepContact, m.Step())
	assert.Empty(t, m.VisibleErrors())
}

func TestToggles(t *testing.T) {
	m := newMachine(t, &recordingSubmitter{})

	require.NoError(t, m.ToggleService(models.ServiceHRPayrollManagement))
	assert.True(t, m.Draft().Services.HRPayrollManagement)
	require.NoError(t, m.ToggleService(models.ServiceHRPayrollManagement))
	assert.False(t, m.Draft().Services.HRPayrollManagement)
	assert.ErrorIs(t, m.ToggleService("catering"), ErrUnknownService)

	m.ToggleReferralTag("Website")
	m.ToggleReferralTag(models.ReferralOther)
	assert.Equal(t, []string{"Website", models.ReferralOther}, m.Draft().ReferralSource)
	m.ToggleReferralTag("Website")
	assert.Equal(t, []string{models.ReferralOther}, m.Draft().ReferralSource)

	assert.ErrorIs(t, m.UpdateField("services", "x"), ErrUnknownField)
}

func TestReferralOtherRequiresElaboration(t *testing.T) {
	m := newMachine(t, &recordingSubmitter{})
	walkToLastStep(t, m)
	require.NoError(t, m.UpdateField(validation.FieldPreferredContact, "Phone"))
	require.NoError(t, m.UpdateField(validation.FieldBestTimeToReach, "After 5pm"))
	m.ToggleReferralTag(models.ReferralOther)

	assert.Contains(t, m.Errors(), validation.FieldOtherReferralSource)

	require.NoError(t, m.UpdateField(validation.FieldOtherReferralSource, "Radio ad"))
	assert.True(t, m.CanAdvance())
}

func TestSubmit(t *testing.T) {
	t.Run("rejected before the last step", func(t *testing.T) {
		sub := &recordingSubmitter{}
		m := newMachine(t, sub)
		assert.ErrorIs(t, m.Submit(context.Background()), ErrNotLastStep)
		assert.Empty(t, sub.calls)
	})

	t.Run("invalid last step shows errors without a network call", func(t *testing.T) {
		sub := &recordingSubmitter{}
		m := newMachine(t, sub)
		walkToLastStep(t, m)

		assert.ErrorIs(t, m.Submit(context.Background()), ErrStepInvalid)
		assert.Empty(t, sub.calls)
		assert.Equal(t, StatusIdle, m.Status())
		assert.Contains(t, m.VisibleErrors(), validation.FieldReferralSource)
	})

	t.Run("failure preserves the draft for retry", func(t *testing.T) {
		sub := &recordingSubmitter{err: errors.New("network down")}
		m := newMachine(t, sub)
		walkToLastStep(t, m)
		fillReferral(t, m)

		err := m.Submit(context.Background())

		require.Error(t, err)
		assert.Equal(t, StatusError, m.Status())
		assert.EqualError(t, m.LastError(), "network down")
		assert.Equal(t, "Lauris Bawar", m.Draft().FullName)
		assert.Equal(t, StepReferral, m.Step())

		sub.err = nil
		require.NoError(t, m.Submit(context.Background()))
		assert.Len(t, sub.calls, 2)
		assert.Equal(t, StatusSuccess, m.Status())
		assert.NoError(t, m.LastError())
	})

	t.Run("success sends the built payload and discards the draft", func(t *testing.T) {
		sub := &recordingSubmitter{}
		m := newMachine(t, sub)
		walkToLastStep(t, m)
		fillReferral(t, m)
		require.NoError(t, m.UpdateField(validation.FieldOtherReferralSource, "stale"))

		require.NoError(t, m.Submit(context.Background()))

		require.Len(t, sub.calls, 1)
		assert.Equal(t, "Lauris Bawar", sub.calls[0].FullName)
		assert.Empty(t, sub.calls[0].OtherReferralSource)
		assert.Empty(t, m.Draft().FullName)

		m.Reset()
		assert.Equal(t, StatusIdle, m.Status())
		assert.Equal(t, StepContact, m.Step())
	})

	t.Run("concurrent submit is refused while one is in flight", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{})
		m := newMachine(t, SubmitterFunc(func(context.Context, models.Submission) error {
			close(started)
			<-release
			return nil
		}))
		walkToLastStep(t, m)
		fillReferral(t, m)

		done := make(chan error, 1)
		go func() { done <- m.Submit(context.Background()) }()
		<-started

		assert.Equal(t, StatusSubmitting, m.Status())
		assert.ErrorIs(t, m.Submit(context.Background()), ErrSubmitInFlight)

		close(release)
		require.NoError(t, <-done)
		assert.Equal(t, StatusSuccess, m.Status())
	})
}
