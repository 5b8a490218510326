package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"intakedesk/internal/intake/models"
)

func validDraft() models.Submission {
	d := models.NewDraft()
	d.FullName = "Maria Santos"
	d.Email = "maria.s@business.ph"
	d.PhoneNumber = "0917 111 2222"
	d.Services.HRPayrollManagement = true
	d.ReferralSource = []string{"Friend/Referral"}
	d.PreferredContact = "Phone"
	d.BestTimeToReach = "Morning"
	return d
}

func TestValidateContact(t *testing.T) {
	assert.True(t, ValidateContact(validDraft()).Valid())

	d := validDraft()
	d.FullName = "   "
	d.Email = "a@b"
	d.PhoneNumber = "123-456-789"
	errs := ValidateContact(d)
	assert.Equal(t, ErrorMap{
		FieldFullName:    MsgFullNameRequired,
		FieldEmail:       MsgEmailInvalid,
		FieldPhoneNumber: MsgPhoneInvalid,
	}, errs)

	d.PhoneNumber = ""
	assert.Equal(t, MsgPhoneRequired, ValidateContact(d)[FieldPhoneNumber])
}

func TestValidateServices(t *testing.T) {
	d := validDraft()
	d.Services = models.Services{}
	assert.Equal(t, ErrorMap{FieldServices: MsgServicesRequired}, ValidateServices(d))

	for _, k := range models.ServiceKeys {
		d.Services = models.Services{}
		d.Services.Set(k, true)
		assert.True(t, ValidateServices(d).Valid(), k)
	}
}

func TestValidateDetailsAlwaysPasses(t *testing.T) {
	d := models.NewDraft()
	d.TeamSize = "lots"
	d.ExpectedAttendees = "a hundred"
	assert.True(t, ValidateDetails(d).Valid())
}

func TestValidateReferral(t *testing.T) {
	assert.True(t, ValidateReferral(validDraft()).Valid())

	t.Run("Other without elaboration fails", func(t *testing.T) {
		d := validDraft()
		d.ReferralSource = []string{"Other"}
		d.OtherReferralSource = " "
		assert.Equal(t, ErrorMap{FieldOtherReferralSource: MsgOtherReferralRequired}, ValidateReferral(d))
	})

	t.Run("Other with elaboration passes", func(t *testing.T) {
		d := validDraft()
		d.ReferralSource = []string{"Other"}
		d.OtherReferralSource = "Radio ad"
		assert.True(t, ValidateReferral(d).Valid())
	})

	t.Run("empty step reports every required field", func(t *testing.T) {
		errs := ValidateReferral(models.NewDraft())
		assert.Len(t, errs, 3)
		assert.Contains(t, errs, FieldReferralSource)
		assert.Contains(t, errs, FieldPreferredContact)
		assert.Contains(t, errs, FieldBestTimeToReach)
	})
}
