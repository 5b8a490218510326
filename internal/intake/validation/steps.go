package validation

import (
	"intakedesk/internal/intake/models"
)

// ErrorMap maps a field name to a human-readable message. Empty means valid.
type ErrorMap map[string]string

// Valid reports whether the map holds no errors.
func (m ErrorMap) Valid() bool {
	return len(m) == 0
}

// StepValidator computes the errors for one form step from the whole draft.
type StepValidator func(draft models.Submission) ErrorMap

// ValidateContact checks full name, email and phone.
func ValidateContact(d models.Submission) ErrorMap {
	errs := ErrorMap{}
	if blank(d.FullName) {
		errs[FieldFullName] = MsgFullNameRequired
	}
	if !ValidEmail(d.Email) {
		errs[FieldEmail] = MsgEmailInvalid
	}
	switch {
	case blank(d.PhoneNumber):
		errs[FieldPhoneNumber] = MsgPhoneRequired
	case !ValidPhone(d.PhoneNumber):
		errs[FieldPhoneNumber] = MsgPhoneInvalid
	}
	return errs
}

// ValidateServices requires at least one selected service.
func ValidateServices(d models.Submission) ErrorMap {
	errs := ErrorMap{}
	if !d.Services.Any() {
		errs[FieldServices] = MsgServicesRequired
	}
	return errs
}

// ValidateDetails always passes: every detail field is an optional elaboration.
// Numeric checks on team size and attendees happen on the server.
func ValidateDetails(models.Submission) ErrorMap {
	return ErrorMap{}
}

// ValidateReferral checks the referral set, its "Other" elaboration, the
// preferred contact method and the best time to reach.
func ValidateReferral(d models.Submission) ErrorMap {
	errs := ErrorMap{}
	if len(d.ReferralSource) == 0 {
		errs[FieldReferralSource] = MsgReferralRequired
	}
	if d.HasReferral(models.ReferralOther) && blank(d.OtherReferralSource) {
		errs[FieldOtherReferralSource] = MsgOtherReferralRequired
	}
	if blank(d.PreferredContact) {
		errs[FieldPreferredContact] = MsgPreferredContactRequired
	}
	if blank(d.BestTimeToReach) {
		errs[FieldBestTimeToReach] = MsgBestTimeRequired
	}
	return errs
}
