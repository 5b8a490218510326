// Package validation holds the intake rules shared by the per-step form
// validators and the server-side schema check.
package validation

import (
	"regexp"
	"strings"

	pstrings "intakedesk/pkg/platform/strings"
)

// Field names used as ErrorMap keys and issue paths.
const (
	FieldFullName            = "fullName"
	FieldEmail               = "email"
	FieldPhoneNumber         = "phoneNumber"
	FieldCompanyName         = "companyName"
	FieldRolePosition        = "rolePosition"
	FieldServices            = "services"
	FieldSelectedPackage     = "selectedPackage"
	FieldNeedsAndGoals       = "needsAndGoals"
	FieldOfficeDuration      = "officeDuration"
	FieldTeamSize            = "teamSize"
	FieldEventType           = "eventType"
	FieldExpectedAttendees   = "expectedAttendees"
	FieldPreferredDate       = "preferredDate"
	FieldCurrentlyUsingTools = "currentlyUsingTools"
	FieldMainChallenge       = "mainChallenge"
	FieldReferralSource      = "referralSource"
	FieldOtherReferralSource = "otherReferralSource"
	FieldPreferredContact    = "preferredContact"
	FieldBestTimeToReach     = "bestTimeToReach"
	FieldBestTimeFrom        = "bestTimeFrom"
	FieldBestTimeTo          = "bestTimeTo"
)

// User-facing messages.
const (
	MsgFullNameRequired         = "Full Name is required"
	MsgEmailInvalid             = "Enter a valid email address"
	MsgPhoneRequired            = "Phone Number is required"
	MsgPhoneInvalid             = "Enter a valid phone number"
	MsgServicesRequired         = "Please select at least one service."
	MsgPackageInvalid           = "Select one of the listed packages"
	MsgTeamSizeNumeric          = "Team Size must be numbers only"
	MsgAttendeesNumeric         = "Expected Attendees must be numbers only"
	MsgToolsInvalid             = "Answer yes or no"
	MsgReferralRequired         = "Please select at least one referral source."
	MsgReferralUnknown          = "Unknown referral source"
	MsgOtherReferralRequired    = "Please specify the referral source."
	MsgPreferredContactRequired = "Preferred Contact Method is required"
	MsgPreferredContactInvalid  = "Choose Email, Phone or Messenger"
	MsgBestTimeRequired         = "Best Time to Reach You is required"
	MsgBestTimeRangeInvalid     = "Use a 24-hour HH:MM time"
)

// MinPhoneDigits is the fewest digits a phone number may contain.
const MinPhoneDigits = 10

var (
	emailShape      = regexp.MustCompile(`^[^\s@]+@[^\s@]+$`)
	teamSizePattern = regexp.MustCompile(`^(\d+|\d+-\d+|\d+\+)$`)
	attendeePattern = regexp.MustCompile(`^\d+$`)
	clockPattern    = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// ValidEmail reports whether s (after trimming) has the shape local@domain with
// no whitespace, a domain of at least two non-empty dot-separated labels, and a
// final label of at least two characters.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if !emailShape.MatchString(s) {
		return false
	}
	domain := s[strings.LastIndex(s, "@")+1:]
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return len(labels[len(labels)-1]) >= 2
}

// ValidPhone reports whether s contains at least MinPhoneDigits digits.
func ValidPhone(s string) bool {
	return pstrings.CountDigits(s) >= MinPhoneDigits
}

// ValidTeamSize accepts "", "5", "2-5" and "20+".
func ValidTeamSize(s string) bool {
	return s == "" || teamSizePattern.MatchString(s)
}

// ValidAttendees accepts "" or a plain number.
func ValidAttendees(s string) bool {
	return s == "" || attendeePattern.MatchString(s)
}

// ValidClock accepts "" or HH:MM on a 24-hour clock.
func ValidClock(s string) bool {
	return s == "" || clockPattern.MatchString(s)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
