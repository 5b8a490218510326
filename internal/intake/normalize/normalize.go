// Package normalize maps between the form/transport shape of an intake
// submission and its stored shape.
//
// Write side: BuildSubmission shapes a draft into the request payload and
// Sanitize turns an accepted payload into a storage record, trimming required
// text and storing NULL rather than "" for unanswered optional fields.
// Read side: ToView maps a stored record back to camelCase names and decodes the
// preferred-contact column, whatever historical shape it was written in.
package normalize

import (
	"slices"
	"strings"

	"intakedesk/internal/intake/models"
	pstrings "intakedesk/pkg/platform/strings"
)

// BuildSubmission assembles the request payload from a form draft. Referral
// tags are deduplicated and the "Other" elaboration is dropped unless "Other"
// is tagged.
func BuildSubmission(draft models.Submission) models.Submission {
	out := draft.Clone()
	out.ReferralSource = pstrings.DedupeAndTrim(out.ReferralSource)
	if out.ReferralSource == nil {
		out.ReferralSource = []string{}
	}
	if !slices.Contains(out.ReferralSource, models.ReferralOther) {
		out.OtherReferralSource = ""
	}
	return out
}

// Sanitize converts an accepted submission into a record ready for insert.
// ID and CreatedAt are left zero for the store to assign.
func Sanitize(s models.Submission) models.Record {
	referrals := pstrings.DedupeAndTrim(s.ReferralSource)
	if referrals == nil {
		referrals = []string{}
	}
	return models.Record{
		FullName:     strings.TrimSpace(s.FullName),
		Email:        strings.TrimSpace(s.Email),
		PhoneNumber:  strings.TrimSpace(s.PhoneNumber),
		CompanyName:  optional(s.CompanyName),
		RolePosition: optional(s.RolePosition),

		Services:        s.Services,
		SelectedPackage: optional(s.SelectedPackage),
		NeedsAndGoals:   optional(s.NeedsAndGoals),

		OfficeDuration: optional(s.OfficeDuration),
		TeamSize:       optional(s.TeamSize),

		EventType:         optional(s.EventType),
		ExpectedAttendees: optional(s.ExpectedAttendees),
		PreferredDate:     optional(s.PreferredDate),

		CurrentlyUsingTools: optional(s.CurrentlyUsingTools),
		MainChallenge:       optional(s.MainChallenge),

		ReferralSource:      referrals,
		OtherReferralSource: optional(s.OtherReferralSource),

		PreferredContact: EncodePreferredContact(s.PreferredContact),
		BestTimeToReach:  strings.TrimSpace(s.BestTimeToReach),
		BestTimeFrom:     optional(s.BestTimeFrom),
		BestTimeTo:       optional(s.BestTimeTo),
	}
}

// ToView maps a stored record to the admin read model.
func ToView(r models.Record) models.SubmissionView {
	referrals := slices.Clone(r.ReferralSource)
	if referrals == nil {
		referrals = []string{}
	}
	return models.SubmissionView{
		ID:          r.ID.String(),
		SubmittedAt: r.CreatedAt,

		FullName:     r.FullName,
		Email:        r.Email,
		PhoneNumber:  r.PhoneNumber,
		CompanyName:  deref(r.CompanyName),
		RolePosition: deref(r.RolePosition),

		Services:        r.Services,
		SelectedPackage: deref(r.SelectedPackage),
		NeedsAndGoals:   deref(r.NeedsAndGoals),

		OfficeDuration: deref(r.OfficeDuration),
		TeamSize:       deref(r.TeamSize),

		EventType:         deref(r.EventType),
		ExpectedAttendees: deref(r.ExpectedAttendees),
		PreferredDate:     deref(r.PreferredDate),

		CurrentlyUsingTools: deref(r.CurrentlyUsingTools),
		MainChallenge:       deref(r.MainChallenge),

		ReferralSource:      referrals,
		OtherReferralSource: deref(r.OtherReferralSource),

		PreferredContact: PreferredContact(r.PreferredContact),
		BestTimeToReach:  r.BestTimeToReach,
		BestTimeFrom:     deref(r.BestTimeFrom),
		BestTimeTo:       deref(r.BestTimeTo),
	}
}

// ToViews maps a slice of records, preserving order.
func ToViews(records []models.Record) []models.SubmissionView {
	out := make([]models.SubmissionView, 0, len(records))
	for _, r := range records {
		out = append(out, ToView(r))
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
