package view

import (
	"strings"

	"intakedesk/internal/intake/models"
	"intakedesk/internal/intake/validation"
)

// Section keys in form order. The first two make up page one of an export.
const (
	SectionContact  = "contact"
	SectionServices = "services"
	SectionDetails  = "specific-details"
	SectionReferral = "referral"
)

// FirstPageSections are rendered on the first export page.
var FirstPageSections = []string{SectionContact, SectionServices}

type sectionInput struct {
	sub      models.Submission
	contacts []string
	errs     validation.ErrorMap
	readOnly bool
}

// Sections builds the four form sections for an editable draft. errs holds the
// messages to display; pass nil to hide them.
func Sections(sub models.Submission, errs validation.ErrorMap) []Section {
	return buildSections(sectionInput{sub: sub, contacts: []string{sub.PreferredContact}, errs: errs})
}

// ReadOnlySections builds the sections for a stored submission.
func ReadOnlySections(v models.SubmissionView) []Section {
	return buildSections(sectionInput{sub: submissionFromView(v), contacts: v.PreferredContact, readOnly: true})
}

func buildSections(in sectionInput) []Section {
	return []Section{
		contactSection(in),
		servicesSection(in),
		detailsSection(in),
		referralSection(in),
	}
}

func (in sectionInput) field(kind Kind, name, label, value string) Field {
	return Field{
		Kind:     kind,
		Name:     name,
		Label:    label,
		Value:    value,
		Error:    in.errs[name],
		ReadOnly: in.readOnly,
	}
}

func required(f Field) Field {
	f.Required = true
	return f
}

func optional(f Field) Field {
	f.Optional = true
	return f
}

func placeholder(f Field, p string) Field {
	f.Placeholder = p
	return f
}

func contactSection(in sectionInput) Section {
	s := in.sub
	return Section{Key: SectionContact, Title: "Contact Information", Fields: []Field{
		placeholder(required(in.field(KindText, validation.FieldFullName, "Full Name", s.FullName)), "e.g. Lauris Bawar"),
		placeholder(required(in.field(KindEmail, validation.FieldEmail, "Email", s.Email)), "e.g. example@yahoo.com"),
		placeholder(required(in.field(KindText, validation.FieldPhoneNumber, "Phone Number", s.PhoneNumber)), "e.g. 0912 345 6789"),
		placeholder(optional(in.field(KindText, validation.FieldCompanyName, "Company / Organization", s.CompanyName)), "e.g. Studio Amihan"),
		placeholder(optional(in.field(KindText, validation.FieldRolePosition, "Role / Position", s.RolePosition)), "e.g. Founder / Operations Manager"),
	}}
}

func servicesSection(in sectionInput) Section {
	s := in.sub
	services := in.field(KindCheckboxes, validation.FieldServices, "Services Needed", "")
	services.Required = true
	for _, k := range models.ServiceKeys {
		services.Choices = append(services.Choices, Choice{Value: string(k), Label: k.Label(), Checked: s.Services.Get(k)})
	}

	pkg := optional(in.field(KindRadio, validation.FieldSelectedPackage, "Package", ""))
	pkg.Choices = choices(models.Packages, s.SelectedPackage)

	return Section{Key: SectionServices, Title: "Services", Fields: []Field{
		services,
		pkg,
		optional(in.field(KindTextArea, validation.FieldNeedsAndGoals, "Needs & Goals", s.NeedsAndGoals)),
	}}
}

func detailsSection(in sectionInput) Section {
	s := in.sub
	duration := optional(in.field(KindSelect, validation.FieldOfficeDuration, "Preferred Duration", ""))
	duration.Choices = choices(models.OfficeDurations, s.OfficeDuration)

	team := optional(in.field(KindSelect, validation.FieldTeamSize, "Team Size", ""))
	for _, o := range models.TeamSizeOptions {
		team.Choices = append(team.Choices, Choice{Value: o.Value, Label: o.Label, Checked: o.Value == s.TeamSize})
	}

	tools := optional(in.field(KindRadio, validation.FieldCurrentlyUsingTools, "Do you currently use any tools?", ""))
	tools.Choices = []Choice{
		{Value: models.ToolsYes, Label: "Yes", Checked: s.CurrentlyUsingTools == models.ToolsYes},
		{Value: models.ToolsNo, Label: "No", Checked: s.CurrentlyUsingTools == models.ToolsNo},
	}

	return Section{Key: SectionDetails, Title: "Service-Specific Details (Optional)", Fields: []Field{
		duration,
		team,
		placeholder(optional(in.field(KindText, validation.FieldEventType, "Type of Event", s.EventType)), "e.g. Workshop, Seminar"),
		placeholder(optional(in.field(KindText, validation.FieldExpectedAttendees, "Expected Attendees", s.ExpectedAttendees)), "e.g. 50"),
		optional(in.field(KindDate, validation.FieldPreferredDate, "Preferred Date", s.PreferredDate)),
		tools,
		optional(in.field(KindTextArea, validation.FieldMainChallenge, "Main Challenge", s.MainChallenge)),
	}}
}

func referralSection(in sectionInput) Section {
	s := in.sub
	referral := required(in.field(KindCheckboxes, validation.FieldReferralSource, "How did you hear about us?", ""))
	referral.Choices = choices(models.ReferralTags, s.ReferralSource...)

	fields := []Field{referral}
	if s.HasReferral(models.ReferralOther) {
		fields = append(fields, placeholder(required(in.field(KindText, validation.FieldOtherReferralSource, "Please specify", s.OtherReferralSource)), "e.g. Radio ad"))
	}

	contact := required(in.field(KindRadio, validation.FieldPreferredContact, "Preferred Contact Method", ""))
	contact.Choices = choices(models.ContactMethods, in.contacts...)

	fields = append(fields,
		contact,
		placeholder(required(in.field(KindText, validation.FieldBestTimeToReach, "Best Time to Reach You", s.BestTimeToReach)), "e.g. Weekdays after 2pm"),
	)
	if s.BestTimeFrom != "" || s.BestTimeTo != "" {
		fields = append(fields,
			optional(in.field(KindTime, validation.FieldBestTimeFrom, "From", s.BestTimeFrom)),
			optional(in.field(KindTime, validation.FieldBestTimeTo, "To", s.BestTimeTo)),
		)
	}
	return Section{Key: SectionReferral, Title: "Referral & Communication", Fields: fields}
}

func submissionFromView(v models.SubmissionView) models.Submission {
	return models.Submission{
		FullName:            v.FullName,
		Email:               v.Email,
		PhoneNumber:         v.PhoneNumber,
		CompanyName:         v.CompanyName,
		RolePosition:        v.RolePosition,
		Services:            v.Services,
		SelectedPackage:     v.SelectedPackage,
		NeedsAndGoals:       v.NeedsAndGoals,
		OfficeDuration:      v.OfficeDuration,
		TeamSize:            v.TeamSize,
		EventType:           v.EventType,
		ExpectedAttendees:   v.ExpectedAttendees,
		PreferredDate:       v.PreferredDate,
		CurrentlyUsingTools: v.CurrentlyUsingTools,
		MainChallenge:       v.MainChallenge,
		ReferralSource:      v.ReferralSource,
		OtherReferralSource: v.OtherReferralSource,
		PreferredContact:    strings.Join(v.PreferredContact, ", "),
		BestTimeToReach:     v.BestTimeToReach,
		BestTimeFrom:        v.BestTimeFrom,
		BestTimeTo:          v.BestTimeTo,
	}
}
