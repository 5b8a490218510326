package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"intakedesk/internal/intake/models"
	pstrings "intakedesk/pkg/platform/strings"
)

// IssueCode classifies one schema violation.
type IssueCode string

const (
	IssueInvalidJSON   IssueCode = "invalid_json"
	IssueInvalidType   IssueCode = "invalid_type"
	IssueTooSmall      IssueCode = "too_small"
	IssueInvalidString IssueCode = "invalid_string"
	IssueInvalidEnum   IssueCode = "invalid_enum_value"
	IssueCustom        IssueCode = "custom"
)

// Issue is one field-level violation. Path elements are field names or array indexes.
type Issue struct {
	Code    IssueCode `json:"code"`
	Path    []any     `json:"path"`
	Message string    `json:"message"`
}

func issue(code IssueCode, msg string, path ...any) Issue {
	if path == nil {
		path = []any{}
	}
	return Issue{Code: code, Path: path, Message: msg}
}

// Error carries the full issue list from the schema check to the HTTP boundary.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	first := e.Issues[0]
	return fmt.Sprintf("validation failed: %d issue(s), first: %s %v", len(e.Issues), first.Message, first.Path)
}

// ParseSubmission decodes and validates a request body. Structural problems
// (malformed JSON, wrong types, missing required keys) are reported on their own;
// only a structurally sound payload is checked against the field rules.
func ParseSubmission(body []byte) (models.Submission, error) {
	sub, issues := Decode(body)
	if len(issues) > 0 {
		return models.Submission{}, &Error{Issues: issues}
	}
	if issues := Validate(sub); len(issues) > 0 {
		return models.Submission{}, &Error{Issues: issues}
	}
	return sub, nil
}

// Decode performs the structural check of a payload. Unknown keys are ignored and
// null is accepted wherever a field is optional.
func Decode(body []byte) (models.Submission, []Issue) {
	var sub models.Submission
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return sub, []Issue{issue(IssueInvalidJSON, "Request body is required")}
	}

	if !json.Valid(body) {
		return sub, []Issue{issue(IssueInvalidJSON, "Malformed JSON body")}
	}
	if kind := jsonKind(body); kind != "object" {
		return sub, []Issue{issue(IssueInvalidType, "Expected object, received "+kind)}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return sub, []Issue{issue(IssueInvalidJSON, "Malformed JSON body")}
	}

	d := decoder{fields: fields}
	sub.FullName = d.requiredString(FieldFullName)
	sub.Email = d.requiredString(FieldEmail)
	sub.PhoneNumber = d.requiredString(FieldPhoneNumber)
	sub.CompanyName = d.optionalString(FieldCompanyName)
	sub.RolePosition = d.optionalString(FieldRolePosition)
	sub.Services = d.services()
	sub.SelectedPackage = d.optionalString(FieldSelectedPackage)
	sub.NeedsAndGoals = d.optionalString(FieldNeedsAndGoals)
	sub.OfficeDuration = d.optionalString(FieldOfficeDuration)
	sub.TeamSize = d.optionalString(FieldTeamSize)
	sub.EventType = d.optionalString(FieldEventType)
	sub.ExpectedAttendees = d.optionalString(FieldExpectedAttendees)
	sub.PreferredDate = d.optionalString(FieldPreferredDate)
	sub.CurrentlyUsingTools = d.optionalString(FieldCurrentlyUsingTools)
	sub.MainChallenge = d.optionalString(FieldMainChallenge)
	// Tags are canonicalized here so the rules below see the set that is stored.
	sub.ReferralSource = pstrings.DedupeAndTrim(d.stringList(FieldReferralSource))
	sub.OtherReferralSource = d.optionalString(FieldOtherReferralSource)
	sub.PreferredContact = d.requiredString(FieldPreferredContact)
	sub.BestTimeToReach = d.requiredString(FieldBestTimeToReach)
	sub.BestTimeFrom = d.optionalString(FieldBestTimeFrom)
	sub.BestTimeTo = d.optionalString(FieldBestTimeTo)

	return sub, d.issues
}

// Validate applies the field rules to a structurally valid submission.
func Validate(s models.Submission) []Issue {
	var issues []Issue

	if blank(s.FullName) {
		issues = append(issues, issue(IssueTooSmall, MsgFullNameRequired, FieldFullName))
	}
	if !ValidEmail(s.Email) {
		issues = append(issues, issue(IssueInvalidString, MsgEmailInvalid, FieldEmail))
	}
	switch {
	case blank(s.PhoneNumber):
		issues = append(issues, issue(IssueTooSmall, MsgPhoneRequired, FieldPhoneNumber))
	case !ValidPhone(s.PhoneNumber):
		issues = append(issues, issue(IssueCustom, MsgPhoneInvalid, FieldPhoneNumber))
	}

	if pkg := strings.TrimSpace(s.SelectedPackage); pkg != "" && !models.IsPackage(pkg) {
		issues = append(issues, issue(IssueInvalidEnum, MsgPackageInvalid, FieldSelectedPackage))
	}
	if !ValidTeamSize(strings.TrimSpace(s.TeamSize)) {
		issues = append(issues, issue(IssueCustom, MsgTeamSizeNumeric, FieldTeamSize))
	}
	if !ValidAttendees(strings.TrimSpace(s.ExpectedAttendees)) {
		issues = append(issues, issue(IssueCustom, MsgAttendeesNumeric, FieldExpectedAttendees))
	}
	switch s.CurrentlyUsingTools {
	case "", models.ToolsYes, models.ToolsNo:
	default:
		issues = append(issues, issue(IssueInvalidEnum, MsgToolsInvalid, FieldCurrentlyUsingTools))
	}

	if len(s.ReferralSource) == 0 {
		issues = append(issues, issue(IssueTooSmall, MsgReferralRequired, FieldReferralSource))
	}
	for i, tag := range s.ReferralSource {
		if !models.IsReferralTag(strings.TrimSpace(tag)) {
			issues = append(issues, issue(IssueInvalidEnum, MsgReferralUnknown, FieldReferralSource, i))
		}
	}

	switch contact := strings.TrimSpace(s.PreferredContact); {
	case contact == "":
		issues = append(issues, issue(IssueTooSmall, MsgPreferredContactRequired, FieldPreferredContact))
	case !models.IsContactMethod(contact):
		issues = append(issues, issue(IssueInvalidEnum, MsgPreferredContactInvalid, FieldPreferredContact))
	}
	if blank(s.BestTimeToReach) {
		issues = append(issues, issue(IssueTooSmall, MsgBestTimeRequired, FieldBestTimeToReach))
	}
	if !ValidClock(strings.TrimSpace(s.BestTimeFrom)) {
		issues = append(issues, issue(IssueInvalidString, MsgBestTimeRangeInvalid, FieldBestTimeFrom))
	}
	if !ValidClock(strings.TrimSpace(s.BestTimeTo)) {
		issues = append(issues, issue(IssueInvalidString, MsgBestTimeRangeInvalid, FieldBestTimeTo))
	}

	if !s.Services.Any() {
		issues = append(issues, issue(IssueCustom, MsgServicesRequired, FieldServices))
	}
	if s.HasReferral(models.ReferralOther) && blank(s.OtherReferralSource) {
		issues = append(issues, issue(IssueCustom, MsgOtherReferralRequired, FieldOtherReferralSource))
	}
	return issues
}

type decoder struct {
	fields map[string]json.RawMessage
	issues []Issue
}

func (d *decoder) typeIssue(expected string, raw json.RawMessage, path ...any) {
	kind := "undefined"
	if raw != nil {
		kind = jsonKind(raw)
	}
	msg := "Expected " + expected + ", received " + kind
	if kind == "undefined" {
		msg = "Required"
	}
	d.issues = append(d.issues, issue(IssueInvalidType, msg, path...))
}

func (d *decoder) requiredString(name string) string {
	raw, ok := d.fields[name]
	if !ok || jsonKind(raw) != "string" {
		if !ok {
			raw = nil
		}
		d.typeIssue("string", raw, name)
		return ""
	}
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}

func (d *decoder) optionalString(name string) string {
	raw, ok := d.fields[name]
	if !ok || jsonKind(raw) == "null" {
		return ""
	}
	if jsonKind(raw) != "string" {
		d.typeIssue("string", raw, name)
		return ""
	}
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}

func (d *decoder) services() models.Services {
	var out models.Services
	raw, ok := d.fields[FieldServices]
	if !ok || jsonKind(raw) != "object" {
		if !ok {
			raw = nil
		}
		d.typeIssue("object", raw, FieldServices)
		return out
	}
	var flags map[string]json.RawMessage
	_ = json.Unmarshal(raw, &flags)
	for _, key := range models.ServiceKeys {
		v, ok := flags[string(key)]
		if !ok || jsonKind(v) != "boolean" {
			if !ok {
				v = nil
			}
			d.typeIssue("boolean", v, FieldServices, string(key))
			continue
		}
		var on bool
		_ = json.Unmarshal(v, &on)
		out.Set(key, on)
	}
	return out
}

func (d *decoder) stringList(name string) []string {
	raw, ok := d.fields[name]
	if !ok || jsonKind(raw) != "array" {
		if !ok {
			raw = nil
		}
		d.typeIssue("array", raw, name)
		return []string{}
	}
	var elems []json.RawMessage
	_ = json.Unmarshal(raw, &elems)
	out := make([]string, 0, len(elems))
	for i, e := range elems {
		if jsonKind(e) != "string" {
			d.typeIssue("string", e, name, i)
			continue
		}
		var s string
		_ = json.Unmarshal(e, &s)
		out = append(out, s)
	}
	return out
}

// jsonKind names the JSON type of a raw value by its first significant byte.
func jsonKind(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "undefined"
	}
	switch raw[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
