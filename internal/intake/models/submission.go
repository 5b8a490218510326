package models

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Services is the fixed set of service flags. At least one must be true for a
// submission to be accepted.
type Services struct {
	AIWorkflowAutomation           bool `json:"aiWorkflowAutomation"`
	WebsiteDesignDevelopment       bool `json:"websiteDesignDevelopment"`
	SoftwareDevelopment            bool `json:"softwareDevelopment"`
	DigitalMarketingGrowth         bool `json:"digitalMarketingGrowth"`
	BookkeepingAccounting          bool `json:"bookkeepingAccounting"`
	HRPayrollManagement            bool `json:"hrPayrollManagement"`
	BusinessMentorshipConsultation bool `json:"businessMentorshipConsultation"`
}

func (s *Services) field(key ServiceKey) *bool {
	switch key {
	case ServiceAIWorkflowAutomation:
		return &s.AIWorkflowAutomation
	case ServiceWebsiteDesignDevelopment:
		return &s.WebsiteDesignDevelopment
	case ServiceSoftwareDevelopment:
		return &s.SoftwareDevelopment
	case ServiceDigitalMarketingGrowth:
		return &s.DigitalMarketingGrowth
	case ServiceBookkeepingAccounting:
		return &s.BookkeepingAccounting
	case ServiceHRPayrollManagement:
		return &s.HRPayrollManagement
	case ServiceBusinessMentorshipConsultation:
		return &s.BusinessMentorshipConsultation
	default:
		return nil
	}
}

// Get returns the flag for key; unknown keys read as false.
func (s Services) Get(key ServiceKey) bool {
	if f := s.field(key); f != nil {
		return *f
	}
	return false
}

// Set assigns the flag for key. It reports false for an unknown key.
func (s *Services) Set(key ServiceKey, on bool) bool {
	f := s.field(key)
	if f == nil {
		return false
	}
	*f = on
	return true
}

// Toggle flips the flag for key. It reports false for an unknown key.
func (s *Services) Toggle(key ServiceKey) bool {
	f := s.field(key)
	if f == nil {
		return false
	}
	*f = !*f
	return true
}

// Any reports whether at least one service is selected.
func (s Services) Any() bool {
	return len(s.Selected()) > 0
}

// Selected returns the chosen service keys in display order.
func (s Services) Selected() []ServiceKey {
	var out []ServiceKey
	for _, k := range ServiceKeys {
		if s.Get(k) {
			out = append(out, k)
		}
	}
	return out
}

// Submission is the transport payload sent to POST /api/intake. The form draft
// has the same shape. Optional fields use "" for unanswered.
type Submission struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	CompanyName  string `json:"companyName"`
	RolePosition string `json:"rolePosition"`

	Services        Services `json:"services"`
	SelectedPackage string   `json:"selectedPackage"`
	NeedsAndGoals   string   `json:"needsAndGoals"`

	OfficeDuration string `json:"officeDuration"`
	TeamSize       string `json:"teamSize"`

	EventType         string `json:"eventType"`
	ExpectedAttendees string `json:"expectedAttendees"`
	PreferredDate     string `json:"preferredDate"`

	CurrentlyUsingTools string `json:"currentlyUsingTools"`
	MainChallenge       string `json:"mainChallenge"`

	ReferralSource      []string `json:"referralSource"`
	OtherReferralSource string   `json:"otherReferralSource"`

	PreferredContact string `json:"preferredContact"`
	BestTimeToReach  string `json:"bestTimeToReach"`
	BestTimeFrom     string `json:"bestTimeFrom,omitempty"`
	BestTimeTo       string `json:"bestTimeTo,omitempty"`
}

// NewDraft returns an empty submission with a non-nil referral set.
func NewDraft() Submission {
	return Submission{ReferralSource: []string{}}
}

// Clone returns a deep copy.
func (s Submission) Clone() Submission {
	s.ReferralSource = slices.Clone(s.ReferralSource)
	if s.ReferralSource == nil {
		s.ReferralSource = []string{}
	}
	return s
}

// HasReferral reports whether tag is in the referral set. Surrounding
// whitespace on stored tags is ignored.
func (s Submission) HasReferral(tag string) bool {
	return slices.ContainsFunc(s.ReferralSource, func(t string) bool {
		return strings.TrimSpace(t) == tag
	})
}

// Record is one persisted intake submission. ID and CreatedAt are assigned by
// the store on insert. Optional text is nil, never "", when unanswered.
type Record struct {
	ID        uuid.UUID
	CreatedAt time.Time

	FullName     string
	Email        string
	PhoneNumber  string
	CompanyName  *string
	RolePosition *string

	Services        Services
	SelectedPackage *string
	NeedsAndGoals   *string

	OfficeDuration *string
	TeamSize       *string

	EventType         *string
	ExpectedAttendees *string
	PreferredDate     *string

	CurrentlyUsingTools *string
	MainChallenge       *string

	ReferralSource      []string
	OtherReferralSource *string

	// PreferredContact is the raw stored JSON. Historical rows hold a list, a
	// JSON-array string, a brace list string or a bare string.
	PreferredContact []byte
	BestTimeToReach  string
	BestTimeFrom     *string
	BestTimeTo       *string
}

// SubmissionView is the read model returned to admins. PreferredContact is
// always a list; absent optional fields are omitted.
type SubmissionView struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`

	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	CompanyName  string `json:"companyName,omitempty"`
	RolePosition string `json:"rolePosition,omitempty"`

	Services        Services `json:"services"`
	SelectedPackage string   `json:"selectedPackage,omitempty"`
	NeedsAndGoals   string   `json:"needsAndGoals,omitempty"`

	OfficeDuration string `json:"officeDuration,omitempty"`
	TeamSize       string `json:"teamSize,omitempty"`

	EventType         string `json:"eventType,omitempty"`
	ExpectedAttendees string `json:"expectedAttendees,omitempty"`
	PreferredDate     string `json:"preferredDate,omitempty"`

	CurrentlyUsingTools string `json:"currentlyUsingTools,omitempty"`
	MainChallenge       string `json:"mainChallenge,omitempty"`

	ReferralSource      []string `json:"referralSource"`
	OtherReferralSource string   `json:"otherReferralSource,omitempty"`

	PreferredContact []string `json:"preferredContact"`
	BestTimeToReach  string   `json:"bestTimeToReach"`
	BestTimeFrom     string   `json:"bestTimeFrom,omitempty"`
	BestTimeTo       string   `json:"bestTimeTo,omitempty"`
}

// ListResponse is the body of GET /api/admin/submissions.
type ListResponse struct {
	Submissions []SubmissionView `json:"submissions"`
}
