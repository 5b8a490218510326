package models

// ServiceKey names one service flag in the Services selection.
type ServiceKey string

const (
	ServiceAIWorkflowAutomation           ServiceKey = "aiWorkflowAutomation"
	ServiceWebsiteDesignDevelopment       ServiceKey = "websiteDesignDevelopment"
	ServiceSoftwareDevelopment            ServiceKey = "softwareDevelopment"
	ServiceDigitalMarketingGrowth         ServiceKey = "digitalMarketingGrowth"
	ServiceBookkeepingAccounting          ServiceKey = "bookkeepingAccounting"
	ServiceHRPayrollManagement            ServiceKey = "hrPayrollManagement"
	ServiceBusinessMentorshipConsultation ServiceKey = "businessMentorshipConsultation"
)

// ServiceKeys lists every service in display order.
var ServiceKeys = []ServiceKey{
	ServiceAIWorkflowAutomation,
	ServiceWebsiteDesignDevelopment,
	ServiceSoftwareDevelopment,
	ServiceDigitalMarketingGrowth,
	ServiceBookkeepingAccounting,
	ServiceHRPayrollManagement,
	ServiceBusinessMentorshipConsultation,
}

var serviceLabels = map[ServiceKey]string{
	ServiceAIWorkflowAutomation:           "AI Workflow & Automation",
	ServiceWebsiteDesignDevelopment:       "Website Design & Development",
	ServiceSoftwareDevelopment:            "Software Development (web apps, internal systems, custom solutions)",
	ServiceDigitalMarketingGrowth:         "Digital Marketing & Growth Campaigns",
	ServiceBookkeepingAccounting:          "Bookkeeping & Accounting Services",
	ServiceHRPayrollManagement:            "HR & Payroll Management",
	ServiceBusinessMentorshipConsultation: "Business Mentorship & Strategic Consultation",
}

// Label is the human-readable name shown next to the checkbox.
func (k ServiceKey) Label() string {
	if l, ok := serviceLabels[k]; ok {
		return l
	}
	return string(k)
}

// IsValid reports whether k is one of the fixed service keys.
func (k ServiceKey) IsValid() bool {
	_, ok := serviceLabels[k]
	return ok
}

// Packages are the four fixed tiers a submitter may pick (or none).
var Packages = []string{
	"Virtual Office Package — ₱1,999 / month",
	"Co-working Space Standard — ₱4,999 / month",
	"Co-working Space Premium — ₱6,999 / month",
	"StartupLab Pro — ₱9,999 / month",
}

// OfficeDurations are the coworking duration choices.
var OfficeDurations = []string{"One-time", "1-3 months", "6+ months"}

// Option is a select/radio choice whose stored value differs from its label.
type Option struct {
	Value string
	Label string
}

// TeamSizeOptions are the coworking team size choices.
var TeamSizeOptions = []Option{
	{Value: "1", Label: "1 (Individual)"},
	{Value: "2-5", Label: "2-5 members"},
	{Value: "6-10", Label: "6-10 members"},
	{Value: "11-20", Label: "11-20 members"},
	{Value: "20+", Label: "20+ members"},
}

// ReferralOther is the tag that requires a free-text elaboration.
const ReferralOther = "Other"

// ReferralTags is the referral-source vocabulary.
var ReferralTags = []string{"Walk-in", "Website", "Friend/Referral", "Events/Seminar", "Social Media", ReferralOther}

// ContactMethods are the preferred-contact choices.
var ContactMethods = []string{"Email", "Phone", "Messenger"}

// Tool usage answers. The empty string means unanswered.
const (
	ToolsYes = "yes"
	ToolsNo  = "no"
)

// IsPackage reports whether s is one of the fixed package tiers.
func IsPackage(s string) bool { return contains(Packages, s) }

// IsReferralTag reports whether s is in the referral vocabulary.
func IsReferralTag(s string) bool { return contains(ReferralTags, s) }

// IsContactMethod reports whether s is a preferred-contact choice.
func IsContactMethod(s string) bool { return contains(ContactMethods, s) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
