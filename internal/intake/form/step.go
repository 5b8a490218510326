package form

import "intakedesk/internal/intake/validation"

// Step is one of the four ordered screens of the intake form.
type Step int

const (
	StepContact Step = iota
	StepServices
	StepDetails
	StepReferral
)

// FirstStep and LastStep bound the step pointer.
const (
	FirstStep = StepContact
	LastStep  = StepReferral
)

// StepCount is the number of form steps.
const StepCount = int(LastStep) + 1

var steps = map[Step]struct {
	name      string
	title     string
	validator validation.StepValidator
}{
	StepContact:  {"contact", "Contact Information", validation.ValidateContact},
	StepServices: {"services", "Services", validation.ValidateServices},
	StepDetails:  {"details", "Service-Specific Details (Optional)", validation.ValidateDetails},
	StepReferral: {"referral", "Referral & Communication", validation.ValidateReferral},
}

func (s Step) String() string {
	if d, ok := steps[s]; ok {
		return d.name
	}
	return "unknown"
}

// Title is the section heading shown for the step.
func (s Step) Title() string {
	return steps[s].title
}

// Number is the 1-based position shown as "Step N of 4".
func (s Step) Number() int {
	return int(s) + 1
}

// Validator returns the validator gating the step.
func (s Step) Validator() validation.StepValidator {
	if d, ok := steps[s]; ok {
		return d.validator
	}
	return validation.ValidateDetails
}

func clamp(s Step) Step {
	if s < FirstStep {
		return FirstStep
	}
	if s > LastStep {
		return LastStep
	}
	return s
}

// Status is the submission lifecycle of a form session.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
