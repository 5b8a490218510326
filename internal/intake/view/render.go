package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"slices"
	"strings"

	"intakedesk/internal/intake/form"
	"intakedesk/internal/intake/models"
	"intakedesk/internal/intake/validation"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("view").Funcs(template.FuncMap{
		"percent": func(f float64) int { return int(f * 100) },
	}).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse view templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// FormPage is the data for one step of the server-rendered intake form.
type FormPage struct {
	Step       form.Step
	StepCount  int
	Progress   float64
	Active     Section
	Carried    []Hidden
	Banner     string
	Submitting bool
	First      bool
	Last       bool
}

// NewFormPage builds the page for the machine's active step. Values of the
// other steps are carried as hidden inputs.
func NewFormPage(m *form.Machine) FormPage {
	step := m.Step()
	sections := Sections(m.Draft(), m.VisibleErrors())
	page := FormPage{
		Step:       step,
		StepCount:  form.StepCount,
		Progress:   m.Progress(),
		Active:     sections[step],
		Submitting: m.Status() == form.StatusSubmitting,
		First:      step == form.FirstStep,
		Last:       step == form.LastStep,
	}
	for i, s := range sections {
		if form.Step(i) != step {
			page.Carried = append(page.Carried, s.HiddenValues()...)
		}
	}
	if m.Status() == form.StatusError {
		page.Banner = banner(m.LastError())
	}
	return page
}

func banner(err error) string {
	var verr *validation.Error
	if errors.As(err, &verr) && len(verr.Issues) > 0 {
		msgs := make([]string, 0, len(verr.Issues))
		for _, is := range verr.Issues {
			msgs = append(msgs, is.Message)
		}
		return "Submission failed: " + strings.Join(msgs, "; ")
	}
	return "Submission failed. Please try again."
}

// Form renders one form step.
func (r *Renderer) Form(w io.Writer, p FormPage) error {
	return r.tmpl.ExecuteTemplate(w, "form", p)
}

// Success renders the confirmation shown after a submit.
func (r *Renderer) Success(w io.Writer) error {
	return r.tmpl.ExecuteTemplate(w, "success", nil)
}

type submissionData struct {
	View     models.SubmissionView
	Sections []Section
}

// Submission renders a stored submission read-only, each section tagged with
// data-pdf-section.
func (r *Renderer) Submission(w io.Writer, v models.SubmissionView) error {
	return r.tmpl.ExecuteTemplate(w, "submission", submissionData{View: v, Sections: ReadOnlySections(v)})
}

type exportPage struct {
	Title    string
	Sections []Section
}

// ExportPages renders the two standalone documents rasterized for a PDF
// export: contact and services first, details and referral second.
func (r *Renderer) ExportPages(v models.SubmissionView) ([][]byte, error) {
	var first, second []Section
	for _, s := range ReadOnlySections(v) {
		if slices.Contains(FirstPageSections, s.Key) {
			first = append(first, s)
		} else {
			second = append(second, s)
		}
	}

	pages := make([][]byte, 0, 2)
	for _, sections := range [][]Section{first, second} {
		var buf bytes.Buffer
		if err := r.tmpl.ExecuteTemplate(&buf, "export-page", exportPage{Title: v.FullName, Sections: sections}); err != nil {
			return nil, fmt.Errorf("render export page: %w", err)
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}
