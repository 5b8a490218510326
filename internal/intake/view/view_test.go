package view

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakedesk/internal/intake/form"
	"intakedesk/internal/intake/models"
	"intakedesk/internal/intake/validation"
)

func renderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func sampleView() models.SubmissionView {
	return models.SubmissionView{
		ID:                  "6f1c1d2e-3b4a-4c5d-8e9f-001122334455",
		SubmittedAt:         time.Date(2024, 10, 24, 9, 15, 0, 0, time.UTC),
		FullName:            "Lauris Bawar",
		Email:               "lauris@example.com",
		PhoneNumber:         "0912 345 6789",
		Services:            models.Services{SoftwareDevelopment: true},
		TeamSize:            "2-5",
		ReferralSource:      []string{"Website", models.ReferralOther},
		OtherReferralSource: "Radio",
		PreferredContact:    []string{"Email", "Phone"},
		BestTimeToReach:     "Mornings",
	}
}

func TestFieldMarkers(t *testing.T) {
	assert.True(t, Field{Required: true}.ShowRequired())
	assert.False(t, Field{Required: true, Optional: true}.ShowRequired())
}

func TestHiddenValues(t *testing.T) {
	checkboxes := Field{Kind: KindCheckboxes, Name: "services", Choices: []Choice{
		{Value: "a", Checked: true}, {Value: "b"}, {Value: "c", Checked: true},
	}}
	assert.Equal(t, []Hidden{{"services", "a"}, {"services", "c"}}, checkboxes.HiddenValues())

	radio := Field{Kind: KindRadio, Name: "preferredContact", Choices: choices(models.ContactMethods, "Phone")}
	assert.Equal(t, []Hidden{{"preferredContact", "Phone"}}, radio.HiddenValues())

	assert.Nil(t, Field{Kind: KindText, Name: "companyName"}.HiddenValues())
}

func TestReadOnlySections(t *testing.T) {
	sections := ReadOnlySections(sampleView())
	require.Len(t, sections, 4)
	assert.Equal(t, []string{SectionContact, SectionServices, SectionDetails, SectionReferral},
		[]string{sections[0].Key, sections[1].Key, sections[2].Key, sections[3].Key})

	for _, s := range sections {
		for _, f := range s.Fields {
			assert.True(t, f.ReadOnly, "%s/%s", s.Key, f.Name)
		}
	}

	var contact Field
	for _, f := range sections[3].Fields {
		if f.Name == validation.FieldPreferredContact {
			contact = f
		}
	}
	assert.Equal(t, []Hidden{{"preferredContact", "Email"}}, contact.HiddenValues()[:1])
	checked := 0
	for _, c := range contact.Choices {
		if c.Checked {
			checked++
		}
	}
	assert.Equal(t, 2, checked, "every stored contact method is marked")
}

func TestSectionsShowErrors(t *testing.T) {
	errs := validation.ValidateContact(models.NewDraft())
	contact := Sections(models.NewDraft(), errs)[0]
	assert.Equal(t, validation.MsgFullNameRequired, contact.Fields[0].Error)

	hidden := Sections(models.NewDraft(), nil)[0]
	assert.Empty(t, hidden.Fields[0].Error)
}

func TestRenderForm(t *testing.T) {
	r := renderer(t)
	m := form.New(form.SubmitterFunc(func(context.Context, models.Submission) error { return nil }))
	require.NoError(t, m.UpdateField(validation.FieldFullName, "Lauris <script>"))
	require.NoError(t, m.UpdateField(validation.FieldEmail, "lauris@example.com"))
	require.NoError(t, m.UpdateField(validation.FieldPhoneNumber, "0912 345 6789"))
	require.NoError(t, m.Advance())
	require.ErrorIs(t, m.Advance(), form.ErrStepInvalid)

	var buf bytes.Buffer
	require.NoError(t, r.Form(&buf, NewFormPage(m)))
	out := buf.String()

	assert.Contains(t, out, "Step 2 of 4")
	assert.Contains(t, out, `data-pdf-section="services"`)
	assert.Contains(t, out, validation.MsgServicesRequired)
	assert.Contains(t, out, `name="fullName" value="Lauris &lt;script&gt;"`, "other steps are carried escaped")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `value="back"`)
	assert.Contains(t, out, `value="next"`)
}

func TestRenderSubmissionReadOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderer(t).Submission(&buf, sampleView()))
	out := buf.String()

	assert.Contains(t, out, "Lauris Bawar")
	assert.Contains(t, out, "2024-10-24 09:15")
	assert.Equal(t, 4, strings.Count(out, "data-pdf-section="))
	assert.NotContains(t, out, "<input id=", "text fields render as plain values")
	assert.Contains(t, out, "<fieldset disabled>")
}

func TestExportPagesSplitSections(t *testing.T) {
	pages, err := renderer(t).ExportPages(sampleView())
	require.NoError(t, err)
	require.Len(t, pages, 2)

	first, second := string(pages[0]), string(pages[1])
	assert.Contains(t, first, `data-pdf-section="contact"`)
	assert.Contains(t, first, `data-pdf-section="services"`)
	assert.NotContains(t, first, `data-pdf-section="referral"`)
	assert.Contains(t, second, `data-pdf-section="specific-details"`)
	assert.Contains(t, second, `data-pdf-section="referral"`)
	assert.Contains(t, second, "Radio")
}
