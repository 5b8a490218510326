package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"

	"intakedesk/internal/intake/form"
	"intakedesk/internal/intake/models"
	"intakedesk/internal/intake/validation"
	"intakedesk/internal/intake/view"
	"intakedesk/pkg/platform/httputil"
	"intakedesk/pkg/requestcontext"
)

// Form actions posted by the step buttons.
const (
	actionNext   = "next"
	actionBack   = "back"
	actionSubmit = "submit"
)

// scalarFields are the single-valued inputs carried between steps.
var scalarFields = []string{
	validation.FieldFullName,
	validation.FieldEmail,
	validation.FieldPhoneNumber,
	validation.FieldCompanyName,
	validation.FieldRolePosition,
	validation.FieldSelectedPackage,
	validation.FieldNeedsAndGoals,
	validation.FieldOfficeDuration,
	validation.FieldTeamSize,
	validation.FieldEventType,
	validation.FieldExpectedAttendees,
	validation.FieldPreferredDate,
	validation.FieldCurrentlyUsingTools,
	validation.FieldMainChallenge,
	validation.FieldOtherReferralSource,
	validation.FieldPreferredContact,
	validation.FieldBestTimeToReach,
	validation.FieldBestTimeFrom,
	validation.FieldBestTimeTo,
}

func (h *Handler) handleFormStart(w http.ResponseWriter, r *http.Request) {
	h.writeForm(w, r, http.StatusOK, form.New(h.submitter()))
}

// handleFormStep rebuilds the session from the posted values and applies the
// pressed button. The draft travels in the page, so no server state is kept.
func (h *Handler) handleFormStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, httputil.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "invalid form post", "request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteMessage(w, http.StatusBadRequest, "Invalid form")
		return
	}

	number, _ := strconv.Atoi(r.PostForm.Get("step"))
	m := form.Restore(models.NewDraft(), form.Step(number-1), h.submitter(), form.WithLogger(h.logger))
	if err := applyForm(m, r.PostForm); err != nil {
		h.logger.WarnContext(ctx, "invalid form post", "request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteMessage(w, http.StatusBadRequest, "Invalid form")
		return
	}

	switch r.PostForm.Get("action") {
	case actionBack:
		m.Retreat()
	case actionSubmit:
		if err := m.Submit(ctx); err == nil {
			h.writeHTML(ctx, w, http.StatusCreated, func(buf *bytes.Buffer) error {
				return h.views.Success(buf)
			})
			return
		}
	default:
		_ = m.Advance()
	}
	h.writeForm(w, r, http.StatusOK, m)
}

func (h *Handler) writeForm(w http.ResponseWriter, r *http.Request, status int, m *form.Machine) {
	page := view.NewFormPage(m)
	h.writeHTML(r.Context(), w, status, func(buf *bytes.Buffer) error {
		return h.views.Form(buf, page)
	})
}

func (h *Handler) submitter() form.Submitter {
	return form.SubmitterFunc(func(ctx context.Context, sub models.Submission) error {
		_, err := h.svc.Submit(ctx, sub)
		return err
	})
}

// applyForm replays the posted values onto a fresh session.
func applyForm(m *form.Machine, values url.Values) error {
	for _, name := range scalarFields {
		if v := values.Get(name); v != "" {
			if err := m.UpdateField(name, v); err != nil {
				return err
			}
		}
	}
	seen := map[string]bool{}
	for _, key := range values[validation.FieldServices] {
		if seen["s:"+key] {
			continue
		}
		seen["s:"+key] = true
		if err := m.ToggleService(models.ServiceKey(key)); err != nil {
			return err
		}
	}
	for _, tag := range values[validation.FieldReferralSource] {
		if tag == "" || seen["r:"+tag] {
			continue
		}
		seen["r:"+tag] = true
		m.ToggleReferralTag(tag)
	}
	return nil
}
