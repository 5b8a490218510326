package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"intakedesk/internal/intake/models"
	"intakedesk/internal/intake/service"
	"intakedesk/internal/intake/validation"
	"intakedesk/internal/intake/view"
	dErrors "intakedesk/pkg/domain-errors"
	"intakedesk/pkg/platform/httputil"
	"intakedesk/pkg/requestcontext"
)

// Service defines the intake operations exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, sub models.Submission) (models.Record, error)
	List(ctx context.Context) ([]models.SubmissionView, error)
	Get(ctx context.Context, id uuid.UUID) (models.SubmissionView, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Export(ctx context.Context, id uuid.UUID) (service.Document, error)
}

// ValidationResponse is the 400 body of a rejected submission.
type ValidationResponse struct {
	Message string             `json:"message"`
	Issues  []validation.Issue `json:"issues"`
}

// Handler serves the public intake endpoint, the server-rendered form and the
// gated admin API.
type Handler struct {
	svc    Service
	gate   func(http.Handler) http.Handler
	views  *view.Renderer
	logger *slog.Logger
	// throttle wraps the public submission routes.
	throttle func(http.Handler) http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithSubmissionThrottle wraps POST /api/intake and the form step route,
// typically with a per-client rate limiter.
func WithSubmissionThrottle(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		if mw != nil {
			h.throttle = mw
		}
	}
}

// New creates a Handler. gate wraps every admin route; a nil gate refuses all
// admin requests. views may be nil, which disables the HTML routes.
func New(svc Service, gate func(http.Handler) http.Handler, views *view.Renderer, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if gate == nil {
		gate = denyAll
	}
	h := &Handler{svc: svc, gate: gate, views: views, logger: logger, throttle: passThrough}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func passThrough(next http.Handler) http.Handler { return next }

// Register registers the intake routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Handle("/health", methods{http.MethodGet: h.handleHealth})
	r.Handle("/api/intake", methods{http.MethodPost: h.throttled(h.handleIntake)})

	r.Handle("/api/admin/submissions", methods{
		http.MethodGet:    h.gated(h.handleList),
		http.MethodDelete: h.gated(h.handleDelete),
	})
	r.Handle("/api/admin/submissions/{id}", methods{http.MethodDelete: h.gated(h.handleDelete)})
	r.Handle("/api/admin/submissions/{id}/pdf", methods{http.MethodGet: h.gated(h.handleExport)})

	if h.views != nil {
		r.Handle("/", methods{
			http.MethodGet:  h.handleFormStart,
			http.MethodPost: h.throttled(h.handleFormStep),
		})
		r.Handle("/admin/submissions/{id}", methods{http.MethodGet: h.gated(h.handleSubmissionPage)})
	}
}

// methods dispatches on the request method and answers anything else with 405
// and an Allow header.
type methods map[string]http.HandlerFunc

func (m methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if next, ok := m[r.Method]; ok {
		next(w, r)
		return
	}
	allowed := make([]string, 0, len(m))
	for method := range m {
		allowed = append(allowed, method)
	}
	slices.Sort(allowed)
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	httputil.WriteMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func (h *Handler) gated(next http.HandlerFunc) http.HandlerFunc {
	return h.gate(next).ServeHTTP
}

func (h *Handler) throttled(next http.HandlerFunc) http.HandlerFunc {
	return h.throttle(next).ServeHTTP
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteMessage(w, http.StatusUnauthorized, "Unauthorized")
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, http.StatusOK)
}

// handleIntake accepts one public submission.
func (h *Handler) handleIntake(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, httputil.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.WarnContext(ctx, "intake body too large", "request_id", requestID)
			httputil.WriteMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		h.logger.WarnContext(ctx, "failed to read intake body", "request_id", requestID, "error", err)
		httputil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sub, err := validation.ParseSubmission(body)
	if err != nil {
		h.writeValidation(ctx, w, err)
		return
	}

	if _, err := h.svc.Submit(ctx, sub); err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			h.writeValidation(ctx, w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to insert submission", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, http.StatusCreated)
}

func (h *Handler) writeValidation(ctx context.Context, w http.ResponseWriter, err error) {
	resp := ValidationResponse{Message: "Validation failed", Issues: []validation.Issue{}}
	var verr *validation.Error
	if errors.As(err, &verr) {
		resp.Issues = verr.Issues
	}
	h.logger.WarnContext(ctx, "intake submission rejected",
		"request_id", requestcontext.RequestID(ctx),
		"issues", len(resp.Issues),
	)
	httputil.WriteJSON(w, http.StatusBadRequest, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views, err := h.svc.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list submissions", "request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ListResponse{Submissions: views})
}

// handleDelete takes the id from the path, falling back to the ?id= query.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		h.logger.ErrorContext(ctx, "failed to delete submission",
			"request_id", requestcontext.RequestID(ctx),
			"submission_id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, http.StatusOK)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.Export(ctx, id)
	if err != nil {
		h.logExportError(ctx, id, err)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func (h *Handler) logExportError(ctx context.Context, id uuid.UUID, err error) {
	attrs := []any{"request_id", requestcontext.RequestID(ctx), "submission_id", id.String(), "error", err}
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "failed to export submission", attrs...)
		return
	}
	h.logger.WarnContext(ctx, "submission export refused", attrs...)
}

func (h *Handler) submissionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("id"))
	}
	if raw == "" {
		httputil.WriteMessage(w, http.StatusBadRequest, "Missing id")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid submission id",
			"request_id", requestcontext.RequestID(r.Context()),
			"id", raw,
		)
		httputil.WriteMessage(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// handleSubmissionPage renders one stored submission read-only.
func (h *Handler) handleSubmissionPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Get(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to load submission page",
			"request_id", requestcontext.RequestID(ctx),
			"submission_id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.writeHTML(ctx, w, http.StatusOK, func(buf *bytes.Buffer) error {
		return h.views.Submission(buf, v)
	})
}

func (h *Handler) writeHTML(ctx context.Context, w http.ResponseWriter, status int, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.logger.ErrorContext(ctx, "failed to render page", "request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
