// Package service orchestrates intake submissions: validation, sanitizing,
// persistence, the admin read path, audit and metrics.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher,Exporter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"intakedesk/internal/intake/export"
	"intakedesk/internal/intake/metrics"
	"intakedesk/internal/intake/models"
	"intakedesk/internal/intake/normalize"
	"intakedesk/internal/intake/store"
	"intakedesk/internal/intake/validation"
	dErrors "intakedesk/pkg/domain-errors"
	"intakedesk/pkg/platform/audit"
	"intakedesk/pkg/platform/sentinel"
	"intakedesk/pkg/requestcontext"
)

type Store interface {
	Insert(ctx context.Context, rec models.Record) (models.Record, error)
	ListRecent(ctx context.Context, limit int) ([]models.Record, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Exporter renders a read-only submission view as a PDF document.
type Exporter interface {
	Export(ctx context.Context, view models.SubmissionView) ([]byte, error)
}

// Document is a rendered export ready for download.
type Document struct {
	Filename string
	Data     []byte
}

// Service is the single entry point for intake and admin submission operations.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	exporter       Exporter
	listLimit      int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithExporter enables PDF export. Without it Export reports the feature unavailable.
func WithExporter(exporter Exporter) Option {
	return func(s *Service) {
		s.exporter = exporter
	}
}

// New constructs a Service.
func New(st Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		logger:    slog.Default(),
		tracer:    otel.Tracer("intakedesk/intake"),
		listLimit: store.ListLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and persists one submission. Validation failures come back
// as a CodeValidation error wrapping *validation.Error; nothing is written.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "intake.Submit")
	defer span.End()

	if issues := validation.Validate(sub); len(issues) > 0 {
		s.metrics.IncSubmission(metrics.OutcomeRejected)
		span.SetAttributes(attribute.Int("intake.issues", len(issues)))
		return models.Record{}, dErrors.Wrap(&validation.Error{Issues: issues}, dErrors.CodeValidation, "Validation failed")
	}

	start := time.Now()
	rec, err := s.store.Insert(ctx, normalize.Sanitize(sub))
	s.metrics.ObserveStore("insert", start)
	if err != nil {
		s.metrics.IncSubmission(metrics.OutcomeFailed)
		recordSpanError(span, err)
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "Insert failed")
	}

	s.metrics.IncSubmission(metrics.OutcomeAccepted)
	span.SetAttributes(attribute.String("intake.submission_id", rec.ID.String()))
	s.logAudit(ctx, audit.EventSubmissionCreated, rec.ID.String())
	return rec, nil
}

// List returns up to the list limit of the newest submissions, newest first.
func (s *Service) List(ctx context.Context) ([]models.SubmissionView, error) {
	ctx, span := s.tracer.Start(ctx, "intake.List")
	defer span.End()

	start := time.Now()
	records, err := s.store.ListRecent(ctx, s.listLimit)
	s.metrics.ObserveStore("list", start)
	if err != nil {
		recordSpanError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Fetch failed")
	}

	span.SetAttributes(attribute.Int("intake.count", len(records)))
	s.logAudit(ctx, audit.EventSubmissionsListed, "")
	return normalize.ToViews(records), nil
}

// Get returns one submission view.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.SubmissionView, error) {
	ctx, span := s.tracer.Start(ctx, "intake.Get", trace.WithAttributes(attribute.String("intake.submission_id", id.String())))
	defer span.End()

	start := time.Now()
	rec, err := s.store.FindByID(ctx, id)
	s.metrics.ObserveStore("find", start)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.SubmissionView{}, dErrors.New(dErrors.CodeNotFound, "Submission not found")
		}
		recordSpanError(span, err)
		return models.SubmissionView{}, dErrors.Wrap(err, dErrors.CodeInternal, "Fetch failed")
	}
	return normalize.ToView(rec), nil
}

// Delete removes a submission. Unknown ids succeed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "intake.Delete", trace.WithAttributes(attribute.String("intake.submission_id", id.String())))
	defer span.End()

	start := time.Now()
	err := s.store.Delete(ctx, id)
	s.metrics.ObserveStore("delete", start)
	if err != nil {
		recordSpanError(span, err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "Delete failed")
	}

	s.metrics.IncDelete()
	s.logAudit(ctx, audit.EventSubmissionDeleted, id.String())
	return nil
}

// Export renders one submission as a PDF.
func (s *Service) Export(ctx context.Context, id uuid.UUID) (Document, error) {
	if s.exporter == nil {
		return Document{}, dErrors.New(dErrors.CodeUnavailable, "PDF export is not configured")
	}
	view, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}

	ctx, span := s.tracer.Start(ctx, "intake.Export", trace.WithAttributes(attribute.String("intake.submission_id", id.String())))
	defer span.End()

	data, err := s.exporter.Export(ctx, view)
	if err != nil {
		s.metrics.IncExport(metrics.OutcomeFailed)
		recordSpanError(span, err)
		return Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "Export failed")
	}

	s.metrics.IncExport(metrics.OutcomeSuccess)
	s.logAudit(ctx, audit.EventSubmissionExported, id.String())
	return Document{Filename: export.Filename(view), Data: data}, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, subject string) {
	actor := actorID(ctx)
	requestID := requestcontext.RequestID(ctx)
	s.logger.InfoContext(ctx, string(event),
		"event", string(event),
		"log_type", "audit",
		"subject", subject,
		"actor_id", actor,
		"request_id", requestID,
	)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Category: event.Category(),
		Subject:  subject,
		Action:   string(event),
		ActorID:  actor,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "request_id", requestID, "error", err)
	}
}

func actorID(ctx context.Context) string {
	admin, ok := requestcontext.Admin(ctx)
	if !ok {
		return ""
	}
	if admin.Method == requestcontext.AuthMethodStaticToken {
		return audit.StaticTokenActor
	}
	return admin.Email
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
