// Package admin implements the authorization gate in front of admin-only routes.
//
// A request is admitted when either:
//  1. a static admin token is configured and X-Admin-Token matches it. This is an
//     operational escape hatch equivalent to a shared secret, not a security
//     boundary. Config refuses it in production unless explicitly allowed, and
//     every use is audited under the "static-admin-token" actor.
//  2. the Authorization bearer token is confirmed by the identity service and the
//     identity's email equals the configured admin address, ignoring case.
//
// Outcomes: missing or rejected token is 401, a verified non-admin is 403, and an
// unreachable identity service is 503.
package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	audit "intakedesk/pkg/platform/audit"
	"intakedesk/pkg/platform/httputil"
	"intakedesk/pkg/platform/middleware/auth"
	"intakedesk/pkg/platform/sentinel"
	"intakedesk/pkg/requestcontext"
)

// HeaderAdminToken carries the shared static admin secret.
const HeaderAdminToken = "X-Admin-Token"

// Outcome labels used for metrics and audit decisions.
const (
	OutcomeStaticToken = "static_token"
	OutcomeGranted     = "granted"
	OutcomeMissing     = "missing_token"
	OutcomeInvalid     = "invalid_token"
	OutcomeForbidden   = "forbidden"
	OutcomeUnavailable = "identity_unavailable"
)

// Config names the credentials the gate accepts.
type Config struct {
	// StaticToken enables the X-Admin-Token bypass when non-empty.
	StaticToken string
	// AdminEmail is the single address allowed through the bearer path.
	AdminEmail string
}

// AuditPublisher records gate decisions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Gate struct {
	cfg            Config
	verifier       auth.Verifier
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *Metrics
}

type Option func(*Gate)

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(g *Gate) {
		g.auditPublisher = publisher
	}
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// NewGate builds a gate. verifier may be nil when no identity service is
// configured; bearer requests then fail with 503.
func NewGate(cfg Config, verifier auth.Verifier, logger *slog.Logger, opts ...Option) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{cfg: cfg, verifier: verifier, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Require wraps next so it only runs for admitted requests. The admitted identity
// is available downstream through requestcontext.Admin.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)

		if g.staticTokenMatches(r.Header.Get(HeaderAdminToken)) {
			g.logger.WarnContext(ctx, "admin request admitted by static token",
				"request_id", requestID,
				"path", r.URL.Path,
			)
			g.record(ctx, r, audit.EventStaticTokenUsed, OutcomeStaticToken, audit.StaticTokenActor)
			admin := requestcontext.AdminIdentity{
				UserID: audit.StaticTokenActor,
				Email:  g.cfg.AdminEmail,
				Method: requestcontext.AuthMethodStaticToken,
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithAdmin(ctx, admin)))
			return
		}

		token, ok := auth.BearerFromRequest(r)
		if !ok {
			g.logger.WarnContext(ctx, "unauthorized admin access - missing token",
				"request_id", requestID,
			)
			g.record(ctx, r, audit.EventAdminAccessDenied, OutcomeMissing, "")
			httputil.WriteMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if g.verifier == nil {
			g.logger.ErrorContext(ctx, "bearer token presented but no identity service configured",
				"request_id", requestID,
			)
			g.record(ctx, r, audit.EventAdminAccessDenied, OutcomeUnavailable, "")
			httputil.WriteMessage(w, http.StatusServiceUnavailable, "Identity service unavailable")
			return
		}

		identity, err := g.verifier.VerifyToken(ctx, token)
		if err != nil {
			if errors.Is(err, sentinel.ErrUnavailable) {
				g.logger.ErrorContext(ctx, "identity service unavailable",
					"request_id", requestID,
					"error", err,
				)
				g.record(ctx, r, audit.EventAdminAccessDenied, OutcomeUnavailable, "")
				httputil.WriteMessage(w, http.StatusServiceUnavailable, "Identity service unavailable")
				return
			}
			g.logger.WarnContext(ctx, "unauthorized admin access - invalid token",
				"request_id", requestID,
				"error", err,
			)
			g.record(ctx, r, audit.EventAdminAccessDenied, OutcomeInvalid, "")
			httputil.WriteMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if identity == nil {
			g.record(ctx, r, audit.EventAdminAccessDenied, OutcomeInvalid, "")
			httputil.WriteMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if !g.isAdminEmail(identity.Email) {
			g.logger.WarnContext(ctx, "forbidden admin access - not the admin account",
				"request_id", requestID,
				"user_id", identity.UserID,
			)
			g.record(ctx, r, audit.EventAdminAccessDenied, OutcomeForbidden, identity.Email)
			httputil.WriteMessage(w, http.StatusForbidden, "Forbidden")
			return
		}

		g.record(ctx, r, audit.EventAdminAccessGranted, OutcomeGranted, identity.Email)
		admin := requestcontext.AdminIdentity{
			UserID: identity.UserID,
			Email:  identity.Email,
			Method: requestcontext.AuthMethodBearer,
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithAdmin(ctx, admin)))
	})
}

func (g *Gate) staticTokenMatches(presented string) bool {
	if g.cfg.StaticToken == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(g.cfg.StaticToken)) == 1
}

func (g *Gate) isAdminEmail(email string) bool {
	want := strings.TrimSpace(g.cfg.AdminEmail)
	if want == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(email), want)
}

func (g *Gate) record(ctx context.Context, r *http.Request, action audit.AuditEvent, outcome, actor string) {
	g.metrics.IncDecision(outcome)
	if g.auditPublisher == nil {
		return
	}
	err := g.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(action),
		Subject:  r.Method + " " + r.URL.Path,
		ActorID:  actor,
		Decision: outcome,
	})
	if err != nil {
		g.logger.WarnContext(ctx, "failed to emit gate audit event",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}
