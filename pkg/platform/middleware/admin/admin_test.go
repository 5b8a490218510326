package admin

//go:generate mockgen -source=admin.go -destination=mocks/mocks.go -package=mocks AuditPublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	audit "intakedesk/pkg/platform/audit"
	"intakedesk/pkg/platform/middleware/admin/mocks"
	"intakedesk/pkg/platform/middleware/auth"
	"intakedesk/pkg/platform/sentinel"
	"intakedesk/pkg/requestcontext"
	httptestutil "intakedesk/pkg/testutil"
)

const (
	adminEmail  = "owner@startuplab.example"
	staticToken = "ops-secret"
)

// =============================================================================
// Authorization Gate Test Suite
// =============================================================================
// Justification for unit tests: the gate decides every admin request. Tests pin
// the 401/403/503 mapping, the static-token bypass and its audit trail, and that
// the admitted identity reaches the wrapped handler.

type GateSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockAudit *mocks.MockAuditPublisher
	registry  *prometheus.Registry
	metrics   *Metrics
	tokens    map[string]*auth.Identity
	verifyErr error

	seen     requestcontext.AdminIdentity
	admitted bool
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockAudit = mocks.NewMockAuditPublisher(s.ctrl)
	s.registry = prometheus.NewRegistry()
	s.metrics = NewMetrics(s.registry)
	s.tokens = map[string]*auth.Identity{
		"admin-session": {UserID: "u-admin", Email: "Owner@StartupLab.example"},
		"user-session":  {UserID: "u-other", Email: "someone@example.com"},
	}
	s.verifyErr = nil
	s.admitted = false
	s.seen = requestcontext.AdminIdentity{}
}

func (s *GateSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *GateSuite) verifier() auth.Verifier {
	return auth.VerifierFunc(func(_ context.Context, token string) (*auth.Identity, error) {
		if s.verifyErr != nil {
			return nil, s.verifyErr
		}
		id, ok := s.tokens[token]
		if !ok {
			return nil, sentinel.ErrInvalidToken
		}
		return id, nil
	})
}

func (s *GateSuite) handler(cfg Config, verifier auth.Verifier) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := NewGate(cfg, verifier, logger, WithAuditPublisher(s.mockAudit), WithMetrics(s.metrics))
	return gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.admitted = true
		s.seen, _ = requestcontext.Admin(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
}

func (s *GateSuite) expectAudit(action audit.AuditEvent, decision string) {
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e audit.Event) error {
			s.Equal(string(action), e.Action)
			s.Equal(decision, e.Decision)
			return nil
		})
}

func (s *GateSuite) decisions(outcome string) float64 {
	return testutil.ToFloat64(s.metrics.Decisions.WithLabelValues(outcome))
}

// =============================================================================
// Static token bypass
// =============================================================================

func (s *GateSuite) TestStaticToken() {
	cfg := Config{StaticToken: staticToken, AdminEmail: adminEmail}

	s.Run("matching header admits without calling the identity service", func() {
		s.SetupTest()
		s.expectAudit(audit.EventStaticTokenUsed, OutcomeStaticToken)
		calls := 0
		v := auth.VerifierFunc(func(context.Context, string) (*auth.Identity, error) {
			calls++
			return nil, errors.New("must not be called")
		})

		req := httptestutil.WithAdminToken(httptestutil.NewJSONRequest(s.T(), http.MethodGet, "/api/admin/submissions", nil), staticToken)
		rr := httptestutil.DoRequest(s.handler(cfg, v), req)

		s.Equal(http.StatusNoContent, rr.Code)
		s.True(s.admitted)
		s.Zero(calls)
		s.Equal(requestcontext.AuthMethodStaticToken, s.seen.Method)
		s.Equal(audit.StaticTokenActor, s.seen.UserID)
		s.Equal(1.0, s.decisions(OutcomeStaticToken))
	})

	s.Run("mismatched header falls through to bearer check", func() {
		s.SetupTest()
		s.expectAudit(audit.EventAdminAccessDenied, OutcomeMissing)

		req := httptestutil.WithAdminToken(httptestutil.NewJSONRequest(s.T(), http.MethodGet, "/api/admin/submissions", nil), "wrong")
		rr := httptestutil.DoRequest(s.handler(cfg, s.verifier()), req)

		httptestutil.AssertMessage(s.T(), rr, http.StatusUnauthorized, "Unauthorized")
		s.False(s.admitted)
	})

	s.Run("unconfigured token never matches an empty header", func() {
		s.SetupTest()
		s.expectAudit(audit.EventAdminAccessDenied, OutcomeMissing)

		req := httptestutil.WithAdminToken(httptestutil.NewJSONRequest(s.T(), http.MethodGet, "/api/admin/submissions", nil), "")
		rr := httptestutil.DoRequest(s.handler(Config{AdminEmail: adminEmail}, s.verifier()), req)

		s.Equal(http.StatusUnauthorized, rr.Code)
	})
}

// =============================================================================
// Bearer path
// =============================================================================

func (s *GateSuite) TestBearer() {
	cfg := Config{AdminEmail: adminEmail}

	s.Run("no credentials is 401", func() {
		s.SetupTest()
		s.expectAudit(audit.EventAdminAccessDenied, OutcomeMissing)

		rr := httptestutil.DoRequest(s.handler(cfg, s.verifier()), httptestutil.NewJSONRequest(s.T(), http.MethodGet, "/api/admin/submissions", nil))

		httptestutil.AssertMessage(s.T(), rr, http.StatusUnauthorized, "Unauthorized")
		s.Equal(1.0, s.decisions(OutcomeMissing))
	})

	s.Run("rejected token is 401", func() {
		s.SetupTest()
		s.expectAudit(audit.EventAdminAccessDenied, OutcomeInvalid)

		req := httptestutil.WithBearer(httptestutil.NewJSONRequest(s.T(), http.MethodGet, "/api/admin/submissions", nil), "expired")
		rr := httptestutil.DoRequest(s.handler(cfg, s.verifier()), req)

		httptestutil.AssertMessage(s.T(), rr, http.StatusUnauthorized, "Unauthorized")
	})

	s.Run("verified non-admin is 403", func() {
		s.SetupTest()
		s.expectAudit(audit.EventAdminAccessDenied, OutcomeForbidden)

		req := httptestutil.WithBearer(httptestutil.NewJSONRequest(s.T(), http.MethodDelete, "/api/admin/submissions/x", nil), "user-session")
		rr := httptestutil.DoRequest(s.handler(cfg, s.verifier()), req)

		httptestutil.AssertMessage(s.T(), rr, http.StatusForbidden, "Forbidden")
		s.False(s.admitted)
	})

	s.Run("admin email matches case-insensitively", func() {
		s.SetupTest()
		s.expectAudit(audit.EventAdminAccessGranted, OutcomeGranted)

		req := httptestutil.WithBearer(httptestutil.NewJSONRequest(s.T(), http.MethodGet, "/api/admin/submissions", nil), "admin-session")
		rr := httptestutil.DoRequest(s.handler(cfg, s.verifier()), req)

		s.Equal(http.StatusNoContent, rr.Code)
		s.Equal("u-admin", s.seen.UserID)
		s.Equal(requestcontext.AuthMethodBearer, s.seen.Method)
	})

	s.Run("identity service outage is 503", func() {
		s.SetupTest()
		s.verifyErr = sentinel.ErrUnavailable
		s.expectAudit(audit.EventAdminAccessDenied, OutcomeUnavailable)

		req := httptestutil.WithBearer(httptestutil.NewJSONRequest(s.T(), http.MethodGet, "/api/admin/submissions", nil), "admin-session")
		rr := httptestutil.DoRequest(s.handler(cfg, s.verifier()), req)

		httptestutil.AssertMessage(s.T(), rr, http.StatusServiceUnavailable, "Identity service unavailable")
	})

	s.Run("no verifier configured is 503", func() {
		s.SetupTest()
		s.expectAudit(audit.EventAdminAccessDenied, OutcomeUnavailable)

		req := httptestutil.WithBearer(httptestutil.NewJSONRequest(s.T(), http.MethodGet, "/api/admin/submissions", nil), "admin-session")
		rr := httptestutil.DoRequest(s.handler(cfg, nil), req)

		s.Equal(http.StatusServiceUnavailable, rr.Code)
	})

	s.Run("empty admin email admits nobody", func() {
		s.SetupTest()
		s.expectAudit(audit.EventAdminAccessDenied, OutcomeForbidden)

		req := httptestutil.WithBearer(httptestutil.NewJSONRequest(s.T(), http.MethodGet, "/api/admin/submissions", nil), "admin-session")
		rr := httptestutil.DoRequest(s.handler(Config{}, s.verifier()), req)

		s.Equal(http.StatusForbidden, rr.Code)
	})
}

// =============================================================================
// Audit failures
// =============================================================================

func (s *GateSuite) TestAuditFailureDoesNotBlock() {
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("sink down"))

	req := httptestutil.WithBearer(httptestutil.NewJSONRequest(s.T(), http.MethodGet, "/api/admin/submissions", nil), "admin-session")
	rr := httptestutil.DoRequest(s.handler(Config{AdminEmail: adminEmail}, s.verifier()), req)

	s.Equal(http.StatusNoContent, rr.Code)
}
