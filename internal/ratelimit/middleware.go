package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"intakedesk/pkg/platform/httputil"
	"intakedesk/pkg/requestcontext"
)

// MsgTooManyRequests is the body message of a refused request.
const MsgTooManyRequests = "Too many requests. Please try again later."

// Metrics counts limiter decisions. A nil *Metrics is a no-op.
type Metrics struct {
	decisions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "intakedesk_intake_rate_limit_decisions_total",
			Help: "Intake rate limit decisions by outcome (allowed, limited, error)",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) inc(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

// Limiter admits at most Limit requests per client IP within Window.
type Limiter struct {
	store   Store
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// New returns a limiter. A limit of zero or less disables it.
func New(store Store, limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Middleware refuses requests over the limit with 429. Store failures let the
// request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if l == nil || l.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)

		result, err := l.store.Allow(ctx, ip, l.limit, l.window)
		if err != nil {
			l.metrics.inc("error")
			l.logger.ErrorContext(ctx, "failed to check intake rate limit",
				"request_id", requestcontext.RequestID(ctx),
				"ip_prefix", ipPrefix(ip),
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		addHeaders(w, result)
		if !result.Allowed {
			l.metrics.inc("limited")
			l.logger.WarnContext(ctx, "intake rate limit exceeded",
				"request_id", requestcontext.RequestID(ctx),
				"ip_prefix", ipPrefix(ip),
			)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
			httputil.WriteMessage(w, http.StatusTooManyRequests, MsgTooManyRequests)
			return
		}
		l.metrics.inc("allowed")
		next.ServeHTTP(w, r)
	})
}

func addHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// ipPrefix keeps the network part of an address for logs: /24 for IPv4 and
// /48 for IPv6.
func ipPrefix(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "unknown"
	}
	bits := 48
	if addr.Is4() || addr.Is4In6() {
		addr = addr.Unmap()
		bits = 24
	}
	p, err := addr.Prefix(bits)
	if err != nil {
		return "unknown"
	}
	return p.String()
}
