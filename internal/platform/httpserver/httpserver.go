// Package httpserver builds the intake HTTP server.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 120 * time.Second

	// exportHeadroom is added on top of the request timeout so a PDF render that
	// finishes just inside it can still be written out.
	exportHeadroom = 60 * time.Second
)

type Option func(*http.Server)

// WithRequestTimeout sizes the write timeout from the per-request handler
// timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.WriteTimeout = d + exportHeadroom
		}
	}
}

// WithLogger sends net/http's own errors (TLS handshakes, panics in
// hijacked connections) to logger at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(s *http.Server) {
		if logger != nil {
			s.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
		}
	}
}

// New returns a server for addr. Without WithRequestTimeout the write timeout
// is 90s.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      30*time.Second + exportHeadroom,
		IdleTimeout:       idleTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}
