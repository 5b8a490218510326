package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	dErrors "intakedesk/pkg/domain-errors"
)

// Minimum accepted length for a new password.
const MinPasswordLength = 6

// Form errors carry the message shown to the admin.
var (
	ErrEmailRequired     = dErrors.New(dErrors.CodeValidation, "Email is required.")
	ErrPasswordRequired  = dErrors.New(dErrors.CodeValidation, "Password and Confirm Password are required.")
	ErrPasswordTooShort  = dErrors.New(dErrors.CodeValidation, "Password must be at least 6 characters.")
	ErrPasswordsMismatch = dErrors.New(dErrors.CodeValidation, "Passwords do not match.")
	ErrNoSession         = errors.New("no active session")
)

// Authenticator is the subset of the identity service that Sessions needs.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, accessToken string) error
	RecoverPassword(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (User, error)
}

// Sessions holds the one current admin session of a console or CLI process and
// publishes every change on its Notifier.
type Sessions struct {
	auth     Authenticator
	notifier *Notifier
	logger   *slog.Logger

	mu      sync.RWMutex
	current *Session
}

func NewSessions(a Authenticator, notifier *Notifier, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NewNotifier()
	}
	return &Sessions{auth: a, notifier: notifier, logger: logger}
}

// Notifier returns the notifier the session publishes on.
func (s *Sessions) Notifier() *Notifier {
	return s.notifier
}

// Current returns the active session.
func (s *Sessions) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// AccessToken returns the active bearer token, or "".
func (s *Sessions) AccessToken() string {
	cur, _ := s.Current()
	return cur.AccessToken
}

// SignIn opens a session with an email and password.
func (s *Sessions) SignIn(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" {
		return Session{}, ErrEmailRequired
	}
	sess, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	s.set(&sess, EventSignedIn)
	return sess, nil
}

// SignOut ends the active session. The local session is dropped even when the
// remote revocation fails; that error is returned.
func (s *Sessions) SignOut(ctx context.Context) error {
	token := s.AccessToken()
	if token == "" {
		return nil
	}
	err := s.auth.SignOut(ctx, token)
	if err != nil {
		s.logger.WarnContext(ctx, "remote sign-out failed", "error", err)
	}
	s.set(nil, EventSignedOut)
	return err
}

// Adopt installs a session obtained outside SignIn, such as the one carried by
// a password recovery link.
func (s *Sessions) Adopt(sess Session, kind EventKind) {
	s.set(&sess, kind)
}

// RecoverPassword sends a recovery email.
func (s *Sessions) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	return s.auth.RecoverPassword(ctx, email, redirectTo)
}

// UpdatePassword sets a new password for the active session's user.
func (s *Sessions) UpdatePassword(ctx context.Context, password, confirm string) error {
	if err := ValidateNewPassword(password, confirm); err != nil {
		return err
	}
	cur, ok := s.Current()
	if !ok {
		return ErrNoSession
	}
	user, err := s.auth.UpdatePassword(ctx, cur.AccessToken, password)
	if err != nil {
		return err
	}
	if user.ID != "" {
		cur.User = user
	}
	s.set(&cur, EventPasswordUpdated)
	return nil
}

// ValidateNewPassword applies the reset form rules.
func ValidateNewPassword(password, confirm string) error {
	switch {
	case password == "" || confirm == "":
		return ErrPasswordRequired
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case password != confirm:
		return ErrPasswordsMismatch
	default:
		return nil
	}
}

func (s *Sessions) set(sess *Session, kind EventKind) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	var published *Session
	if sess != nil {
		cp := *sess
		published = &cp
	}
	s.notifier.Publish(Event{Kind: kind, Session: published})
}
