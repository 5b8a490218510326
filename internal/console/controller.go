// Package console drives the admin console: which screen is showing, the
// loaded submissions and selection, and the busy and error state around the
// admin API calls. Front ends (the CLI, a terminal UI) render State and call
// the actions; they hold no state of their own.
package console

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"intakedesk/internal/identity"
	"intakedesk/internal/intake/client"
	"intakedesk/internal/intake/models"
	dErrors "intakedesk/pkg/domain-errors"
)

//go:generate mockgen -source=controller.go -destination=mocks/mocks.go -package=mocks SubmissionAPI

// View is the screen the console shows.
type View int

const (
	ViewIntakeForm View = iota
	ViewLogin
	ViewPasswordRecovery
	ViewResetPassword
	ViewDashboard
)

func (v View) String() string {
	switch v {
	case ViewIntakeForm:
		return "intake_form"
	case ViewLogin:
		return "login"
	case ViewPasswordRecovery:
		return "password_recovery"
	case ViewResetPassword:
		return "reset_password"
	case ViewDashboard:
		return "admin_dashboard"
	default:
		return "unknown"
	}
}

// Banner texts.
const (
	MsgLoadFailed      = "Failed to load submissions"
	MsgDeleteFailed    = "Failed to delete submission"
	MsgExportFailed    = "Failed to export PDF"
	MsgRecoveryFailed  = "Failed to send recovery email"
	MsgResetFailed     = "Failed to update password"
	MsgSignInFailed    = "Failed to sign in"
	MsgRecoverySent    = "Recovery email sent. Please check your inbox."
	MsgPasswordChanged = "Password successfully changed. You can now sign in."
	ConfirmDelete      = "Delete this submission? This cannot be undone."
)

var (
	// ErrBusy is returned when the same operation is already in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrUnknownSubmission is returned when selecting an id that is not loaded.
	ErrUnknownSubmission = errors.New("submission not loaded")
	// ErrNotSignedIn is returned by dashboard actions without a session.
	ErrNotSignedIn = errors.New("not signed in")
)

// SubmissionAPI is the admin surface of the intake service.
type SubmissionAPI interface {
	ListSubmissions(ctx context.Context) ([]models.SubmissionView, error)
	DeleteSubmission(ctx context.Context, id string) error
	ExportPDF(ctx context.Context, id string) (client.Document, error)
}

// APIProvider returns the admin API authorized with accessToken.
type APIProvider func(accessToken string) SubmissionAPI

// State is a snapshot of the console.
type State struct {
	View        View
	SignedIn    bool
	Email       string
	Submissions []models.SubmissionView
	SelectedID  string

	Loading    bool
	Deleting   bool
	Exporting  bool
	Recovering bool
	Resetting  bool

	// Error is the dismissible banner; Notice is the success line on the
	// recovery and reset screens.
	Error  string
	Notice string
}

// Selected returns the selected submission, if any.
func (s State) Selected() (models.SubmissionView, bool) {
	for _, sub := range s.Submissions {
		if sub.ID == s.SelectedID {
			return sub, true
		}
	}
	return models.SubmissionView{}, false
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithChangeHook registers fn to receive every new state. It runs on the
// goroutine that made the change, outside the controller's lock.
func WithChangeHook(fn func(State)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// WithRecoveryRedirect sets the link target placed in recovery emails.
func WithRecoveryRedirect(url string) Option {
	return func(c *Controller) {
		c.redirectTo = url
	}
}

// Controller owns the console state.
type Controller struct {
	sessions   *identity.Sessions
	api        APIProvider
	logger     *slog.Logger
	onChange   func(State)
	redirectTo string

	mu    sync.Mutex
	state State
	// gen changes on every Mount and Unmount; results of calls started under
	// an older generation are discarded.
	gen  uint64
	sub  *identity.Subscription
	done chan struct{}
}

// New creates a controller showing the intake form.
func New(sessions *identity.Sessions, api APIProvider, opts ...Option) *Controller {
	c := &Controller{
		sessions: sessions,
		api:      api,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := c.state
	s.Submissions = slices.Clone(c.state.Submissions)
	return s
}

// update applies fn under the lock unless gen is stale, then reports the new
// state. It returns false when the update was discarded.
func (c *Controller) update(gen uint64, fn func(*State)) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	s := c.snapshot()
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(s)
	}
	return true
}

func (c *Controller) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Mount starts following identity events. A recovery event routes to the
// reset screen; losing the session while on the dashboard routes to login.
// Mounting twice is a no-op.
func (c *Controller) Mount() {
	c.mu.Lock()
	if c.sub != nil {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	sub := c.sessions.Notifier().Subscribe()
	done := make(chan struct{})
	c.sub, c.done = sub, done
	c.mu.Unlock()

	sess, ok := c.sessions.Current()
	c.update(gen, func(s *State) {
		s.SignedIn = ok
		s.Email = sess.User.Email
	})

	go func() {
		defer close(done)
		for e := range sub.C {
			c.apply(sub, e)
		}
	}()
}

// apply folds one identity event into the state. Events reaching a listener
// that has since been unmounted are ignored. Losing the session starts a new
// generation so calls made with the old token cannot write back.
func (c *Controller) apply(sub *identity.Subscription, e identity.Event) {
	c.mu.Lock()
	if c.sub != sub {
		c.mu.Unlock()
		return
	}
	s := &c.state
	s.SignedIn = e.Session != nil
	s.Email = ""
	if e.Session != nil {
		s.Email = e.Session.User.Email
	}
	switch {
	case e.Kind == identity.EventPasswordRecovery:
		s.View = ViewResetPassword
		s.Error, s.Notice = "", ""
	case !s.SignedIn:
		c.gen++
		clearBusy(s)
		if s.View == ViewDashboard {
			s.View = ViewLogin
		}
		s.Submissions = nil
		s.SelectedID = ""
	}
	snap := c.snapshot()
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(snap)
	}
	c.logger.Debug("identity event", "kind", e.Kind.String())
}

// clearBusy resets the in-flight flags of calls whose results will be dropped.
func clearBusy(s *State) {
	s.Loading, s.Deleting, s.Exporting = false, false, false
	s.Recovering, s.Resetting = false, false
}

// Unmount stops following identity events and waits for the listener to
// exit. In-flight calls finish but their results are dropped.
func (c *Controller) Unmount() {
	c.mu.Lock()
	sub, done := c.sub, c.done
	c.sub, c.done = nil, nil
	c.gen++
	c.mu.Unlock()
	if sub == nil {
		return
	}
	sub.Close()
	<-done
}

// Navigate switches to a screen that needs no data. The dashboard goes
// through OpenDashboard.
func (c *Controller) Navigate(v View) {
	if v == ViewDashboard {
		return
	}
	c.update(c.generation(), func(s *State) {
		s.View = v
		s.Error, s.Notice = "", ""
	})
}

// Login signs in and opens the dashboard.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	gen := c.generation()
	sess, err := c.sessions.SignIn(ctx, email, password)
	if err != nil {
		c.update(gen, func(s *State) {
			s.Error = message(err, MsgSignInFailed)
		})
		return err
	}
	c.update(gen, func(s *State) {
		s.SignedIn = true
		s.Email = sess.User.Email
		s.Error = ""
	})
	return c.OpenDashboard(ctx)
}

// Logout ends the session and returns to the intake form. The state is reset
// first and calls still in flight are dropped. The local session is dropped
// even when the remote sign-out fails.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	c.state = State{View: ViewIntakeForm}
	snap := c.snapshot()
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(snap)
	}

	err := c.sessions.SignOut(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "remote sign-out failed", "error", err)
	}
	return err
}

// OpenDashboard shows the dashboard and loads submissions, or routes to login
// without a session.
func (c *Controller) OpenDashboard(ctx context.Context) error {
	if c.sessions.AccessToken() == "" {
		c.update(c.generation(), func(s *State) {
			s.View = ViewLogin
		})
		return ErrNotSignedIn
	}
	c.update(c.generation(), func(s *State) {
		s.View = ViewDashboard
	})
	return c.Refresh(ctx)
}

// Refresh reloads submissions, newest first. The previous selection is kept
// while it is still listed; otherwise the first submission is selected. Only
// one load runs at a time.
func (c *Controller) Refresh(ctx context.Context) error {
	token := c.sessions.AccessToken()
	if token == "" {
		return ErrNotSignedIn
	}
	gen := c.generation()
	var busy bool
	c.update(gen, func(s *State) {
		if s.Loading {
			busy = true
			return
		}
		s.Loading = true
		s.Error = ""
	})
	if busy {
		return ErrBusy
	}

	list, err := c.api(token).ListSubmissions(ctx)

	c.update(gen, func(s *State) {
		s.Loading = false
		if err != nil {
			s.Error = message(err, MsgLoadFailed)
			return
		}
		s.Submissions = list
		s.SelectedID = pickSelection(list, s.SelectedID)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "list submissions failed", "error", err)
	}
	return err
}

func pickSelection(list []models.SubmissionView, prev string) string {
	if prev != "" && slices.ContainsFunc(list, func(s models.SubmissionView) bool { return s.ID == prev }) {
		return prev
	}
	if len(list) > 0 {
		return list[0].ID
	}
	return ""
}

// Select marks a loaded submission as selected.
func (c *Controller) Select(id string) error {
	var err error
	c.update(c.generation(), func(s *State) {
		if !slices.ContainsFunc(s.Submissions, func(sub models.SubmissionView) bool { return sub.ID == id }) {
			err = ErrUnknownSubmission
			return
		}
		s.SelectedID = id
	})
	return err
}

// DeleteSelected deletes the selected submission. Front ends confirm with
// ConfirmDelete first. Without a selection it does nothing.
func (c *Controller) DeleteSelected(ctx context.Context) error {
	token := c.sessions.AccessToken()
	if token == "" {
		return ErrNotSignedIn
	}
	gen := c.generation()
	var id string
	var busy bool
	c.update(gen, func(s *State) {
		id = s.SelectedID
		if id == "" {
			return
		}
		if s.Deleting {
			busy = true
			return
		}
		s.Deleting = true
		s.Error = ""
	})
	if busy {
		return ErrBusy
	}
	if id == "" {
		return nil
	}

	err := c.api(token).DeleteSubmission(ctx, id)

	c.update(gen, func(s *State) {
		s.Deleting = false
		if err != nil {
			s.Error = message(err, MsgDeleteFailed)
			return
		}
		s.Submissions = slices.DeleteFunc(s.Submissions, func(sub models.SubmissionView) bool { return sub.ID == id })
		if s.SelectedID == id {
			s.SelectedID = ""
			if len(s.Submissions) > 0 {
				s.SelectedID = s.Submissions[0].ID
			}
		}
	})
	if err != nil {
		c.logger.WarnContext(ctx, "delete submission failed", "submission_id", id, "error", err)
	}
	return err
}

// ExportSelected renders the selected submission as a PDF.
func (c *Controller) ExportSelected(ctx context.Context) (client.Document, error) {
	token := c.sessions.AccessToken()
	if token == "" {
		return client.Document{}, ErrNotSignedIn
	}
	gen := c.generation()
	var id string
	var busy bool
	c.update(gen, func(s *State) {
		id = s.SelectedID
		if id == "" {
			return
		}
		if s.Exporting {
			busy = true
			return
		}
		s.Exporting = true
		s.Error = ""
	})
	if busy {
		return client.Document{}, ErrBusy
	}
	if id == "" {
		return client.Document{}, ErrUnknownSubmission
	}

	doc, err := c.api(token).ExportPDF(ctx, id)

	c.update(gen, func(s *State) {
		s.Exporting = false
		if err != nil {
			s.Error = message(err, MsgExportFailed)
		}
	})
	if err != nil {
		c.logger.WarnContext(ctx, "export submission failed", "submission_id", id, "error", err)
		return client.Document{}, err
	}
	return doc, nil
}

// DismissError clears the banner.
func (c *Controller) DismissError() {
	c.update(c.generation(), func(s *State) {
		s.Error = ""
	})
}

// RequestPasswordRecovery sends a recovery email.
func (c *Controller) RequestPasswordRecovery(ctx context.Context, email string) error {
	gen := c.generation()
	var busy bool
	c.update(gen, func(s *State) {
		if s.Recovering {
			busy = true
			return
		}
		s.Recovering = true
		s.Error, s.Notice = "", ""
	})
	if busy {
		return ErrBusy
	}

	err := c.sessions.RecoverPassword(ctx, email, c.redirectTo)

	c.update(gen, func(s *State) {
		s.Recovering = false
		if err != nil {
			s.Error = message(err, MsgRecoveryFailed)
			return
		}
		s.Notice = MsgRecoverySent
	})
	return err
}

// ResetPassword sets a new password with the recovery session.
func (c *Controller) ResetPassword(ctx context.Context, password, confirm string) error {
	gen := c.generation()
	var busy bool
	c.update(gen, func(s *State) {
		if s.Resetting {
			busy = true
			return
		}
		s.Resetting = true
		s.Error, s.Notice = "", ""
	})
	if busy {
		return ErrBusy
	}

	err := c.sessions.UpdatePassword(ctx, password, confirm)

	c.update(gen, func(s *State) {
		s.Resetting = false
		if err != nil {
			s.Error = message(err, MsgResetFailed)
			return
		}
		s.Notice = MsgPasswordChanged
	})
	return err
}

// message picks the text for the banner: the service's own message when it
// sent one, otherwise fallback.
func message(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var idErr *identity.Error
	if errors.As(err, &idErr) && idErr.Message != "" {
		return idErr.Message
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return fallback
}
