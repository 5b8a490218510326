// Package cli implements intakectl, the admin command line for the intake
// service.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"intakedesk/internal/console"
	"intakedesk/internal/identity"
	"intakedesk/internal/intake/client"
	"intakedesk/pkg/platform/sentinel"
)

// Config keys. Each is a persistent flag and an INTAKECTL_* variable.
const (
	keyServer           = "server"
	keyIdentityURL      = "identity-url"
	keyIdentityKey      = "identity-key"
	keySessionFile      = "session-file"
	keyRecoveryRedirect = "recovery-redirect"
	keyTimeout          = "timeout"
)

var errNotLoggedIn = errors.New("not logged in; run intakectl login")

// App carries what every command shares.
type App struct {
	v          *viper.Viper
	in         io.Reader
	out        io.Writer
	logger     *slog.Logger
	httpClient *http.Client
}

// Option configures an App.
type Option func(*App)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.in, a.out = in, out
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithHTTPClient replaces the client used for both services.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) {
		a.httpClient = hc
	}
}

// NewRootCommand builds the intakectl command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &App{
		v:      viper.New(),
		in:     os.Stdin,
		out:    os.Stdout,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "intakectl",
		Short: "Manage client intake submissions",
		Long: `intakectl talks to the intake service as an administrator.

Sign in once with "intakectl login"; the session is kept in --session-file
until it expires or you log out. Every flag can also be set through an
INTAKECTL_* environment variable, e.g. INTAKECTL_IDENTITY_URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)

	pf := root.PersistentFlags()
	pf.String(keyServer, "http://localhost:8080", "intake service base URL")
	pf.String(keyIdentityURL, "", "identity service base URL")
	pf.String(keyIdentityKey, "", "identity service public API key")
	pf.String(keySessionFile, defaultSessionFile(), "file holding the admin session between runs")
	pf.String(keyRecoveryRedirect, "", "page the password recovery link opens")
	pf.Duration(keyTimeout, 30*time.Second, "per-request timeout")
	_ = a.v.BindPFlags(pf)
	a.v.SetEnvPrefix("INTAKECTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.recoverCmd(),
		a.resetPasswordCmd(),
		a.listCmd(),
		a.deleteCmd(),
		a.exportCmd(),
		a.submitCmd(),
	)
	return root
}

// Execute runs intakectl and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".intakectl-session.json"
	}
	return filepath.Join(dir, "intakectl", "session.json")
}

func (a *App) transport() *http.Client {
	if a.httpClient != nil {
		return a.httpClient
	}
	return &http.Client{Timeout: a.v.GetDuration(keyTimeout)}
}

func (a *App) sessionFile() SessionFile {
	return SessionFile{Path: a.v.GetString(keySessionFile)}
}

func (a *App) sessions() (*identity.Sessions, error) {
	base := a.v.GetString(keyIdentityURL)
	if base == "" {
		return nil, errors.New("identity service URL is not set (--identity-url or INTAKECTL_IDENTITY_URL)")
	}
	idc := identity.NewClient(base, a.v.GetString(keyIdentityKey), identity.WithHTTPClient(a.transport()))
	return identity.NewSessions(idc, nil, a.logger), nil
}

func (a *App) intake() *client.Client {
	return client.New(a.v.GetString(keyServer), client.WithHTTPClient(a.transport()))
}

func (a *App) console(sessions *identity.Sessions) *console.Controller {
	base := a.intake()
	return console.New(sessions,
		func(token string) console.SubmissionAPI {
			return base.WithAuth(client.Auth{Bearer: token})
		},
		console.WithLogger(a.logger),
		console.WithRecoveryRedirect(a.v.GetString(keyRecoveryRedirect)),
	)
}

// dashboard restores the saved session, opens the dashboard and runs fn.
// A rejected session is forgotten so the next run asks for a login.
func (a *App) dashboard(ctx context.Context, fn func(*console.Controller) error) error {
	sessions, err := a.sessions()
	if err != nil {
		return err
	}
	file := a.sessionFile()
	sess, ok, err := file.Load()
	if err != nil {
		return err
	}
	if !ok {
		return errNotLoggedIn
	}
	sessions.Adopt(sess, identity.EventSignedIn)

	c := a.console(sessions)
	c.Mount()
	defer c.Unmount()

	if err := c.OpenDashboard(ctx); err != nil {
		if errors.Is(err, sentinel.ErrInvalidToken) {
			if clearErr := file.Clear(); clearErr != nil {
				a.logger.WarnContext(ctx, "failed to clear session file", "error", clearErr)
			}
			return fmt.Errorf("session rejected; run intakectl login: %w", err)
		}
		return failure(c, err)
	}
	return fn(c)
}

// failure prefixes err with the console banner.
func failure(c *console.Controller, err error) error {
	if banner := c.State().Error; banner != "" && banner != err.Error() {
		return fmt.Errorf("%s: %w", banner, err)
	}
	return err
}
