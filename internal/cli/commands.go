package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"intakedesk/internal/console"
	"intakedesk/internal/identity"
)

func (a *App) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as the admin and keep the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sessions, err := a.sessions()
			if err != nil {
				return err
			}
			prompt := newPrompter(cmd)
			if email == "" {
				if email, err = prompt.line("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt.line("Password: "); err != nil {
					return err
				}
			}

			c := a.console(sessions)
			c.Mount()
			defer c.Unmount()

			if err := c.Login(ctx, email, password); err != nil {
				if _, ok := sessions.Current(); !ok {
					return failure(c, err)
				}
				// Signed in but the list failed; keep the session anyway.
				a.logger.WarnContext(ctx, "dashboard failed to load after login", "error", err)
			}
			sess, _ := sessions.Current()
			if err := a.sessionFile().Save(sess); err != nil {
				return err
			}
			state := c.State()
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s. %d submission(s).\n", state.Email, len(state.Submissions))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password (prompted when omitted)")
	return cmd
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the admin session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			file := a.sessionFile()
			sess, ok, err := file.Load()
			if err != nil {
				return err
			}
			if ok {
				sessions, err := a.sessions()
				if err != nil {
					return err
				}
				sessions.Adopt(sess, identity.EventSignedIn)
				if err := a.console(sessions).Logout(ctx); err != nil {
					a.logger.WarnContext(ctx, "remote sign-out failed", "error", err)
				}
			}
			if err := file.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (a *App) recoverCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Email a password recovery link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := a.sessions()
			if err != nil {
				return err
			}
			c := a.console(sessions)
			c.Navigate(console.ViewPasswordRecovery)
			if err := c.RequestPasswordRecovery(cmd.Context(), email); err != nil {
				return failure(c, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.State().Notice)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	return cmd
}

func (a *App) resetPasswordCmd() *cobra.Command {
	var token, password, confirm string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with the token from a recovery link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := a.sessions()
			if err != nil {
				return err
			}
			prompt := newPrompter(cmd)
			if password == "" {
				if password, err = prompt.line("New password: "); err != nil {
					return err
				}
				if confirm, err = prompt.line("Confirm password: "); err != nil {
					return err
				}
			}
			sessions.Adopt(identity.Session{AccessToken: token}, identity.EventPasswordRecovery)

			c := a.console(sessions)
			if err := c.ResetPassword(cmd.Context(), password, confirm); err != nil {
				return failure(c, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.State().Notice)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token from the recovery link")
	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "new password again")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (a *App) listCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			write, err := listWriter(format)
			if err != nil {
				return err
			}
			return a.dashboard(cmd.Context(), func(c *console.Controller) error {
				return write(cmd.OutOrStdout(), c.State().Submissions)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, csv or json")
	return cmd
}

func (a *App) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return a.dashboard(cmd.Context(), func(c *console.Controller) error {
				if err := c.Select(id); err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				if !yes {
					ok, err := newPrompter(cmd).confirm(console.ConfirmDelete + " [y/N] ")
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
						return nil
					}
				}
				if err := c.DeleteSelected(cmd.Context()); err != nil {
					return failure(c, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (a *App) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Download a submission as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return a.dashboard(cmd.Context(), func(c *console.Controller) error {
				if err := c.Select(id); err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				doc, err := c.ExportSelected(cmd.Context())
				if err != nil {
					return failure(c, err)
				}
				if output == "-" {
					_, err := cmd.OutOrStdout().Write(doc.Data)
					return err
				}
				path := output
				if path == "" {
					path = doc.Filename
				}
				if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes).\n", path, len(doc.Data))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `file to write; "-" for stdout (default: the server's filename)`)
	return cmd
}

// prompter reads answers line by line from the command's input.
type prompter struct {
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{r: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) confirm(label string) (bool, error) {
	answer, err := p.line(label)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
