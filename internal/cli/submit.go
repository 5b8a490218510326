package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"intakedesk/internal/intake/form"
	"intakedesk/internal/intake/models"
)

func (a *App) submitCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Send an intake form from a JSON draft",
		Long: `submit walks a JSON draft through the same four steps as the web form,
stopping at the first step that does not validate, then sends it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			draft, err := readDraft(cmd, file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			m := form.Restore(draft, form.FirstStep, form.SubmitterFunc(a.intake().Submit),
				form.WithLogger(a.logger),
				form.WithStepChangeHook(func(s form.Step) {
					fmt.Fprintf(out, "Step %d of %d: %s\n", s.Number(), form.StepCount, s.Title())
				}),
			)
			fmt.Fprintf(out, "Step %d of %d: %s\n", m.Step().Number(), form.StepCount, m.Step().Title())

			for m.Step() != form.LastStep {
				if err := m.Advance(); err != nil {
					return stepError(out, m, err)
				}
			}
			if err := m.Submit(cmd.Context()); err != nil {
				if errors.Is(err, form.ErrStepInvalid) {
					return stepError(out, m, err)
				}
				return fmt.Errorf("submission failed: %w", err)
			}
			fmt.Fprintln(out, "Submission Successful!")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", `JSON draft to send; "-" reads stdin`)
	return cmd
}

func readDraft(cmd *cobra.Command, file string) (models.Submission, error) {
	var r io.Reader = cmd.InOrStdin()
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return models.Submission{}, err
		}
		defer f.Close()
		r = f
	}
	draft := models.NewDraft()
	if err := json.NewDecoder(r).Decode(&draft); err != nil {
		return models.Submission{}, fmt.Errorf("decoding draft: %w", err)
	}
	return draft.Clone(), nil
}

// stepError prints the visible field errors of the current step.
func stepError(out io.Writer, m *form.Machine, err error) error {
	errs := m.VisibleErrors()
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	for _, field := range fields {
		fmt.Fprintf(out, "  %s: %s\n", field, errs[field])
	}
	return fmt.Errorf("step %d (%s) is incomplete: %s: %w",
		m.Step().Number(), m.Step().Title(), strings.Join(fields, ", "), err)
}
