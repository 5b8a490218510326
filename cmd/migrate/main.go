package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"intakedesk/internal/platform/postgres/migrate"
)

// migrate applies the embedded schema migrations to DATABASE_URL.
func main() {
	v := viper.New()
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "migrate [up|down]",
		Short:         "Apply or roll back the intake schema",
		Args:          cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:     []string{"up", "down"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrate.Run(v.GetString("DATABASE_URL"), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations %s: done\n", args[0])
			return nil
		},
	}
	root.Flags().String("database-url", "", "Postgres DSN (default $DATABASE_URL)")
	_ = v.BindPFlag("DATABASE_URL", root.Flags().Lookup("database-url"))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
