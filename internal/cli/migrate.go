package cli

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/app"
	"github.com/spf13/cobra"
)

// NewMigrateCommand создаёт команду управления схемой БД
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(newMigrateSubcommand("up", "Apply all pending migrations", func(ctx context.Context, mg *app.Migrator) error {
		return mg.Up(ctx)
	}))
	cmd.AddCommand(newMigrateSubcommand("status", "Show applied and pending migrations", func(ctx context.Context, mg *app.Migrator) error {
		return mg.Status(ctx)
	}))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			return migrator(cmd.Context(), e, func(ctx context.Context, mg *app.Migrator) error {
				version, err := mg.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			})
		},
	})

	return cmd
}

func newMigrateSubcommand(use, short string, apply func(ctx context.Context, mg *app.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			return migrator(cmd.Context(), e, apply)
		},
	}
}
