package main

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/greenledger/internal/config"
	"github.com/smallbiznis/greenledger/internal/migration"
	"github.com/smallbiznis/greenledger/internal/observability"
	"github.com/smallbiznis/greenledger/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const oneShotTimeout = 2 * time.Minute

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.NopLogger,
				config.Module,
				observability.Module,
				db.Module,
				migration.Module,
			)
			if err := runOnce(cmd.Context(), app); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// runOnce starts an fx app so its invokes and start hooks run, then stops it.
func runOnce(ctx context.Context, app *fx.App) error {
	if err := app.Err(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	startCtx, cancel := context.WithTimeout(ctx, oneShotTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancelStop()
	return app.Stop(stopCtx)
}
