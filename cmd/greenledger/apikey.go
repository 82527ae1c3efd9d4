package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/greenledger/internal/apikey"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	"github.com/smallbiznis/greenledger/internal/audit"
	"github.com/smallbiznis/greenledger/internal/clock"
	"github.com/smallbiznis/greenledger/internal/config"
	"github.com/smallbiznis/greenledger/internal/observability"
	"github.com/smallbiznis/greenledger/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type apiKeyCreateFlags struct {
	company string
	role    string
	name    string
}

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage company API keys",
	}
	cmd.AddCommand(newAPIKeyCreateCmd())
	return cmd
}

func newAPIKeyCreateCmd() *cobra.Command {
	f := &apiKeyCreateFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key for a company and print the secret once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID, err := snowflake.ParseString(strings.TrimSpace(f.company))
			if err != nil || companyID == 0 {
				return errors.New("--company must be a company id")
			}

			var secret *apikeydomain.SecretResponse
			app := fx.New(
				fx.NopLogger,
				config.Module,
				observability.Module,
				fx.Provide(RegisterSnowflake),
				db.Module,
				clock.Module,
				audit.Module,
				apikey.Module,
				fx.Invoke(func(svc apikeydomain.Service) error {
					resp, err := svc.CreateForCompany(context.Background(), companyID, apikeydomain.CreateRequest{
						Name: f.name,
						Role: f.role,
					})
					secret = resp
					return err
				}),
			)
			if err := runOnce(cmd.Context(), app); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(secret)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.company, "company", "", "Company ID")
	flags.StringVar(&f.role, "role", apikeydomain.RoleViewer, "Role: owner, admin, analyst or viewer")
	flags.StringVar(&f.name, "name", "cli", "Key name")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}
