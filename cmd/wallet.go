package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newWalletCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage wallet connection settings",
	}

	project := &cobra.Command{
		Use:   "project",
		Short: "Manage the WalletConnect project id",
	}
	project.AddCommand(
		newWalletProjectSetCmd(app),
		newWalletProjectShowCmd(app),
		newWalletProjectRemoveCmd(app),
	)

	cmd.AddCommand(project)

	return cmd
}

func newWalletProjectSetCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the project id in the secret store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.projects.SetProjectID(cmd.Context(), value)
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "WalletConnect project id")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newWalletProjectShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the configured project id, masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, err := app.projects.ProjectID(cmd.Context())
			if err != nil {
				return err
			}
			if projectID == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "not set")
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), maskSecret(projectID))
			return err
		},
	}
}

func newWalletProjectRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the project id from the secret store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.projects.RemoveProjectID(cmd.Context())
		},
	}
}

func maskSecret(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-4)
}
