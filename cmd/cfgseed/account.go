package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/cfgseed/internal/client"
	"github.com/alfredjeanlab/cfgseed/internal/ui"
)

var accountCmd = &cobra.Command{
	Use:     "account",
	Short:   "Create and inspect accounts",
	GroupID: "accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an account and seed its default model configs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		superAdmin, _ := cmd.Flags().GetBool("super-admin")
		skip, _ := cmd.Flags().GetBool("skip-defaults")

		resp, err := apiClient.CreateAccount(cmd.Context(), &client.CreateAccountRequest{
			Username:     args[0],
			SuperAdmin:   superAdmin,
			SkipDefaults: skip,
			Actor:        actor,
		})
		if err != nil {
			return fmt.Errorf("creating account: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, resp)
		}
		printAccount(out, resp.Account)
		if skip {
			fmt.Fprintln(out, ui.RenderMuted("Default configs skipped"))
		} else {
			fmt.Fprintf(out, "Seeded:      %s\n", ui.RenderOK(fmt.Sprintf("%d configs", resp.Copied)))
		}
		return nil
	},
}

var accountShowCmd = &cobra.Command{
	Use:   "show <account-id>",
	Short: "Show an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acct, err := apiClient.GetAccount(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("getting account: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), acct)
		}
		printAccount(cmd.OutOrStdout(), acct)
		return nil
	},
}

var accountInitCmd = &cobra.Command{
	Use:   "init <account-id>",
	Short: "Copy the template owner's eligible configs to an existing account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.InitializeDefaultConfigs(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("initializing default configs: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]string{"account_id": args[0], "status": "initialized"})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized default configs for %s\n", args[0])
		return nil
	},
}

func init() {
	accountCreateCmd.Flags().Bool("super-admin", false, "create the account as a super-admin")
	accountCreateCmd.Flags().Bool("skip-defaults", false, "do not seed default model configs")

	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountShowCmd)
	accountCmd.AddCommand(accountInitCmd)
}
