package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configsCmd = &cobra.Command{
	Use:     "configs",
	Short:   "Inspect model configs",
	GroupID: "accounts",
}

var configsListCmd = &cobra.Command{
	Use:   "list <account-id>",
	Short: "List an account's model configs (sensitive settings blanked)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configs, err := apiClient.ListConfigs(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("listing configs: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), configs)
		}
		printConfigsTable(cmd.OutOrStdout(), configs)
		return nil
	},
}

func init() {
	configsCmd.AddCommand(configsListCmd)
}
