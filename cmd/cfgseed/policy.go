package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/cfgseed/internal/policy"
	"github.com/alfredjeanlab/cfgseed/internal/ui"
)

var policyCmd = &cobra.Command{
	Use:     "policy",
	Short:   "Inspect and validate provisioning policies",
	GroupID: "policy",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the policy in effect on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := apiClient.GetPolicy(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting policy: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), p)
		}
		printPolicy(cmd.OutOrStdout(), p)
		return nil
	},
}

var policyCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a policy file, or print the built-in policy",
	Args:  cobra.MaximumNArgs(1),
	// Runs locally; no server connection.
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := policy.Default()
		if len(args) == 1 {
			loaded, err := policy.Load(args[0])
			if err != nil {
				return err
			}
			p = loaded
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), p)
		}
		printPolicy(cmd.OutOrStdout(), p)
		if len(args) == 1 {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s %s\n", ui.RenderOK("valid:"), args[0])
		}
		return nil
	},
}

func init() {
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyCheckCmd)
}
