package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/bioslogtriage/internal/contract"
	"github.com/hejijunhao/bioslogtriage/internal/rulepack"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <report.json>",
		Short: "Check a report against the output contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}
			if err := contract.ValidateJSON(data); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
			return nil
		},
	}
}

func newRulepacksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rulepacks",
		Short: "List the built-in rulepacks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := rulepack.Builtins()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tRULES\tDESCRIPTION")
			for _, info := range infos {
				name := info.Name
				if name == rulepack.Default {
					name += " (default)"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", name, info.Rules, info.Description)
			}
			return w.Flush()
		},
	}
}
