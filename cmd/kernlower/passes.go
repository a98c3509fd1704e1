package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kernlower/internal/lower"
)

var passesCmd = &cobra.Command{
	Use:   "passes",
	Short: "List the passes usable with \"kernlower run\"",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		width := 0
		all := lower.Passes()
		for _, p := range all {
			width = max(width, len(p.Name))
		}
		for _, p := range all {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-*s  %s\n", width, p.Name, p.Summary); err != nil {
				return err
			}
		}
		return nil
	},
}
