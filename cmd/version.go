package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/gantry/internal/version"
)

// CreateVersionCmd creates the version command.
func CreateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Banner("gantry"))
		},
	}
}
