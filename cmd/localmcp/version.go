package main

import (
	"fmt"

	"github.com/localrivet/localmcp"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of localmcp",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "localmcp version %s\n", localmcp.Version)
		},
	}
}
