package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at release-build time via -ldflags.
var version = "dev"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the " + appName + " version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(appName, version)
		},
	}
}
