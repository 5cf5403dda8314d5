package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pipeforge/internal/settings"
)

// newReportCommand builds the `report` subcommand: it re-renders the
// previous run's action/stage report tables without touching the network
// or re-walking the pipeline.
func newReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Re-render the last run's status report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadPersistedReport()
			if err != nil {
				return fmt.Errorf("no previous report found: %w", err)
			}
			actions, stages := settings.Render(b)
			fmt.Println(actions)
			fmt.Println(stages)
			return nil
		},
	}
}
