package cmd

import (
	"fmt"

	"github.com/sherine-k/parksim/pkg/config"
	"github.com/sherine-k/parksim/pkg/simulation"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a park configuration without running it",
		Long: `Validate a park configuration without running it.

This command checks:
  - Opening hours, tick length and hourly arrival percentages
  - Attraction capacity, expedited share and pass window schedules
  - Activity durations and unique names
  - Archetype distribution and profile overrides

Examples:
  parksim validate -c park.yaml`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			schedule, err := simulation.BuildSchedule(cfg.Park)
			if err != nil {
				return fmt.Errorf("%w: %v", config.ErrConfigurationInvalid, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s is valid\n", configFile)
			fmt.Fprintf(out, "  - %d ticks from %s to %s\n", schedule.Len(), cfg.Park.Open, cfg.Park.Close)
			fmt.Fprintf(out, "  - %d scheduled arrivals\n", schedule.Total())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "park.yaml", "Path to configuration file")
	return cmd
}
