package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sherine-k/parksim/pkg/chart"
	"github.com/sherine-k/parksim/pkg/config"
	"github.com/sherine-k/parksim/pkg/export"
	"github.com/sherine-k/parksim/pkg/logging"
	"github.com/sherine-k/parksim/pkg/simulation"
	"github.com/spf13/cobra"
)

type runOptions struct {
	configFile       string
	seed             int64
	ticks            int
	perfectArrivals  bool
	showTimeline     bool
	timelineLimit    int
	showEventSummary bool
	queueChart       string
	logLevel         string
	dbPath           string
	jsonOut          bool
}

// NewRootCmd builds the parksim command tree
func NewRootCmd() *cobra.Command {
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:   "parksim",
		Short: "Theme park day simulator",
		Long: `A CLI tool that simulates one day at a theme park.

This tool reads a park configuration with attractions, activities and visitor
profiles, simulates agents arriving, queueing, riding and using expedited
return passes, and prints charts and statistics for the day.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, opts)
		},
	}

	rootCmd.Flags().StringVarP(&opts.configFile, "config", "c", "park.yaml", "Path to configuration file")
	rootCmd.Flags().Int64Var(&opts.seed, "seed", 0, "Override the configured random seed")
	rootCmd.Flags().IntVar(&opts.ticks, "ticks", 0, "Number of ticks to run (0 runs until closing)")
	rootCmd.Flags().BoolVar(&opts.perfectArrivals, "perfect-arrivals", false, "Override the configured perfect arrivals setting")
	rootCmd.Flags().BoolVarP(&opts.showTimeline, "timeline", "t", false, "Show detailed timeline of events")
	rootCmd.Flags().IntVarP(&opts.timelineLimit, "timeline-limit", "l", 50, "Limit number of timeline events to display")
	rootCmd.Flags().BoolVarP(&opts.showEventSummary, "summary", "s", true, "Show event summary")
	rootCmd.Flags().StringVar(&opts.queueChart, "queue-chart", "", "Chart the queues of one attraction")
	rootCmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: info, debug or trace (overrides config)")
	rootCmd.Flags().StringVar(&opts.dbPath, "db", "", "Save the report to this SQLite database")
	rootCmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the report as JSON instead of charts")

	rootCmd.AddCommand(newValidateCmd())
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func runSimulation(cmd *cobra.Command, opts *runOptions) error {
	out := cmd.OutOrStdout()

	// Load configuration
	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("seed") {
		cfg.Park.Seed = opts.seed
	}
	if cmd.Flags().Changed("perfect-arrivals") {
		cfg.Park.PerfectArrivals = opts.perfectArrivals
	}
	if opts.logLevel != "" {
		if !logging.ValidLevel(opts.logLevel) {
			return fmt.Errorf("invalid log level: %s (valid: info, debug, trace)", opts.logLevel)
		}
		cfg.Logging.Level = opts.logLevel
	}
	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

	if !opts.jsonOut {
		printConfig(out, opts.configFile, cfg)
	}

	// Create and run the park
	park, err := simulation.NewPark(cfg, simulation.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to build park: %w", err)
	}
	report, err := park.Run(opts.ticks)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	if opts.dbPath != "" {
		db, err := export.Open(opts.dbPath, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		if err := db.SaveReport(report); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	// Generate and display charts
	chartGen := chart.NewGenerator()

	fmt.Fprintln(out, chartGen.GenerateAttendanceChart(report))
	if opts.queueChart != "" {
		fmt.Fprintln(out, chartGen.GenerateQueueChart(report, opts.queueChart))
	}
	fmt.Fprintln(out, chartGen.GenerateAttractionTable(report))

	// Display event summary
	if opts.showEventSummary {
		fmt.Fprintln(out, chartGen.GenerateEventSummary(report.Events))
	}

	// Display warnings
	fmt.Fprintln(out, chartGen.GenerateWarnings(report.Warnings()))

	// Display detailed timeline if requested
	if opts.showTimeline {
		fmt.Fprintln(out, chartGen.GenerateDetailedTimeline(report.Events, opts.timelineLimit, report.TickMinutes))
	}

	if opts.dbPath != "" {
		fmt.Fprintf(out, "Saved run %s to %s\n", report.RunID, opts.dbPath)
	}
	return nil
}

func printConfig(out io.Writer, path string, cfg *config.Config) {
	fmt.Fprintf(out, "Loaded configuration from %s\n", path)
	fmt.Fprintf(out, "  - Park: %s (%s-%s, %s ticks)\n", cfg.Park.Name, cfg.Park.Open, cfg.Park.Close, chart.FormatDuration(cfg.Park.TickLength))
	fmt.Fprintf(out, "  - Seed: %d\n", cfg.Park.Seed)
	fmt.Fprintf(out, "  - Daily Agents: %d (perfect arrivals: %t)\n", cfg.Park.TotalDailyAgents, cfg.Park.PerfectArrivals)
	fmt.Fprintf(out, "  - Attractions: %d\n", len(cfg.Attractions))
	fmt.Fprintf(out, "  - Activities: %d\n\n", len(cfg.Activities))
}
