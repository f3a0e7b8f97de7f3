package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"metric-insights/internal/app"
)

var simulateSeed bool

var simulateCmd = &cobra.Command{
	Use:   "simulate metric=value [metric=value ...]",
	Short: "Classify synthetic readings without touching the database",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		readings := make(map[string]float64, len(args))
		for _, arg := range args {
			name, raw, found := strings.Cut(arg, "=")
			if !found || name == "" {
				return fmt.Errorf("invalid reading %q, want metric=value", arg)
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid value in %q: %w", arg, err)
			}
			readings[name] = value
		}

		opts := app.SimulateOptions{
			Readings: readings,
			Seed:     simulateSeed,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simulateSeed, "seed", false, "Seed synthetic history so adaptive thresholds engage")
}
