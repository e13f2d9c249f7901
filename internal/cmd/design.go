package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/ELBIXishere/aidd/internal/eps"
	"github.com/ELBIXishere/aidd/internal/pipeline"
	"github.com/ELBIXishere/aidd/internal/types"
	"github.com/ELBIXishere/aidd/internal/wfs"
)

var (
	designPhase string
	designLoad  float64
)

var designCmd = &cobra.Command{
	Use:   "design <x,y>",
	Short: "Run one design request and print the ranked routes as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		parts := strings.Split(args[0], ",")
		if len(parts) != 2 {
			return fmt.Errorf("coordinate must be \"x,y\", got %q", args[0])
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return fmt.Errorf("parse x: %w", err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return fmt.Errorf("parse y: %w", err)
		}

		phase, err := types.ParsePhaseClass(designPhase)
		if err != nil {
			return err
		}

		fetcher := wfs.NewClient(cfg, wfs.WithLogger(logger))
		tracer := eps.New(cfg.EPSURL, cfg.HTTPTimeout)
		engine := pipeline.NewEngine(cfg, fetcher,
			pipeline.WithFeederTracer(tracer),
			pipeline.WithLogger(logger),
		)

		resp := engine.Run(cmd.Context(), pipeline.Request{
			Consumer: orb.Point{x, y},
			Phase:    phase,
			LoadKW:   designLoad,
		})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	designCmd.Flags().StringVar(&designPhase, "phase", "single", "Phase class (single, three)")
	designCmd.Flags().Float64Var(&designLoad, "load-kw", 5.0, "Requested load in kW")
	rootCmd.AddCommand(designCmd)
}
