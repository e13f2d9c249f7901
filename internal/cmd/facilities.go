package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ELBIXishere/aidd/internal/pipeline"
	"github.com/ELBIXishere/aidd/internal/types"
	"github.com/ELBIXishere/aidd/internal/wfs"
)

var facilitiesCmd = &cobra.Command{
	Use:   "facilities <minx,miny,maxx,maxy>",
	Short: "Fetch and preprocess the facilities of a bounding box",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		parts := strings.Split(args[0], ",")
		if len(parts) != 4 {
			return fmt.Errorf("bbox must be \"minx,miny,maxx,maxy\", got %q", args[0])
		}
		vals := make([]float64, 4)
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return fmt.Errorf("parse bbox: %w", err)
			}
			vals[i] = v
		}
		bbox := types.BoundingBox{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}

		fetcher := wfs.NewClient(cfg, wfs.WithLogger(logger))
		engine := pipeline.NewEngine(cfg, fetcher, pipeline.WithLogger(logger))

		topo, err := engine.Facilities(cmd.Context(), bbox)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"bbox":   bbox.String(),
			"counts": topo.FilteredCounts,
		})
	},
}

func init() {
	rootCmd.AddCommand(facilitiesCmd)
}
