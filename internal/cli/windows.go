package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/overlaybx/pkg/geometry"
)

// windowsCommand prints the overlay window of every vertex detector layer.
func (c *CLI) windowsCommand() *cobra.Command {
	var steering steeringFlags

	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Print the per-layer overlay windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, geo, err := steering.load(c.Logger)
			if err != nil {
				return err
			}
			windows, err := geometry.ComputeWindows(geo, cfg.LayerReadoutTimes, cfg.BunchCrossingTime, c.Logger)
			if err != nil {
				return err
			}
			printWindows(windows, cfg.BunchCrossingTime)
			return nil
		},
	}

	steering.register(cmd)
	return cmd
}

func printWindows(w geometry.WindowTable, bxPeriod float64) {
	printTitle("Overlay windows")
	printKeyValue("bx period", fmt.Sprintf("%g ns", bxPeriod*1e9))
	printKeyValue("max depth", fmt.Sprint(w.MaxDepth()))
	printNewline()

	t := table{header: []string{"layer", "readout µs", "bx", "ladders", "width mm", "area mm2"}}
	for _, l := range w.Layers {
		t.add(l.LayerID, l.ReadoutTime, l.OverlayDepth, l.LadderCount, l.SensorWidth, l.TotalArea())
	}
	fmt.Print(t.String())
}
