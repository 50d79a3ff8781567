package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/overlaybx/pkg/diagnostics"
	"github.com/matzehuels/overlaybx/pkg/eventio"
	"github.com/matzehuels/overlaybx/pkg/geometry"
)

// checkCommand runs the hit diagnostics over an event file without
// overlaying anything.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		steering steeringFlags
		plots    string
	)

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Report per-layer hit counts and occupancy of an event file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), args[0], steering, plots)
		},
	}

	steering.register(cmd)
	cmd.Flags().StringVar(&plots, "plots", "", "write per-layer hit histograms to this directory")
	return cmd
}

func (c *CLI) runCheck(ctx context.Context, path string, steering steeringFlags, plots string) error {
	cfg, geo, err := steering.load(c.Logger)
	if err != nil {
		return err
	}
	windows, err := geometry.ComputeWindows(geo, cfg.LayerReadoutTimes, cfg.BunchCrossingTime, c.Logger)
	if err != nil {
		return err
	}

	r, err := eventio.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	prog := newProgress(c.Logger)
	diag := diagnostics.NewCollector(windows, cfg.VXDCollection, c.Logger)
	var missing, unlinked int
	for {
		evt, err := r.ReadNext(ctx)
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		st := diag.Observe(evt)
		if !st.Present {
			missing++
		}
		if st.Linked != st.Hits {
			unlinked++
		}
	}
	prog.done(fmt.Sprintf("Checked %d events", diag.Events()))

	printNewline()
	printTitle("Hit diagnostics")
	printKeyValue("collection", cfg.VXDCollection)
	printKeyValue("events", fmt.Sprint(diag.Events()))
	printNewline()
	t := table{header: []string{"layer", "bx", "mean hits", "stddev", "hits/mm2", "occupancy"}}
	for _, l := range diag.Summary() {
		t.add(l.LayerID, l.OverlayDepth, l.MeanHits, l.StdDevHits, l.HitsPerMM2, l.Occupancy)
	}
	fmt.Print(t.String())

	if missing > 0 {
		printWarning("%d events without %s", missing, cfg.VXDCollection)
	}
	if unlinked > 0 {
		printError("%d events with hits not linked to a particle", unlinked)
	}

	if plots != "" {
		paths, err := diag.WritePlots(plots)
		if err != nil {
			return err
		}
		printNewline()
		printInfo("Histograms")
		for _, p := range paths {
			printFile(p)
		}
	}
	return nil
}
