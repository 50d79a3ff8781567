package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/overlaybx/pkg/config"
	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
	"github.com/matzehuels/overlaybx/pkg/eventio"
	"github.com/matzehuels/overlaybx/pkg/overlay"
)

// runOpts holds the flags of the run command.
type runOpts struct {
	steering    steeringFlags
	background  []string
	output      string
	eventsPerBX int
	seed        uint64
	plots       string
	policy      string
}

// runCommand creates the run command, the host driver of an overlay run.
func (c *CLI) runCommand() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run <primary>",
		Short: "Overlay background bunch crossings onto a primary event file",
		Long: `Overlay background bunch crossings onto every event of a primary file.

Background events are drawn uniformly from the input files listed in the
steering file (or given with -b). Vertex detector hits are kept only for the
bunch crossings that fall inside the readout window of their layer.`,
		Example: `  overlaybx run signal.evz -c steering.toml -o overlaid.evz
  overlaybx run signal.evz -b pairs1.evz -b pairs2.evz --events-per-bx 2 --plots plots/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			return c.runOverlay(cmd.Context(), args[0], opts, overrides{
				eventsPerBX: flags.Changed("events-per-bx"),
				seed:        flags.Changed("seed"),
			})
		},
	}

	opts.steering.register(cmd)
	cmd.Flags().StringSliceVarP(&opts.background, "background", "b", nil, "background event files (overrides input_files)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write overlaid events to this file")
	cmd.Flags().IntVar(&opts.eventsPerBX, "events-per-bx", 0, "background events per bunch crossing")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed for background selection")
	cmd.Flags().StringVar(&opts.plots, "plots", "", "write per-layer hit histograms to this directory")
	cmd.Flags().StringVar(&opts.policy, "on-exhausted", "", "skip or fail when a background file yields nothing")

	return cmd
}

// overrides records which optional flags were set explicitly.
type overrides struct {
	eventsPerBX bool
	seed        bool
}

func (c *CLI) runOverlay(ctx context.Context, primary string, opts runOpts, set overrides) error {
	cfg, geo, err := opts.steering.load(c.Logger)
	if err != nil {
		return err
	}
	if len(opts.background) > 0 {
		cfg.InputFiles = opts.background
	}
	if set.eventsPerBX {
		cfg.EventsPerBX = opts.eventsPerBX
	}
	if set.seed {
		cfg.RandomSeed = opts.seed
	}
	if opts.plots != "" {
		cfg.PlotDir = opts.plots
	}
	if opts.policy != "" {
		cfg.ExhaustedPolicy = config.ExhaustedPolicy(opts.policy)
	}

	in, err := eventio.Open(primary)
	if err != nil {
		return err
	}
	defer in.Close()

	var out *eventio.Writer
	if opts.output != "" {
		if out, err = eventio.Create(opts.output); err != nil {
			return err
		}
	}

	proc := overlay.NewProcessor(cfg, geo, eventio.FileOpener{}, c.Logger)
	if err := proc.Init(ctx); err != nil {
		if out != nil {
			_ = out.Close()
		}
		return err
	}

	prog := newProgress(c.Logger)
	loopErr := c.eventLoop(ctx, in, out, proc)

	summary, endErr := proc.End()
	var closeErr error
	if out != nil {
		closeErr = out.Close()
	}
	if err := stderrors.Join(loopErr, endErr, closeErr); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Overlaid %d events", summary.Events))

	printSummary(summary)
	if out != nil {
		printNewline()
		printSuccess("Wrote %d events", out.Count())
		printFile(opts.output)
	}
	return nil
}

// eventLoop reads the primary file to its end, overlaying, checking and
// writing each event. Per-event read errors end the loop.
func (c *CLI) eventLoop(ctx context.Context, in *eventio.Reader, out *eventio.Writer, proc *overlay.Processor) error {
	run := -1
	for {
		evt, err := in.ReadNext(ctx)
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if evt.RunNumber != run {
			run = evt.RunNumber
			proc.ProcessRunHeader(&event.RunHeader{RunNumber: run})
		}

		if _, err := proc.ProcessEvent(ctx, evt); err != nil {
			if ctx.Err() != nil || errors.Is(err, errors.ErrCodeStreamExhausted) {
				return err
			}
			c.Logger.Error("overlay failed", "event", evt.EventNumber, "err", err)
		}
		proc.Check(evt)

		if out != nil {
			if err := out.Write(evt); err != nil {
				return err
			}
		}
	}
}

// =============================================================================
// Summary Output
// =============================================================================

func printSummary(s overlay.Summary) {
	printNewline()
	printTitle("Overlay summary")
	printKeyValue("run id", s.RunID)
	printKeyValue("events", fmt.Sprintf("%d (%d skipped)", s.Events, s.Skipped))
	printKeyValue("bunch xings", fmt.Sprint(s.Totals.BXs))
	printKeyValue("draws", fmt.Sprint(s.Totals.Draws))
	printCounts(
		"kept", s.Totals.Kept,
		"discarded", s.Totals.Discarded,
		"out of range", s.Totals.OutOfRange,
		"particles", s.Totals.ParticlesAppended,
		"links dropped", s.Totals.LinksDropped,
		"named", s.Totals.NamedAppended,
	)

	if len(s.Layers) > 0 {
		printNewline()
		t := table{header: []string{"layer", "bx", "events", "mean hits", "stddev", "hits/mm2", "occupancy"}}
		for _, l := range s.Layers {
			t.add(l.LayerID, l.OverlayDepth, l.Events, l.MeanHits, l.StdDevHits, l.HitsPerMM2, l.Occupancy)
		}
		fmt.Print(t.String())
	}

	if len(s.Streams) > 0 {
		printNewline()
		t := table{header: []string{"stream", "draws", "reopens", "exhausted"}}
		for _, st := range s.Streams {
			t.add(st.Location, st.Draws, st.Reopens, st.Exhausted)
		}
		fmt.Print(t.String())
	}

	if s.Totals.Exhausted > 0 {
		printWarning("%d background samples missing after stream exhaustion", s.Totals.Exhausted)
	}
	if s.Totals.ReadErrors > 0 {
		printWarning("%d background samples unreadable", s.Totals.ReadErrors)
	}

	if len(s.Plots) > 0 {
		printNewline()
		printInfo("Histograms")
		for _, p := range s.Plots {
			printFile(p)
		}
	}
}
