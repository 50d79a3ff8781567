package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/eventgen"
	"github.com/matzehuels/overlaybx/pkg/eventio"
	"github.com/matzehuels/overlaybx/pkg/geometry"
)

// generateOpts holds the flags of the generate command.
type generateOpts struct {
	output   string
	geometry string
	events   int
	layers   int
	gen      eventgen.Options
}

// generateCommand writes a file of synthetic events, usable both as primary
// input and as background.
func (c *CLI) generateCommand() *cobra.Command {
	opts := generateOpts{events: 10, gen: eventgen.DefaultOptions()}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a file of synthetic events",
		Example: `  overlaybx generate -o pairs.evz --events 1000 --hits-per-layer 20 --seed 7
  overlaybx generate -o signal.jsonl --events 10 --particles 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.evz/.zst zstd, .sz snappy, otherwise plain)")
	cmd.Flags().StringVarP(&opts.geometry, "geometry", "g", "", "geometry YAML (default built-in)")
	cmd.Flags().IntVar(&opts.events, "events", opts.events, "number of events")
	cmd.Flags().IntVar(&opts.layers, "layers", 0, "use only the first N layers of the geometry")
	cmd.Flags().IntVar(&opts.gen.HitsPerLayer, "hits-per-layer", opts.gen.HitsPerLayer, "tracker hits per layer and event")
	cmd.Flags().IntVar(&opts.gen.Particles, "particles", opts.gen.Particles, "particles per event")
	cmd.Flags().Uint64Var(&opts.gen.Seed, "seed", opts.gen.Seed, "random seed")
	cmd.Flags().IntVar(&opts.gen.Run, "run", opts.gen.Run, "run number")
	cmd.Flags().StringVar(&opts.gen.ParticleCollection, "particle-collection", opts.gen.ParticleCollection, "particle collection name")
	cmd.Flags().StringVar(&opts.gen.LayeredCollection, "hit-collection", opts.gen.LayeredCollection, "tracker hit collection name")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (c *CLI) runGenerate(opts generateOpts) error {
	if opts.events < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "number of events must not be negative, got %d", opts.events)
	}

	layout := geometry.DefaultLayout()
	if opts.geometry != "" {
		var err error
		if layout, err = geometry.LoadLayout(opts.geometry); err != nil {
			return err
		}
	}
	if opts.layers > 0 && opts.layers < len(layout.LayerLayout) {
		layout.LayerLayout = layout.LayerLayout[:opts.layers]
	}

	gen, err := eventgen.New(layout, opts.gen)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	w, err := eventio.Create(opts.output)
	if err != nil {
		return err
	}
	for range opts.events {
		if err := w.Write(gen.Next()); err != nil {
			_ = w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	prog.done("Generated events")

	printSuccess("Wrote %d events (%s)", w.Count(), eventio.CompressionFor(opts.output))
	printFile(opts.output)
	return nil
}
