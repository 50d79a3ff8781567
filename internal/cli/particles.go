package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
	"github.com/matzehuels/overlaybx/pkg/eventio"
	"github.com/matzehuels/overlaybx/pkg/particleviz"
)

// particlesOpts holds the flags of the particles command.
type particlesOpts struct {
	event      int
	collection string
	output     string
	detailed   bool
}

// particlesCommand renders the particle relation graph of one event.
func (c *CLI) particlesCommand() *cobra.Command {
	opts := particlesOpts{collection: "MCParticle"}

	cmd := &cobra.Command{
		Use:   "particles <file>",
		Short: "Render the particle graph of one event",
		Long: `Render the particle graph of one event as DOT, SVG or PNG.

The output format follows the extension of -o. Without -o, DOT is written
to stdout. Particles that produced tracker hits are highlighted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runParticles(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.event, "event", 0, "event number (default first event)")
	cmd.Flags().StringVar(&opts.collection, "collection", opts.collection, "particle collection name")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.dot, .svg, .png)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show momentum, charge and status")
	return cmd
}

func (c *CLI) runParticles(ctx context.Context, path string, opts particlesOpts) error {
	evt, err := findEvent(ctx, path, opts.event)
	if err != nil {
		return err
	}
	pc, ok := evt.Particles(opts.collection)
	if !ok {
		return errors.New(errors.ErrCodeCollectionNotFound, "event %d has no particle collection %q", evt.EventNumber, opts.collection)
	}
	c.Logger.Debug("rendering particles", "event", evt.EventNumber, "particles", pc.Len())

	dot := particleviz.ToDOT(pc, particleviz.Options{
		Detailed:  opts.detailed,
		HitCounts: particleviz.HitCounts(evt),
	})
	if opts.output == "" {
		fmt.Print(dot)
		return nil
	}

	var data []byte
	switch ext := strings.ToLower(filepath.Ext(opts.output)); ext {
	case ".dot", ".gv":
		data = []byte(dot)
	case ".svg", ".png":
		sp := startSpinner(ctx, "Laying out particle graph...")
		if ext == ".svg" {
			data, err = particleviz.RenderSVG(ctx, dot)
		} else {
			data, err = particleviz.RenderPNG(ctx, dot)
		}
		sp.Stop()
		if err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported output format %q", ext)
	}

	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("Rendered %d particles of event %d", pc.Len(), evt.EventNumber)
	printFile(opts.output)
	return nil
}

// findEvent returns the event with the given number, or the first event if
// number is zero.
func findEvent(ctx context.Context, path string, number int) (*event.Event, error) {
	r, err := eventio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for {
		evt, err := r.ReadNext(ctx)
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if number == 0 || evt.EventNumber == number {
			return evt, nil
		}
	}
	if number == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "%s holds no events", path)
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "event %d not found in %s", number, path)
}
