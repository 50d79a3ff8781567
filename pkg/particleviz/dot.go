// Package particleviz renders the particle relation graph of an event.
//
// [ToDOT] writes a Graphviz digraph with one node per particle and one edge
// per parent-child link. [RenderSVG] and [RenderPNG] lay the graph out with
// an embedded Graphviz.
package particleviz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/overlaybx/pkg/event"
)

// Options configures particle graph rendering.
type Options struct {
	// Detailed adds momentum, charge and status to node labels.
	Detailed bool

	// HitCounts annotates particles with the number of tracker hits they
	// produced. Particles with hits are filled.
	HitCounts map[*event.MCParticle]int
}

// HitCounts counts the tracker hits per particle over every tracker hit
// collection of evt.
func HitCounts(evt *event.Event) map[*event.MCParticle]int {
	counts := make(map[*event.MCParticle]int)
	for _, name := range evt.CollectionNames() {
		th, ok := evt.TrackerHits(name)
		if !ok {
			continue
		}
		for _, h := range th.Hits {
			if h.MCParticle != nil {
				counts[h.MCParticle]++
			}
		}
	}
	return counts
}

// ToDOT converts a particle collection to Graphviz DOT. Links to particles
// outside the collection are drawn to a dashed placeholder node.
func ToDOT(pc *event.Particles, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph particles {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	idx := pc.Index()
	for i, p := range pc.Particles {
		attrs := []string{fmt.Sprintf("label=%q", label(p, opts))}
		if opts.HitCounts[p] > 0 {
			attrs = append(attrs, "fillcolor=lightblue")
		}
		fmt.Fprintf(&buf, "  p%d [%s];\n", i, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	dangling := false
	for i, p := range pc.Particles {
		for _, c := range p.Children {
			if j, ok := idx[c]; ok {
				fmt.Fprintf(&buf, "  p%d -> p%d;\n", i, j)
			} else {
				fmt.Fprintf(&buf, "  p%d -> outside [style=dashed];\n", i)
				dangling = true
			}
		}
	}
	if dangling {
		buf.WriteString("  outside [label=\"?\", shape=point, style=dashed];\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

func label(p *event.MCParticle, opts Options) string {
	parts := []string{Name(p.PDG)}
	if n := opts.HitCounts[p]; n > 0 {
		parts = append(parts, fmt.Sprintf("hits: %d", n))
	}
	if opts.Detailed {
		parts = append(parts,
			fmt.Sprintf("p: (%.3g, %.3g, %.3g)", p.Momentum[0], p.Momentum[1], p.Momentum[2]),
			fmt.Sprintf("q: %g", p.Charge),
			fmt.Sprintf("status: %d/%d", p.GeneratorStatus, p.SimulatorStatus))
	}
	return strings.Join(parts, "\n")
}

var names = map[int32]string{
	11:    "e-",
	-11:   "e+",
	13:    "mu-",
	-13:   "mu+",
	22:    "gamma",
	23:    "Z0",
	111:   "pi0",
	211:   "pi+",
	-211:  "pi-",
	2112:  "n",
	2212:  "p",
	-2212: "pbar",
}

// Name returns a short particle name for a PDG code, or the code itself.
func Name(pdg int32) string {
	if n, ok := names[pdg]; ok {
		return n
	}
	return fmt.Sprintf("pdg %d", pdg)
}

// RenderSVG lays out a DOT graph and returns SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.SVG)
}

// RenderPNG lays out a DOT graph and returns PNG.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
