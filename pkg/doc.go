// Package pkg provides the libraries behind overlaybx, the bunch-crossing
// background overlay.
//
// # Overview
//
// A detector integrates several bunch crossings (BX) per readout. overlaybx
// models this by drawing background events from a pool of files and merging
// their records into each primary event. Vertex detector hits are merged per
// layer, only for as many bunch crossings as the readout window of the layer
// spans. The pkg directory is organized into three areas:
//
//  1. Domain - [event], [geometry], [merge], [overlay]
//  2. Data plumbing - [eventio], [source], [config]
//  3. Tooling - [diagnostics], [eventgen], [particleviz]
//
// # Architecture
//
// The data flow of an overlay run:
//
//	steering file (TOML) + geometry (YAML)
//	         ↓
//	    [geometry] package (per-layer overlay windows)
//	         ↓
//	    [source] package (uniform draws over background files)
//	         ↓
//	    [merge] package (layered, append and named merges)
//	         ↓
//	    [overlay] package (depth × repetition loop per event)
//	         ↓
//	    [diagnostics] package (hits per layer, occupancy, histograms)
//
// # Quick Start
//
// Run an overlay over a primary file:
//
//	cfg, _ := config.Load("steering.toml")
//	p := overlay.NewProcessor(cfg, geometry.DefaultLayout(), eventio.FileOpener{}, logger)
//	if err := p.Init(ctx); err != nil {
//	    return err
//	}
//	in, _ := eventio.Open("signal.evz")
//	for {
//	    evt, err := in.ReadNext(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    p.ProcessEvent(ctx, evt)
//	    p.Check(evt)
//	}
//	summary, _ := p.End()
//
// # Main Packages
//
// ## Domain
//
//   - [event]: Events, typed record collections and particle relations
//   - [geometry]: Layer layouts, ladder placement and overlay depths
//   - [merge]: Merge rules for tracker hits, calorimeter hits and particles
//   - [overlay]: Per-event overlay loop and the run lifecycle
//
// ## Data Plumbing
//
//   - [eventio]: Line-delimited JSON event files, optionally compressed
//   - [source]: Pool of background streams with reopen-at-end semantics
//   - [config]: Steering parameters and their validation
//
// ## Tooling
//
//   - [diagnostics]: Per-layer hit statistics and histograms
//   - [eventgen]: Synthetic events on the detector surface
//   - [particleviz]: Particle graph rendering
//
// ## Cross-cutting
//
//   - [errors]: Coded errors
//   - [observability]: Hooks for tracing overlay and stream events
//   - [buildinfo]: Version information
//
// [event]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/event
// [geometry]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/geometry
// [merge]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/merge
// [overlay]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/overlay
// [eventio]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/eventio
// [source]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/source
// [config]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/config
// [diagnostics]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/diagnostics
// [eventgen]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/eventgen
// [particleviz]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/particleviz
// [errors]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/overlaybx/pkg/buildinfo
package pkg
