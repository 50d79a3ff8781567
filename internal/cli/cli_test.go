package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
	"github.com/matzehuels/overlaybx/pkg/eventio"
	"github.com/matzehuels/overlaybx/pkg/overlay"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

// setup generates a two-layer background and primary file and a steering
// file with 1 µs and 0.5 µs readout, giving 3 and 1 bunch crossings.
func setup(t *testing.T) (dir, steering, primary string) {
	t.Helper()
	dir = t.TempDir()
	primary = filepath.Join(dir, "signal.jsonl")
	gen := func(out string, seed string) {
		if err := execute(t, "generate", "-o", out, "--events", "4", "--layers", "2",
			"--hits-per-layer", "2", "--particles", "4", "--seed", seed); err != nil {
			t.Fatalf("generate %s: %v", out, err)
		}
	}
	gen(filepath.Join(dir, "bg.evz"), "7")
	gen(primary, "1")

	steering = filepath.Join(dir, "steering.toml")
	toml := `input_files = ["bg.evz"]
events_per_bx = 1
vxd_layer_readout_times = [1.0, 0.5]
merge_collections = []
`
	if err := os.WriteFile(steering, []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, steering, primary
}

func TestRootCommand(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := []string{"check", "completion", "generate", "particles", "run", "windows"}
	var got []string
	for _, cmd := range root.Commands() {
		got = append(got, cmd.Name())
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("subcommands = %v, want %v", got, want)
	}
}

func TestRunCommand(t *testing.T) {
	dir, steering, primary := setup(t)
	out := filepath.Join(dir, "overlaid.sz")

	if err := execute(t, "run", primary, "-c", steering, "-o", out, "--plots", filepath.Join(dir, "plots")); err != nil {
		t.Fatalf("run: %v", err)
	}

	events, err := eventio.ReadAll(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	for _, e := range events {
		if e.Parameters[overlay.ParamBXs] != "3" {
			t.Errorf("event %d: bx parameter = %q", e.EventNumber, e.Parameters[overlay.ParamBXs])
		}
		// 4 primary hits, then 3×2 layer-1 hits and 1×2 layer-2 hits.
		th, ok := e.TrackerHits("VXDCollection")
		if !ok || th.Len() != 12 {
			t.Errorf("event %d: hits = %v", e.EventNumber, th)
		}
		pc, _ := e.Particles("MCParticle")
		if pc.Len() != 16 {
			t.Errorf("event %d: particles = %d, want 16", e.EventNumber, pc.Len())
		}
		if err := pc.Validate(); err != nil {
			t.Errorf("event %d: %v", e.EventNumber, err)
		}
	}

	for _, name := range []string{"hitsLayer1.png", "hitsLayer2.png"} {
		if !fileExists(filepath.Join(dir, "plots", name)) {
			t.Errorf("missing plot %s", name)
		}
	}
}

func TestRunCommandOverrides(t *testing.T) {
	dir, steering, primary := setup(t)
	out := filepath.Join(dir, "overlaid.jsonl")

	if err := execute(t, "run", primary, "-c", steering, "-o", out, "--events-per-bx", "0"); err != nil {
		t.Fatalf("run: %v", err)
	}
	events, err := eventio.ReadAll(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	th, _ := events[0].TrackerHits("VXDCollection")
	if th.Len() != 4 {
		t.Errorf("hits = %d, want primary hits only", th.Len())
	}
}

func TestRunCommandErrors(t *testing.T) {
	dir, steering, primary := setup(t)

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"missing steering", []string{"run", primary, "-c", filepath.Join(dir, "nope.toml")}, errors.ErrCodeFileNotFound},
		{"missing primary", []string{"run", filepath.Join(dir, "nope.evz"), "-c", steering}, errors.ErrCodeFileNotFound},
		{"missing background", []string{"run", primary, "-c", steering, "-b", filepath.Join(dir, "nope.evz")}, errors.ErrCodeFileNotFound},
		{"bad policy", []string{"run", primary, "-c", steering, "--on-exhausted", "retry"}, errors.ErrCodeInvalidConfig},
		{"missing geometry", []string{"run", primary, "-c", steering, "-g", filepath.Join(dir, "nope.yaml")}, errors.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := execute(t, tt.args...); !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestWindowsCommand(t *testing.T) {
	_, steering, _ := setup(t)
	if err := execute(t, "windows", "-c", steering); err != nil {
		t.Fatalf("windows: %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	dir, steering, primary := setup(t)
	plots := filepath.Join(dir, "check")
	if err := execute(t, "check", primary, "-c", steering, "--plots", plots); err != nil {
		t.Fatalf("check: %v", err)
	}
	if !fileExists(filepath.Join(plots, "hitsLayer1.png")) {
		t.Error("check did not write histograms")
	}
}

func TestGenerateCommandErrors(t *testing.T) {
	dir := t.TempDir()
	if err := execute(t, "generate"); err == nil {
		t.Error("generate without -o should fail")
	}
	if err := execute(t, "generate", "-o", filepath.Join(dir, "x.evz"), "--particles", "0"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestParticlesCommand(t *testing.T) {
	dir, _, primary := setup(t)

	out := filepath.Join(dir, "event2.dot")
	if err := execute(t, "particles", primary, "--event", "2", "-o", out); err != nil {
		t.Fatalf("particles: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("digraph particles {")) {
		t.Errorf("output is not DOT:\n%s", data)
	}

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"unknown format", []string{"particles", primary, "-o", filepath.Join(dir, "x.pdf")}, errors.ErrCodeUnsupported},
		{"unknown collection", []string{"particles", primary, "--collection", "nope", "-o", out}, errors.ErrCodeCollectionNotFound},
		{"unknown event", []string{"particles", primary, "--event", "99", "-o", out}, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := execute(t, tt.args...); !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestCompletionCommand(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"completion", "bash"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "overlaybx") {
		t.Error("completion script does not mention overlaybx")
	}
}

func TestTable(t *testing.T) {
	tb := table{header: []string{"layer", "mean"}}
	tb.add(1, 2.5)
	tb.add(12, 0.125)
	lines := strings.Split(strings.TrimSpace(tb.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("table has %d lines, want 3", len(lines))
	}
	if !strings.Contains(lines[2], "0.125") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestEventLoopChecksSkippedEvents(t *testing.T) {
	dir, steering, _ := setup(t)
	ctx := context.Background()

	withParticles := event.New(1, 1)
	_ = withParticles.AddCollection("MCParticle", &event.Particles{})
	primary := filepath.Join(dir, "mixed.jsonl")
	if err := eventio.WriteAll(primary, []*event.Event{withParticles, event.New(1, 2)}); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, LogInfo)
	flags := steeringFlags{config: steering}
	cfg, geo, err := flags.load(c.Logger)
	if err != nil {
		t.Fatal(err)
	}
	proc := overlay.NewProcessor(cfg, geo, eventio.FileOpener{}, c.Logger)
	if err := proc.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	in, err := eventio.Open(primary)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	if err := c.eventLoop(ctx, in, nil, proc); err != nil {
		t.Fatalf("eventLoop: %v", err)
	}

	sum, err := proc.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if sum.Events != 2 || sum.Skipped != 1 {
		t.Errorf("events = %d, skipped = %d", sum.Events, sum.Skipped)
	}
	if len(sum.Layers) != 2 {
		t.Fatalf("layers = %+v", sum.Layers)
	}
	for _, l := range sum.Layers {
		if l.Events != 2 {
			t.Errorf("layer %d: %d events in statistics, want 2", l.LayerID, l.Events)
		}
	}
}

func TestFormatError(t *testing.T) {
	base := errors.New(errors.ErrCodeInvalidFormat, "bad line %d", 3)
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", fmt.Errorf("open: %w", io.ErrUnexpectedEOF), "open: unexpected EOF"},
		{"coded", base, "bad line 3 [INVALID_FORMAT]"},
		{"wrapped", fmt.Errorf("signal.jsonl: %w", base), "signal.jsonl: bad line 3 [INVALID_FORMAT]"},
		{
			"with cause",
			errors.Wrap(errors.ErrCodeStreamRead, io.ErrUnexpectedEOF, "background bg.evz"),
			"background bg.evz: unexpected EOF [STREAM_READ]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatError(tt.err); got != tt.want {
				t.Errorf("FormatError() = %q, want %q", got, tt.want)
			}
		})
	}
}
