package eventio

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
)

// sampleEvent builds an event with a small particle tree, tracker hits
// pointing into it and a calorimeter collection.
func sampleEvent(number int) *event.Event {
	e := event.New(3, number)
	e.SetParameter("origin", "test")

	mother := &event.MCParticle{PDG: 23, Mass: 91.19, Momentum: [3]float64{0, 0, 1}}
	mu1 := &event.MCParticle{PDG: 13, Charge: -1}
	mu2 := &event.MCParticle{PDG: -13, Charge: 1}
	mother.AddChild(mu1)
	mother.AddChild(mu2)
	_ = e.AddCollection("MCParticle", &event.Particles{Particles: []*event.MCParticle{mother, mu1, mu2}})

	_ = e.AddCollection("VXDCollection", &event.TrackerHits{Hits: []*event.SimTrackerHit{
		{CellID: event.EncodeCellID(1, 7), Position: [3]float64{15.9, 0.1, -3}, EDep: 1e-5, MCParticle: mu1},
		{CellID: event.EncodeCellID(4, 2), Position: [3]float64{39, 1, 20}, MCParticle: mu2},
		{CellID: event.EncodeCellID(6, 0), Position: [3]float64{60, 0, 0}},
	}})

	_ = e.AddCollection("BeamCal", &event.CalorimeterHits{Hits: []*event.SimCalorimeterHit{
		{CellID0: 11, Energy: 0.5, Contributions: []event.Contribution{{Particle: mother, Energy: 0.5, PDG: 23}}},
	}})
	return e
}

func roundTrip(t *testing.T, path string, events ...*event.Event) []*event.Event {
	t.Helper()
	if err := WriteAll(path, events); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	got, err := ReadAll(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return got
}

func TestRoundTrip(t *testing.T) {
	for _, ext := range []string{".jsonl", ".zst", ".evz", ".sz"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events"+ext)
			got := roundTrip(t, path, sampleEvent(1), sampleEvent(2))
			if len(got) != 2 {
				t.Fatalf("read %d events, want 2", len(got))
			}

			e := got[1]
			if e.RunNumber != 3 || e.EventNumber != 2 {
				t.Errorf("header = %d/%d, want 3/2", e.RunNumber, e.EventNumber)
			}
			if e.Parameters["origin"] != "test" {
				t.Errorf("parameters = %v", e.Parameters)
			}
			names := strings.Join(e.CollectionNames(), ",")
			if names != "MCParticle,VXDCollection,BeamCal" {
				t.Errorf("collection order = %s", names)
			}

			pc, ok := e.Particles("MCParticle")
			if !ok || pc.Len() != 3 {
				t.Fatalf("particles missing")
			}
			if err := pc.Validate(); err != nil {
				t.Errorf("particle graph invalid after round trip: %v", err)
			}
			mother := pc.Particles[0]
			if len(mother.Children) != 2 || mother.Children[0] != pc.Particles[1] {
				t.Error("particle relations not restored")
			}

			th, _ := e.TrackerHits("VXDCollection")
			if th.Len() != 3 {
				t.Fatalf("tracker hits = %d, want 3", th.Len())
			}
			if th.Hits[0].MCParticle != pc.Particles[1] || th.Hits[1].MCParticle != pc.Particles[2] {
				t.Error("hit particle references not restored")
			}
			if th.Hits[2].MCParticle != nil {
				t.Error("nil particle reference not preserved")
			}
			if th.Hits[1].Layer() != 4 {
				t.Errorf("layer = %d, want 4", th.Hits[1].Layer())
			}

			c, _ := e.Collection("BeamCal")
			calo := c.(*event.CalorimeterHits)
			if calo.Hits[0].Contributions[0].Particle != mother {
				t.Error("calorimeter contribution reference not restored")
			}
		})
	}
}

func TestCompressionFor(t *testing.T) {
	tests := map[string]Compression{
		"a.evz":   CompressionZstd,
		"a.ZST":   CompressionZstd,
		"a.sz":    CompressionSnappy,
		"a.jsonl": CompressionNone,
		"a":       CompressionNone,
	}
	for path, want := range tests {
		if got := CompressionFor(path); got != want {
			t.Errorf("CompressionFor(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestForeignParticleReferenceWrittenAsNull(t *testing.T) {
	e := event.New(1, 1)
	outside := &event.MCParticle{PDG: 22}
	_ = e.AddCollection("hits", &event.TrackerHits{Hits: []*event.SimTrackerHit{{CellID: 1, MCParticle: outside}}})

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(e); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"mc":null`) {
		t.Errorf("expected null reference, got %s", buf.String())
	}
}

func TestReaderHeaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"empty", "", errors.ErrCodeInvalidFormat},
		{"garbage", "not json", errors.ErrCodeInvalidFormat},
		{"wrong format", `{"format":"other","version":2}`, errors.ErrCodeInvalidFormat},
		{"old version", `{"format":"overlaybx-events","version":1}`, errors.ErrCodeUnsupported},
		{"future version", `{"format":"overlaybx-events","version":99}`, errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tt.input))
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestReaderBadEvents(t *testing.T) {
	header := `{"format":"overlaybx-events","version":2}` + "\n"
	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `{"run":1,"event":1,"collections":[{"name":"x","type":"Vertex"}]}`},
		{"dangling hit ref", `{"run":1,"event":1,"collections":[{"name":"h","type":"SimTrackerHit","tracker_hits":[{"cell_id":1,"pos":[0,0,0],"p":[0,0,0],"mc":{"c":"MCParticle","i":0}}]}]}`},
		{"child out of range", `{"run":1,"event":1,"collections":[{"name":"p","type":"MCParticle","particles":[{"pdg":1,"vertex":[0,0,0],"endpoint":[0,0,0],"p":[0,0,0],"children":[5]}]}]}`},
		{"duplicate collection", `{"run":1,"event":1,"collections":[{"name":"a","type":"SimTrackerHit"},{"name":"a","type":"SimTrackerHit"}]}`},
		{"truncated", `{"run":1,"event":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(strings.NewReader(header + tt.body))
			if err != nil {
				t.Fatal(err)
			}
			_, err = r.ReadNext(context.Background())
			if !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Errorf("err = %v, want INVALID_FORMAT", err)
			}
		})
	}
}

func TestReadNextEOF(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf)
	_ = w.Write(sampleEvent(1))

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadNext(context.Background()); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if _, err := r.ReadNext(context.Background()); !stderrors.Is(err, io.EOF) {
		t.Errorf("second read err = %v, want io.EOF", err)
	}
}

func TestReadNextCanceled(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf)
	_ = w.Write(sampleEvent(1))
	r, _ := NewReader(&buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.ReadNext(ctx); !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFileOpener(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bg.evz")
	if err := WriteAll(path, []*event.Event{sampleEvent(1)}); err != nil {
		t.Fatal(err)
	}

	s, err := FileOpener{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, err := s.ReadNext(context.Background()); err != nil {
		t.Errorf("ReadNext: %v", err)
	}

	if _, err := (FileOpener{}).Open(context.Background(), filepath.Join(dir, "missing.evz")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file err = %v, want FILE_NOT_FOUND", err)
	}

	old := filepath.Join(dir, "old.jsonl")
	if err := os.WriteFile(old, []byte(`{"format":"overlaybx-events","version":1}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (FileOpener{}).Open(context.Background(), old); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("old file err = %v, want UNSUPPORTED", err)
	}
}
