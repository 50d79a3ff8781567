package eventio

import (
	"bufio"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/overlaybx/pkg/event"
)

// Writer writes events to a file or stream.
type Writer struct {
	enc   *json.Encoder
	count int
	flush []func() error
}

// Create creates the event file at path, choosing the compressor from its
// extension, and writes the header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("create event file: %w", err)
	}
	bw := bufio.NewWriter(f)
	cw, err := compress(bw, CompressionFor(path))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	w, err := newWriter(cw)
	if err != nil {
		cw.Close()
		f.Close()
		return nil, err
	}
	// Compressor first, then buffered bytes, then the file.
	w.flush = []func() error{cw.Close, bw.Flush, f.Close}
	return w, nil
}

// NewWriter writes an uncompressed event stream to w. Close does not close w.
func NewWriter(w io.Writer) (*Writer, error) {
	return newWriter(w)
}

func newWriter(w io.Writer) (*Writer, error) {
	enc := json.NewEncoder(w)
	if err := enc.Encode(fileHeader{Format: FormatName, Version: FormatVersion}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// Write appends one event.
func (w *Writer) Write(e *event.Event) error {
	if err := w.enc.Encode(encodeEvent(e)); err != nil {
		return fmt.Errorf("write event %d: %w", e.EventNumber, err)
	}
	w.count++
	return nil
}

// Count returns the number of events written.
func (w *Writer) Count() int { return w.count }

// Close flushes and closes the file.
func (w *Writer) Close() error {
	var errs []error
	for _, f := range w.flush {
		if err := f(); err != nil {
			errs = append(errs, err)
		}
	}
	w.flush = nil
	return stderrors.Join(errs...)
}

// WriteAll writes events to a new file at path.
func WriteAll(path string, events []*event.Event) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	for _, e := range events {
		if err := w.Write(e); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
