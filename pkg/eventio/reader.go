package eventio

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/overlaybx/pkg/errors"
	"github.com/matzehuels/overlaybx/pkg/event"
)

// Reader reads events sequentially from a file or stream.
type Reader struct {
	dec     *json.Decoder
	version int
	closers []io.Closer
}

// Open opens the event file at path, choosing the decompressor from its
// extension. The file header is read and checked immediately.
func Open(path string) (*Reader, error) {
	f, err := os.Open(filepath.Clean(path))
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "event file %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open event file: %w", err)
	}

	r, dc, err := decompress(bufio.NewReader(f), CompressionFor(path))
	if err != nil {
		f.Close()
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "%s", path)
	}
	rd, err := newReader(r)
	if err != nil {
		dc.Close()
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rd.closers = []io.Closer{dc, f}
	return rd, nil
}

// NewReader reads an uncompressed event stream from r.
func NewReader(r io.Reader) (*Reader, error) {
	return newReader(r)
}

func newReader(r io.Reader) (*Reader, error) {
	dec := json.NewDecoder(r)
	var h fileHeader
	if err := dec.Decode(&h); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "empty event file")
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read header")
	}
	if h.Format != FormatName {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "not an event file (format %q)", h.Format)
	}
	if h.Version < MinFormatVersion || h.Version > FormatVersion {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"event format version %d not supported (need %d..%d)", h.Version, MinFormatVersion, FormatVersion)
	}
	return &Reader{dec: dec, version: h.Version}, nil
}

// Version returns the format version from the file header.
func (r *Reader) Version() int { return r.version }

// ReadNext returns the next event, or io.EOF at the end of the stream.
func (r *Reader) ReadNext(ctx context.Context) (*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ej eventJSON
	if err := r.dec.Decode(&ej); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode event")
	}
	return decodeEvent(ej)
}

// Close releases the decompressor and the underlying file.
func (r *Reader) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return stderrors.Join(errs...)
}

// ReadAll reads every event of the file at path.
func ReadAll(ctx context.Context, path string) ([]*event.Event, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var events []*event.Event
	for {
		e, err := r.ReadNext(ctx)
		if stderrors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
}
