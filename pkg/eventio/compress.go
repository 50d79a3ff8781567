package eventio

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the compression of an event file.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionSnappy
)

func (c Compression) String() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionSnappy:
		return "snappy"
	}
	return "none"
}

// CompressionFor selects the compression from a file extension.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".evz":
		return CompressionZstd
	case ".sz":
		return CompressionSnappy
	}
	return CompressionNone
}

// decompress wraps r. The returned closer releases decoder resources and
// does not close r.
func decompress(r io.Reader, c Compression) (io.Reader, io.Closer, error) {
	switch c {
	case CompressionZstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(256<<20))
		if err != nil {
			return nil, nil, err
		}
		rc := dec.IOReadCloser()
		return rc, rc, nil
	case CompressionSnappy:
		return snappy.NewReader(r), nopCloser{}, nil
	}
	return r, nopCloser{}, nil
}

// compress wraps w. Closing the returned writer flushes the compressor but
// does not close w.
func compress(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionZstd:
		return zstd.NewWriter(w)
	case CompressionSnappy:
		return snappy.NewBufferedWriter(w), nil
	}
	return nopWriteCloser{w}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
