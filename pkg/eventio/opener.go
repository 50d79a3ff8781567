package eventio

import (
	"context"

	"github.com/matzehuels/overlaybx/pkg/source"
)

// FileOpener opens event files as background streams.
type FileOpener struct{}

// Open implements source.Opener. Files with an unsupported format version
// fail with an UNSUPPORTED coded error.
func (FileOpener) Open(ctx context.Context, location string) (source.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := Open(location)
	if err != nil {
		return nil, err
	}
	return r, nil
}

var _ source.Opener = FileOpener{}
