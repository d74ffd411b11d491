// Package disk writes triage artifacts: standalone per-frame elementary
// streams and diff maps.
package disk

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// DefaultProbeWidth is the size of the start code the demuxer reads past the
// end of an access unit before it can return it.
const DefaultProbeWidth = 4

var ErrInvariantViolation = errors.New("frame span shorter than probe width")

// Extract returns prefix followed by span without its trailing probe bytes,
// which belong to the following access unit.
func Extract(prefix, span []byte, probe int) ([]byte, error) {
	if probe < 0 || len(span) < probe {
		return nil, errors.Wrapf(ErrInvariantViolation, "span of %d bytes, probe of %d", len(span), probe)
	}

	out := make([]byte, 0, len(prefix)+len(span)-probe)
	out = append(out, prefix...)
	out = append(out, span[:len(span)-probe]...)
	return out, nil
}

// WriteFragment writes the standalone stream for one frame to path.
func WriteFragment(path string, prefix, span []byte, probe int) (err error) {
	fragment, err := Extract(prefix, span, probe)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	_, err = f.Write(fragment)
	return err
}

// FragmentPath names the fragment for frame index inside dir.
func FragmentPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("frame%d.264", index))
}

// DiffMapPath names the diff map for frame index inside dir.
func DiffMapPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("diff%d.ppm", index))
}
