package verify

import (
	"fmt"
	"io"

	"github.com/Glimesh/conform/pkg/picture"
	"github.com/pkg/errors"
)

var ErrSourceUnreadable = errors.New("could not read h264 source")

// sourceError keeps the opener's error in the chain next to
// ErrSourceUnreadable.
type sourceError struct {
	err error
}

func (e *sourceError) Error() string {
	return ErrSourceUnreadable.Error() + ": " + e.err.Error()
}

func (e *sourceError) Is(target error) bool {
	return target == ErrSourceUnreadable
}

func (e *sourceError) Unwrap() error {
	return e.err
}

// Decoder yields decoded pictures in decode order and io.EOF once the
// stream holds no more pictures.
type Decoder interface {
	NextPicture() (*picture.Picture, error)
}

// Opener builds a decoder chain on top of src. Everything the chain reads
// while being constructed becomes the parameter set prefix.
type Opener func(src io.Reader) (Decoder, error)

// References returns the reference picture for a frame index, or an error
// wrapping reference.ErrReferenceExhausted once the sequence has ended.
type References interface {
	Load(index int) (*picture.Picture, error)
}

// lookaheader is implemented by decoders that know how many bytes of the
// following access unit they consumed to finish the current one.
type lookaheader interface {
	Lookahead() int
}

type State int

const (
	StateInit State = iota
	StateRunning
	StateReferenceExhausted
	StateDecoderExhausted
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateReferenceExhausted:
		return "reference exhausted"
	case StateDecoderExhausted:
		return "decoder exhausted"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Result int

const (
	Equals Result = iota
	Differs
	Skipped
)

func (r Result) String() string {
	switch r {
	case Equals:
		return "EQUALS"
	case Differs:
		return "DIFFERS"
	}
	return "SKIPPED"
}

type ExtractMode int

const (
	// ExtractAll writes a fragment for every decoded frame.
	ExtractAll ExtractMode = iota
	// ExtractDiffers writes fragments only for frames that differ.
	ExtractDiffers
)

func ParseExtractMode(s string) (ExtractMode, error) {
	switch s {
	case "", "all":
		return ExtractAll, nil
	case "differs":
		return ExtractDiffers, nil
	}
	return 0, errors.Errorf("unknown extract mode %q", s)
}

type Options struct {
	// FragmentDir receives frame<i>.264 files. Empty disables extraction.
	FragmentDir string
	Extract     ExtractMode
	// DiffMaps writes diff<i>.ppm next to the fragments for differing frames.
	DiffMaps bool
	// ProbeWidth is the number of trailing span bytes dropped from a
	// fragment when the decoder does not report its own lookahead. It is
	// used as given; 0 keeps the whole span.
	ProbeWidth int
	// TrustLookahead uses the decoder's reported lookahead when available.
	TrustLookahead bool
}

type Summary struct {
	Frames    int
	Equal     int
	Differ    int
	Skipped   int
	Extracted int
	Reason    State
}

func (s Summary) String() string {
	return fmt.Sprintf("%d processed, %d equal, %d differ, %d skipped (%s)", s.Frames, s.Equal, s.Differ, s.Skipped, s.Reason)
}
