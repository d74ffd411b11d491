// Package verify drives a decoder over an elementary stream and checks every
// decoded picture against the reference decoder's output.
package verify

import (
	"fmt"
	"io"

	"github.com/Glimesh/conform/pkg/disk"
	"github.com/Glimesh/conform/pkg/picture"
	"github.com/Glimesh/conform/pkg/pocket"
	"github.com/Glimesh/conform/pkg/reference"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Verifier struct {
	log  logrus.FieldLogger
	out  io.Writer
	refs References
	open Opener
	opts Options

	state  State
	pocket *pocket.Buffer
	dec    Decoder
	prefix []byte
	sum    Summary
}

// New returns a Verifier that prints one line per frame to out.
func New(refs References, open Opener, opts Options, out io.Writer, log logrus.FieldLogger) *Verifier {
	return &Verifier{
		log:   log.WithField("app", "verify"),
		out:   out,
		refs:  refs,
		open:  open,
		opts:  opts,
		state: StateInit,
	}
}

func (v *Verifier) State() State {
	return v.state
}

// Run verifies src until either the decoder or the reference sequence runs
// out. Only a failure to set up the decoder chain or a decoding error is
// returned; per-frame problems are logged and counted as skipped.
func (v *Verifier) Run(src io.Reader) (Summary, error) {
	if v.state != StateInit {
		return v.sum, errors.New("verifier already ran")
	}
	if err := v.init(src); err != nil {
		v.state = StateDone
		return v.sum, err
	}
	if c, ok := v.dec.(io.Closer); ok {
		defer c.Close()
	}

	for index := 0; v.state == StateRunning; index++ {
		if err := v.step(index); err != nil {
			v.state = StateDone
			return v.sum, err
		}
	}

	v.sum.Reason = v.state
	v.state = StateDone
	fmt.Fprintf(v.out, "Finished reading frames: %s\n", v.sum)
	v.log.WithField("reason", v.sum.Reason.String()).Infof("verified %d frames", v.sum.Frames)

	return v.sum, nil
}

// init builds the decoder chain and captures what it consumed as the
// parameter set prefix. This is the only checkpoint not tied to a picture.
func (v *Verifier) init(src io.Reader) error {
	v.pocket = pocket.New(src)

	dec, err := v.open(v.pocket)
	if err != nil {
		return &sourceError{err: err}
	}
	v.dec = dec
	v.prefix = v.pocket.Checkpoint()
	v.log.Debugf("parameter set prefix is %d bytes", len(v.prefix))

	v.state = StateRunning
	return nil
}

func (v *Verifier) step(index int) error {
	log := v.log.WithField("frame", index)

	ref, refErr := v.refs.Load(index)
	if errors.Is(refErr, reference.ErrReferenceExhausted) {
		log.Debug("no more reference frames")
		v.state = StateReferenceExhausted
		return nil
	}

	frame, err := v.dec.NextPicture()
	if err == io.EOF {
		log.Debug("no more decoded pictures")
		v.state = StateDecoderExhausted
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "decode frame %d", index)
	}

	// every decoded picture owns exactly one span, even when the
	// comparison below is skipped
	span := v.pocket.Checkpoint()
	v.sum.Frames++

	result := Skipped
	if refErr != nil {
		log.WithError(refErr).Warn("could not load reference frame, skipping comparison")
	} else if m, differs := picture.FirstMismatch(ref, frame); differs {
		log.Infof("first mismatch at %s", m)
		result = Differs
	} else {
		result = Equals
	}

	switch result {
	case Equals:
		v.sum.Equal++
	case Differs:
		v.sum.Differ++
	default:
		v.sum.Skipped++
	}
	fmt.Fprintf(v.out, "Frame %d -- %s\n", index, result)

	if v.opts.FragmentDir == "" {
		return nil
	}
	if v.opts.Extract == ExtractAll || result == Differs {
		v.extract(index, span, log)
	}
	if v.opts.DiffMaps && result == Differs {
		path := disk.DiffMapPath(v.opts.FragmentDir, index)
		if err := disk.WriteDiffMap(path, ref, frame); err != nil {
			log.WithError(err).Warn("could not write diff map")
		}
	}

	return nil
}

func (v *Verifier) extract(index int, span []byte, log logrus.FieldLogger) {
	probe := v.opts.ProbeWidth
	if la, ok := v.dec.(lookaheader); ok && v.opts.TrustLookahead {
		probe = la.Lookahead()
	}

	path := disk.FragmentPath(v.opts.FragmentDir, index)
	err := disk.WriteFragment(path, v.prefix, span, probe)
	if errors.Is(err, disk.ErrInvariantViolation) {
		log.WithError(err).Errorf("frame span of %d bytes cannot be extracted", len(span))
		return
	}
	if err != nil {
		log.WithError(err).Warn("could not write fragment")
		return
	}
	v.sum.Extracted++

	info, err := disk.Inspect(path)
	if err != nil {
		log.WithError(err).Warn("written fragment does not look decodable")
		return
	}
	log.Debugf("wrote %s: %d nals, idr=%t", path, info.NALs, info.IDR)
}
