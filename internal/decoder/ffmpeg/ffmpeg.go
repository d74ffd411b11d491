// Package ffmpeg decodes an elementary stream with an external ffmpeg
// process and pairs every decoded frame with the access unit it came from.
//
// ffmpeg reads the file on its own. The access units are demuxed from the
// reader handed to the Opener so the caller can account for the bytes of each
// picture. Streams must use one slice per picture and no frame reordering,
// otherwise the pairing drifts.
package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/Glimesh/conform/pkg/h264"
	"github.com/Glimesh/conform/pkg/picture"
	"github.com/Glimesh/conform/pkg/verify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var ErrFFmpegNotFound = errors.New("ffmpeg not found")

type Decoder struct {
	log    logrus.FieldLogger
	demux  *h264.Demuxer
	frames io.ReadCloser
	width  int
	height int
	pics   int

	cancel context.CancelFunc
	done   chan error
	stderr *bytes.Buffer
}

// Opener returns a verify.Opener that decodes the file at path.
func Opener(ctx context.Context, path, bin string, log logrus.FieldLogger) verify.Opener {
	return func(src io.Reader) (verify.Decoder, error) {
		return New(ctx, path, bin, src, log)
	}
}

// New reads the stream's parameter sets from src and starts ffmpeg on path.
func New(ctx context.Context, path, bin string, src io.Reader, log logrus.FieldLogger) (*Decoder, error) {
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, errors.Wrap(ErrFFmpegNotFound, err.Error())
	}

	demux := h264.NewDemuxer(src)
	ps, err := demux.ReadParameterSets()
	if err != nil {
		return nil, err
	}
	width, height, err := h264.Dimensions(ps.SPS[0])
	if err != nil {
		return nil, err
	}
	log = log.WithField("app", "ffmpeg")
	log.Debugf("stream is %dx%d, %d sps, %d pps", width, height, len(ps.SPS), len(ps.PPS))

	args := ffmpeg.Input(path, ffmpeg.KwArgs{"f": "h264", "loglevel": "error"}).
		Output("pipe:", ffmpeg.KwArgs{"f": "rawvideo", "pix_fmt": "yuv420p", "vsync": "passthrough"}).
		GetArgs()
	log.Debugf("running %s %s", resolved, strings.Join(args, " "))

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	stderr := &bytes.Buffer{}
	// Stream.Compile always runs "ffmpeg" from PATH
	cmd := exec.CommandContext(ctx, resolved, args...)
	cmd.Stdout = pw
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, errors.Wrap(err, "start ffmpeg")
	}

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		// a nil error turns into io.EOF for the reader
		pw.CloseWithError(err)
		done <- err
	}()

	d := newDecoder(demux, pr, width, height, log)
	d.cancel = cancel
	d.done = done
	d.stderr = stderr
	return d, nil
}

func newDecoder(demux *h264.Demuxer, frames io.ReadCloser, width, height int, log logrus.FieldLogger) *Decoder {
	return &Decoder{
		log:    log,
		demux:  demux,
		frames: frames,
		width:  width,
		height: height,
	}
}

// NextPicture consumes one access unit and returns the matching frame.
func (d *Decoder) NextPicture() (*picture.Picture, error) {
	if _, err := d.demux.NextAccessUnit(); err != nil {
		return nil, err
	}

	pic, err := readFrame(d.frames, d.width, d.height)
	if err == io.EOF {
		d.log.Warnf("ffmpeg stopped after %d pictures while access units remain", d.pics)
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read decoded picture %d", d.pics)
	}
	d.pics++

	return pic, nil
}

// Lookahead is the start code width read past the last access unit.
func (d *Decoder) Lookahead() int {
	return d.demux.Lookahead()
}

func (d *Decoder) Close() error {
	d.frames.Close()
	if d.cancel == nil {
		return nil
	}
	d.cancel()
	err := <-d.done
	if err != nil && d.stderr.Len() > 0 {
		d.log.Debugf("ffmpeg: %s", bytes.TrimSpace(d.stderr.Bytes()))
	}
	// killed by cancel, or stopped early because nobody reads its output
	return nil
}

// readFrame reads one planar yuv420p frame with 8 bit samples.
func readFrame(r io.Reader, width, height int) (*picture.Picture, error) {
	cw, ch := picture.ChromaSize(width, height)
	buf := make([]byte, width*height+2*cw*ch)

	_, err := io.ReadFull(r, buf)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, "truncated frame")
	}

	planes := make([][]uint16, 3)
	sizes := []int{width * height, cw * ch, cw * ch}
	for i, off := 0, 0; i < 3; i++ {
		planes[i] = make([]uint16, sizes[i])
		for j, v := range buf[off : off+sizes[i]] {
			planes[i][j] = uint16(v)
		}
		off += sizes[i]
	}

	return &picture.Picture{Width: width, Height: height, Planes: planes}, nil
}
