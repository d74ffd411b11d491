// Package h264 splits Annex-B elementary streams into NAL units and access
// units without reading past the start code that ends each unit.
package h264

import (
	"io"

	mch264 "github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/pkg/errors"
)

var ErrNoParameterSets = errors.New("stream does not start with SPS and PPS")

// Demuxer reads one byte at a time so that an upstream byte counter sees
// exactly the bytes belonging to each returned unit plus the start code that
// terminated it. Do not put a buffered reader between the Demuxer and such a
// counter.
type Demuxer struct {
	r         io.ByteReader
	started   bool
	eof       bool
	lookahead int
}

func NewDemuxer(r io.Reader) *Demuxer {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReader{r: r}
	}
	return &Demuxer{r: br}
}

// Lookahead returns how many bytes of the next unit's start code were
// consumed to find the end of the last returned unit. It is 0 when the last
// unit ended at EOF.
func (d *Demuxer) Lookahead() int {
	return d.lookahead
}

// NextNAL returns the next NAL unit without its start code. It returns io.EOF
// when the stream holds no more units.
func (d *Demuxer) NextNAL() ([]byte, error) {
	if d.eof {
		return nil, io.EOF
	}
	if !d.started {
		if err := d.skipToStartCode(); err != nil {
			return nil, err
		}
		d.started = true
	}

	var nalu []byte
	zeros := 0
	for {
		c, err := d.r.ReadByte()
		if err == io.EOF {
			d.eof = true
			d.lookahead = 0
			// trailing_zero_8bits
			nalu = nalu[:len(nalu)-zeros]
			if len(nalu) == 0 {
				return nil, io.EOF
			}
			return nalu, nil
		}
		if err != nil {
			return nil, err
		}

		if c == 1 && zeros >= 2 {
			d.lookahead = zeros + 1
			nalu = nalu[:len(nalu)-zeros]
			if len(nalu) == 0 {
				// empty unit between two start codes
				zeros = 0
				continue
			}
			return nalu, nil
		}

		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
		nalu = append(nalu, c)
	}
}

func (d *Demuxer) skipToStartCode() error {
	zeros := 0
	for {
		c, err := d.r.ReadByte()
		if err == io.EOF {
			d.eof = true
			return io.EOF
		}
		if err != nil {
			return err
		}
		switch {
		case c == 1 && zeros >= 2:
			return nil
		case c == 0:
			zeros++
		default:
			zeros = 0
		}
	}
}

type ParameterSets struct {
	SPS [][]byte
	PPS [][]byte
}

// ReadParameterSets consumes NAL units until at least one SPS and one PPS have
// been read. A slice before that fails with ErrNoParameterSets.
func (d *Demuxer) ReadParameterSets() (*ParameterSets, error) {
	ps := &ParameterSets{}
	for len(ps.SPS) == 0 || len(ps.PPS) == 0 {
		nalu, err := d.NextNAL()
		if err == io.EOF {
			return nil, errors.Wrap(ErrNoParameterSets, "unexpected end of stream")
		}
		if err != nil {
			return nil, err
		}

		switch NALType(nalu) {
		case mch264.NALUTypeSPS:
			ps.SPS = append(ps.SPS, nalu)
		case mch264.NALUTypePPS:
			ps.PPS = append(ps.PPS, nalu)
		default:
			if IsSlice(nalu) {
				return nil, errors.Wrapf(ErrNoParameterSets, "got nal type %d first", NALType(nalu))
			}
		}
	}
	return ps, nil
}

// NextAccessUnit returns the NAL units up to and including the next slice.
// Pictures are expected to be coded as a single slice. A data partitioned
// slice ends at partition A; its B and C partitions start the next unit.
// Units left over at the end of the stream without a slice are dropped and
// io.EOF is returned.
func (d *Demuxer) NextAccessUnit() ([][]byte, error) {
	var au [][]byte
	for {
		nalu, err := d.NextNAL()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		au = append(au, nalu)
		if IsSlice(nalu) {
			return au, nil
		}
	}
}

type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	for {
		n, err := b.r.Read(b.buf[:])
		if n == 1 {
			return b.buf[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}
