// Package pgm reads and writes single channel netpbm graymaps (P2 and P5).
// Samples are returned unscaled, whatever the maxval.
package pgm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

var ErrFormat = errors.New("not a valid pgm image")

// MaxSamples bounds width*height so a corrupt header cannot request an
// arbitrarily large raster. 8192x8192 fits.
const MaxSamples = 1 << 26

type Image struct {
	Width  int
	Height int
	MaxVal int
	Pix    []uint16
}

func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, 2)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, errors.Wrap(ErrFormat, err.Error())
	}
	plain := false
	switch string(magic) {
	case "P5":
	case "P2":
		plain = true
	default:
		return nil, errors.Wrapf(ErrFormat, "magic %q", magic)
	}

	var header [3]int
	for i := range header {
		v, err := readInt(br)
		if err != nil {
			return nil, err
		}
		header[i] = v
	}
	img := &Image{Width: header[0], Height: header[1], MaxVal: header[2]}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, errors.Wrapf(ErrFormat, "size %dx%d", img.Width, img.Height)
	}
	if img.Width*img.Height > MaxSamples {
		return nil, errors.Wrapf(ErrFormat, "size %dx%d too large", img.Width, img.Height)
	}
	if img.MaxVal <= 0 || img.MaxVal > 0xffff {
		return nil, errors.Wrapf(ErrFormat, "maxval %d", img.MaxVal)
	}

	img.Pix = make([]uint16, img.Width*img.Height)
	if plain {
		for i := range img.Pix {
			v, err := readInt(br)
			if err != nil {
				return nil, err
			}
			if v > img.MaxVal {
				return nil, errors.Wrapf(ErrFormat, "sample %d above maxval %d", v, img.MaxVal)
			}
			img.Pix[i] = uint16(v)
		}
		return img, nil
	}

	// readInt already consumed the single whitespace byte after maxval
	depth := 1
	if img.MaxVal > 0xff {
		depth = 2
	}
	raster := make([]byte, len(img.Pix)*depth)
	if _, err := io.ReadFull(br, raster); err != nil {
		return nil, errors.Wrap(ErrFormat, "short raster: "+err.Error())
	}
	for i := range img.Pix {
		if depth == 1 {
			img.Pix[i] = uint16(raster[i])
		} else {
			img.Pix[i] = uint16(raster[2*i])<<8 | uint16(raster[2*i+1])
		}
	}

	return img, nil
}

// readInt skips whitespace and comments and parses a decimal number.
func readInt(br *bufio.Reader) (int, error) {
	var c byte
	var err error
	for {
		c, err = br.ReadByte()
		if err != nil {
			return 0, errors.Wrap(ErrFormat, err.Error())
		}
		if c == '#' {
			if _, err := br.ReadString('\n'); err != nil {
				return 0, errors.Wrap(ErrFormat, err.Error())
			}
			continue
		}
		if !isSpace(c) {
			break
		}
	}

	if c < '0' || c > '9' {
		return 0, errors.Wrapf(ErrFormat, "unexpected byte %q", c)
	}
	v := 0
	for c >= '0' && c <= '9' {
		v = v*10 + int(c-'0')
		if v > 0xffffff {
			return 0, errors.Wrap(ErrFormat, "number too large")
		}
		c, err = br.ReadByte()
		if err == io.EOF {
			return v, nil
		}
		if err != nil {
			return 0, errors.Wrap(ErrFormat, err.Error())
		}
	}
	if !isSpace(c) {
		return 0, errors.Wrapf(ErrFormat, "unexpected byte %q", c)
	}

	return v, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// Encode writes img as a binary P5 graymap.
func Encode(w io.Writer, img *Image) error {
	if len(img.Pix) != img.Width*img.Height {
		return errors.Wrapf(ErrFormat, "%d samples for %dx%d", len(img.Pix), img.Width, img.Height)
	}
	maxVal := img.MaxVal
	if maxVal == 0 {
		maxVal = 0xff
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P5\n%d %d\n%d\n", img.Width, img.Height, maxVal); err != nil {
		return err
	}
	for _, v := range img.Pix {
		if int(v) > maxVal {
			return errors.Wrapf(ErrFormat, "sample %d above maxval %d", v, maxVal)
		}
		if maxVal > 0xff {
			bw.WriteByte(byte(v >> 8))
		}
		bw.WriteByte(byte(v))
	}

	return bw.Flush()
}
