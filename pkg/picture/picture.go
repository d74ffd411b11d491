package picture

import (
	"github.com/pkg/errors"
)

var ErrGeometry = errors.New("plane geometry does not match 4:2:0")

// Picture is a planar image. Plane 0 is luma, planes 1 and 2 are Cb and Cr.
// Samples are stored row-major with no padding between rows.
type Picture struct {
	Width  int
	Height int
	Planes [][]uint16
}

// ChromaSize returns the dimensions of a 4:2:0 chroma plane for the given
// luma dimensions.
func ChromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// NewYUV420 assembles a picture from three planes with their own sizes. The
// samples are used as-is; the chroma planes must already be subsampled.
func NewYUV420(width, height int, y []uint16, cbWidth, cbHeight int, cb []uint16, crWidth, crHeight int, cr []uint16) (*Picture, error) {
	cw, ch := ChromaSize(width, height)
	if len(y) != width*height {
		return nil, errors.Wrapf(ErrGeometry, "luma has %d samples for %dx%d", len(y), width, height)
	}
	if cbWidth != cw || cbHeight != ch || len(cb) != cw*ch {
		return nil, errors.Wrapf(ErrGeometry, "cb plane is %dx%d, want %dx%d", cbWidth, cbHeight, cw, ch)
	}
	if crWidth != cw || crHeight != ch || len(cr) != cw*ch {
		return nil, errors.Wrapf(ErrGeometry, "cr plane is %dx%d, want %dx%d", crWidth, crHeight, cw, ch)
	}

	return &Picture{
		Width:  width,
		Height: height,
		Planes: [][]uint16{y, cb, cr},
	}, nil
}

// PlaneSize returns the dimensions of plane i.
func (p *Picture) PlaneSize(i int) (int, int) {
	if i == 0 {
		return p.Width, p.Height
	}
	return ChromaSize(p.Width, p.Height)
}
