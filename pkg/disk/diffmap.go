package disk

import (
	"image"
	"image/color"
	"os"

	"github.com/Glimesh/conform/pkg/picture"
	"github.com/lmittmann/ppm"
	"go.uber.org/multierr"
)

var (
	lumaDiff   = color.RGBA{R: 0xff, A: 0xff}
	chromaDiff = color.RGBA{R: 0xff, B: 0xff, A: 0xff}
)

// DiffMap renders the luma of ref darkened, with samples that differ in got
// painted red (luma) or magenta (chroma only).
func DiffMap(ref, got *picture.Picture) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, ref.Width, ref.Height))
	cw, _ := picture.ChromaSize(ref.Width, ref.Height)

	sample := func(p *picture.Picture, plane, i int) (uint16, bool) {
		if plane >= len(p.Planes) || i >= len(p.Planes[plane]) {
			return 0, false
		}
		return p.Planes[plane][i], true
	}
	differs := func(plane, i int) bool {
		a, okA := sample(ref, plane, i)
		b, okB := sample(got, plane, i)
		return !okA || !okB || a != b
	}

	for y := 0; y < ref.Height; y++ {
		for x := 0; x < ref.Width; x++ {
			i := y*ref.Width + x
			ci := (y/2)*cw + x/2

			switch {
			case differs(0, i):
				img.SetRGBA(x, y, lumaDiff)
			case differs(1, ci) || differs(2, ci):
				img.SetRGBA(x, y, chromaDiff)
			default:
				v, _ := sample(ref, 0, i)
				g := uint8(v >> 2)
				if v > 0xff {
					g = 0x3f
				}
				img.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 0xff})
			}
		}
	}

	return img
}

// WriteDiffMap stores DiffMap(ref, got) as a PPM image at path.
func WriteDiffMap(path string, ref, got *picture.Picture) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	return ppm.Encode(f, DiffMap(ref, got))
}
