// Package reference loads reference decoder output stored as one PGM file
// per plane.
package reference

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Glimesh/conform/pkg/pgm"
	"github.com/Glimesh/conform/pkg/picture"
	"github.com/pkg/errors"
)

// ErrReferenceExhausted means the reference triplet for a frame index does
// not exist. It marks the normal end of the reference sequence.
var ErrReferenceExhausted = errors.New("reference frames exhausted")

// Naming builds plane file names as Prefix + index + suffix,
// e.g. ref_d12cb.pgm.
type Naming struct {
	Prefix     string
	LumaSuffix string
	CbSuffix   string
	CrSuffix   string
}

var DefaultNaming = Naming{
	Prefix:     "ref_d",
	LumaSuffix: "y.pgm",
	CbSuffix:   "cb.pgm",
	CrSuffix:   "cr.pgm",
}

func (n Naming) Files(index int) (y, cb, cr string) {
	base := n.Prefix + strconv.Itoa(index)
	return base + n.LumaSuffix, base + n.CbSuffix, base + n.CrSuffix
}

type Loader struct {
	Dir    string
	Naming Naming
}

func NewLoader(dir string, naming Naming) *Loader {
	return &Loader{Dir: dir, Naming: naming}
}

// Load reads the reference picture for frame index.
func (l *Loader) Load(index int) (*picture.Picture, error) {
	y, cb, cr := l.Naming.Files(index)
	return LoadFiles(filepath.Join(l.Dir, y), filepath.Join(l.Dir, cb), filepath.Join(l.Dir, cr))
}

// LoadFiles combines three graymaps into one 4:2:0 picture. Chroma samples
// are passed through at their stored resolution.
func LoadFiles(yFile, cbFile, crFile string) (*picture.Picture, error) {
	luma, err := readPlane(yFile)
	if err != nil {
		return nil, err
	}
	cb, err := readPlane(cbFile)
	if err != nil {
		return nil, err
	}
	cr, err := readPlane(crFile)
	if err != nil {
		return nil, err
	}

	pic, err := picture.NewYUV420(luma.Width, luma.Height, luma.Pix, cb.Width, cb.Height, cb.Pix, cr.Width, cr.Height, cr.Pix)
	if err != nil {
		return nil, errors.Wrap(err, filepath.Base(yFile))
	}
	return pic, nil
}

func readPlane(name string) (*pgm.Image, error) {
	f, err := os.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(ErrReferenceExhausted, err.Error())
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := pgm.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return img, nil
}
