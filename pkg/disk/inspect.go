package disk

import (
	"io"
	"os"

	"github.com/pion/webrtc/v3/pkg/media/h264reader"
	"github.com/pkg/errors"
)

var ErrIncompleteFragment = errors.New("fragment is missing parameter sets or a slice")

type FragmentInfo struct {
	NALs   int
	SPS    int
	PPS    int
	Slices int
	IDR    bool
}

// Inspect parses a written fragment and checks that it carries what a
// decoder needs to start from it: an SPS, a PPS and at least one slice.
func Inspect(path string) (FragmentInfo, error) {
	var info FragmentInfo

	f, err := os.Open(path)
	if err != nil {
		return info, err
	}
	defer f.Close()

	reader, err := h264reader.NewReader(f)
	if err != nil {
		return info, err
	}

	for {
		nal, err := reader.NextNAL()
		if err == io.EOF {
			break
		}
		if err != nil {
			return info, errors.Wrap(err, "parse fragment")
		}

		info.NALs++
		switch nal.UnitType {
		case h264reader.NalUnitTypeSPS:
			info.SPS++
		case h264reader.NalUnitTypePPS:
			info.PPS++
		case h264reader.NalUnitTypeCodedSliceIdr:
			info.IDR = true
			info.Slices++
		case h264reader.NalUnitTypeCodedSliceNonIdr, h264reader.NalUnitTypeCodedSliceDataPartitionA:
			info.Slices++
		}
	}

	if info.SPS == 0 || info.PPS == 0 || info.Slices == 0 {
		return info, errors.Wrapf(ErrIncompleteFragment, "sps=%d pps=%d slices=%d", info.SPS, info.PPS, info.Slices)
	}
	return info, nil
}
