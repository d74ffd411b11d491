package h264

import (
	mch264 "github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/pkg/errors"
)

// NALType returns the nal_unit_type of a NAL unit without start code.
func NALType(nalu []byte) mch264.NALUType {
	if len(nalu) == 0 {
		return 0
	}
	return mch264.NALUType(nalu[0] & 0b00011111)
}

// IsParameterSet reports whether nalu is an SPS or a PPS.
func IsParameterSet(nalu []byte) bool {
	t := NALType(nalu)
	return t == mch264.NALUTypeSPS || t == mch264.NALUTypePPS
}

// IsSlice reports whether nalu starts a coded slice: non-IDR, IDR or data
// partition A.
func IsSlice(nalu []byte) bool {
	switch NALType(nalu) {
	case mch264.NALUTypeNonIDR, mch264.NALUTypeIDR, mch264.NALUTypeDataPartitionA:
		return true
	}
	return false
}

// IsKeyframe reports whether the access unit contains an IDR slice.
func IsKeyframe(au [][]byte) bool {
	for _, nalu := range au {
		// nalType 5 = IDR
		if NALType(nalu) == mch264.NALUTypeIDR {
			return true
		}
	}
	return false
}

// Dimensions returns the cropped picture size coded in an SPS.
func Dimensions(sps []byte) (int, int, error) {
	var s mch264.SPS
	if err := s.Unmarshal(sps); err != nil {
		return 0, 0, errors.Wrap(err, "invalid SPS")
	}
	return s.Width(), s.Height(), nil
}
