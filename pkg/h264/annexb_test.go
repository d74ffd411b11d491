package h264

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/Glimesh/conform/pkg/pocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSPS = []byte{
		0x67, 0x64, 0x00, 0x0c, 0xac, 0x3b, 0x50, 0xb0,
		0x4b, 0x42, 0x00, 0x00, 0x03, 0x00, 0x02, 0x00,
		0x00, 0x03, 0x00, 0x3d, 0x08,
	}
	testPPS    = []byte{0x68, 0xee, 0x3c, 0x80}
	testIDR    = []byte{0x65, 0x88, 0x84, 0x00, 0x33, 0xff}
	testNonIDR = []byte{0x41, 0x9a, 0x02, 0x11}
	testSEI    = []byte{0x06, 0x05, 0x01, 0x80}

	startCode4 = []byte{0, 0, 0, 1}
	startCode3 = []byte{0, 0, 1}
)

func join(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func TestNextNAL(t *testing.T) {
	for _, ca := range []struct {
		name      string
		stream    []byte
		nalus     [][]byte
		lookahead []int
	}{
		{
			"3 and 4 byte start codes",
			join(startCode4, []byte{0xaa, 0xbb}, startCode3, []byte{0xcc}, startCode4, []byte{0xdd}),
			[][]byte{{0xaa, 0xbb}, {0xcc}, {0xdd}},
			[]int{3, 4, 0},
		},
		{
			"leading and trailing zeros",
			join([]byte{0, 0}, startCode4, []byte{0xaa, 0x00, 0xbb}, startCode3, []byte{0xcc, 0, 0}),
			[][]byte{{0xaa, 0x00, 0xbb}, {0xcc}},
			[]int{3, 0},
		},
		{
			"empty unit",
			join(startCode4, startCode4, []byte{0xaa}),
			[][]byte{{0xaa}},
			[]int{0},
		},
		{
			"emulation prevention",
			join(startCode4, []byte{0x09, 0x00, 0x00, 0x03, 0x01, 0x10}),
			[][]byte{{0x09, 0x00, 0x00, 0x03, 0x01, 0x10}},
			[]int{0},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			d := NewDemuxer(iotest.OneByteReader(bytes.NewReader(ca.stream)))
			for i, want := range ca.nalus {
				got, err := d.NextNAL()
				require.NoError(t, err)
				assert.Equal(t, want, got)
				assert.Equal(t, ca.lookahead[i], d.Lookahead())
			}
			_, err := d.NextNAL()
			assert.Equal(t, io.EOF, err)
			_, err = d.NextNAL()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestAccessUnitsThroughPocket(t *testing.T) {
	assert := assert.New(t)

	stream := join(
		startCode4, testSPS,
		startCode4, testPPS,
		startCode4, testIDR,
		startCode4, testNonIDR,
		startCode3, testSEI,
		startCode4, testNonIDR,
	)
	pb := pocket.New(bytes.NewReader(stream))
	d := NewDemuxer(pb)

	ps, err := d.ReadParameterSets()
	require.NoError(t, err)
	assert.Equal([][]byte{testSPS}, ps.SPS)
	assert.Equal([][]byte{testPPS}, ps.PPS)

	prefix := pb.Checkpoint()
	assert.Equal(join(startCode4, testSPS, startCode4, testPPS, startCode4), prefix)

	au, err := d.NextAccessUnit()
	require.NoError(t, err)
	assert.Equal([][]byte{testIDR}, au)
	assert.True(IsKeyframe(au))
	assert.Equal(4, d.Lookahead())
	span0 := pb.Checkpoint()
	assert.Equal(join(testIDR, startCode4), span0)

	// the first frame is decodable on its own once the probe is dropped
	fragment := join(prefix, span0[:len(span0)-d.Lookahead()])
	assert.Equal(join(startCode4, testSPS, startCode4, testPPS, startCode4, testIDR), fragment)

	au, err = d.NextAccessUnit()
	require.NoError(t, err)
	assert.Equal([][]byte{testNonIDR}, au)
	assert.False(IsKeyframe(au))
	assert.Equal(3, d.Lookahead())
	span1 := pb.Checkpoint()

	au, err = d.NextAccessUnit()
	require.NoError(t, err)
	assert.Equal([][]byte{testSEI, testNonIDR}, au)
	assert.Equal(0, d.Lookahead())
	span2 := pb.Checkpoint()

	_, err = d.NextAccessUnit()
	assert.Equal(io.EOF, err)

	assert.Equal(stream, join(prefix, span0, span1, span2, pb.Checkpoint()))
}

func TestNextAccessUnitEndsAtPartitionA(t *testing.T) {
	assert := assert.New(t)

	partA := []byte{0x22, 0x01}
	partB := []byte{0x23, 0x02}
	partC := []byte{0x24, 0x03}
	stream := bytes.Join([][]byte{
		startCode4, partA,
		startCode4, partB,
		startCode4, partC,
		startCode4, testNonIDR,
	}, nil)
	d := NewDemuxer(bytes.NewReader(stream))

	au, err := d.NextAccessUnit()
	require.NoError(t, err)
	assert.Equal([][]byte{partA}, au)

	au, err = d.NextAccessUnit()
	require.NoError(t, err)
	assert.Equal([][]byte{partB, partC, testNonIDR}, au)
}

func TestReadParameterSetsErrors(t *testing.T) {
	d := NewDemuxer(bytes.NewReader(join(startCode4, testIDR, startCode4, testSPS)))
	_, err := d.ReadParameterSets()
	assert.ErrorIs(t, err, ErrNoParameterSets)

	d = NewDemuxer(bytes.NewReader(join(startCode4, testSPS)))
	_, err = d.ReadParameterSets()
	assert.ErrorIs(t, err, ErrNoParameterSets)

	d = NewDemuxer(bytes.NewReader(nil))
	_, err = d.ReadParameterSets()
	assert.ErrorIs(t, err, ErrNoParameterSets)
}

func TestReadParameterSetsSkipsOtherUnits(t *testing.T) {
	d := NewDemuxer(bytes.NewReader(join(startCode4, []byte{0x09, 0xf0}, startCode4, testSPS, startCode4, testSEI, startCode4, testPPS, startCode4, testIDR)))
	ps, err := d.ReadParameterSets()
	require.NoError(t, err)
	assert.Len(t, ps.SPS, 1)
	assert.Len(t, ps.PPS, 1)
}

func TestClassification(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsParameterSet(testSPS))
	assert.True(IsParameterSet(testPPS))
	assert.False(IsParameterSet(testIDR))
	assert.True(IsSlice(testIDR))
	assert.True(IsSlice(testNonIDR))
	assert.False(IsSlice(testSEI))
	assert.False(IsSlice(nil))
	assert.False(IsKeyframe([][]byte{testSEI, testNonIDR}))
}

func TestDimensions(t *testing.T) {
	w, h, err := Dimensions(testSPS)
	require.NoError(t, err)
	assert.Equal(t, 352, w)
	assert.Equal(t, 288, h)

	_, _, err = Dimensions([]byte{0x67})
	assert.Error(t, err)
}
