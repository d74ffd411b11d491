package pgm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBinary(t *testing.T) {
	assert := assert.New(t)

	raw := append([]byte("P5\n# reference decoder\n3 2\n255\n"), 0, 1, 2, 253, 254, 255)
	img, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(3, img.Width)
	assert.Equal(2, img.Height)
	assert.Equal(255, img.MaxVal)
	assert.Equal([]uint16{0, 1, 2, 253, 254, 255}, img.Pix)
}

func TestDecodeBinaryRasterStartsWithWhitespaceValue(t *testing.T) {
	// 0x0a is a valid sample, it must not be eaten as header whitespace
	raw := append([]byte("P5 2 1 255\n"), 0x0a, 0x20)
	img, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x0a, 0x20}, img.Pix)
}

func TestDecodeSixteenBit(t *testing.T) {
	raw := append([]byte("P5\n2 1\n1023\n"), 0x03, 0xff, 0x01, 0x00)
	img, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, []uint16{1023, 256}, img.Pix)
}

func TestDecodePlain(t *testing.T) {
	img, err := Decode(strings.NewReader("P2\n2 2\n# comment\n15\n0 5\n10 15"))
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 5, 10, 15}, img.Pix)
}

func TestDecodeErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"ppm", "P6\n1 1\n255\n\x00\x00\x00"},
		{"zero size", "P5\n0 1\n255\n"},
		{"big maxval", "P5\n1 1\n70000\n\x00"},
		{"short raster", "P5\n2 2\n255\n\x00"},
		{"garbage header", "P5\nx 2\n255\n"},
		{"plain above maxval", "P2\n1 1\n10\n11\n"},
		{"huge size", "P5\n16777215 16777215\n255\n\x00"},
		{"huge plain size", "P2\n16777215 16777215\n255\n0\n"},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(ca.in))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	for _, img := range []*Image{
		{Width: 3, Height: 1, MaxVal: 255, Pix: []uint16{7, 128, 255}},
		{Width: 1, Height: 2, MaxVal: 4095, Pix: []uint16{4095, 300}},
	} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, img))

		got, err := Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, img, got)
	}
}

func TestEncodeRejectsBadImage(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Encode(&buf, &Image{Width: 2, Height: 2, Pix: []uint16{1}}), ErrFormat)
	assert.ErrorIs(t, Encode(&buf, &Image{Width: 1, Height: 1, MaxVal: 255, Pix: []uint16{300}}), ErrFormat)
}
