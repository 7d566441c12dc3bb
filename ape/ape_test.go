package ape

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"testing"

	"github.com/openztcc/apecore/internal/apetest"
	"github.com/openztcc/apecore/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPalette = palette.Palette(apetest.Colors(16))

func TestParseHeader(t *testing.T) {
	s := apetest.Sprite{
		Speed:   125,
		Palette: "C:/zt/animals/lion/lion.pal",
		Frames:  []apetest.Frame{apetest.Solid(2, 2, 0, 0, 1)},
	}

	h, n, err := ParseHeader(s.Bytes())
	require.NoError(t, err)
	assert.Equal(t, Header{Speed: 125, PaletteName: "C:/zt/animals/lion/lion.pal", FrameCount: 1}, h)
	assert.Equal(t, 12+len(s.Palette)+1, n)
	assert.False(t, h.DirectColor())

	s.Background = true
	h, n, err = ParseHeader(s.Bytes())
	require.NoError(t, err)
	assert.True(t, h.Background)
	assert.Equal(t, 9+12+len(s.Palette)+1, n)

	s.Background = false
	s.Fatz = true
	h, _, err = ParseHeader(s.Bytes())
	require.NoError(t, err)
	assert.False(t, h.Background)
}

func TestParseNotAnApeFile(t *testing.T) {
	good := apetest.Sprite{
		Palette: "x.pal",
		Frames:  []apetest.Frame{apetest.Solid(2, 2, 0, 0, 1), apetest.Solid(1, 1, 0, 0, 1)},
	}.Bytes()

	longName := make([]byte, 12)
	binary.LittleEndian.PutUint32(longName[4:], 5000)

	tooManyFrames := apetest.Sprite{Palette: "x.pal"}.Bytes()
	binary.LittleEndian.PutUint32(tooManyFrames[len(tooManyFrames)-4:], 1<<20)

	tests := map[string][]byte{
		"empty":          nil,
		"short":          {1, 2, 3},
		"truncated":      good[:len(good)-1],
		"trailing":       append(append([]byte{}, good...), 0),
		"long name":      longName,
		"too many":       tooManyFrames,
		"text":           []byte("this is not a sprite at all, just some text"),
		"empty with bg":  apetest.Sprite{Background: true}.Bytes(),
		"small record":   append(apetest.Sprite{}.Bytes()[:12:12], 1, 0, 0, 0, 3, 0, 0, 0, 0),
		"missing frames": good[:len(good)-16],
	}
	// Claim one frame but store none
	binary.LittleEndian.PutUint32(tests["small record"][8:], 1)

	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(b)
			assert.ErrorIs(t, err, ErrNotAnApeFile)
		})
	}
}

func TestParseFrames(t *testing.T) {
	s := apetest.Sprite{
		Palette:    "x.pal",
		Background: true,
		Frames: []apetest.Frame{
			apetest.Solid(3, 2, -4, 7, 1),
			apetest.Solid(1, 1, 5, -6, 2),
		},
	}

	c, err := Parse(s.Bytes())
	require.NoError(t, err)
	require.Len(t, c.Frames, 2)
	assert.Equal(t, 1, c.Background())

	f := c.Frames[0]
	assert.Equal(t, 0, f.Index)
	assert.Equal(t, uint16(3), f.Width)
	assert.Equal(t, uint16(2), f.Height)
	assert.Equal(t, int16(-4), f.X)
	assert.Equal(t, int16(7), f.Y)
	assert.Equal(t, uint32(10+len(f.Data)), f.Size)

	f = c.Frames[1]
	assert.Equal(t, 1, f.Index)
	assert.Equal(t, int16(5), f.X)
	assert.Equal(t, int16(-6), f.Y)

	s.Background = false
	c, err = Parse(s.Bytes())
	require.NoError(t, err)
	assert.Equal(t, -1, c.Background())
}

func TestDecodeFrame(t *testing.T) {
	f := apetest.Frame{
		Width:  4,
		Height: 3,
		Rows: []apetest.Row{
			{{Offset: 1, Colors: []byte{1, 2}}},
			{},
			{{Offset: 0, Colors: []byte{3}}, {Offset: 2, Colors: []byte{4}}},
		},
	}
	c, err := Parse(apetest.Sprite{Palette: "x.pal", Frames: []apetest.Frame{f}}.Bytes())
	require.NoError(t, err)

	d, err := DecodeFrame(c.Frames[0], testPalette, ProfileRGBA)
	require.NoError(t, err)
	assert.Equal(t, 4, d.Width)
	assert.Equal(t, 3, d.Height)
	assert.Equal(t, 4, d.Channels)
	require.Len(t, d.Pix, 4*3*4)

	px := func(x, y int) color.NRGBA {
		i := (y*d.Width + x) * 4
		return color.NRGBA{d.Pix[i], d.Pix[i+1], d.Pix[i+2], d.Pix[i+3]}
	}
	transparent := color.NRGBA{}

	want := [][]color.NRGBA{
		{transparent, testPalette[1], testPalette[2], transparent},
		{transparent, transparent, transparent, transparent},
		{testPalette[3], transparent, transparent, testPalette[4]},
	}
	for y, row := range want {
		for x, c := range row {
			assert.Equal(t, c, px(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestDecodeFrameDirectColor(t *testing.T) {
	f := apetest.Frame{
		Width:  2,
		Height: 1,
		Rows:   []apetest.Row{{{Offset: 1, Colors: []byte{10, 20, 30, 40}}}},
	}
	c, err := Parse(apetest.Sprite{Frames: []apetest.Frame{f}}.Bytes())
	require.NoError(t, err)
	require.True(t, c.Header.DirectColor())

	d, err := DecodeFrame(c.Frames[0], nil, ProfileRGBA)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 10, 20, 30, 40}, d.Pix)
}

func TestDecodeFrameProfiles(t *testing.T) {
	c, err := Parse(apetest.Sprite{
		Palette: "x.pal",
		Frames:  []apetest.Frame{apetest.Solid(5, 4, 0, 0, 9)},
	}.Bytes())
	require.NoError(t, err)

	rgba, err := DecodeFrame(c.Frames[0], testPalette, ProfileRGBA)
	require.NoError(t, err)
	bgra, err := DecodeFrame(c.Frames[0], testPalette, ProfileBGRA)
	require.NoError(t, err)

	require.Len(t, bgra.Pix, len(rgba.Pix))
	for i := 0; i < len(rgba.Pix); i += 4 {
		assert.Equal(t, rgba.Pix[i], bgra.Pix[i+2])
		assert.Equal(t, rgba.Pix[i+1], bgra.Pix[i+1])
		assert.Equal(t, rgba.Pix[i+2], bgra.Pix[i])
		assert.Equal(t, rgba.Pix[i+3], bgra.Pix[i+3])
	}

	SwapRB(bgra.Pix)
	assert.Equal(t, rgba.Pix, bgra.Pix)

	_, err = DecodeFrame(c.Frames[0], testPalette, Profile(2))
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame apetest.Frame
		err   error
	}{
		{
			name: "row overrun",
			frame: apetest.Frame{Width: 2, Height: 1, Rows: []apetest.Row{
				{{Offset: 1, Colors: []byte{1, 1}}},
			}},
			err: ErrFrameSizeMismatch,
		},
		{
			name: "offset overrun",
			frame: apetest.Frame{Width: 2, Height: 1, Rows: []apetest.Row{
				{{Offset: 3}},
			}},
			err: ErrFrameSizeMismatch,
		},
		{
			name:  "missing rows",
			frame: apetest.Frame{Width: 2, Height: 2, Rows: []apetest.Row{{}}},
			err:   ErrFrameSizeMismatch,
		},
		{
			name:  "extra rows",
			frame: apetest.Frame{Width: 2, Height: 1, Rows: []apetest.Row{{}, {}}},
			err:   ErrFrameSizeMismatch,
		},
		{
			name:  "truncated block",
			frame: apetest.Frame{Width: 4, Height: 1, Raw: []byte{1, 0, 3, 1}},
			err:   ErrFrameSizeMismatch,
		},
		{
			name:  "oversized dimensions, empty data",
			frame: apetest.Frame{Width: 0xffff, Height: 0xffff, Raw: []byte{}},
			err:   ErrFrameSizeMismatch,
		},
		{
			name:  "oversized dimensions",
			frame: apetest.Frame{Width: 0xffff, Height: 300, Rows: make([]apetest.Row, 300)},
			err:   ErrFrameSizeMismatch,
		},
		{
			name:  "palette index",
			frame: apetest.Solid(2, 2, 0, 0, byte(len(testPalette))),
			err:   ErrPaletteIndexOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(apetest.Sprite{Palette: "x.pal", Frames: []apetest.Frame{tt.frame}}.Bytes())
			require.NoError(t, err)

			_, err = DecodeFrame(c.Frames[0], testPalette, ProfileRGBA)
			assert.ErrorIs(t, err, tt.err)

			var fe *FrameError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, 0, fe.Index)
		})
	}
}

func TestDecodeFrameIdempotent(t *testing.T) {
	b := apetest.Sprite{
		Palette: "x.pal",
		Frames:  []apetest.Frame{apetest.Solid(7, 3, 1, 1, 5)},
	}.Bytes()

	var out [][]byte
	for i := 0; i < 2; i++ {
		c, err := Parse(bytes.Clone(b))
		require.NoError(t, err)
		d, err := DecodeFrame(c.Frames[0], testPalette, ProfileBGRA)
		require.NoError(t, err)
		out = append(out, d.Pix)
	}
	assert.Equal(t, out[0], out[1])
}

func TestProfileString(t *testing.T) {
	assert.Equal(t, "RGBA", ProfileRGBA.String())
	assert.Equal(t, "BGRA", ProfileBGRA.String())
	assert.Equal(t, "Profile(7)", Profile(7).String())
}
