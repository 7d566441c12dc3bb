// Package apetest builds APE containers and palettes in memory for tests.
package apetest

import (
	"bytes"
	"encoding/binary"
	"image/color"
)

// Block is a pixel block. Colors holds palette indices, or RGBA quads when
// the sprite has no palette name.
type Block struct {
	Offset byte
	Colors []byte
}

// Row is a pixel set.
type Row []Block

// Frame is a frame record. If Raw is set it replaces the encoded rows.
type Frame struct {
	Width, Height uint16
	X, Y          int16
	Rows          []Row
	Raw           []byte
}

// Sprite is a whole container.
type Sprite struct {
	Speed      uint32
	Palette    string
	Background bool
	Fatz       bool
	Frames     []Frame
}

// Solid returns a w by h frame where every pixel is index c.
func Solid(w, h uint16, x, y int16, c byte) Frame {
	f := Frame{Width: w, Height: h, X: x, Y: y}
	for i := 0; i < int(h); i++ {
		f.Rows = append(f.Rows, Row{{Colors: bytes.Repeat([]byte{c}, int(w))}})
	}
	return f
}

func (s Sprite) direct() bool {
	return s.Palette == ""
}

func (s Sprite) frame(f Frame) []byte {
	b := new(bytes.Buffer)
	binary.Write(b, binary.LittleEndian, []uint16{f.Height, f.Width, uint16(f.X), uint16(f.Y), 0})
	if f.Raw != nil {
		b.Write(f.Raw)
		return b.Bytes()
	}
	for _, r := range f.Rows {
		b.WriteByte(byte(len(r)))
		for _, blk := range r {
			n := len(blk.Colors)
			if s.direct() {
				n /= 4
			}
			b.WriteByte(blk.Offset)
			b.WriteByte(byte(n))
			b.Write(blk.Colors)
		}
	}
	return b.Bytes()
}

// Bytes encodes the sprite.
func (s Sprite) Bytes() []byte {
	b := new(bytes.Buffer)
	if s.Fatz || s.Background {
		b.WriteString("FATZ")
		b.Write([]byte{0, 0, 0, 0})
		if s.Background {
			b.WriteByte(1)
		} else {
			b.WriteByte(0)
		}
	}

	name := []byte(s.Palette)
	if len(name) > 0 {
		name = append(name, 0)
	}
	binary.Write(b, binary.LittleEndian, s.Speed)
	binary.Write(b, binary.LittleEndian, uint32(len(name)))
	b.Write(name)
	binary.Write(b, binary.LittleEndian, uint32(len(s.Frames)))

	for _, f := range s.Frames {
		rec := s.frame(f)
		binary.Write(b, binary.LittleEndian, uint32(len(rec)))
		b.Write(rec)
	}
	return b.Bytes()
}

// Palette encodes colors as an RGBA palette file.
func Palette(colors []color.NRGBA) []byte {
	b := new(bytes.Buffer)
	binary.Write(b, binary.LittleEndian, []uint16{uint16(len(colors)), 0})
	for _, c := range colors {
		b.Write([]byte{c.R, c.G, c.B, c.A})
	}
	return b.Bytes()
}

// Colors returns a palette of n distinct opaque colors.
func Colors(n int) []color.NRGBA {
	c := make([]color.NRGBA, n)
	for i := range c {
		c[i] = color.NRGBA{byte(i), byte(255 - i), byte(i * 7), 0xff}
	}
	return c
}
