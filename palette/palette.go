/*
Package palette implements loading of the indexed color tables used by APE
sprites.

A palette file starts with a 16-bit little-endian color count followed by two
reserved bytes, then one entry per color. Entries are either four bytes
(red, green, blue, alpha) or three bytes (red, green, blue) in which case the
color is fully opaque. The file must be exactly the size implied by the count,
anything else is rejected.
*/
package palette

import (
	"encoding/binary"
	"errors"
	"image/color"
	"os"
)

const (
	headerSize = 4
	maxColors  = 256
)

// ErrInvalidPalette is returned for any palette data that doesn't match the
// expected on-disk layout.
var ErrInvalidPalette = errors.New("palette: invalid palette")

// Palette is an ordered table of colors indexed by APE pixel data. It is
// never modified after it has been decoded.
type Palette []color.NRGBA

// Decode parses a palette from b.
func Decode(b []byte) (Palette, error) {
	if len(b) < headerSize {
		return nil, ErrInvalidPalette
	}

	count := int(binary.LittleEndian.Uint16(b))
	if count == 0 || count > maxColors {
		return nil, ErrInvalidPalette
	}

	var stride int
	switch len(b) - headerSize {
	case count * 4:
		stride = 4
	case count * 3:
		stride = 3
	default:
		return nil, ErrInvalidPalette
	}

	p := make(Palette, count)
	for i := range p {
		e := b[headerSize+i*stride:]
		p[i] = color.NRGBA{e[0], e[1], e[2], 0xff}
		if stride == 4 {
			p[i].A = e[3]
		}
	}
	return p, nil
}

// Load reads and decodes the palette file at path. File system errors are
// returned as-is so the caller can tell a missing file from a bad one.
func Load(path string) (Palette, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

// Validate reports whether path names a readable, well-formed palette.
func Validate(path string) bool {
	_, err := Load(path)
	return err == nil
}

// Color returns the palette as a color.Palette.
func (p Palette) Color() color.Palette {
	cp := make(color.Palette, len(p))
	for i, c := range p {
		cp[i] = c
	}
	return cp
}
