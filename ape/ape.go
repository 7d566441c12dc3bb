/*
Package ape implements a decoder for the APE animated sprite container.

A container is a small header followed by a number of frame records. The
header holds the playback speed in milliseconds per frame, the name of the
palette the sprite was authored against and the frame count. Some containers
are prefixed with a "FATZ" block whose last byte flags the final frame record
as a static background frame.

Each frame record stores its byte size, its dimensions, an anchor offset and
one pixel set per row. A pixel set is a count of pixel blocks; each block
skips a number of transparent pixels and then carries a run of palette
indices. Rows that end early are transparent to the right edge. Containers
without a palette name carry raw RGBA quads instead of indices.

All multi-byte values are little-endian.
*/
package ape

import (
	"errors"
	"fmt"
)

const (
	fatzMagic       = "FATZ"
	fatzSize        = 9
	frameHeaderSize = 10

	maxPaletteName = 1024
	maxFrames      = 0xffff

	// 4096x4096, far beyond any sprite
	maxFramePixels = 1 << 24
)

// Errors describing why a container or one of its frames couldn't be decoded.
var (
	ErrNotAnApeFile           = errors.New("ape: not an APE file")
	ErrPaletteIndexOutOfRange = errors.New("ape: palette index out of range")
	ErrFrameSizeMismatch      = errors.New("ape: frame size mismatch")
	ErrEmptyAnimation         = errors.New("ape: animation has no frames")
	ErrInvalidProfile         = errors.New("ape: invalid color profile")
)

// Profile selects the channel order of decoded pixels.
type Profile int

// Supported color profiles.
const (
	ProfileRGBA Profile = iota
	ProfileBGRA
)

func (p Profile) String() string {
	switch p {
	case ProfileRGBA:
		return "RGBA"
	case ProfileBGRA:
		return "BGRA"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// Header is the fixed part of a container.
type Header struct {
	Speed       uint32 // milliseconds per frame
	PaletteName string // as written by the authoring tool, often stale
	FrameCount  uint32
	Background  bool // last frame record is a background frame
}

// DirectColor reports whether pixel blocks carry RGBA quads rather than
// palette indices.
func (h Header) DirectColor() bool {
	return h.PaletteName == ""
}

// Frame is one undecoded frame record.
type Frame struct {
	Index    int
	Size     uint32
	Height   uint16
	Width    uint16
	X, Y     int16
	Reserved uint16
	Data     []byte // pixel sets
}

// DecodedFrame is a frame expanded to a dense, row-major pixel buffer.
type DecodedFrame struct {
	Index            int
	Width, Height    int
	OffsetX, OffsetY int
	Channels         int
	Profile          Profile
	Pix              []byte
}

// FrameError records the failure to decode a single frame.
type FrameError struct {
	Index int
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("ape: frame %d: %v", e.Index, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
