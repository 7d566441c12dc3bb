package ape

import (
	"github.com/openztcc/apecore/palette"
)

const channels = 4

// SwapRB swaps the first and third byte of every four byte pixel in pix,
// converting between RGBA and BGRA in place.
func SwapRB(pix []byte) {
	for i := 0; i+3 < len(pix); i += channels {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

// DecodeFrame expands the pixel sets of f into a dense buffer. Pixels that
// aren't covered by any pixel block are fully transparent. A nil palette
// means the blocks carry RGBA quads rather than palette indices.
//
// Any error is returned as a *FrameError wrapping ErrFrameSizeMismatch or
// ErrPaletteIndexOutOfRange.
func DecodeFrame(f Frame, p palette.Palette, profile Profile) (DecodedFrame, error) {
	if profile != ProfileRGBA && profile != ProfileBGRA {
		return DecodedFrame{}, ErrInvalidProfile
	}

	pix, err := decodePixelSets(f, p)
	if err != nil {
		return DecodedFrame{}, &FrameError{Index: f.Index, Err: err}
	}

	if profile == ProfileBGRA {
		SwapRB(pix)
	}

	return DecodedFrame{
		Index:    f.Index,
		Width:    int(f.Width),
		Height:   int(f.Height),
		OffsetX:  int(f.X),
		OffsetY:  int(f.Y),
		Channels: channels,
		Profile:  profile,
		Pix:      pix,
	}, nil
}

func decodePixelSets(f Frame, p palette.Palette) ([]byte, error) {
	w, h := int(f.Width), int(f.Height)
	b := f.Data

	// Every row needs at least its block count
	if len(b) < h || w*h > maxFramePixels {
		return nil, ErrFrameSizeMismatch
	}
	pix := make([]byte, w*h*channels)

	for y := 0; y < h; y++ {
		if len(b) < 1 {
			return nil, ErrFrameSizeMismatch
		}
		blocks := int(b[0])
		b = b[1:]

		x := 0
		for k := 0; k < blocks; k++ {
			if len(b) < 2 {
				return nil, ErrFrameSizeMismatch
			}
			x += int(b[0])
			n := int(b[1])
			b = b[2:]

			if x+n > w {
				return nil, ErrFrameSizeMismatch
			}

			i := (y*w + x) * channels
			if p == nil {
				if len(b) < n*channels {
					return nil, ErrFrameSizeMismatch
				}
				copy(pix[i:], b[:n*channels])
				b = b[n*channels:]
			} else {
				if len(b) < n {
					return nil, ErrFrameSizeMismatch
				}
				for _, idx := range b[:n] {
					if int(idx) >= len(p) {
						return nil, ErrPaletteIndexOutOfRange
					}
					c := p[idx]
					pix[i+0] = c.R
					pix[i+1] = c.G
					pix[i+2] = c.B
					pix[i+3] = c.A
					i += channels
				}
				b = b[n:]
			}
			x += n
		}
	}

	// Anything left over means the header dimensions don't describe the data
	if len(b) != 0 {
		return nil, ErrFrameSizeMismatch
	}

	return pix, nil
}
