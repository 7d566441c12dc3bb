/*
Package frameset places decoded APE frames on a shared canvas so they line up
as animation cels.

Frames carry an anchor offset relative to the sprite's pivot rather than a
position. The smallest offset across all frames is taken as the pivot and
the canvas is sized to enclose every frame relative to it. Frames are then
put into presentation order, which is the reverse of the stored order with
any background frame moved to the front, and the first frame is centred on
the canvas. Every other frame keeps its displacement relative to the first.
*/
package frameset

import (
	"image"

	"github.com/openztcc/apecore/ape"
)

// BoundingBox is the size of the canvas enclosing all frames.
type BoundingBox struct {
	Width, Height int
}

// PlacedFrame is a decoded frame with its position on the canvas.
type PlacedFrame struct {
	ape.DecodedFrame

	// Anchor is the top-left corner of the frame on the canvas. It may lie
	// outside the canvas.
	Anchor image.Point

	// Rel is the frame offset relative to the pivot.
	Rel image.Point

	Background bool
}

// Options controls assembly.
type Options struct {
	// BackgroundOnly discards everything but the background frame, if the
	// sprite has one.
	BackgroundOnly bool
}

// Result is an assembled frame set.
type Result struct {
	Canvas   BoundingBox
	Pivot    image.Point
	Frames   []PlacedFrame
	Warnings []string
}

// Assemble positions frames, given in stored order, on a common canvas.
// background is the stored index of the background frame or -1 if there
// isn't one.
func Assemble(frames []ape.DecodedFrame, background int, opts Options) (*Result, error) {
	if len(frames) == 0 {
		return nil, ape.ErrEmptyAnimation
	}

	pivot := image.Pt(frames[0].OffsetX, frames[0].OffsetY)
	for _, f := range frames[1:] {
		pivot.X = min(pivot.X, f.OffsetX)
		pivot.Y = min(pivot.Y, f.OffsetY)
	}

	res := &Result{
		Pivot:  pivot,
		Frames: make([]PlacedFrame, len(frames)),
	}

	// Stored order is the reverse of presentation order
	for i, f := range frames {
		rel := image.Pt(f.OffsetX-pivot.X, f.OffsetY-pivot.Y)
		res.Canvas.Width = max(res.Canvas.Width, rel.X+f.Width)
		res.Canvas.Height = max(res.Canvas.Height, rel.Y+f.Height)

		res.Frames[len(frames)-1-i] = PlacedFrame{
			DecodedFrame: f,
			Rel:          rel,
			Background:   background >= 0 && f.Index == background,
		}
	}

	hasBackground := false
	for i, p := range res.Frames {
		if p.Background {
			copy(res.Frames[1:i+1], res.Frames[:i])
			res.Frames[0] = p
			hasBackground = true
			break
		}
	}

	first := res.Frames[0]
	anchor := image.Pt(res.Canvas.Width/2-first.Width/2, res.Canvas.Height/2-first.Height/2)
	for i := range res.Frames {
		p := &res.Frames[i]
		p.Anchor = anchor.Sub(image.Pt(p.OffsetX-first.OffsetX, p.OffsetY-first.OffsetY))
	}

	if opts.BackgroundOnly {
		if hasBackground {
			res.Frames = res.Frames[:1]
		} else {
			res.Warnings = append(res.Warnings, "no background frame found, using all frames")
		}
	}

	return res, nil
}

// Image returns the frame as an RGBA ordered image, copying the pixels.
func (p PlacedFrame) Image() *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	copy(m.Pix, p.Pix)
	if p.Profile == ape.ProfileBGRA {
		ape.SwapRB(m.Pix)
	}
	return m
}
