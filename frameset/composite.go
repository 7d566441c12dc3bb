package frameset

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/openztcc/apecore/ape"
)

// Magenta is the conventional backing color for sprites exported without
// an alpha channel.
var Magenta = color.NRGBA{0xff, 0x00, 0xff, 0xff}

// Composite draws f over an opaque canvas-sized layer of fill and returns
// the pixels, in the same channel order as f. Parts of f outside the canvas
// are clipped.
func Composite(box BoundingBox, f PlacedFrame, fill color.NRGBA) []byte {
	if f.Profile == ape.ProfileBGRA {
		fill.R, fill.B = fill.B, fill.R
	}

	dst := image.NewNRGBA(image.Rect(0, 0, box.Width, box.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	// Blending treats every color channel alike so the order doesn't matter
	src := &image.NRGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
	draw.Draw(dst, src.Rect.Add(f.Anchor), src, image.Point{}, draw.Over)

	return dst.Pix
}

// CompositeAll returns a copy of r where every frame has been composited
// onto fill and covers the whole canvas.
func CompositeAll(r *Result, fill color.NRGBA) *Result {
	out := &Result{
		Canvas:   r.Canvas,
		Pivot:    r.Pivot,
		Frames:   make([]PlacedFrame, len(r.Frames)),
		Warnings: r.Warnings,
	}
	for i, f := range r.Frames {
		p := f
		p.Pix = Composite(r.Canvas, f, fill)
		p.Width = r.Canvas.Width
		p.Height = r.Canvas.Height
		p.Anchor = image.Point{}
		out.Frames[i] = p
	}
	return out
}
