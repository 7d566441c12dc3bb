/*
Package export writes assembled APE frames out as ordinary images.

Each frame is drawn at its anchor on a transparent canvas so that the
exported files line up when stacked. Animated previews are written as GIF,
with every frame quantized to its own 255 color palette plus a transparent
entry at index 0.
*/
package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/openztcc/apecore/frameset"
)

const maxColors = 256

// ErrNoFrames is returned when there is nothing to encode.
var ErrNoFrames = errors.New("export: no frames")

// Canvas returns f drawn at its anchor on a transparent canvas the size of
// box, in RGBA order.
func Canvas(box frameset.BoundingBox, f frameset.PlacedFrame) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, box.Width, box.Height))
	src := f.Image()
	draw.Draw(m, src.Rect.Add(f.Anchor), src, image.Point{}, draw.Src)
	return m
}

// WritePNGs writes every frame of r to dir as "<prefix>_NNN.png" in
// presentation order and returns the file names.
func WritePNGs(dir, prefix string, r *frameset.Result) ([]string, error) {
	var files []string
	for i, f := range r.Frames {
		file := filepath.Join(dir, fmt.Sprintf("%s_%03d.png", prefix, i))
		if err := writePNG(file, Canvas(r.Canvas, f)); err != nil {
			return files, err
		}
		files = append(files, file)
	}
	return files, nil
}

func writePNG(file string, m image.Image) error {
	w, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := png.Encode(w, m); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func paletted(m *image.NRGBA) *image.Paletted {
	q := quantize.MedianCutQuantizer{}

	p := append(color.Palette{color.Transparent}, q.Quantize(make(color.Palette, 0, maxColors-1), m)...)
	pm := image.NewPaletted(m.Bounds(), p)
	draw.Draw(pm, pm.Rect, m, image.Point{}, draw.Src)
	return pm
}

// EncodeGIF writes r to w as an animated GIF looping forever. speed is in
// milliseconds per frame.
func EncodeGIF(w io.Writer, r *frameset.Result, speed uint32) error {
	if len(r.Frames) == 0 {
		return ErrNoFrames
	}

	g := &gif.GIF{}
	for _, f := range r.Frames {
		g.Image = append(g.Image, paletted(Canvas(r.Canvas, f)))
		g.Delay = append(g.Delay, int(speed/10))
		g.Disposal = append(g.Disposal, gif.DisposalBackground)
	}

	return gif.EncodeAll(w, g)
}
