// Package cv implements the per-frame image-processing stages: the
// brightness histogram (C1), shadow detection (C2), the Sobel contrast
// map (C5), and the rule-based hazard classifier (C6). Frames and every
// per-frame artifact are meant to be discarded after one tick — nothing
// here retains pixel data beyond the call that produced a result, so the
// frame bytes structurally never leave the process.
package cv

import (
	"fmt"

	"nightpath/internal/nperr"
)

// Frame is a rectangular RGBA pixel buffer, read-only to every consumer
// in this package.
type Frame struct {
	Width  int
	Height int
	Pixels []byte // width*height*4 bytes, RGBA order
}

// Validate checks the buffer length matches the declared dimensions.
func (f Frame) Validate() error {
	want := f.Width * f.Height * 4
	if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) != want {
		return nperr.New(nperr.KindInvalidArgument, "cv.Frame",
			fmt.Sprintf("pixel buffer length %d does not match %dx%d*4=%d", len(f.Pixels), f.Width, f.Height, want))
	}
	return nil
}

// luminance computes integer luminance Y = (299R + 587G + 114B) / 1000
// for the pixel at (x, y) using fixed-point integer arithmetic.
func (f Frame) luminance(x, y int) uint8 {
	i := (y*f.Width + x) * 4
	r := int(f.Pixels[i])
	g := int(f.Pixels[i+1])
	b := int(f.Pixels[i+2])
	return uint8((299*r + 587*g + 114*b) / 1000)
}

// luminanceGrid materializes the per-pixel luminance as a flat slice,
// reused by the shadow detector, contrast map, and hazard classifier so
// each frame is only converted to grayscale once.
func (f Frame) luminanceGrid() []uint8 {
	grid := make([]uint8, f.Width*f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			grid[y*f.Width+x] = f.luminance(x, y)
		}
	}
	return grid
}
