package cv

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ContrastMap is a width*height flat buffer of values in [0,1], one per
// pixel, row-major. Border pixels (where the 3x3 Sobel kernel would read
// outside the frame) are always zero.
type ContrastMap struct {
	Width  int
	Height int
	Values []float64
}

var sobelX = [3][3]int{
	{-1, 0, 1},
	{-2, 0, 2},
	{-1, 0, 1},
}

var sobelY = [3][3]int{
	{-1, -2, -1},
	{0, 0, 0},
	{1, 2, 1},
}

// ComputeContrastMap applies the Sobel operator to the frame's grayscale
// representation, producing gradient magnitude per interior pixel, then
// normalizes by the maximum magnitude observed anywhere in the frame so
// every value lands in [0,1]. The zero-frame (uniform luminance, or a
// single pixel with no interior) produces an all-zero map.
func ComputeContrastMap(f Frame) (ContrastMap, error) {
	if err := f.Validate(); err != nil {
		return ContrastMap{}, err
	}

	grid := f.luminanceGrid()
	w, h := f.Width, f.Height
	magnitudes := make([]float64, w*h)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var gx, gy int
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := int(grid[(y+ky)*w+(x+kx)])
					gx += sobelX[ky+1][kx+1] * v
					gy += sobelY[ky+1][kx+1] * v
				}
			}
			mag := math.Sqrt(float64(gx*gx + gy*gy))
			magnitudes[y*w+x] = mag
		}
	}

	maxMag := 0.0
	if len(magnitudes) > 0 {
		maxMag = floats.Max(magnitudes)
	}

	values := make([]float64, w*h)
	if maxMag > 0 {
		for i, m := range magnitudes {
			values[i] = m / maxMag
		}
	}

	return ContrastMap{Width: w, Height: h, Values: values}, nil
}

// At returns the normalized contrast value at (x, y).
func (c ContrastMap) At(x, y int) float64 {
	return c.Values[y*c.Width+x]
}
