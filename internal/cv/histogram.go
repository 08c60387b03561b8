package cv

import (
	"gonum.org/v1/gonum/stat"
)

// BrightnessHistogram is a 256-bin luminance histogram plus the derived
// mean, median, and standard deviation of the underlying frame.
type BrightnessHistogram struct {
	Bins   [256]int
	Mean   float64
	Median float64
	StdDev float64
}

// binValues holds 0..255 as float64, computed once and reused as the
// sample-value axis for the weighted mean/stdev below.
var binValues = func() [256]float64 {
	var v [256]float64
	for i := range v {
		v[i] = float64(i)
	}
	return v
}()

// ComputeHistogram builds the 256-bin luminance histogram for f in a
// single pass, then derives mean, median, and standard deviation.
//
// Mean and standard deviation are computed as a weighted distribution
// over the 256 luminance values (weights = bin counts) via gonum/stat,
// equivalent to the running sum / sum-of-squares formulation. Median
// walks the cumulative count to find the first bin where the running
// total reaches half the pixel count.
func ComputeHistogram(f Frame) (BrightnessHistogram, error) {
	if err := f.Validate(); err != nil {
		return BrightnessHistogram{}, err
	}

	var h BrightnessHistogram
	grid := f.luminanceGrid()
	for _, y := range grid {
		h.Bins[y]++
	}

	n := len(grid)
	if n == 0 {
		return h, nil
	}

	weights := make([]float64, 256)
	for i, c := range h.Bins {
		weights[i] = float64(c)
	}

	h.Mean = stat.Mean(binValues[:], weights)
	h.StdDev = stat.PopStdDev(binValues[:], weights)
	if h.StdDev < 0 {
		h.StdDev = 0
	}

	half := float64(n) / 2
	cumulative := 0.0
	for i, c := range h.Bins {
		cumulative += float64(c)
		if cumulative >= half {
			h.Median = float64(i)
			break
		}
	}

	return h, nil
}
