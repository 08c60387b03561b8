package cv

import (
	"fmt"
	"math"

	"nightpath/internal/monitoring"
)

// HazardKind is a tagged variant over the hazard types the classifier can
// emit. Unknown exists so callers that pattern-match over Kind have a
// safe default for hazards that don't fit the three rule-based detectors.
type HazardKind int

const (
	HazardObstacle HazardKind = iota
	HazardUnevenSurface
	HazardDropOff
	HazardUnknown
)

func (k HazardKind) String() string {
	switch k {
	case HazardObstacle:
		return "obstacle"
	case HazardUnevenSurface:
		return "uneven_surface"
	case HazardDropOff:
		return "drop_off"
	default:
		return "unknown"
	}
}

// WorldPosition is a hazard's optional geo-referenced location, used by
// edge scoring to weigh proximity to a route.
type WorldPosition struct {
	Latitude       float64
	Longitude      float64
	DistanceMeters float64
}

// HazardDetection is one detected hazard, stable-identified within the
// frame that produced it.
type HazardDetection struct {
	ID         string
	Kind       HazardKind
	Confidence float64
	Box        PixelRect
	World      *WorldPosition
}

const (
	obstacleDownsample     = 2
	obstacleEdgeThreshold  = 40
	obstacleMinRegionSize  = 20
	obstacleMaxIterations  = 50_000
	unevenDownsample       = 4
	unevenVarianceThresh   = 500.0
	unevenMinRegionSize    = 15
	unevenMaxIterations    = 50_000
	dropOffStride          = 10
	dropOffVerticalOffset  = 10
	dropOffLumaDiffThresh  = 100
	dropOffBoxWidth        = 40
	dropOffBoxHeight       = 20
)

// ClassifyHazards runs the obstacle, uneven-surface, and drop-off
// detectors over f. Each detector is isolated: a panic or internal
// failure in one is caught, logged, and produces no hazards from that
// detector, but the other two still run and contribute their findings.
func ClassifyHazards(f Frame) ([]HazardDetection, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	grid := f.luminanceGrid()
	var hazards []HazardDetection

	hazards = append(hazards, safeDetect("hazard.obstacle", f, func() []HazardDetection {
		return detectObstacles(f, grid)
	})...)
	hazards = append(hazards, safeDetect("hazard.uneven_surface", f, func() []HazardDetection {
		return detectUnevenSurface(f, grid)
	})...)
	hazards = append(hazards, safeDetect("hazard.drop_off", f, func() []HazardDetection {
		return detectDropOffs(f, grid)
	})...)

	for i := range hazards {
		hazards[i].ID = fmt.Sprintf("hz-%d", i)
	}

	return hazards, nil
}

// safeDetect recovers a panicking detector so a bug in one rule never
// takes down the other two.
func safeDetect(component string, f Frame, fn func() []HazardDetection) (result []HazardDetection) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Event(monitoring.SeverityWarning, component,
				"detector panicked, emitting no hazards for this frame: %v (frame=%dx%d)", r, f.Width, f.Height)
			result = nil
		}
	}()
	return fn()
}

// downsampleBoxAverage shrinks grid by factor, averaging each factor x
// factor block of the original into one output pixel.
func downsampleBoxAverage(grid []uint8, width, height, factor int) ([]uint8, int, int) {
	dw := width / factor
	dh := height / factor
	if dw == 0 || dh == 0 {
		return nil, 0, 0
	}
	out := make([]uint8, dw*dh)
	for dy := 0; dy < dh; dy++ {
		for dx := 0; dx < dw; dx++ {
			sum := 0
			count := 0
			for oy := 0; oy < factor; oy++ {
				for ox := 0; ox < factor; ox++ {
					x := dx*factor + ox
					y := dy*factor + oy
					sum += int(grid[y*width+x])
					count++
				}
			}
			out[dy*dw+dx] = uint8(sum / count)
		}
	}
	return out, dw, dh
}

func detectObstacles(f Frame, grid []uint8) []HazardDetection {
	down, dw, dh := downsampleBoxAverage(grid, f.Width, f.Height, obstacleDownsample)
	if dw == 0 || dh == 0 {
		return nil
	}

	edgeDensity := make([]int, dw*dh)
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			idx := y*dw + x
			v := int(down[idx])
			dx, dy := 0, 0
			if x+1 < dw {
				dx = int(down[idx+1]) - v
			}
			if y+1 < dh {
				dy = int(down[idx+dw]) - v
			}
			if dx < 0 {
				dx = -dx
			}
			if dy < 0 {
				dy = -dy
			}
			edgeDensity[idx] = dx + dy
		}
	}

	regions := regionGrow(dw, dh, func(idx int) bool {
		return edgeDensity[idx] > obstacleEdgeThreshold
	}, obstacleMaxIterations)

	totalPixels := float64(dw * dh)
	var out []HazardDetection
	for _, r := range regions {
		if r.size < obstacleMinRegionSize {
			continue
		}
		box := rescaleBox(r.bounds, obstacleDownsample, f.Width, f.Height)
		confidence := math.Min(1, float64(r.size)/(totalPixels*0.1))
		out = append(out, HazardDetection{Kind: HazardObstacle, Confidence: confidence, Box: box})
	}
	return out
}

func detectUnevenSurface(f Frame, grid []uint8) []HazardDetection {
	down, dw, dh := downsampleBoxAverage(grid, f.Width, f.Height, unevenDownsample)
	if dw == 0 || dh == 0 {
		return nil
	}

	variance := make([]float64, dw*dh)
	for y := 1; y < dh-1; y++ {
		for x := 1; x < dw-1; x++ {
			var sum, sumSq float64
			for oy := -1; oy <= 1; oy++ {
				for ox := -1; ox <= 1; ox++ {
					v := float64(down[(y+oy)*dw+(x+ox)])
					sum += v
					sumSq += v * v
				}
			}
			mean := sum / 9
			variance[y*dw+x] = math.Max(0, sumSq/9-mean*mean)
		}
	}

	regions := regionGrow(dw, dh, func(idx int) bool {
		return variance[idx] > unevenVarianceThresh
	}, unevenMaxIterations)

	totalPixels := float64(dw * dh)
	var out []HazardDetection
	for _, r := range regions {
		if r.size < unevenMinRegionSize {
			continue
		}
		box := rescaleBox(r.bounds, unevenDownsample, f.Width, f.Height)
		confidence := math.Min(1, float64(r.size)/(totalPixels*0.05))
		out = append(out, HazardDetection{Kind: HazardUnevenSurface, Confidence: confidence, Box: box})
	}
	return out
}

func detectDropOffs(f Frame, grid []uint8) []HazardDetection {
	var out []HazardDetection
	startY := f.Height / 2

	for y := startY; y+dropOffVerticalOffset < f.Height; y += dropOffStride {
		for x := 0; x < f.Width; x += dropOffStride {
			a := int(grid[y*f.Width+x])
			b := int(grid[(y+dropOffVerticalOffset)*f.Width+x])
			diff := a - b
			if diff < 0 {
				diff = -diff
			}
			if diff <= dropOffLumaDiffThresh {
				continue
			}
			confidence := math.Min(1, float64(diff)/255)
			out = append(out, HazardDetection{
				Kind:       HazardDropOff,
				Confidence: confidence,
				Box:        dropOffBox(x, y, f.Width, f.Height),
			})
		}
	}
	return out
}

// rescaleBox maps a bounding box in downsampled-pixel space back to the
// original frame's coordinate space, clamped to the frame bounds.
func rescaleBox(b PixelRect, factor, frameWidth, frameHeight int) PixelRect {
	out := PixelRect{
		MinX: b.MinX * factor,
		MinY: b.MinY * factor,
		MaxX: (b.MaxX+1)*factor - 1,
		MaxY: (b.MaxY+1)*factor - 1,
	}
	if out.MaxX >= frameWidth {
		out.MaxX = frameWidth - 1
	}
	if out.MaxY >= frameHeight {
		out.MaxY = frameHeight - 1
	}
	return out
}

// dropOffBox builds a fixed-size box centred horizontally on x and
// sitting just above y (the upper sample point of the break), clamped to
// the frame bounds.
func dropOffBox(x, y, frameWidth, frameHeight int) PixelRect {
	minX := x - dropOffBoxWidth/2
	maxX := minX + dropOffBoxWidth - 1
	maxY := y - 1
	minY := maxY - dropOffBoxHeight + 1

	if minX < 0 {
		minX = 0
	}
	if maxX >= frameWidth {
		maxX = frameWidth - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= frameHeight {
		maxY = frameHeight - 1
	}
	if maxY < minY {
		maxY = minY
	}
	return PixelRect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}
