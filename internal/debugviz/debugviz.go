// Package debugviz renders per-frame vision artifacts (BrightnessHistogram,
// ContrastMap) to PNG for offline tuning sessions. It is never on the
// per-frame hot path — only cmd/nightpathd calls it, when its -debug-dir
// flag is set.
package debugviz

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"nightpath/internal/cv"
)

// HistogramPNG renders a 256-bin luminance histogram as a bar chart and
// writes it to path.
func HistogramPNG(h cv.BrightnessHistogram, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Luminance"
	p.Y.Label.Text = "Pixel count"

	values := make(plotter.Values, len(h.Bins))
	for i, count := range h.Bins {
		values[i] = float64(count)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(1))
	if err != nil {
		return fmt.Errorf("build histogram bar chart: %w", err)
	}
	bars.Color = color.RGBA{R: 80, G: 120, B: 200, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save histogram plot: %w", err)
	}
	return nil
}

// ContrastMapPNG renders a contrast map as a row-major heatmap, one tile
// per pixel, and writes it to path.
func ContrastMapPNG(cm cv.ContrastMap, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	if cm.Width > 0 && cm.Height > 0 {
		grid := contrastGridder{cm: cm}
		heat := plotter.NewHeatMap(grid, palette.Grey(32))
		p.Add(heat)
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch*vg.Length(safeAspect(cm)), path); err != nil {
		return fmt.Errorf("save contrast map plot: %w", err)
	}
	return nil
}

func safeAspect(cm cv.ContrastMap) float64 {
	if cm.Width == 0 {
		return 1
	}
	return float64(cm.Height) / float64(cm.Width)
}

// contrastGridder adapts a ContrastMap to gonum/plot's GridXYZ interface.
type contrastGridder struct {
	cm cv.ContrastMap
}

func (g contrastGridder) Dims() (c, r int) { return g.cm.Width, g.cm.Height }
func (g contrastGridder) X(c int) float64  { return float64(c) }
func (g contrastGridder) Y(r int) float64  { return float64(r) }
func (g contrastGridder) Z(c, r int) float64 {
	idx := r*g.cm.Width + c
	if idx < 0 || idx >= len(g.cm.Values) {
		return 0
	}
	return g.cm.Values[idx]
}

