package debugviz

import (
	"os"
	"path/filepath"
	"testing"

	"nightpath/internal/cv"
)

func TestHistogramPNGWritesFile(t *testing.T) {
	var h cv.BrightnessHistogram
	h.Bins[10] = 5
	h.Bins[200] = 3
	h.Mean = 64

	path := filepath.Join(t.TempDir(), "histogram.png")
	if err := HistogramPNG(h, "test histogram", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
	if info.Size() == 0 {
		t.Error("expected a non-empty PNG file")
	}
}

func TestContrastMapPNGWritesFile(t *testing.T) {
	cm := cv.ContrastMap{
		Width:  4,
		Height: 4,
		Values: make([]float64, 16),
	}
	for i := range cm.Values {
		cm.Values[i] = float64(i) / 16.0
	}

	path := filepath.Join(t.TempDir(), "contrast.png")
	if err := ContrastMapPNG(cm, "test contrast map", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
	if info.Size() == 0 {
		t.Error("expected a non-empty PNG file")
	}
}

func TestContrastMapPNGHandlesZeroWidth(t *testing.T) {
	cm := cv.ContrastMap{}
	path := filepath.Join(t.TempDir(), "empty.png")
	if err := ContrastMapPNG(cm, "empty", path); err != nil {
		t.Fatalf("unexpected error on empty contrast map: %v", err)
	}
}
