package cv

import "testing"

func TestClassifyHazardsUniformFrameNoHazards(t *testing.T) {
	f := solidFrame(64, 64, 100, 100, 100, 255)
	hazards, err := ClassifyHazards(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hazards) != 0 {
		t.Errorf("expected no hazards in a uniform frame, got %d", len(hazards))
	}
}

func TestClassifyHazardsConfidenceAndBoundsInRange(t *testing.T) {
	w, h := 64, 64
	pixels := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			v := byte(20)
			if x > 20 && x < 40 && y > 20 && y < 40 {
				v = 230 // bright block against dark background: strong edges
			}
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, 255
		}
	}
	f := Frame{Width: w, Height: h, Pixels: pixels}

	hazards, err := ClassifyHazards(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, hz := range hazards {
		if hz.Confidence < 0 || hz.Confidence > 1 {
			t.Errorf("confidence out of [0,1]: %f", hz.Confidence)
		}
		if hz.Box.MinX < 0 || hz.Box.MinY < 0 || hz.Box.MaxX >= w || hz.Box.MaxY >= h {
			t.Errorf("hazard box %+v escapes frame bounds %dx%d", hz.Box, w, h)
		}
		if hz.ID == "" {
			t.Error("expected a non-empty stable hazard id")
		}
	}
}

func TestClassifyHazardsDropOffDetectsSharpVerticalBreak(t *testing.T) {
	w, h := 80, 80
	pixels := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			v := byte(200)
			if y >= 60 {
				v = 20 // sharp drop in luminance low in the frame
			}
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, 255
		}
	}
	f := Frame{Width: w, Height: h, Pixels: pixels}
	hazards, err := ClassifyHazards(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, hz := range hazards {
		if hz.Kind == HazardDropOff {
			found = true
		}
	}
	if !found {
		t.Error("expected at least one drop-off hazard across the luminance break")
	}
}

func TestClassifyHazardsInvalidFrame(t *testing.T) {
	f := Frame{Width: 4, Height: 4, Pixels: make([]byte, 5)}
	if _, err := ClassifyHazards(f); err == nil {
		t.Fatal("expected error for malformed frame buffer")
	}
}
