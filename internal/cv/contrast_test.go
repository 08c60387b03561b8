package cv

import "testing"

func TestComputeContrastMapUniformFrameIsZero(t *testing.T) {
	f := solidFrame(4, 4, 128, 128, 128, 255)
	cm, err := ComputeContrastMap(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range cm.Values {
		if v != 0 {
			t.Errorf("value[%d] = %f, want 0 for uniform frame", i, v)
		}
	}
}

func TestComputeContrastMapDimensionsMatchFrame(t *testing.T) {
	f := solidFrame(9, 5, 30, 200, 90, 255)
	cm, err := ComputeContrastMap(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cm.Width != f.Width || cm.Height != f.Height {
		t.Errorf("dimensions %dx%d, want %dx%d", cm.Width, cm.Height, f.Width, f.Height)
	}
	if len(cm.Values) != f.Width*f.Height {
		t.Errorf("len(Values) = %d, want %d", len(cm.Values), f.Width*f.Height)
	}
}

func TestComputeContrastMapValuesInUnitRange(t *testing.T) {
	w, h := 6, 6
	pixels := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			// 2x2-pixel squares: a 1-pixel checkerboard cancels out under
			// both Sobel kernels and would yield an all-zero map.
			v := byte(0)
			if (x/2+y/2)%2 == 0 {
				v = 255
			}
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, 255
		}
	}
	f := Frame{Width: w, Height: h, Pixels: pixels}
	cm, err := ComputeContrastMap(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	maxVal := 0.0
	for _, v := range cm.Values {
		if v < 0 || v > 1 {
			t.Fatalf("value out of [0,1]: %f", v)
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal < 0.99 {
		t.Errorf("expected a checkerboard interior pixel to normalize near 1.0, got max %f", maxVal)
	}
}

func TestComputeContrastMapBordersAreZero(t *testing.T) {
	w, h := 8, 8
	pixels := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			v := byte((x * 37) % 256)
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, 255
		}
	}
	f := Frame{Width: w, Height: h, Pixels: pixels}
	cm, err := ComputeContrastMap(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for x := 0; x < w; x++ {
		if cm.At(x, 0) != 0 || cm.At(x, h-1) != 0 {
			t.Errorf("expected zero border at column %d", x)
		}
	}
	for y := 0; y < h; y++ {
		if cm.At(0, y) != 0 || cm.At(w-1, y) != 0 {
			t.Errorf("expected zero border at row %d", y)
		}
	}
}
