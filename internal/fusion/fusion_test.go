package fusion

import (
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }

func TestFuseAllInputsInRange(t *testing.T) {
	now := time.Now()
	in := Inputs{
		MeanLuminance:  f64(200),
		AmbientLux:     f64(150),
		ShadowCoverage: f64(0.1),
	}
	m := Fuse(DefaultWeights(), in, now)

	if m.UnifiedLightLevel < 0 || m.UnifiedLightLevel > 1 {
		t.Fatalf("UnifiedLightLevel out of [0,1]: %f", m.UnifiedLightLevel)
	}
	if m.MeanLuminance != 200 {
		t.Errorf("MeanLuminance = %f, want 200", m.MeanLuminance)
	}
	if m.AmbientLux != 150 {
		t.Errorf("AmbientLux = %f, want 150", m.AmbientLux)
	}
	if m.ShadowCoverage != 0.1 {
		t.Errorf("ShadowCoverage = %f, want 0.1", m.ShadowCoverage)
	}
	if !m.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", m.Timestamp, now)
	}
}

func TestFuseHigherWeightPullsResultTowardThatSignal(t *testing.T) {
	now := time.Now()
	in := Inputs{
		MeanLuminance:  f64(255), // normalizes to 1.0
		AmbientLux:     f64(0),   // normalizes to 0.0
		ShadowCoverage: f64(0),   // 1-coverage normalizes to 1.0
	}

	cameraHeavy := Fuse(Weights{Camera: 0.9, LightSensor: 0.05, Shadow: 0.05}, in, now)
	lightHeavy := Fuse(Weights{Camera: 0.05, LightSensor: 0.9, Shadow: 0.05}, in, now)

	if cameraHeavy.UnifiedLightLevel <= lightHeavy.UnifiedLightLevel {
		t.Errorf("expected camera-heavy weighting (%f) to exceed light-heavy weighting (%f) given a bright camera reading and a zero lux reading",
			cameraHeavy.UnifiedLightLevel, lightHeavy.UnifiedLightLevel)
	}
}

func TestFuseMissingSignalReweightsRemainder(t *testing.T) {
	now := time.Now()

	// Camera and lux agree at a mid-level value; shadow coverage is
	// missing entirely. The fused result should equal a plain average
	// of the two present, equally-weighted signals.
	in := Inputs{
		MeanLuminance: f64(127.5), // normalizes to ~0.5
		AmbientLux:    f64(150),   // normalizes to 0.5 against DefaultMaxLux=300
	}
	m := Fuse(DefaultWeights(), in, now)

	want := 0.5
	const tol = 0.01
	if diff := m.UnifiedLightLevel - want; diff < -tol || diff > tol {
		t.Errorf("UnifiedLightLevel = %f, want ~%f with shadow signal missing", m.UnifiedLightLevel, want)
	}
	// The missing signal's zero-value fields stay at their zero value.
	if m.ShadowCoverage != 0 {
		t.Errorf("ShadowCoverage = %f, want 0 for a missing signal", m.ShadowCoverage)
	}
}

func TestFuseSingleSignalPresentEqualsThatSignalAlone(t *testing.T) {
	now := time.Now()
	in := Inputs{AmbientLux: f64(300)} // normalizes to 1.0 at DefaultMaxLux
	m := Fuse(DefaultWeights(), in, now)

	if m.UnifiedLightLevel != 1 {
		t.Errorf("UnifiedLightLevel = %f, want 1 when the only present signal is saturated", m.UnifiedLightLevel)
	}
}

func TestFuseAllInputsMissingYieldsZero(t *testing.T) {
	m := Fuse(DefaultWeights(), Inputs{}, time.Now())
	if m.UnifiedLightLevel != 0 {
		t.Errorf("UnifiedLightLevel = %f, want 0 when no signals are present", m.UnifiedLightLevel)
	}
}

func TestFuseZeroWeightPresentSignalsFallBackToUnweightedAverage(t *testing.T) {
	now := time.Now()
	in := Inputs{
		MeanLuminance: f64(0),   // normalizes to 0
		AmbientLux:    f64(300), // normalizes to 1
	}
	// A degenerate all-zero weight config should still produce a
	// sensible fused value instead of dividing by zero.
	m := Fuse(Weights{}, in, now)

	want := 0.5
	const tol = 0.01
	if diff := m.UnifiedLightLevel - want; diff < -tol || diff > tol {
		t.Errorf("UnifiedLightLevel = %f, want ~%f under zero weights", m.UnifiedLightLevel, want)
	}
}

func TestFuseCustomMaxLux(t *testing.T) {
	now := time.Now()
	in := Inputs{AmbientLux: f64(50), MaxLux: 50}
	m := Fuse(DefaultWeights(), in, now)
	if m.UnifiedLightLevel != 1 {
		t.Errorf("UnifiedLightLevel = %f, want 1 when AmbientLux equals a custom MaxLux", m.UnifiedLightLevel)
	}
}

func TestFuseClampsOutOfRangeShadowCoverage(t *testing.T) {
	now := time.Now()
	in := Inputs{ShadowCoverage: f64(1.5)} // malformed upstream reading
	m := Fuse(DefaultWeights(), in, now)
	if m.UnifiedLightLevel != 0 {
		t.Errorf("UnifiedLightLevel = %f, want 0 (clamped) for shadow coverage above 1", m.UnifiedLightLevel)
	}
}
