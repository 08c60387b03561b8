// Package fusion combines heterogeneous ambient-light signals — camera
// luminance, ambient lux, and shadow coverage — into the single
// normalized unifiedLightLevel the rest of the pipeline keys off.
package fusion

import "time"

// LightMetrics is the fused output of sensor fusion plus the raw inputs
// that produced it, timestamped at the moment of fusion.
type LightMetrics struct {
	MeanLuminance     float64 // 0..255
	AmbientLux        float64 // >= 0
	ShadowCoverage    float64 // 0..1
	UnifiedLightLevel float64 // 0..1
	Timestamp         time.Time
}

// Weights are the per-signal contributions to the fused value, each
// expected in [0,1].
type Weights struct {
	Camera      float64
	LightSensor float64
	Shadow      float64
}

// DefaultWeights returns a balanced three-way split.
func DefaultWeights() Weights {
	return Weights{Camera: 1.0 / 3, LightSensor: 1.0 / 3, Shadow: 1.0 / 3}
}

// Inputs holds the per-frame/per-reading values fusion combines. A nil
// pointer marks a signal as unavailable for this update — fusion
// downgrades gracefully by reweighting the remaining signals.
type Inputs struct {
	MeanLuminance  *float64 // 0..255, from the brightness histogram (C1)
	AmbientLux     *float64 // >=0, already lux-normalized (C3)
	MaxLux         float64  // full-scale lux used to map AmbientLux into [0,1]; 0 uses DefaultMaxLux
	ShadowCoverage *float64 // 0..1, from the shadow detector (C2)
}

// DefaultMaxLux is the full-scale ambient reading used to normalize lux
// into [0,1] when Inputs.MaxLux is unset. Street-lighting-to-dusk range.
const DefaultMaxLux = 300.0

// Fuse combines the available inputs into a [0,1] unified light level
// using weights, reweighting the remaining signals to preserve the
// original total weight when one or more inputs are missing.
func Fuse(weights Weights, in Inputs, now time.Time) LightMetrics {
	type component struct {
		value  float64
		weight float64
	}

	var components []component
	var meanLuminance, ambientLux, shadowCoverage float64

	if in.MeanLuminance != nil {
		meanLuminance = *in.MeanLuminance
		components = append(components, component{value: clamp01(meanLuminance / 255), weight: weights.Camera})
	}
	if in.AmbientLux != nil {
		ambientLux = *in.AmbientLux
		maxLux := in.MaxLux
		if maxLux <= 0 {
			maxLux = DefaultMaxLux
		}
		components = append(components, component{value: clamp01(ambientLux / maxLux), weight: weights.LightSensor})
	}
	if in.ShadowCoverage != nil {
		shadowCoverage = *in.ShadowCoverage
		components = append(components, component{value: clamp01(1 - shadowCoverage), weight: weights.Shadow})
	}

	// Reweighting a missing signal's share away means the surviving
	// weights are proportionally scaled to sum back to the original
	// total; the resulting weighted average is equivalent to averaging
	// over the present weights directly.
	var unified float64
	if len(components) > 0 {
		var presentWeight float64
		for _, c := range components {
			presentWeight += c.weight
		}
		if presentWeight <= 0 {
			// All present signals carry zero weight; fall back to an
			// unweighted average so a degenerate config still fuses.
			var sum float64
			for _, c := range components {
				sum += c.value
			}
			unified = sum / float64(len(components))
		} else {
			var sum float64
			for _, c := range components {
				sum += c.value * c.weight
			}
			unified = sum / presentWeight
		}
	}

	return LightMetrics{
		MeanLuminance:     meanLuminance,
		AmbientLux:        ambientLux,
		ShadowCoverage:    shadowCoverage,
		UnifiedLightLevel: clamp01(unified),
		Timestamp:         now,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
