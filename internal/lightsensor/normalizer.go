// Package lightsensor normalizes raw ambient-light sensor readings to a
// lux-scale value (C3), and optionally sources those readings from a
// serial-attached ambient light sensor (many low-cost lux sensors expose
// themselves as a USB-serial device reporting newline-delimited readings).
package lightsensor

// Normalize maps a raw sensor reading to lux. It is monotone
// non-decreasing: negative inputs map to 0, zero maps to 0, and larger
// raw values never produce a smaller lux value.
func Normalize(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	return raw
}

// Calibration applies an affine transform (factor*raw + offset) before
// clamping below at zero. Monotonicity in raw holds whenever factor is
// positive.
type Calibration struct {
	Factor float64
	Offset float64
}

// Apply runs the calibration curve against a raw reading.
func (c Calibration) Apply(raw float64) float64 {
	v := c.Factor*raw + c.Offset
	if v < 0 {
		return 0
	}
	return v
}

// DefaultCalibration is the identity transform: factor 1, offset 0.
func DefaultCalibration() Calibration {
	return Calibration{Factor: 1, Offset: 0}
}
