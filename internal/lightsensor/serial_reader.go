package lightsensor

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"nightpath/internal/monitoring"
)

// SerialReader streams raw ambient-light readings from a USB-serial lux
// sensor that reports one newline-delimited numeric reading per line.
type SerialReader struct {
	port     serial.Port
	readings chan float64
}

// OpenSerialReader opens portName at baudRate and starts scanning for
// numeric lines. Non-numeric lines are logged and skipped rather than
// treated as a fatal read error.
func OpenSerialReader(portName string, baudRate int) (*SerialReader, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open ambient light sensor port %s: %w", portName, err)
	}

	return &SerialReader{port: port, readings: make(chan float64)}, nil
}

// Readings returns the channel of raw sensor values. A reading of NaN is
// never sent; malformed lines are dropped.
func (r *SerialReader) Readings() <-chan float64 {
	return r.readings
}

// Close closes the underlying serial port.
func (r *SerialReader) Close() error {
	return r.port.Close()
}

// Run scans the serial port until ctx is cancelled or the port closes,
// parsing each line as a raw ambient reading and forwarding it on
// Readings(). It blocks; callers run it in its own goroutine.
func (r *SerialReader) Run(ctx context.Context) error {
	defer close(r.readings)
	scan := bufio.NewScanner(r.port)

	for scan.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		raw, err := strconv.ParseFloat(line, 64)
		if err != nil {
			monitoring.Event(monitoring.SeverityWarning, "lightsensor.serial", "discarding unparsable line %q: %v", line, err)
			continue
		}
		if math.IsNaN(raw) {
			monitoring.Event(monitoring.SeverityWarning, "lightsensor.serial", "discarding NaN reading %q", line)
			continue
		}

		select {
		case r.readings <- raw:
		case <-ctx.Done():
			return nil
		}
	}
	return scan.Err()
}
