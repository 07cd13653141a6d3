package source

import (
	"context"
	"fmt"
	"os"
)

// SerialSource reads sentences from an NMEA 0183 serial port (USB adapter
// or a multiplexer).
type SerialSource struct {
	// Device may be empty to auto-detect.
	Device string
	Baud   int
}

func (s *SerialSource) Name() string {
	if s.Device == "" {
		return "serial:auto"
	}
	return "serial:" + s.Device
}

func (s *SerialSource) Open(ctx context.Context) (Lines, error) {
	device := s.Device
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			return nil, fmt.Errorf("serial auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
		}
	}
	baud := s.Baud
	if baud == 0 {
		// NMEA 0183 default; high-speed AIS multiplexers use 38400.
		baud = 4800
	}
	port, err := openSerial(device, baud)
	if err != nil {
		return nil, fmt.Errorf("open serial device=%s baud=%d: %w", device, baud, err)
	}
	return newReaderLines(ctx, port, 0), nil
}

func autoDetectDevice() string {
	candidates := []string{}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
