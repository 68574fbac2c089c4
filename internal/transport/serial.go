// Package transport opens the serial line to the physical radio adaptor and
// exposes it as newline-delimited, base64-framed lines — the same shape
// spec §6.2's inbound/outbound `data` fields use, so the Wire Codec and Node
// Controller never need to know a serial port is involved.
package transport

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"runtime"

	"github.com/tarm/serial"
)

// Frames reads and writes whole radio frames over a line-oriented transport.
type Frames interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
}

// Serial is a Frames implementation over a tarm/serial port.
type Serial struct {
	port    io.ReadWriteCloser
	scanner *bufio.Scanner
}

// Open tries dev, or OS-appropriate defaults when dev is empty, at baud 115200
// — the low-power radio adaptor's fixed link speed.
func Open(dev string) (*Serial, error) {
	const baudRate = 115200

	var devices []string
	if dev != "" {
		devices = append(devices, dev)
	} else {
		switch runtime.GOOS {
		case "windows":
			devices = append(devices, "COM3")
		case "linux":
			devices = append(devices, "/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyACM0")
		}
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("transport: no serial device specified")
	}

	var firstErr error
	for _, d := range devices {
		p, err := serial.OpenPort(&serial.Config{Name: d, Baud: baudRate})
		if err == nil {
			return &Serial{port: p, scanner: bufio.NewScanner(p)}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("transport: open serial port: %w", firstErr)
}

// ReadFrame blocks for the next base64-encoded line and decodes it.
func (s *Serial) ReadFrame() ([]byte, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("transport: read: %w", err)
		}
		return nil, io.EOF
	}
	frame, err := base64.StdEncoding.DecodeString(s.scanner.Text())
	if err != nil {
		return nil, fmt.Errorf("transport: line not valid base64: %w", err)
	}
	return frame, nil
}

// WriteFrame base64-encodes frame and writes it as a newline-terminated line.
func (s *Serial) WriteFrame(frame []byte) error {
	line := base64.StdEncoding.EncodeToString(frame) + "\n"
	if _, err := io.WriteString(s.port, line); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// Close closes the underlying serial port.
func (s *Serial) Close() error { return s.port.Close() }
