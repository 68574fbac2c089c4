// Package wire implements the byte-level radio frame protocol exchanged with
// the bridge: big-endian header, optional wakeup field, optional payload.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Function is a frame function code.
type Function byte

const (
	IncludeReq    Function = 0x00
	SIncludeReq   Function = 0x01
	IncludeGrant  Function = 0x02
	Reinclude     Function = 0x04
	Config        Function = 0x05
	SendBattery   Function = 0x06
	WokenUp       Function = 0x07
	Ack           Function = 0x08
	Alert         Function = 0x09
	Beacon        Function = 0x0A
	BatteryStatus Function = 0x10 // auxiliary; never decoded, only ever encoded by us.
)

// Well-known addresses, see spec §3.
const (
	BeaconAddress uint16 = 0xBBBB
	GrantAddress  uint16 = 0xBB00
	Unassigned    uint16 = 0xFFFF
)

// Alert payload codes.
const (
	AlertPressed        uint16 = 0x0000
	AlertUserCleared     uint16 = 0x0100
	AlertServiceCleared uint16 = 0x0200
)

var functionNames = map[Function]bool{
	IncludeReq: true, SIncludeReq: true, IncludeGrant: true, Reinclude: true,
	Config: true, SendBattery: true, WokenUp: true, Ack: true, Alert: true, Beacon: true,
}

const headerLen = 6

var (
	// ErrInvalidLength is returned when the buffer is shorter than the header
	// or its length byte is inconsistent with the buffer it came in, or the
	// length is 7 and so cuts the 2-byte wakeup field short.
	ErrInvalidLength = errors.New("wire: invalid length")
	// ErrUnknownFunction is returned when the function byte isn't one we recognize.
	ErrUnknownFunction = errors.New("wire: unknown function")
)

// Frame is a single decoded radio frame.
type Frame struct {
	Destination uint16
	Source      uint16
	Function    Function
	// Wakeup is the bridge-requested next wake interval in seconds. Present
	// iff the encoded length byte was > 6.
	Wakeup    uint16
	HasWakeup bool
	Payload   []byte
}

// Encode serializes dst/src/fn/payload into a wire frame. The wakeup field is
// never emitted by the node — it is inbound-only, from the bridge.
func Encode(dst, src uint16, fn Function, payload []byte) []byte {
	length := headerLen + len(payload)
	buf := make([]byte, length)
	binary.BigEndian.PutUint16(buf[0:2], dst)
	binary.BigEndian.PutUint16(buf[2:4], src)
	buf[4] = byte(fn)
	buf[5] = byte(length)
	copy(buf[headerLen:], payload)
	return buf
}

// Decode parses a wire frame. The wakeup field, when present, lives at
// offset [6:8) — not [5:7) as some firmware revisions mistakenly read it;
// offset 5 is the length byte.
func Decode(b []byte) (Frame, error) {
	if len(b) < headerLen {
		return Frame{}, fmt.Errorf("wire: buffer of %d bytes shorter than header: %w", len(b), ErrInvalidLength)
	}
	length := int(b[5])
	if length < headerLen || length != len(b) {
		return Frame{}, fmt.Errorf("wire: length byte %d inconsistent with %d-byte buffer: %w", length, len(b), ErrInvalidLength)
	}
	if length == headerLen+1 {
		return Frame{}, fmt.Errorf("wire: length byte %d truncates the wakeup field: %w", length, ErrInvalidLength)
	}
	fn := Function(b[4])
	if !functionNames[fn] {
		return Frame{}, fmt.Errorf("wire: function 0x%02x: %w", byte(fn), ErrUnknownFunction)
	}
	f := Frame{
		Destination: binary.BigEndian.Uint16(b[0:2]),
		Source:      binary.BigEndian.Uint16(b[2:4]),
		Function:    fn,
	}
	if length > 6 {
		f.HasWakeup = true
		f.Wakeup = binary.BigEndian.Uint16(b[6:8])
	}
	if length > 8 {
		f.Payload = append([]byte(nil), b[8:length]...)
	}
	return f, nil
}

// IncludeGrantPayload decodes the include_grant payload: a 4-byte opaque
// address followed by the 2-byte assigned node address.
func IncludeGrantPayload(p []byte) (addr [4]byte, nodeAddress uint16, err error) {
	if len(p) < 6 {
		return addr, 0, fmt.Errorf("wire: include_grant payload of %d bytes: %w", len(p), ErrInvalidLength)
	}
	copy(addr[:], p[0:4])
	nodeAddress = binary.BigEndian.Uint16(p[4:6])
	return addr, nodeAddress, nil
}

// EncodeIncludeReq encodes the include_req payload: the big-endian NODE_ID.
func EncodeIncludeReq(nodeID uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, nodeID)
	return b
}

// EncodeAlert encodes the 2-byte alert code payload.
func EncodeAlert(code uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, code)
	return b
}

// DecodeAlert decodes the 2-byte alert code payload.
func DecodeAlert(p []byte) (uint16, error) {
	if len(p) < 2 {
		return 0, fmt.Errorf("wire: alert payload of %d bytes: %w", len(p), ErrInvalidLength)
	}
	return binary.BigEndian.Uint16(p[0:2]), nil
}

// EncodeBatteryStatus encodes a 0..100 battery percentage payload.
func EncodeBatteryStatus(percent uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, percent)
	return b
}

// ConfigType is the first byte of a config frame's payload.
type ConfigType byte

// Kind classifies a ConfigType per the grammar in spec §4.3.
func (c ConfigType) Kind() ConfigKind {
	switch {
	case c < 0x44:
		return ConfigLineWrite
	case c&0xF0 == 0xF0:
		return ConfigFormat
	case c&0xF0 == 0xB0:
		return ConfigClearability
	case c&0xF0 == 0xD0:
		return ConfigForceDisplay
	default:
		return ConfigUnknown
	}
}

// ConfigKind is the decoded shape of a config payload.
type ConfigKind int

const (
	ConfigUnknown ConfigKind = iota
	ConfigLineWrite
	ConfigFormat
	ConfigClearability
	ConfigForceDisplay
)

// SlotKey selects a user-configurable message slot (m1..m4) from a nibble,
// as used by the message-line-write and per-slot-formatting config grammar.
func SlotKey(nibble byte) (string, bool) {
	switch nibble {
	case 1:
		return "m1", true
	case 2:
		return "m2", true
	case 3:
		return "m3", true
	case 4:
		return "m4", true
	default:
		return "", false
	}
}
