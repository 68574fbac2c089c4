package display

import (
	"errors"
	"fmt"

	"github.com/ContinuumBridge/galvanize-test-node-app/internal/wire"
)

// ErrUnknownConfigType is returned by ApplyConfig when the configType byte
// doesn't match any grammar rule in spec §4.3.
var ErrUnknownConfigType = errors.New("display: unknown config type")

// DisplayIndex maps the force-display-slot selector byte to a slot key.
var DisplayIndex = map[byte]string{1: "m1", 2: "m2", 3: "m3", 4: "m4"}

// ForcedDisplay, when non-empty, is the slot the last D0-class config frame
// asked to be force-shown; ApplyConfig reports it but does not render it —
// the Node Controller renders it, and acks the config frame separately.
type ForcedDisplay struct {
	SlotKey string
}

// ApplyConfig mutates the slot store per the config grammar in spec §4.3 and
// reports any force-display request the frame carried.
func (c *Controller) ApplyConfig(payload []byte) (ForcedDisplay, error) {
	if len(payload) < 1 {
		return ForcedDisplay{}, fmt.Errorf("display: empty config payload: %w", ErrUnknownConfigType)
	}
	ct := wire.ConfigType(payload[0])
	switch ct.Kind() {
	case wire.ConfigLineWrite:
		return ForcedDisplay{}, c.applyLineWrite(ct, payload)
	case wire.ConfigFormat:
		return ForcedDisplay{}, c.applyFormat(ct, payload)
	case wire.ConfigClearability:
		return ForcedDisplay{}, c.applyClearability(payload)
	case wire.ConfigForceDisplay:
		return c.applyForceDisplay(payload)
	default:
		return ForcedDisplay{}, fmt.Errorf("display: configType 0x%02x: %w", byte(ct), ErrUnknownConfigType)
	}
}

func (c *Controller) applyLineWrite(ct wire.ConfigType, payload []byte) error {
	if len(payload) < 2 {
		return fmt.Errorf("display: line-write payload too short: %w", ErrUnknownConfigType)
	}
	slotKey, ok := wire.SlotKey(byte(ct) >> 4)
	if !ok {
		return fmt.Errorf("display: line-write slot nibble 0x%x: %w", byte(ct)>>4, ErrUnknownConfigType)
	}
	lineIdx := int(byte(ct) & 0x0F)
	if lineIdx < 1 || lineIdx > 3 {
		return fmt.Errorf("display: line-write line index %d: %w", lineIdx, ErrUnknownConfigType)
	}
	length := int(payload[1])
	if len(payload) < 2+length {
		return fmt.Errorf("display: line-write declared length %d exceeds payload: %w", length, ErrUnknownConfigType)
	}
	text := string(payload[2 : 2+length])
	s := c.slots[slotKey]
	s.Lines[lineIdx-1] = text
	return nil
}

func (c *Controller) applyFormat(ct wire.ConfigType, payload []byte) error {
	slotKey, ok := wire.SlotKey(byte(ct) & 0x0F)
	if !ok {
		return fmt.Errorf("display: format slot nibble 0x%x: %w", byte(ct)&0x0F, ErrUnknownConfigType)
	}
	if len(payload) < 2 {
		return fmt.Errorf("display: format payload too short: %w", ErrUnknownConfigType)
	}
	font := Font(payload[1] >> 4)
	numberLines := int(payload[1] & 0x0F)
	if font < FontSmall || font > FontLarge {
		return fmt.Errorf("display: font index %d: %w", font, ErrUnknownConfigType)
	}
	if numberLines > 3 {
		return fmt.Errorf("display: numberLines %d: %w", numberLines, ErrUnknownConfigType)
	}
	s := c.slots[slotKey]
	s.Font = font
	s.NumberLines = numberLines
	return nil
}

func (c *Controller) applyClearability(payload []byte) error {
	if len(payload) < 2 {
		return fmt.Errorf("display: clearability payload too short: %w", ErrUnknownConfigType)
	}
	c.revertMessage = payload[1]&0x01 != 0
	return nil
}

func (c *Controller) applyForceDisplay(payload []byte) (ForcedDisplay, error) {
	if len(payload) < 2 {
		return ForcedDisplay{}, fmt.Errorf("display: force-display payload too short: %w", ErrUnknownConfigType)
	}
	slotKey, ok := DisplayIndex[payload[1]]
	if !ok {
		return ForcedDisplay{}, fmt.Errorf("display: force-display selector 0x%x: %w", payload[1], ErrUnknownConfigType)
	}
	return ForcedDisplay{SlotKey: slotKey}, nil
}
