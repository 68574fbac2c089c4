package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	messages []UserMessage
}

func (f *fakeSink) UserMessage(m UserMessage) { f.messages = append(f.messages, m) }

func TestRenderClampsToNumberLines(t *testing.T) {
	sink := &fakeSink{}
	c := New(sink)
	s, _ := c.Slot("m1")
	s.Lines = [3]string{"one", "two", "three"}
	s.NumberLines = 2
	c.slots["m1"] = &s

	c.Render("m1")
	require.Len(t, sink.messages, 1)
	assert.Equal(t, "one\ntwo", sink.messages[0].Text)
}

func TestRenderUnknownSlotIsNoop(t *testing.T) {
	sink := &fakeSink{}
	c := New(sink)
	c.Render("nope")
	assert.Empty(t, sink.messages)
}

func TestApplyLineWrite(t *testing.T) {
	sink := &fakeSink{}
	c := New(sink)
	// configType 0x12: m1, line 2; length 7; "Hello!!"
	payload := append([]byte{0x12, 7}, []byte("Hello!!")...)
	fd, err := c.ApplyConfig(payload)
	require.NoError(t, err)
	assert.Equal(t, ForcedDisplay{}, fd)

	s, ok := c.Slot("m1")
	require.True(t, ok)
	assert.Equal(t, "Hello!!", s.Lines[1])
}

func TestApplyFormat(t *testing.T) {
	sink := &fakeSink{}
	c := New(sink)
	// configType 0xF2: format for m2; font=3 (large), numberLines=2.
	payload := []byte{0xF2, 0x32}
	_, err := c.ApplyConfig(payload)
	require.NoError(t, err)

	s, _ := c.Slot("m2")
	assert.Equal(t, FontLarge, s.Font)
	assert.Equal(t, 2, s.NumberLines)
}

func TestApplyClearability(t *testing.T) {
	sink := &fakeSink{}
	c := New(sink)
	assert.True(t, c.RevertMessage())

	_, err := c.ApplyConfig([]byte{0xB0, 0x00})
	require.NoError(t, err)
	assert.False(t, c.RevertMessage())

	_, err = c.ApplyConfig([]byte{0xB0, 0x01})
	require.NoError(t, err)
	assert.True(t, c.RevertMessage())
}

func TestApplyForceDisplay(t *testing.T) {
	sink := &fakeSink{}
	c := New(sink)
	// configType 0xD0 (force-display class); payload[1] selects the slot.
	fd, err := c.ApplyConfig([]byte{0xD0, 0x03})
	require.NoError(t, err)
	assert.Equal(t, "m3", fd.SlotKey)
}

func TestApplyConfigUnknownType(t *testing.T) {
	sink := &fakeSink{}
	c := New(sink)
	_, err := c.ApplyConfig([]byte{0x44, 0x00})
	assert.ErrorIs(t, err, ErrUnknownConfigType)

	_, err = c.ApplyConfig([]byte{0xC0, 0x00})
	assert.ErrorIs(t, err, ErrUnknownConfigType)

	_, err = c.ApplyConfig(nil)
	assert.ErrorIs(t, err, ErrUnknownConfigType)
}
