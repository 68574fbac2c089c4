package transport

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort is an in-memory io.ReadWriteCloser standing in for a serial port.
type fakePort struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func (f *fakePort) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *fakePort) Write(p []byte) (int, error) { return f.out.Write(p) }
func (f *fakePort) Close() error                { return nil }

func newTestSerial(incoming string) (*Serial, *fakePort) {
	fp := &fakePort{in: bytes.NewBufferString(incoming), out: &bytes.Buffer{}}
	return &Serial{port: fp, scanner: bufio.NewScanner(fp)}, fp
}

func TestWriteFrameEncodesBase64Line(t *testing.T) {
	s, fp := newTestSerial("")
	require.NoError(t, s.WriteFrame([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	assert.Equal(t, "3q2+7w==\n", fp.out.String())
}

func TestReadFrameDecodesBase64Line(t *testing.T) {
	s, _ := newTestSerial("3q2+7w==\n")
	frame, err := s.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, frame)
}

func TestReadFrameReturnsEOFWhenExhausted(t *testing.T) {
	s, _ := newTestSerial("")
	_, err := s.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameRejectsInvalidBase64(t *testing.T) {
	s, _ := newTestSerial("not-base64!!\n")
	_, err := s.ReadFrame()
	assert.Error(t, err)
}
