package send

import (
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ContinuumBridge/galvanize-test-node-app/internal/sched"
)

type fakeRadio struct {
	transmits [][]byte
	radioOn   bool
}

func (f *fakeRadio) Transmit(frame []byte) { f.transmits = append(f.transmits, frame) }
func (f *fakeRadio) SetRadioOn(on bool)    { f.radioOn = on }

func newTestManager(t *testing.T) (*Manager, *fakeRadio, *sched.Virtual, *int, *int) {
	t.Helper()
	radio := &fakeRadio{}
	v := sched.NewVirtual()
	commsProblems := 0
	commsFailed := 0
	hooks := Hooks{
		OnCommsProblem: func() { commsProblems++ },
		OnCommsFailed:  func() { commsFailed++ },
	}
	logger := log.New(io.Discard)
	m := New(radio, v, hooks, rand.New(rand.NewSource(1)), logger)
	return m, radio, v, &commsProblems, &commsFailed
}

func TestEnqueueTransmitsImmediately(t *testing.T) {
	m, radio, _, _, _ := newTestManager(t)
	require.NoError(t, m.Enqueue([]byte{1, 2, 3}, 0x09))
	assert.Len(t, radio.transmits, 1)
	assert.True(t, radio.radioOn)
	assert.True(t, m.Sending())
}

func TestEnqueueWhileBusyIsRejected(t *testing.T) {
	m, _, _, _, _ := newTestManager(t)
	require.NoError(t, m.Enqueue([]byte{1}, 0x09))
	err := m.Enqueue([]byte{2}, 0x09)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestOnAckEndsSchedule(t *testing.T) {
	m, radio, v, _, _ := newTestManager(t)
	require.NoError(t, m.Enqueue([]byte{1}, 0x09))
	m.OnAck()
	assert.False(t, m.Sending())
	assert.Equal(t, 0, v.Pending())

	// Further time advances must not cause more transmissions.
	v.Advance(time.Hour)
	assert.Len(t, radio.transmits, 1)
}

func TestOnAckIsNoopWithoutFlight(t *testing.T) {
	m, _, _, _, _ := newTestManager(t)
	m.OnAck() // must not panic
	assert.False(t, m.Sending())
}

func TestFullScheduleToFailure(t *testing.T) {
	m, radio, v, commsProblems, commsFailed := newTestManager(t)
	require.NoError(t, m.Enqueue([]byte{1}, 0x09))

	// With seed 1 the attempts fall at 5.7s, 12.9s, 42.9s, 46.5s and 52.4s.
	v.Advance(10 * time.Second) // attempt 2
	v.Advance(10 * time.Second) // attempt 3 -> comms_problem
	v.Advance(31 * time.Second) // attempts 4 and 5
	v.Advance(10 * time.Second) // attempt 6 -> failure
	v.Advance(10 * time.Second) // nothing left to fire

	assert.Equal(t, 6, len(radio.transmits))
	assert.Equal(t, 1, *commsProblems)
	assert.Equal(t, 1, *commsFailed)
	assert.False(t, m.Sending())
	assert.False(t, radio.radioOn)
}

func TestAckMidScheduleStopsRetries(t *testing.T) {
	m, radio, v, _, commsFailed := newTestManager(t)
	require.NoError(t, m.Enqueue([]byte{1}, 0x09))
	v.Advance(10 * time.Second) // attempt 2 fires
	m.OnAck()
	v.Advance(time.Hour)
	assert.Equal(t, 2, len(radio.transmits))
	assert.Equal(t, 0, *commsFailed)
}
