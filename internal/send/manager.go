// Package send implements the Send Manager: a single-in-flight uplink queue
// driven against a bounded, randomized retry schedule (spec §4.2).
package send

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ContinuumBridge/galvanize-test-node-app/internal/sched"
)

// ErrBusy is returned by Enqueue when an uplink is already in flight.
var ErrBusy = errors.New("send: an uplink is already in flight")

// Timing constants from spec §4.2 (seconds unless noted).
const (
	ts1 = 3 * time.Second
	ts2 = 6 * time.Second
	ts3 = 4 * time.Second
	ts4 = 8 * time.Second
	ts5 = 30 * time.Second
)

// Transmitter sends an already-encoded frame to the radio, and toggles the
// radio power resource shared with the Node and Power Manager.
type Transmitter interface {
	Transmit(frame []byte)
	SetRadioOn(on bool)
}

// Hooks lets the Node Controller observe Send Manager state transitions it
// must react to, without the Send Manager importing the node package.
type Hooks struct {
	// OnCommsProblem fires on attempt 3 (the transient mid-schedule pause).
	OnCommsProblem func()
	// OnCommsFailed fires after attempt 6 exhausts the schedule. The Power
	// Manager owns everything that happens next (the tr1/tr2 reconnect
	// cycle); the Send Manager's job ends here.
	OnCommsFailed func()
}

// inFlight is the single uplink owned by the Send Manager at any time (I2).
type inFlight struct {
	frame     []byte
	fn        byte
	attempt   int
	waitingID sched.Handle
}

// Manager owns the transmit attempt schedule for one in-flight uplink.
type Manager struct {
	tx    Transmitter
	sc    sched.Scheduler
	hooks Hooks
	rng   *rand.Rand
	log   *log.Logger

	flight *inFlight
}

// New constructs a Send Manager. rng may be nil to use a process-global
// source; tests pass a seeded one for determinism.
func New(tx Transmitter, sc sched.Scheduler, hooks Hooks, rng *rand.Rand, logger *log.Logger) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{tx: tx, sc: sc, hooks: hooks, rng: rng, log: logger}
}

// Sending reports whether an uplink is currently in flight (I2).
func (m *Manager) Sending() bool { return m.flight != nil }

// Enqueue starts a new uplink if none is in flight. Per §7, a collision logs
// a warning and the new frame is dropped — the caller does not get to retry
// on its own; the next user action (e.g. a button press) will try again.
func (m *Manager) Enqueue(frame []byte, fn byte) error {
	if m.flight != nil {
		m.log.Warn("send: dropping frame, uplink already in flight", "fn", fn)
		return fmt.Errorf("send: fn=0x%02x: %w", fn, ErrBusy)
	}
	m.flight = &inFlight{frame: frame, fn: fn, attempt: 1}
	m.tx.SetRadioOn(true)
	m.transmitAndArm(ts1, ts2)
	return nil
}

// OnAck completes the in-flight uplink: cancels waitingID, clears sending,
// ends the schedule.
func (m *Manager) OnAck() {
	if m.flight == nil {
		return
	}
	m.sc.Cancel(m.flight.waitingID)
	m.flight = nil
}

func (m *Manager) uniform(loSec, hiSec float64) time.Duration {
	lo, hi := int(loSec*10), int(hiSec*10)
	deci := lo + m.rng.Intn(hi-lo+1)
	return time.Duration(deci) * 100 * time.Millisecond
}

func (m *Manager) transmitAndArm(loSec, hiSec time.Duration) {
	f := m.flight
	m.tx.Transmit(f.frame)
	d := m.uniform(loSec.Seconds(), hiSec.Seconds())
	m.sc.Cancel(f.waitingID)
	f.waitingID = m.sc.After(d, m.onWaitingFired)
}

// onWaitingFired advances the attempt schedule of spec §4.2's table.
func (m *Manager) onWaitingFired() {
	f := m.flight
	if f == nil {
		return
	}
	f.attempt++
	switch f.attempt {
	case 2:
		m.transmitAndArm(ts3, ts4)
	case 3:
		m.tx.Transmit(f.frame)
		if m.hooks.OnCommsProblem != nil {
			m.hooks.OnCommsProblem()
		}
		m.sc.Cancel(f.waitingID)
		f.waitingID = m.sc.After(ts5, m.onWaitingFired)
	case 4:
		m.transmitAndArm(ts1, ts2)
	case 5:
		m.transmitAndArm(ts3, ts4)
	case 6:
		m.tx.Transmit(f.frame)
		m.log.Warn("send: exhausted retry schedule", "fn", f.fn)
		m.flight = nil
		m.tx.SetRadioOn(false)
		if m.hooks.OnCommsFailed != nil {
			m.hooks.OnCommsFailed()
		}
	default:
		m.log.Warn("send: unexpected attempt count", "attempt", f.attempt)
	}
}
