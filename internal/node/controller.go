// Package node implements the Node Controller: the master state machine
// binding button events, radio events, the Send Manager, the Display
// Controller, and the power schedule (spec §4.5).
package node

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/ContinuumBridge/galvanize-test-node-app/internal/diag"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/display"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/power"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/sched"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/send"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/wire"
)

// State is a node lifecycle state (spec §3).
type State int

const (
	Initial State = iota
	Search
	SearchFailed
	IncludeReq
	Normal
	Pressed
	Reverting
	CommsProblem
	CommsFailed
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Search:
		return "search"
	case SearchFailed:
		return "search_failed"
	case IncludeReq:
		return "include_req"
	case Normal:
		return "normal"
	case Pressed:
		return "pressed"
	case Reverting:
		return "reverting"
	case CommsProblem:
		return "comms_problem"
	case CommsFailed:
		return "comms_failed"
	default:
		return "unknown"
	}
}

// Transport delivers an encoded outbound frame to the host/radio adaptor.
type Transport interface {
	Transmit(frame []byte)
}

// Config carries the node's compile-time ID and the button-timing
// thresholds, whose exact values vary across firmware revisions (§9 open
// question) and are therefore left to runtime config rather than baked in.
type Config struct {
	NodeID       uint32
	TResetPress  time.Duration
	TStartPress  time.Duration
	TSearchMax   time.Duration
	TPressedHold time.Duration
	// BatteryReportInterval arms a recurring battery-status uplink; zero
	// disables it (SPEC_FULL.md supplemented feature).
	BatteryReportInterval time.Duration
}

// DefaultConfig resolves the §9 open questions: t_reset_press=8s (the value
// present in three of the five source revisions), t_start_press=3s,
// t_search_max=30s, and the pressed->reverting hold at 3s.
func DefaultConfig() Config {
	return Config{
		NodeID:       47,
		TResetPress:  8 * time.Second,
		TStartPress:  3 * time.Second,
		TSearchMax:   30 * time.Second,
		TPressedHold: 3 * time.Second,
	}
}

// Controller is the master state machine. It implements send.Transmitter and
// power.Radio so the Send and Power Managers can be constructed against it
// directly, keeping the single radioOn resource (I3) in one place.
type Controller struct {
	cfg       Config
	sc        sched.Scheduler
	transport Transport
	disp      *display.Controller
	log       *log.Logger

	sendMgr  *send.Manager
	powerMgr *power.Manager

	state           State
	nodeAddress     uint16
	bridgeAddress   uint16
	radioOn         bool
	buttonPressedAt time.Time
	buttonDown      bool

	searchID sched.Handle
	revertID sched.Handle

	diagRing *diag.Ring
}

// SetDiag attaches a diagnostic ring buffer; every state transition from here
// on is recorded into it. Optional — a nil ring (the default) is a no-op.
func (c *Controller) SetDiag(r *diag.Ring) { c.diagRing = r }

func (c *Controller) setState(s State) {
	if c.diagRing != nil && s != c.state {
		c.diagRing.Record(diag.SourceNode, c.state.String(), s.String(), time.Now())
	}
	c.state = s
}

// New wires a Controller and its Send/Power Managers together.
func New(transport Transport, disp *display.Controller, sc sched.Scheduler, cfg Config, logger *log.Logger) *Controller {
	c := &Controller{
		cfg:         cfg,
		sc:          sc,
		transport:   transport,
		disp:        disp,
		log:         logger,
		nodeAddress: wire.Unassigned,
	}
	c.sendMgr = send.New(c, sc, send.Hooks{
		OnCommsProblem: c.onCommsProblem,
		OnCommsFailed:  c.onCommsFailed,
	}, nil, logger)
	c.powerMgr = power.New(c, sc, power.Hooks{
		OnReconnectCycle:   c.onReconnectCycle,
		OnBatteryReportDue: c.onBatteryReportDue,
	}, logger)
	c.powerMgr.StartBatteryReporting(cfg.BatteryReportInterval)
	return c
}

// Transmit implements send.Transmitter.
func (c *Controller) Transmit(frame []byte) { c.transport.Transmit(frame) }

// SetRadioOn implements send.Transmitter and power.Radio — the single
// radioOn resource shared by all three machines (I3). A request to switch the
// radio off is ignored while the Send Manager has an uplink in flight.
func (c *Controller) SetRadioOn(on bool) {
	if !on && c.sendMgr.Sending() {
		return
	}
	if c.radioOn == on {
		return
	}
	c.radioOn = on
	c.log.Debug("radio power", "on", on)
}

// EnqueueWokenUp implements power.Radio: woken_up is itself a queued uplink
// (see SPEC_FULL.md's supplemented-features note), not fire-and-forget.
func (c *Controller) EnqueueWokenUp() {
	c.enqueueUplink(wire.WokenUp, nil)
}

// State reports the current node lifecycle state.
func (c *Controller) State() State { return c.state }

// NodeAddress reports the runtime-assigned address, or wire.Unassigned.
func (c *Controller) NodeAddress() uint16 { return c.nodeAddress }

// BridgeAddress reports the learned bridge address, zero until search succeeds.
func (c *Controller) BridgeAddress() uint16 { return c.bridgeAddress }

// RadioOn reports the shared radioOn resource.
func (c *Controller) RadioOn() bool { return c.radioOn }

func (c *Controller) enqueueUplink(fn wire.Function, payload []byte) {
	frame := wire.Encode(c.bridgeAddress, c.nodeAddress, fn, payload)
	if fn == wire.Ack {
		// An ack answers a bridge frame and is never itself acknowledged, so
		// it is transmitted once instead of occupying the Send Manager.
		c.transport.Transmit(frame)
		return
	}
	if err := c.sendMgr.Enqueue(frame, byte(fn)); err != nil {
		c.log.Warn("node: dropped uplink, send manager busy", "fn", fn, "err", err)
	}
}

// Boot renders the initial slot, the node's state at power-on.
func (c *Controller) Boot() {
	c.setState(Initial)
	c.disp.Render(display.KeyInitial)
}

// --- Button events (spec §4.5, event: button) ---

// HandleButton processes a (buttonState, timeStamp) pair. buttonState==1 is
// press-down, 0 is release.
func (c *Controller) HandleButton(buttonState int, at time.Time) {
	if buttonState == 1 {
		c.buttonDown = true
		c.buttonPressedAt = at
		return
	}
	if !c.buttonDown {
		return
	}
	c.buttonDown = false
	pressedTime := at.Sub(c.buttonPressedAt)

	if pressedTime > c.cfg.TResetPress {
		c.toInitial()
		return
	}

	switch c.state {
	case Initial:
		if pressedTime > c.cfg.TStartPress {
			c.toSearch()
		}
	case Normal:
		c.toPressed()
	case Pressed:
		if pressedTime > c.cfg.TPressedHold {
			c.clearPressed()
		}
	case Reverting:
		c.toNormal()
	case SearchFailed:
		c.toInitial()
	case Search, CommsFailed:
		// no-op, per spec §4.5.
	}
}

func (c *Controller) toInitial() {
	c.sc.Cancel(c.searchID)
	c.sc.Cancel(c.revertID)
	c.setState(Initial)
	c.disp.Render(display.KeyInitial)
}

func (c *Controller) toSearch() {
	c.setState(Search)
	c.disp.Render(display.KeySearch)
	c.SetRadioOn(true)
	c.sc.Cancel(c.searchID)
	c.searchID = c.sc.After(c.cfg.TSearchMax, c.onSearchTimeout)
}

func (c *Controller) toPressed() {
	c.setState(Pressed)
	c.disp.Render("m2")
	c.enqueueUplink(wire.Alert, wire.EncodeAlert(wire.AlertPressed))
}

func (c *Controller) clearPressed() {
	c.enqueueUplink(wire.Alert, wire.EncodeAlert(wire.AlertUserCleared))
	if c.disp.RevertMessage() {
		c.setState(Reverting)
		c.disp.Render("m3")
		c.sc.Cancel(c.revertID)
		c.revertID = c.sc.After(5*time.Second, c.onRevertTimeout)
	} else {
		c.toNormal()
	}
}

func (c *Controller) onRevertTimeout() {
	if c.state == Reverting {
		c.toNormal()
	}
}

func (c *Controller) toNormal() {
	c.sc.Cancel(c.revertID)
	c.setState(Normal)
	c.disp.Render("m1")
}

func (c *Controller) onSearchTimeout() {
	if c.state != Search {
		return
	}
	c.setState(SearchFailed)
	c.SetRadioOn(false)
	c.disp.Render(display.KeySearchFailed)
}

// --- Radio frames (spec §4.5, event: radio frame) ---

// Accept reports whether a frame with this destination should be processed
// at all (I5): the radio must be on, and the destination must be one this
// node accepts.
func (c *Controller) Accept(destination uint16) bool {
	if !c.radioOn {
		return false
	}
	return destination == c.nodeAddress || destination == wire.BeaconAddress || destination == wire.GrantAddress
}

// HandleFrame processes an already-decoded, already-accepted radio frame.
// Callers (the adapter) are expected to have decoded the frame and checked
// Accept first; HandleFrame re-checks Accept defensively (I5).
func (c *Controller) HandleFrame(f wire.Frame) {
	if !c.Accept(f.Destination) {
		c.log.Debug("node: dropping frame, not accepted", "dst", f.Destination, "radioOn", c.radioOn)
		return
	}

	switch f.Function {
	case wire.Beacon:
		c.sc.Cancel(c.searchID)
		if c.state == Search {
			c.bridgeAddress = f.Source
			c.setState(IncludeReq)
			c.enqueueUplink(wire.IncludeReq, wire.EncodeIncludeReq(c.cfg.NodeID))
			c.disp.Render(display.KeyConnecting)
		}
	case wire.IncludeGrant:
		_, nodeAddress, err := wire.IncludeGrantPayload(f.Payload)
		if err != nil {
			c.log.Warn("node: malformed include_grant payload", "err", err)
			break
		}
		// The grant answers the in-flight include_req, ending its retries.
		c.sendMgr.OnAck()
		c.nodeAddress = nodeAddress
		c.setState(Normal)
		c.disp.Render("m1")
		c.enqueueUplink(wire.Ack, nil)
	case wire.Config:
		fd, err := c.disp.ApplyConfig(f.Payload)
		if err != nil {
			c.log.Warn("node: config frame rejected", "err", err)
			break
		}
		if fd.SlotKey != "" {
			c.disp.Render(fd.SlotKey)
		}
		c.enqueueUplink(wire.Ack, nil)
	case wire.SendBattery:
		c.enqueueUplink(wire.BatteryStatus, wire.EncodeBatteryStatus(100))
	case wire.Ack:
		c.sendMgr.OnAck()
		if c.state == CommsProblem {
			// The retry that finally landed recovers the node back to
			// normal service; otherwise only exhausting the schedule
			// (onCommsFailed) or a reset press leads anywhere else from here.
			c.setState(Normal)
		}
	case wire.WokenUp:
		// No node-state effect.
	default:
		c.log.Warn("node: unhandled function", "fn", f.Function)
	}

	if f.Function != wire.Beacon {
		w := uint16(0)
		if f.HasWakeup {
			w = f.Wakeup
		}
		c.powerMgr.SetWakeup(w)
	}
}

// --- Send Manager hooks ---

func (c *Controller) onCommsProblem() {
	// Attempt 3's transient pause: enter the comms_problem state named in
	// spec §3's enumeration. The schedule continues into attempt 4 from
	// here; an ack (handled in HandleFrame), the final attempt-6 failure, or
	// a reset press are the only ways out.
	c.setState(CommsProblem)
	c.disp.Render(display.KeyCommsProblem)
}

func (c *Controller) onCommsFailed() {
	c.setState(CommsFailed)
	c.disp.Render(display.KeyCommsProblem)
	c.powerMgr.StartReconnectCycle()
}

// --- Power Manager hooks ---

func (c *Controller) onBatteryReportDue() {
	c.enqueueUplink(wire.BatteryStatus, wire.EncodeBatteryStatus(100))
}

func (c *Controller) onReconnectCycle() {
	c.disp.Render(display.KeyCommsFailed)
	c.setState(Search)
}
