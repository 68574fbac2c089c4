// Package power implements the Power Manager: radio on/off gating and the
// wake-up/reconnect scheduling of spec §4.4.
package power

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/ContinuumBridge/galvanize-test-node-app/internal/sched"
)

const tKeepAwake = 5 * time.Second
const tr1 = 360 * time.Second
const tr2 = 3600 * time.Second

// Radio is the shared radioOn resource, and the one uplink path the Power
// Manager needs (woken_up is itself queued through the Send Manager, see
// SPEC_FULL.md's supplemented-features note).
type Radio interface {
	SetRadioOn(on bool)
	EnqueueWokenUp()
}

// Hooks lets the Node Controller react to power-driven transitions.
type Hooks struct {
	// OnReconnectCycle fires every reconnect attempt (first after tr1, then
	// every tr2): render commsFailed and move nodeState back to search.
	OnReconnectCycle func()
	// OnBatteryReportDue fires every batteryReportInterval while reporting is
	// armed (config-driven, SPEC_FULL.md supplemented feature).
	OnBatteryReportDue func()
}

// Manager owns wakeupID and batteryReportID; radioOn itself lives behind
// Radio, and the Manager only switches it.
type Manager struct {
	radio Radio
	sc    sched.Scheduler
	hooks Hooks
	log   *log.Logger

	wakeupID        sched.Handle
	batteryReportID sched.Handle
}

// New constructs a Power Manager.
func New(radio Radio, sc sched.Scheduler, hooks Hooks, logger *log.Logger) *Manager {
	return &Manager{radio: radio, sc: sc, hooks: hooks, log: logger}
}

// OnWakeup signals the bridge we are listening by enqueuing a woken_up uplink.
func (m *Manager) OnWakeup() {
	m.radio.EnqueueWokenUp()
}

// SetWakeup cancels any pending wakeupID and re-arms it per the bridge's
// requested interval w (seconds). w == 0 means go to sleep after the
// keep-awake interval instead of waiting for a wakeup.
func (m *Manager) SetWakeup(w uint16) {
	m.sc.Cancel(m.wakeupID)
	if w == 0 {
		m.wakeupID = m.sc.After(tKeepAwake, m.goToSleep)
		return
	}
	interval := 2 * time.Duration(w) * time.Second
	m.wakeupID = m.sc.After(interval, m.OnWakeup)
}

// CancelWakeup cancels any pending wakeupID without arming a new one.
func (m *Manager) CancelWakeup() {
	m.sc.Cancel(m.wakeupID)
	m.wakeupID = 0
}

func (m *Manager) goToSleep() {
	m.radio.SetRadioOn(false)
}

// StartReconnectCycle is invoked once, when the Send Manager's schedule is
// exhausted (comms_failed). It arms the first reconnect after tr1; each
// firing re-arms itself after tr2, recurring for as long as the node stays
// in a failed reconnect loop.
func (m *Manager) StartReconnectCycle() {
	m.armReconnect(tr1)
}

func (m *Manager) armReconnect(d time.Duration) {
	m.sc.After(d, func() {
		m.radio.SetRadioOn(true)
		if m.hooks.OnReconnectCycle != nil {
			m.hooks.OnReconnectCycle()
		}
		m.armReconnect(tr2)
	})
}

// StartBatteryReporting arms a recurring battery-status report every
// interval; interval == 0 disables reporting (the config default). Each
// firing re-arms itself, so reporting continues for the node's lifetime once
// started.
func (m *Manager) StartBatteryReporting(interval time.Duration) {
	m.sc.Cancel(m.batteryReportID)
	if interval <= 0 {
		m.batteryReportID = 0
		return
	}
	m.armBatteryReport(interval)
}

func (m *Manager) armBatteryReport(interval time.Duration) {
	m.batteryReportID = m.sc.After(interval, func() {
		if m.hooks.OnBatteryReportDue != nil {
			m.hooks.OnBatteryReportDue()
		}
		m.armBatteryReport(interval)
	})
}
