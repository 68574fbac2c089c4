// Package adapter implements the Event/Command Adapter: translates inbound
// host JSON envelopes into Node Controller calls, and Node Controller/Display
// output into outbound host envelopes (spec §4.6, §6.2).
package adapter

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ContinuumBridge/galvanize-test-node-app/internal/display"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/node"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/wire"
)

const (
	characteristicRadio   = "galvanize_button"
	characteristicButtons = "buttons"
)

// Adapter owns the host-facing envelope boundary. It implements node.Transport
// (outbound commands) and display.Sink (outbound user messages).
type Adapter struct {
	host Host
	ctrl *node.Controller
	log  *log.Logger

	// lprsID/buttonsID are the host-assigned collaborator ids learned once
	// per characteristic, via Negotiate. Re-negotiating the same
	// characteristic is a no-op — the original firmware re-subscribes every
	// time, which would spam the host.
	lprsID    string
	buttonsID string
}

// New constructs an Adapter. ctrl is wired separately by the caller (the
// Adapter needs to exist first so ctrl's transport points back at it).
func New(host Host, logger *log.Logger) *Adapter {
	return &Adapter{host: host, log: logger}
}

// Bind attaches the Node Controller once constructed.
func (a *Adapter) Bind(ctrl *node.Controller) { a.ctrl = ctrl }

// Transmit implements node.Transport: wraps an already-encoded radio frame in
// a command envelope addressed to the radio adaptor collaborator.
func (a *Adapter) Transmit(frame []byte) {
	a.send(OutboundEnvelope{
		Request: "command",
		Data:    base64.StdEncoding.EncodeToString(frame),
	})
}

// UserMessage implements display.Sink.
func (a *Adapter) UserMessage(m display.UserMessage) {
	a.send(OutboundEnvelope{Status: "user_message", Body: m.Text})
}

// AnnounceStarting emits {status:"state", state:"starting"}, before
// collaborators are wired (supplemented feature, SPEC_FULL.md).
func (a *Adapter) AnnounceStarting() { a.send(OutboundEnvelope{Status: "state", State: "starting"}) }

// AnnounceRunning emits {status:"state", state:"running"}, once the Node
// Controller has rendered its first display slot.
func (a *Adapter) AnnounceRunning() { a.send(OutboundEnvelope{Status: "state", State: "running"}) }

// AnnounceStopped emits {status:"state", state:"stopped"} on shutdown.
func (a *Adapter) AnnounceStopped() { a.send(OutboundEnvelope{Status: "state", State: "stopped"}) }

func (a *Adapter) send(e OutboundEnvelope) {
	e.ID = uuid.New().String()
	if err := a.host.Send(e); err != nil {
		a.log.Warn("adapter: host send failed", "err", err)
	}
}

// Negotiate records a characteristic's collaborator id and, the first time
// it's seen, requests the host subscribe to it. Repeats are a no-op.
func (a *Adapter) Negotiate(characteristic, id string) {
	switch characteristic {
	case characteristicRadio:
		if a.lprsID != "" {
			return
		}
		a.lprsID = id
	case characteristicButtons:
		if a.buttonsID != "" {
			return
		}
		a.buttonsID = id
	default:
		a.log.Warn("adapter: service negotiation for unknown characteristic", "characteristic", characteristic)
		return
	}
	a.send(OutboundEnvelope{
		Request: "service",
		Service: []ServiceSubscription{{Characteristic: characteristic, Interval: 0}},
	})
}

// HandleInbound routes one decoded inbound message. A service-negotiation
// offer (Service set) is applied via Negotiate for every characteristic it
// names; anything else is a data event routed through HandleEvent (spec
// §4.6).
func (a *Adapter) HandleInbound(msg InboundMessage) error {
	if len(msg.Service) > 0 {
		for _, s := range msg.Service {
			a.Negotiate(s.Characteristic, msg.ID)
		}
		return nil
	}
	return a.HandleEvent(InboundEvent{
		Characteristic: msg.Characteristic,
		Data:           msg.Data,
		TimeStamp:      msg.TimeStamp,
	})
}

// HandleEvent routes one decoded inbound event to the Node Controller.
func (a *Adapter) HandleEvent(ev InboundEvent) error {
	switch ev.Characteristic {
	case characteristicRadio:
		return a.handleRadioEvent(ev)
	case characteristicButtons:
		return a.handleButtonEvent(ev)
	default:
		a.log.Warn("adapter: event for unknown characteristic", "characteristic", ev.Characteristic)
		return nil
	}
}

func (a *Adapter) handleRadioEvent(ev InboundEvent) error {
	var b64 string
	if err := json.Unmarshal(ev.Data, &b64); err != nil {
		return fmt.Errorf("adapter: radio event data not a base64 string: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		a.log.Warn("adapter: radio frame not valid base64", "err", err)
		return nil
	}
	f, err := wire.Decode(raw)
	if err != nil {
		a.log.Warn("adapter: radio frame decode failed", "err", err)
		return nil
	}
	if !a.ctrl.Accept(f.Destination) {
		return nil
	}
	a.ctrl.HandleFrame(f)
	return nil
}

func (a *Adapter) handleButtonEvent(ev InboundEvent) error {
	var b buttonData
	if err := json.Unmarshal(ev.Data, &b); err != nil {
		return fmt.Errorf("adapter: button event data malformed: %w", err)
	}
	at := time.Now()
	if ev.TimeStamp != nil {
		at = time.Unix(0, int64(*ev.TimeStamp*float64(time.Second)))
	}
	a.ctrl.HandleButton(b.LeftButton, at)
	return nil
}
