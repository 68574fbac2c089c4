package adapter

import "encoding/json"

// InboundEvent is a host-originated event: either a radio frame arriving on
// the "galvanize_button" characteristic or a button transition on "buttons"
// (spec §6.2).
type InboundEvent struct {
	Characteristic string          `json:"characteristic"`
	Data           json.RawMessage `json:"data"`
	TimeStamp      *float64        `json:"timeStamp,omitempty"`
}

// buttonData is the decoded shape of InboundEvent.Data when Characteristic
// is "buttons".
type buttonData struct {
	LeftButton int `json:"leftButton"`
}

// ServiceSubscription requests the host deliver events for a characteristic
// at the given polling interval (0 means event-driven, no polling).
type ServiceSubscription struct {
	Characteristic string `json:"characteristic"`
	Interval       int    `json:"interval"`
}

// InboundMessage is the envelope shape the host may send on the inbound
// channel: either a service-negotiation offer (Service set, naming the
// collaborator id that offers each characteristic) or a data event
// (Characteristic/Data/TimeStamp set), per spec §4.6.
type InboundMessage struct {
	ID             string                `json:"id,omitempty"`
	Characteristic string                `json:"characteristic,omitempty"`
	Data           json.RawMessage       `json:"data,omitempty"`
	TimeStamp      *float64              `json:"timeStamp,omitempty"`
	Service        []ServiceSubscription `json:"service,omitempty"`
}

// OutboundEnvelope is the single host-bound wire shape; which fields are set
// depends on the envelope kind (spec §6.2). Every envelope carries a fresh id.
type OutboundEnvelope struct {
	ID      string                `json:"id"`
	Request string                `json:"request,omitempty"`
	Status  string                `json:"status,omitempty"`
	Data    string                `json:"data,omitempty"`
	Body    string                `json:"body,omitempty"`
	State   string                `json:"state,omitempty"`
	Service []ServiceSubscription `json:"service,omitempty"`
}

// Host delivers an outbound envelope to the host framework.
type Host interface {
	Send(OutboundEnvelope) error
}
