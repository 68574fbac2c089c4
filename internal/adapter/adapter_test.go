package adapter

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ContinuumBridge/galvanize-test-node-app/internal/display"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/node"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/sched"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/wire"
)

type fakeHost struct {
	envelopes []OutboundEnvelope
}

func (f *fakeHost) Send(e OutboundEnvelope) error {
	f.envelopes = append(f.envelopes, e)
	return nil
}

func newTestAdapter(t *testing.T) (*Adapter, *fakeHost, *node.Controller) {
	t.Helper()
	host := &fakeHost{}
	logger := log.New(io.Discard)
	a := New(host, logger)
	disp := display.New(a)
	v := sched.NewVirtual()
	ctrl := node.New(a, disp, v, node.DefaultConfig(), logger)
	a.Bind(ctrl)
	return a, host, ctrl
}

func TestNegotiateIsIdempotentPerCharacteristic(t *testing.T) {
	a, host, _ := newTestAdapter(t)
	a.Negotiate(characteristicRadio, "lprs-1")
	a.Negotiate(characteristicRadio, "lprs-2") // repeat: no-op
	require.Len(t, host.envelopes, 1)
	assert.Equal(t, "lprs-1", a.lprsID)
	assert.Equal(t, "service", host.envelopes[0].Request)
	assert.Equal(t, characteristicRadio, host.envelopes[0].Service[0].Characteristic)

	a.Negotiate(characteristicButtons, "btn-1")
	require.Len(t, host.envelopes, 2)
	assert.Equal(t, "btn-1", a.buttonsID)
}

func TestTransmitEmitsCommandEnvelope(t *testing.T) {
	a, host, _ := newTestAdapter(t)
	frame := []byte{1, 2, 3}
	a.Transmit(frame)
	require.Len(t, host.envelopes, 1)
	e := host.envelopes[0]
	assert.Equal(t, "command", e.Request)
	assert.NotEmpty(t, e.ID)
	decoded, err := base64.StdEncoding.DecodeString(e.Data)
	require.NoError(t, err)
	assert.Equal(t, frame, decoded)
}

func TestUserMessageEmitsEnvelope(t *testing.T) {
	a, host, _ := newTestAdapter(t)
	a.UserMessage(display.UserMessage{Text: "hello"})
	require.Len(t, host.envelopes, 1)
	assert.Equal(t, "user_message", host.envelopes[0].Status)
	assert.Equal(t, "hello", host.envelopes[0].Body)
}

func TestAnnounceLifecycleStates(t *testing.T) {
	a, host, _ := newTestAdapter(t)
	a.AnnounceStarting()
	a.AnnounceRunning()
	a.AnnounceStopped()
	require.Len(t, host.envelopes, 3)
	assert.Equal(t, "starting", host.envelopes[0].State)
	assert.Equal(t, "running", host.envelopes[1].State)
	assert.Equal(t, "stopped", host.envelopes[2].State)
}

func TestHandleButtonEventDispatchesToController(t *testing.T) {
	a, _, ctrl := newTestAdapter(t)
	ctrl.Boot()

	require.NoError(t, a.HandleEvent(InboundEvent{
		Characteristic: characteristicButtons,
		Data:           []byte(`{"leftButton":1}`),
	}))
	require.NoError(t, a.HandleEvent(InboundEvent{
		Characteristic: characteristicButtons,
		Data:           []byte(`{"leftButton":0}`),
	}))
	// A sub-threshold press in the initial state doesn't start a search.
	assert.Equal(t, node.Initial, ctrl.State())
}

func TestHandleInboundServiceNegotiation(t *testing.T) {
	a, host, _ := newTestAdapter(t)
	msg := InboundMessage{
		ID: "lprs-1",
		Service: []ServiceSubscription{
			{Characteristic: characteristicRadio},
		},
	}
	require.NoError(t, a.HandleInbound(msg))
	assert.Equal(t, "lprs-1", a.lprsID)
	require.Len(t, host.envelopes, 1)
	assert.Equal(t, "service", host.envelopes[0].Request)
}

func TestHandleInboundDataEventDelegatesToHandleEvent(t *testing.T) {
	a, _, ctrl := newTestAdapter(t)
	ctrl.Boot()

	msg := InboundMessage{
		Characteristic: characteristicButtons,
		Data:           []byte(`{"leftButton":1}`),
	}
	require.NoError(t, a.HandleInbound(msg))
	assert.Equal(t, node.Initial, ctrl.State())
}

func TestHandleRadioEventRejectsUnacceptedFrame(t *testing.T) {
	a, host, ctrl := newTestAdapter(t)
	ctrl.Boot()
	// Boot renders the initial slot, which is itself one envelope.
	before := len(host.envelopes)

	frame := wire.Encode(ctrl.NodeAddress(), 0x1234, wire.Beacon, nil)
	b64 := base64.StdEncoding.EncodeToString(frame)
	payload := []byte(`{"characteristic":"galvanize_button","data":"` + b64 + `"}`)

	var ev InboundEvent
	require.NoError(t, json.Unmarshal(payload, &ev))
	require.NoError(t, a.HandleEvent(ev))
	// radioOn is false at boot, so the frame is dropped: no reply transmitted.
	assert.Len(t, host.envelopes, before)
}
