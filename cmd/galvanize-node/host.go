package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ContinuumBridge/galvanize-test-node-app/internal/adapter"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/transport"
)

// stdioHost implements adapter.Host: every outbound envelope is written as a
// JSON line to out (the host framework's stdio channel, §6.2). When radio is
// set, outbound command envelopes are additionally decoded and forwarded to
// the real transport — the radio adaptor has no stdio presence of its own.
type stdioHost struct {
	mu    sync.Mutex
	enc   *json.Encoder
	radio transport.Frames
}

func newStdioHost(w io.Writer, radio transport.Frames) *stdioHost {
	return &stdioHost{enc: json.NewEncoder(w), radio: radio}
}

func (h *stdioHost) Send(e adapter.OutboundEnvelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.enc.Encode(e); err != nil {
		return fmt.Errorf("host: write envelope: %w", err)
	}
	if h.radio == nil || e.Request != "command" {
		return nil
	}
	frame, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return fmt.Errorf("host: decode command data: %w", err)
	}
	if err := h.radio.WriteFrame(frame); err != nil {
		return fmt.Errorf("host: forward frame to radio: %w", err)
	}
	return nil
}

// readStdioEvents decodes one adapter.InboundMessage per line from r until
// EOF or error, calling onMessage for each. This is the "simulated
// collaborators" path: a host framework or test harness drives both service
// negotiation and button/radio data events over stdin, in either of
// §4.6/§6.2's envelope shapes.
func readStdioEvents(r io.Reader, onMessage func(adapter.InboundMessage)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg adapter.InboundMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			return fmt.Errorf("host: malformed inbound message: %w", err)
		}
		onMessage(msg)
	}
	return scanner.Err()
}
