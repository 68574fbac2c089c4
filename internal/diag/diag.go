// Package diag keeps a bounded ring of recent node/send/power transitions
// and encodes it as CBOR on demand, for field debugging when a node reports
// commsFailed repeatedly. It has no effect on §4's state machines.
package diag

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ringSize bounds how many transitions are retained; older entries are
// overwritten.
const ringSize = 64

// Source names which component produced a transition entry.
type Source string

const (
	SourceNode  Source = "node"
	SourceSend  Source = "send"
	SourcePower Source = "power"
)

// Transition is one recorded state change.
type Transition struct {
	Source Source    `cbor:"1,keyasint"`
	From   string    `cbor:"2,keyasint"`
	To     string    `cbor:"3,keyasint"`
	At     time.Time `cbor:"4,keyasint"`
}

// Ring is a fixed-capacity circular buffer of Transition entries.
type Ring struct {
	entries [ringSize]Transition
	next    int
	count   int
}

// New constructs an empty ring.
func New() *Ring {
	return &Ring{}
}

// Record appends a transition, overwriting the oldest entry once full.
func (r *Ring) Record(source Source, from, to string, at time.Time) {
	r.entries[r.next] = Transition{Source: source, From: from, To: to, At: at}
	r.next = (r.next + 1) % ringSize
	if r.count < ringSize {
		r.count++
	}
}

// Snapshot returns the recorded transitions in chronological order.
func (r *Ring) Snapshot() []Transition {
	out := make([]Transition, 0, r.count)
	start := (r.next - r.count + ringSize) % ringSize
	for i := 0; i < r.count; i++ {
		out = append(out, r.entries[(start+i)%ringSize])
	}
	return out
}

// Dump CBOR-encodes the current snapshot.
func (r *Ring) Dump() ([]byte, error) {
	return cbor.Marshal(r.Snapshot())
}
