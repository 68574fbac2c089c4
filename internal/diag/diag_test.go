package diag

import (
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotPreservesOrder(t *testing.T) {
	r := New()
	base := time.Unix(0, 0)
	r.Record(SourceNode, "initial", "search", base)
	r.Record(SourceSend, "idle", "sending", base.Add(time.Second))

	got := r.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "search", got[0].To)
	assert.Equal(t, "sending", got[1].To)
}

func TestRingWrapsAtCapacity(t *testing.T) {
	r := New()
	base := time.Unix(0, 0)
	for i := 0; i < ringSize+10; i++ {
		r.Record(SourceNode, "a", "b", base.Add(time.Duration(i)*time.Second))
	}
	got := r.Snapshot()
	require.Len(t, got, ringSize)
	// The oldest 10 entries were overwritten; the first surviving entry is #10.
	assert.Equal(t, base.Add(10*time.Second), got[0].At)
	assert.Equal(t, base.Add(time.Duration(ringSize+9)*time.Second), got[len(got)-1].At)
}

func TestDumpRoundTripsThroughCBOR(t *testing.T) {
	r := New()
	r.Record(SourcePower, "awake", "asleep", time.Unix(100, 0))

	data, err := r.Dump()
	require.NoError(t, err)

	var decoded []Transition
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, SourcePower, decoded[0].Source)
	assert.Equal(t, "asleep", decoded[0].To)
}
