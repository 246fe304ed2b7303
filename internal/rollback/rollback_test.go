package rollback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tnpcore/internal/ir"
)

func TestOnFailureKeepsStableSnapshot(t *testing.T) {
	prev := ir.SnapshotID("round", "rounded_v1")
	m := NewManager(prev)
	f := &ir.Feature{ID: "round", StableSnapshot: prev}

	rb := m.OnFailure(f, "")
	assert.Equal(t, ir.Rollback{From: prev, To: prev}, rb)
	assert.Equal(t, prev, m.Active())
}

func TestOnFailureWithPartialStep(t *testing.T) {
	prev := ir.SnapshotID("shell1", "v1")
	partial := ir.SnapshotID("shell1", "half")
	m := NewManager(prev)

	rb := m.OnFailure(&ir.Feature{ID: "shell1", StableSnapshot: prev}, partial)
	assert.Equal(t, prev, rb.From)
	assert.Equal(t, partial, rb.To)
	assert.Equal(t, partial, m.Active())
}

func TestOnBlockedDoesNotMoveView(t *testing.T) {
	m := NewManager("")
	assert.Equal(t, ir.GenesisSnapshot, m.Active())

	ok := ir.SnapshotID("base", "block")
	m.Confirm(ok)

	rb := m.OnBlocked(&ir.Feature{ID: "hole1"})
	assert.Equal(t, ir.Rollback{From: ir.GenesisSnapshot, To: ir.GenesisSnapshot}, rb)
	assert.Equal(t, ok, m.Active())
}

func TestLog(t *testing.T) {
	m := NewManager(ir.GenesisSnapshot)
	m.OnFailure(&ir.Feature{ID: "a"}, "")
	m.OnBlocked(&ir.Feature{ID: "b"})

	log := m.Log()
	assert.Len(t, log, 2)
	assert.Equal(t, "a", log[0].Feature)
	assert.Equal(t, "b", log[1].Feature)

	log[0].Feature = "mutated"
	assert.Equal(t, "a", m.Log()[0].Feature)
}
