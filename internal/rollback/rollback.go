// Package rollback tracks the document's active geometry view across one
// rebuild pass and produces the {from, to} pair attached to every failed
// or blocked feature.
package rollback

import (
	"github.com/roach88/tnpcore/internal/ir"
)

// Entry records one rollback decision.
type Entry struct {
	Feature  string
	Rollback ir.Rollback
}

// Manager is owned by a single rebuild pass; it is not safe for
// concurrent use.
type Manager struct {
	active string
	log    []Entry
}

// NewManager starts from the document's active snapshot.
func NewManager(active string) *Manager {
	if active == "" {
		active = ir.GenesisSnapshot
	}
	return &Manager{active: active}
}

// OnFailure restores the view after feature f failed. From is the
// feature's stable snapshot before the attempt. To equals From unless
// the operation confirmed an intermediate step (partial, a snapshot id),
// in which case the view is left on that step.
func (m *Manager) OnFailure(f *ir.Feature, partial string) ir.Rollback {
	from := stable(f)
	to := from
	if partial != "" {
		to = partial
	}
	m.active = to
	return m.record(f.ID, ir.Rollback{From: from, To: to})
}

// OnBlocked records a feature skipped because an upstream failed. The view
// does not move: from and to are both the feature's stable snapshot.
func (m *Manager) OnBlocked(f *ir.Feature) ir.Rollback {
	s := stable(f)
	return m.record(f.ID, ir.Rollback{From: s, To: s})
}

// Confirm advances the view to a successfully produced snapshot.
func (m *Manager) Confirm(snapshot string) {
	m.active = snapshot
}

// Active returns the snapshot the document is currently on.
func (m *Manager) Active() string {
	return m.active
}

// Log returns the rollbacks recorded so far, in evaluation order.
func (m *Manager) Log() []Entry {
	out := make([]Entry, len(m.log))
	copy(out, m.log)
	return out
}

func (m *Manager) record(feature string, rb ir.Rollback) ir.Rollback {
	m.log = append(m.log, Entry{Feature: feature, Rollback: rb})
	return rb
}

func stable(f *ir.Feature) string {
	if f.StableSnapshot == "" {
		return ir.GenesisSnapshot
	}
	return f.StableSnapshot
}
