package store

import (
	"context"
	"fmt"

	"github.com/roach88/tnpcore/internal/canon"
	"github.com/roach88/tnpcore/internal/ir"
	"github.com/roach88/tnpcore/internal/rebuild"
)

// SaveDocument replaces the stored copy of doc (keyed by doc.Name) in one
// transaction. seq is the logical clock value the save belongs to.
func (s *Store) SaveDocument(ctx context.Context, doc *ir.Document, seq int64) error {
	if doc.Name == "" {
		return fmt.Errorf("save document: name is required")
	}
	policy, err := canon.EncodePolicy(doc.Policy)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	digest, err := canon.Digest(doc)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	rows := make([]featureRow, len(doc.Features))
	for i := range doc.Features {
		if rows[i], err = marshalFeature(i, &doc.Features[i]); err != nil {
			return fmt.Errorf("save document: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save document: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (name, policy, active_snapshot_id, digest, engine_version, ir_version, saved_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			policy = excluded.policy,
			active_snapshot_id = excluded.active_snapshot_id,
			digest = excluded.digest,
			engine_version = excluded.engine_version,
			ir_version = excluded.ir_version,
			saved_seq = excluded.saved_seq
	`, doc.Name, string(policy), doc.ActiveSnapshot, digest, ir.EngineVersion, ir.IRVersion, seq)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM features WHERE document = ?`, doc.Name); err != nil {
		return fmt.Errorf("save document: clear features: %w", err)
	}
	for _, r := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO features
			(document, position, id, operation_kind, parameters, inputs, reference_slots, status, status_code, stable_snapshot_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, doc.Name, r.position, r.id, r.op, r.params, r.inputs, r.slots, r.status, r.statusCode, r.stable)
		if err != nil {
			return fmt.Errorf("save document: feature %s: %w", r.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save document: commit: %w", err)
	}
	return nil
}

// RecordPass appends a completed pass to the document's history. The
// document must already be saved. Recording the same pass token twice is
// a no-op.
func (s *Store) RecordPass(ctx context.Context, document string, p rebuild.Pass) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rebuild_passes
		(token, document, seq, start_feature, digest, summary_fingerprint, evaluated,
		 ok_count, warning_count, error_count, blocked_count, critical_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		p.Token, document, p.Seq, p.Start, p.Digest, p.SummaryFingerprint, len(p.Evaluated),
		p.Counts[ir.StatusOk], p.Counts[ir.StatusWarning], p.Counts[ir.StatusError],
		p.Counts[ir.StatusBlocked], p.Counts[ir.StatusCritical],
	)
	if err != nil {
		return fmt.Errorf("record pass %s: %w", p.Token, err)
	}
	return nil
}
