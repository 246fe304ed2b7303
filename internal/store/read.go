package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tnpcore/internal/canon"
	"github.com/roach88/tnpcore/internal/ir"
)

// ErrNotFound is returned when a named document is not stored.
var ErrNotFound = errors.New("document not found")

// DocumentInfo summarizes one stored document.
type DocumentInfo struct {
	Name     string `json:"name"`
	Digest   string `json:"digest"`
	Features int    `json:"features"`
	SavedSeq int64  `json:"saved_seq"`
}

// PassRecord is one row of rebuild history.
type PassRecord struct {
	Token              string
	Document           string
	Seq                int64
	Start              string
	Digest             string
	SummaryFingerprint string
	Evaluated          int
	Counts             map[ir.Status]int
}

// LoadDocument reads a document back. The result is normalized and
// validated; its shape cache is empty.
func (s *Store) LoadDocument(ctx context.Context, name string) (*ir.Document, error) {
	var policy, active string
	err := s.db.QueryRowContext(ctx, `
		SELECT policy, active_snapshot_id FROM documents WHERE name = ?
	`, name).Scan(&policy, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load document %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load document %q: %w", name, err)
	}

	doc := &ir.Document{Name: name, ActiveSnapshot: active, Features: []ir.Feature{}}
	if doc.Policy, err = canon.DecodePolicy([]byte(policy)); err != nil {
		return nil, fmt.Errorf("load document %q: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, id, operation_kind, parameters, inputs, reference_slots, status, status_code, stable_snapshot_id
		FROM features
		WHERE document = ?
		ORDER BY position ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r featureRow
		if err := rows.Scan(&r.position, &r.id, &r.op, &r.params, &r.inputs, &r.slots, &r.status, &r.statusCode, &r.stable); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		f, err := unmarshalFeature(r)
		if err != nil {
			return nil, fmt.Errorf("load document %q: %w", name, err)
		}
		doc.Features = append(doc.Features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}

	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("load document %q: %w", name, err)
	}
	return doc, nil
}

// ListDocuments returns every stored document ordered by name.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.name, d.digest, d.saved_seq, COUNT(f.id)
		FROM documents d
		LEFT JOIN features f ON f.document = d.name
		GROUP BY d.name
		ORDER BY d.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	out := []DocumentInfo{}
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.Name, &d.Digest, &d.SavedSeq, &d.Features); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// ListPasses returns the rebuild history of a document ("" for all
// documents) ordered by seq.
func (s *Store) ListPasses(ctx context.Context, document string) ([]PassRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, document, seq, start_feature, digest, summary_fingerprint, evaluated,
		       ok_count, warning_count, error_count, blocked_count, critical_count
		FROM rebuild_passes
		WHERE ? = '' OR document = ?
		ORDER BY seq ASC, token COLLATE BINARY ASC
	`, document, document)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	out := []PassRecord{}
	for rows.Next() {
		var (
			p                                PassRecord
			ok, warning, errs, blocked, crit int
		)
		if err := rows.Scan(&p.Token, &p.Document, &p.Seq, &p.Start, &p.Digest, &p.SummaryFingerprint, &p.Evaluated,
			&ok, &warning, &errs, &blocked, &crit); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		p.Counts = map[ir.Status]int{
			ir.StatusOk:       ok,
			ir.StatusWarning:  warning,
			ir.StatusError:    errs,
			ir.StatusBlocked:  blocked,
			ir.StatusCritical: crit,
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return out, nil
}

// LastSeq returns the highest recorded pass seq, 0 for an empty history.
// A clock resumed from it keeps history ordered across processes.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM rebuild_passes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}
