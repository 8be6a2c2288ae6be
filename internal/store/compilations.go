package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/cyfilter/internal/canonical"
)

// ErrNotFound is returned when no compilation matches a lookup.
var ErrNotFound = errors.New("compilation not found")

// Record is one persisted compilation.
type Record struct {
	RunID          string
	Fingerprint    string
	Entity         string
	Strategy       string
	Statement      string
	Params         map[string]any
	FallbackReason string
	Seq            int64
}

// ListOptions narrows List. Zero values match everything.
type ListOptions struct {
	Entity      string
	Fingerprint string
	Limit       int
}

// Write appends a compilation record, stamping it with the next seq.
// Uses ON CONFLICT(run_id) DO NOTHING for idempotency. The stamped seq is
// returned; it is 0 when the run ID already existed.
//
// Params are serialized to canonical JSON per RFC 8785.
func (s *Store) Write(ctx context.Context, rec Record) (int64, error) {
	params := rec.Params
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := canonical.Marshal(params)
	if err != nil {
		return 0, fmt.Errorf("write compilation: marshal params: %w", err)
	}

	seq := s.clock.Next()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO compilations
		(run_id, fingerprint, entity, strategy, statement, params_json, fallback_reason, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		rec.RunID,
		rec.Fingerprint,
		rec.Entity,
		rec.Strategy,
		rec.Statement,
		string(paramsJSON),
		rec.FallbackReason,
		seq,
	)
	if err != nil {
		return 0, fmt.Errorf("write compilation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("write compilation: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	return seq, nil
}

// Read returns the compilation with the given run ID.
func (s *Store) Read(ctx context.Context, runID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectCompilations+`
		WHERE run_id = ?
	`, runID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("read compilation %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read compilation %s: %w", runID, err)
	}
	return rec, nil
}

// Latest returns the most recent compilation of a fingerprint for an entity.
func (s *Store) Latest(ctx context.Context, fingerprint, entity string) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectCompilations+`
		WHERE fingerprint = ? AND entity = ?
		ORDER BY seq DESC, run_id COLLATE BINARY DESC
		LIMIT 1
	`, fingerprint, entity)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("latest compilation %s: %w", fingerprint, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("latest compilation %s: %w", fingerprint, err)
	}
	return rec, nil
}

// List returns compilations in seq order.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if opts.Entity != "" {
		where = append(where, "entity = ?")
		args = append(args, opts.Entity)
	}
	if opts.Fingerprint != "" {
		where = append(where, "fingerprint = ?")
		args = append(args, opts.Fingerprint)
	}

	query := selectCompilations
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC, run_id COLLATE BINARY ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query compilations: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compilations: %w", err)
	}
	return records, nil
}

const selectCompilations = `
	SELECT run_id, fingerprint, entity, strategy, statement, params_json, fallback_reason, seq
	FROM compilations`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec        Record
		paramsJSON string
	)
	err := row.Scan(
		&rec.RunID,
		&rec.Fingerprint,
		&rec.Entity,
		&rec.Strategy,
		&rec.Statement,
		&paramsJSON,
		&rec.FallbackReason,
		&rec.Seq,
	)
	if err != nil {
		return Record{}, err
	}

	params, err := unmarshalParams(paramsJSON)
	if err != nil {
		return Record{}, fmt.Errorf("scan compilation %s: %w", rec.RunID, err)
	}
	rec.Params = params
	return rec, nil
}
