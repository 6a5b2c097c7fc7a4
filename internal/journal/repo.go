package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/siyuanflow/internal/batch"
)

// ImportRecord links a vault file to the document created from it.
type ImportRecord struct {
	Path      string
	DocID     string
	Checksum  string
	UpdatedAt time.Time
}

// RunItem is one stored batch outcome.
type RunItem struct {
	RunID     string `json:"runId"`
	Index     int    `json:"index"`
	Operation string `json:"operation"`
	OK        bool   `json:"ok"`
	ErrorKind string `json:"errorKind,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Message   string `json:"message,omitempty"`
}

var _ batch.Recorder = (*DB)(nil)

// UpsertImport stores or replaces the record for rec.Path.
func (db *DB) UpsertImport(ctx context.Context, rec ImportRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO imports (path, doc_id, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			doc_id     = excluded.doc_id,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, rec.Path, rec.DocID, rec.Checksum, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("journal: upsert import: %w", err)
	}
	return nil
}

// GetImport returns the record for path, or nil when there is none.
func (db *DB) GetImport(ctx context.Context, path string) (*ImportRecord, error) {
	rec := ImportRecord{Path: path}
	err := db.conn.QueryRowContext(ctx,
		`SELECT doc_id, checksum, updated_at FROM imports WHERE path = ?`, path,
	).Scan(&rec.DocID, &rec.Checksum, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: get import: %w", err)
	}
	return &rec, nil
}

// AllImports returns every record keyed by path.
func (db *DB) AllImports(ctx context.Context) (map[string]ImportRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, doc_id, checksum, updated_at FROM imports`)
	if err != nil {
		return nil, fmt.Errorf("journal: all imports: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ImportRecord)
	for rows.Next() {
		var rec ImportRecord
		if err := rows.Scan(&rec.Path, &rec.DocID, &rec.Checksum, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out[rec.Path] = rec
	}
	return out, rows.Err()
}

// DeleteImport forgets the record for path.
func (db *DB) DeleteImport(ctx context.Context, path string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM imports WHERE path = ?`, path); err != nil {
		return fmt.Errorf("journal: delete import: %w", err)
	}
	return nil
}

// RecordItem stores one batch outcome.
func (db *DB) RecordItem(ctx context.Context, runID string, r batch.Result) error {
	item := RunItem{RunID: runID, Index: r.Index, Operation: r.Operation, OK: r.Error == nil}
	if r.Error != nil {
		item.ErrorKind = r.Error.Kind
		item.ErrorCode = r.Error.Code
		item.Endpoint = r.Error.Endpoint
		item.Message = r.Error.Message
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO run_items (run_id, item_index, operation, ok, error_kind, error_code, endpoint, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, item.RunID, item.Index, item.Operation, item.OK, item.ErrorKind, item.ErrorCode, item.Endpoint, item.Message)
	if err != nil {
		return fmt.Errorf("journal: record item: %w", err)
	}
	return nil
}

// RunItems returns the stored outcomes of a run in item order.
func (db *DB) RunItems(ctx context.Context, runID string) ([]RunItem, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, item_index, operation, ok, error_kind, error_code, endpoint, message
		FROM run_items WHERE run_id = ? ORDER BY item_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: run items: %w", err)
	}
	defer rows.Close()

	var out []RunItem
	for rows.Next() {
		var it RunItem
		if err := rows.Scan(&it.RunID, &it.Index, &it.Operation, &it.OK, &it.ErrorKind, &it.ErrorCode, &it.Endpoint, &it.Message); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
