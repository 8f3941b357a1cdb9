package export

import (
	"context"
	"database/sql"
	"time"
)

// Repository persists export job records.
type Repository interface {
	CreateExport(ctx context.Context, rec *Record) error
	GetExport(ctx context.Context, id string) (*Record, error)
	ListExports(ctx context.Context, limit int) ([]*Record, error)
	UpdateProgress(ctx context.Context, id string, progress float64, statusLine string) error
	MarkState(ctx context.Context, id, state, errMsg string) error
	CompleteExport(ctx context.Context, id, outputPath string, durationS float64, sizeBytes int64) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateExport(ctx context.Context, rec *Record) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (id, title, subtitle, state, progress, status_line, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Title, nullString(rec.Subtitle), rec.State, rec.Progress, nullString(rec.StatusLine),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetExport(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, subtitle, state, progress, status_line, error, output_path, duration_s, size_bytes, created_at, updated_at
		FROM exports WHERE id = ?
	`, id)
	return scanExport(row)
}

func (r *SQLiteRepository) ListExports(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, subtitle, state, progress, status_line, error, output_path, duration_s, size_bytes, created_at, updated_at
		FROM exports ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanExportRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateProgress(ctx context.Context, id string, progress float64, statusLine string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET progress = ?, status_line = ?, updated_at = ? WHERE id = ?
	`, progress, nullString(statusLine), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) MarkState(ctx context.Context, id, state, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET state = ?, error = ?, updated_at = ? WHERE id = ?
	`, state, nullString(errMsg), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) CompleteExport(ctx context.Context, id, outputPath string, durationS float64, sizeBytes int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET state = ?, progress = 1.0, output_path = ?, duration_s = ?, size_bytes = ?, error = NULL, updated_at = ?
		WHERE id = ?
	`, StateReady, outputPath, durationS, sizeBytes, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExport(row *sql.Row) (*Record, error) {
	rec, err := scanExportFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func scanExportRows(rows *sql.Rows) (*Record, error) {
	return scanExportFrom(rows)
}

func scanExportFrom(s rowScanner) (*Record, error) {
	var rec Record
	var subtitle, statusLine, errMsg, outputPath sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&rec.ID, &rec.Title, &subtitle, &rec.State, &rec.Progress, &statusLine,
		&errMsg, &outputPath, &rec.DurationS, &rec.SizeBytes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.Subtitle = subtitle.String
	rec.StatusLine = statusLine.String
	rec.Error = errMsg.String
	rec.OutputPath = outputPath.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rec, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
