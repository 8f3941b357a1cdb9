package assets

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateAsset(ctx context.Context, asset *Asset) error
	GetAsset(ctx context.Context, id string) (*Asset, error)
	ListAssets(ctx context.Context) ([]*Asset, error)
	DeleteAsset(ctx context.Context, id string) error
	CountAssets(ctx context.Context) (int, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateAsset(ctx context.Context, a *Asset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (id, media_type, path, thumbnail_path, pixel_width, pixel_height, duration_s, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.MediaType, a.Path, nullString(a.ThumbnailPath), a.PixelWidth, a.PixelHeight, a.DurationS, a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetAsset(ctx context.Context, id string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, media_type, path, thumbnail_path, pixel_width, pixel_height, duration_s, created_at
		FROM assets WHERE id = ?
	`, id)
	return scanAsset(row)
}

func (r *SQLiteRepository) ListAssets(ctx context.Context) ([]*Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, media_type, path, thumbnail_path, pixel_width, pixel_height, duration_s, created_at
		FROM assets ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Asset
	for rows.Next() {
		var a Asset
		var thumb sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.MediaType, &a.Path, &thumb, &a.PixelWidth, &a.PixelHeight, &a.DurationS, &createdAt); err != nil {
			return nil, err
		}
		a.ThumbnailPath = thumb.String
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteAsset(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountAssets(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func scanAsset(row *sql.Row) (*Asset, error) {
	var a Asset
	var thumb sql.NullString
	var createdAt string

	err := row.Scan(&a.ID, &a.MediaType, &a.Path, &thumb, &a.PixelWidth, &a.PixelHeight, &a.DurationS, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	a.ThumbnailPath = thumb.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
