package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/PietroNozella/PetWalker/internal/domain"
)

const mediaColumns = `id, dog_id, file_path, file_type, caption, uploaded_at`

func scanMedia(row pgx.Row) (*domain.Media, error) {
	var m domain.Media
	if err := row.Scan(&m.ID, &m.DogID, &m.FilePath, &m.FileType, &m.Caption, &m.UploadedAt); err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

// CreateMedia inserts media metadata and fills in its generated id.
func (r *Repository) CreateMedia(ctx context.Context, media *domain.Media) error {
	const query = `INSERT INTO media (dog_id, file_path, file_type, caption, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	row := r.pool.QueryRow(ctx, query, media.DogID, media.FilePath, media.FileType, media.Caption, media.UploadedAt)
	if err := row.Scan(&media.ID); err != nil {
		return translateError(err)
	}
	return nil
}

// GetMediaByID fetches media metadata by identifier.
func (r *Repository) GetMediaByID(ctx context.Context, id int64) (*domain.Media, error) {
	const query = `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`
	return scanMedia(r.pool.QueryRow(ctx, query, id))
}

// ListMediaByDog returns a dog's media in upload order.
func (r *Repository) ListMediaByDog(ctx context.Context, dogID int64) ([]domain.Media, error) {
	const query = `SELECT ` + mediaColumns + ` FROM media WHERE dog_id = $1 ORDER BY uploaded_at, id`
	rows, err := r.pool.Query(ctx, query, dogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Media, 0)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

// DeleteMedia removes media metadata.
func (r *Repository) DeleteMedia(ctx context.Context, id int64) error {
	return requireAffected(r.pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id))
}
