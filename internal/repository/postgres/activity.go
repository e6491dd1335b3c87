package postgres

import (
	"context"

	"github.com/PietroNozella/PetWalker/internal/domain"
)

// AppendActivity inserts a feed entry.
func (r *Repository) AppendActivity(ctx context.Context, activity *domain.Activity) error {
	const query = `INSERT INTO activity (dog_id, actor_id, kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	row := r.pool.QueryRow(ctx, query, activity.DogID, activity.ActorID, activity.Kind, activity.Message, activity.CreatedAt)
	if err := row.Scan(&activity.ID); err != nil {
		return translateError(err)
	}
	return nil
}

// ListActivity returns feed entries, newest first, optionally for one dog.
func (r *Repository) ListActivity(ctx context.Context, dogID *int64, limit, offset int) ([]domain.Activity, error) {
	const query = `SELECT id, dog_id, actor_id, kind, message, created_at
		FROM activity
		WHERE ($1::BIGINT IS NULL OR dog_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, dogID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.DogID, &a.ActorID, &a.Kind, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// Stats computes the dashboard counters in a single round trip.
func (r *Repository) Stats(ctx context.Context) (domain.Stats, error) {
	const query = `SELECT
		(SELECT COUNT(1) FROM dogs),
		(SELECT COUNT(1) FROM users WHERE is_admin = FALSE),
		(SELECT COUNT(1) FROM walks),
		(SELECT COUNT(1) FROM walks WHERE status = $1),
		(SELECT COUNT(1) FROM trainings),
		(SELECT COUNT(1) FROM trainings WHERE status = $1)`
	var s domain.Stats
	row := r.pool.QueryRow(ctx, query, domain.StatusScheduled)
	if err := row.Scan(&s.TotalDogs, &s.TotalOwners, &s.TotalWalks, &s.PendingWalks, &s.TotalTrainings, &s.PendingTrainings); err != nil {
		return domain.Stats{}, err
	}
	return s, nil
}
