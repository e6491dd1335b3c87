package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/PietroNozella/PetWalker/internal/domain"
)

const walkColumns = `id, dog_id, scheduled_date, duration_minutes, status, notes, location, created_at`

func scanWalk(row pgx.Row) (*domain.Walk, error) {
	var w domain.Walk
	if err := row.Scan(&w.ID, &w.DogID, &w.ScheduledDate, &w.DurationMinutes, &w.Status, &w.Notes, &w.Location, &w.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &w, nil
}

// CreateWalk inserts a walk and fills in its generated id.
func (r *Repository) CreateWalk(ctx context.Context, walk *domain.Walk) error {
	const query = `INSERT INTO walks (dog_id, scheduled_date, duration_minutes, status, notes, location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	row := r.pool.QueryRow(ctx, query, walk.DogID, walk.ScheduledDate, walk.DurationMinutes, walk.Status, walk.Notes, walk.Location, walk.CreatedAt)
	if err := row.Scan(&walk.ID); err != nil {
		return translateError(err)
	}
	return nil
}

// GetWalkByID fetches a walk by identifier.
func (r *Repository) GetWalkByID(ctx context.Context, id int64) (*domain.Walk, error) {
	const query = `SELECT ` + walkColumns + ` FROM walks WHERE id = $1`
	return scanWalk(r.pool.QueryRow(ctx, query, id))
}

// ListWalks returns walks, newest scheduled first, optionally for one dog.
func (r *Repository) ListWalks(ctx context.Context, dogID *int64) ([]domain.Walk, error) {
	const query = `SELECT ` + walkColumns + ` FROM walks
		WHERE ($1::BIGINT IS NULL OR dog_id = $1)
		ORDER BY scheduled_date DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, dogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	walks := make([]domain.Walk, 0)
	for rows.Next() {
		w, err := scanWalk(rows)
		if err != nil {
			return nil, err
		}
		walks = append(walks, *w)
	}
	return walks, rows.Err()
}

// UpdateWalk persists every mutable walk column.
func (r *Repository) UpdateWalk(ctx context.Context, walk *domain.Walk) error {
	const query = `UPDATE walks
		SET scheduled_date = $2, duration_minutes = $3, status = $4, notes = $5, location = $6
		WHERE id = $1`
	return requireAffected(r.pool.Exec(ctx, query, walk.ID, walk.ScheduledDate, walk.DurationMinutes, walk.Status, walk.Notes, walk.Location))
}

// DeleteWalk removes a walk.
func (r *Repository) DeleteWalk(ctx context.Context, id int64) error {
	return requireAffected(r.pool.Exec(ctx, `DELETE FROM walks WHERE id = $1`, id))
}

const trainingColumns = `id, dog_id, scheduled_date, duration_minutes, training_type, status, notes, progress_report, created_at`

func scanTraining(row pgx.Row) (*domain.Training, error) {
	var t domain.Training
	if err := row.Scan(&t.ID, &t.DogID, &t.ScheduledDate, &t.DurationMinutes, &t.TrainingType, &t.Status, &t.Notes, &t.ProgressReport, &t.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &t, nil
}

// CreateTraining inserts a training session and fills in its generated id.
func (r *Repository) CreateTraining(ctx context.Context, training *domain.Training) error {
	const query = `INSERT INTO trainings (dog_id, scheduled_date, duration_minutes, training_type, status, notes, progress_report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	row := r.pool.QueryRow(ctx, query, training.DogID, training.ScheduledDate, training.DurationMinutes, training.TrainingType, training.Status, training.Notes, training.ProgressReport, training.CreatedAt)
	if err := row.Scan(&training.ID); err != nil {
		return translateError(err)
	}
	return nil
}

// GetTrainingByID fetches a training session by identifier.
func (r *Repository) GetTrainingByID(ctx context.Context, id int64) (*domain.Training, error) {
	const query = `SELECT ` + trainingColumns + ` FROM trainings WHERE id = $1`
	return scanTraining(r.pool.QueryRow(ctx, query, id))
}

// ListTrainings returns sessions, newest scheduled first, optionally for one dog.
func (r *Repository) ListTrainings(ctx context.Context, dogID *int64) ([]domain.Training, error) {
	const query = `SELECT ` + trainingColumns + ` FROM trainings
		WHERE ($1::BIGINT IS NULL OR dog_id = $1)
		ORDER BY scheduled_date DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, dogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trainings := make([]domain.Training, 0)
	for rows.Next() {
		t, err := scanTraining(rows)
		if err != nil {
			return nil, err
		}
		trainings = append(trainings, *t)
	}
	return trainings, rows.Err()
}

// UpdateTraining persists every mutable training column.
func (r *Repository) UpdateTraining(ctx context.Context, training *domain.Training) error {
	const query = `UPDATE trainings
		SET scheduled_date = $2, duration_minutes = $3, training_type = $4, status = $5, notes = $6, progress_report = $7
		WHERE id = $1`
	return requireAffected(r.pool.Exec(ctx, query, training.ID, training.ScheduledDate, training.DurationMinutes, training.TrainingType, training.Status, training.Notes, training.ProgressReport))
}

// DeleteTraining removes a training session.
func (r *Repository) DeleteTraining(ctx context.Context, id int64) error {
	return requireAffected(r.pool.Exec(ctx, `DELETE FROM trainings WHERE id = $1`, id))
}
