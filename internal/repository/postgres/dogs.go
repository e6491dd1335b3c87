package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/PietroNozella/PetWalker/internal/domain"
)

const dogColumns = `id, access_code, name, breed, age, weight_kg, description, photo_url, owner_id, created_at`

func scanDog(row pgx.Row) (*domain.Dog, error) {
	var d domain.Dog
	if err := row.Scan(&d.ID, &d.AccessCode, &d.Name, &d.Breed, &d.Age, &d.WeightKg, &d.Description, &d.PhotoURL, &d.OwnerID, &d.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &d, nil
}

// CreateDog inserts a dog and fills in its generated id.
func (r *Repository) CreateDog(ctx context.Context, dog *domain.Dog) error {
	const query = `INSERT INTO dogs (access_code, name, breed, age, weight_kg, description, photo_url, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	row := r.pool.QueryRow(ctx, query, dog.AccessCode, dog.Name, dog.Breed, dog.Age, dog.WeightKg, dog.Description, dog.PhotoURL, dog.OwnerID, dog.CreatedAt)
	if err := row.Scan(&dog.ID); err != nil {
		return translateError(err)
	}
	return nil
}

// GetDogByID fetches a dog by identifier.
func (r *Repository) GetDogByID(ctx context.Context, id int64) (*domain.Dog, error) {
	const query = `SELECT ` + dogColumns + ` FROM dogs WHERE id = $1`
	return scanDog(r.pool.QueryRow(ctx, query, id))
}

// GetDogByAccessCode performs the exact-match public lookup.
func (r *Repository) GetDogByAccessCode(ctx context.Context, code string) (*domain.Dog, error) {
	const query = `SELECT ` + dogColumns + ` FROM dogs WHERE access_code = $1`
	return scanDog(r.pool.QueryRow(ctx, query, code))
}

// ListDogs returns every dog ordered by id.
func (r *Repository) ListDogs(ctx context.Context) ([]domain.Dog, error) {
	const query = `SELECT ` + dogColumns + ` FROM dogs ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dogs := make([]domain.Dog, 0)
	for rows.Next() {
		d, err := scanDog(rows)
		if err != nil {
			return nil, err
		}
		dogs = append(dogs, *d)
	}
	return dogs, rows.Err()
}

// UpdateDog persists every mutable dog column.
func (r *Repository) UpdateDog(ctx context.Context, dog *domain.Dog) error {
	const query = `UPDATE dogs
		SET name = $2, breed = $3, age = $4, weight_kg = $5, description = $6, photo_url = $7, owner_id = $8
		WHERE id = $1`
	return requireAffected(r.pool.Exec(ctx, query, dog.ID, dog.Name, dog.Breed, dog.Age, dog.WeightKg, dog.Description, dog.PhotoURL, dog.OwnerID))
}

// UpdateAccessCode replaces a dog's public access code.
func (r *Repository) UpdateAccessCode(ctx context.Context, id int64, code string) error {
	const query = `UPDATE dogs SET access_code = $2 WHERE id = $1`
	return requireAffected(r.pool.Exec(ctx, query, id, code))
}

// DeleteDog removes a dog; walks, trainings and media rows cascade.
func (r *Repository) DeleteDog(ctx context.Context, id int64) error {
	const query = `DELETE FROM dogs WHERE id = $1`
	return requireAffected(r.pool.Exec(ctx, query, id))
}
