package repository

import (
	"context"

	"github.com/PietroNozella/PetWalker/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	ListOwners(ctx context.Context) ([]domain.User, error)
}

// DogRepository persists dog profiles.
type DogRepository interface {
	CreateDog(ctx context.Context, dog *domain.Dog) error
	GetDogByID(ctx context.Context, id int64) (*domain.Dog, error)
	GetDogByAccessCode(ctx context.Context, code string) (*domain.Dog, error)
	ListDogs(ctx context.Context) ([]domain.Dog, error)
	UpdateDog(ctx context.Context, dog *domain.Dog) error
	UpdateAccessCode(ctx context.Context, id int64, code string) error
	DeleteDog(ctx context.Context, id int64) error
}

// WalkRepository persists scheduled walks.
type WalkRepository interface {
	CreateWalk(ctx context.Context, walk *domain.Walk) error
	GetWalkByID(ctx context.Context, id int64) (*domain.Walk, error)
	ListWalks(ctx context.Context, dogID *int64) ([]domain.Walk, error)
	UpdateWalk(ctx context.Context, walk *domain.Walk) error
	DeleteWalk(ctx context.Context, id int64) error
}

// TrainingRepository persists training sessions.
type TrainingRepository interface {
	CreateTraining(ctx context.Context, training *domain.Training) error
	GetTrainingByID(ctx context.Context, id int64) (*domain.Training, error)
	ListTrainings(ctx context.Context, dogID *int64) ([]domain.Training, error)
	UpdateTraining(ctx context.Context, training *domain.Training) error
	DeleteTraining(ctx context.Context, id int64) error
}

// MediaRepository persists media metadata.
type MediaRepository interface {
	CreateMedia(ctx context.Context, media *domain.Media) error
	GetMediaByID(ctx context.Context, id int64) (*domain.Media, error)
	ListMediaByDog(ctx context.Context, dogID int64) ([]domain.Media, error)
	DeleteMedia(ctx context.Context, id int64) error
}

// ActivityRepository handles activity feed persistence and retrieval.
type ActivityRepository interface {
	AppendActivity(ctx context.Context, activity *domain.Activity) error
	ListActivity(ctx context.Context, dogID *int64, limit, offset int) ([]domain.Activity, error)
}

// StatsRepository computes dashboard counters.
type StatsRepository interface {
	Stats(ctx context.Context) (domain.Stats, error)
}
