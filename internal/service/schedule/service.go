package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/repository"
)

// Recorder receives activity entries for schedule mutations.
type Recorder interface {
	Record(ctx context.Context, dogID int64, kind, message string)
}

// Service books walks and training sessions for dogs.
type Service struct {
	dogs      repository.DogRepository
	walks     repository.WalkRepository
	trainings repository.TrainingRepository
	activity  Recorder
	logger    *slog.Logger
}

// New constructs a schedule service.
func New(dogs repository.DogRepository, walks repository.WalkRepository, trainings repository.TrainingRepository, activity Recorder, logger *slog.Logger) Service {
	return Service{dogs: dogs, walks: walks, trainings: trainings, activity: activity, logger: logger}
}

// WalkInput describes a walk to book.
type WalkInput struct {
	DogID           int64
	ScheduledDate   time.Time
	DurationMinutes *int
	Status          *string
	Notes           *string
	Location        *string
}

// TrainingInput describes a training session to book.
type TrainingInput struct {
	DogID           int64
	ScheduledDate   time.Time
	DurationMinutes *int
	TrainingType    string
	Status          *string
	Notes           *string
}

// ListWalks returns walks newest scheduled first, optionally for one dog.
func (s Service) ListWalks(ctx context.Context, dogID *int64) ([]domain.Walk, error) {
	return s.walks.ListWalks(ctx, dogID)
}

// CreateWalk books a walk for an existing dog.
func (s Service) CreateWalk(ctx context.Context, input WalkInput) (*domain.Walk, error) {
	dog, err := s.requireDog(ctx, input.DogID)
	if err != nil {
		return nil, err
	}
	duration, status, err := normalizeBooking(input.ScheduledDate, input.DurationMinutes, input.Status)
	if err != nil {
		return nil, err
	}
	walk := &domain.Walk{
		DogID:           dog.ID,
		ScheduledDate:   input.ScheduledDate.UTC(),
		DurationMinutes: duration,
		Status:          status,
		Notes:           input.Notes,
		Location:        input.Location,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.walks.CreateWalk(ctx, walk); err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, domain.NotFound("dog")
		}
		return nil, fmt.Errorf("create walk: %w", err)
	}
	s.logger.Info("walk scheduled", "walk_id", walk.ID, "dog_id", walk.DogID)
	s.activity.Record(ctx, dog.ID, domain.ActivityWalkScheduled,
		fmt.Sprintf("walk for %s scheduled at %s", dog.Name, walk.ScheduledDate.Format(time.RFC3339)))
	return walk, nil
}

// UpdateWalk applies patch to a walk; only provided fields change.
func (s Service) UpdateWalk(ctx context.Context, id int64, patch domain.WalkPatch) (*domain.Walk, error) {
	current, err := s.walks.GetWalkByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "walk")
	}
	if err := validatePatch(patch.ScheduledDate, patch.DurationMinutes, patch.Status); err != nil {
		return nil, err
	}
	updated := patch.Apply(*current)
	if err := s.walks.UpdateWalk(ctx, &updated); err != nil {
		return nil, notFound(err, "walk")
	}
	s.logger.Info("walk updated", "walk_id", id, "status", updated.Status)
	s.activity.Record(ctx, updated.DogID, domain.ActivityWalkUpdated, fmt.Sprintf("walk %d is now %s", id, updated.Status))
	return &updated, nil
}

// DeleteWalk removes a walk.
func (s Service) DeleteWalk(ctx context.Context, id int64) error {
	walk, err := s.walks.GetWalkByID(ctx, id)
	if err != nil {
		return notFound(err, "walk")
	}
	if err := s.walks.DeleteWalk(ctx, id); err != nil {
		return notFound(err, "walk")
	}
	s.logger.Info("walk deleted", "walk_id", id)
	s.activity.Record(ctx, walk.DogID, domain.ActivityWalkDeleted, fmt.Sprintf("walk %d was removed", id))
	return nil
}

// ListTrainings returns sessions newest scheduled first, optionally for one dog.
func (s Service) ListTrainings(ctx context.Context, dogID *int64) ([]domain.Training, error) {
	return s.trainings.ListTrainings(ctx, dogID)
}

// CreateTraining books a training session for an existing dog.
func (s Service) CreateTraining(ctx context.Context, input TrainingInput) (*domain.Training, error) {
	dog, err := s.requireDog(ctx, input.DogID)
	if err != nil {
		return nil, err
	}
	trainingType := strings.TrimSpace(input.TrainingType)
	if trainingType == "" {
		return nil, domain.Invalid("training_type", "is required")
	}
	duration, status, err := normalizeBooking(input.ScheduledDate, input.DurationMinutes, input.Status)
	if err != nil {
		return nil, err
	}
	training := &domain.Training{
		DogID:           dog.ID,
		ScheduledDate:   input.ScheduledDate.UTC(),
		DurationMinutes: duration,
		TrainingType:    &trainingType,
		Status:          status,
		Notes:           input.Notes,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.trainings.CreateTraining(ctx, training); err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, domain.NotFound("dog")
		}
		return nil, fmt.Errorf("create training: %w", err)
	}
	s.logger.Info("training scheduled", "training_id", training.ID, "dog_id", training.DogID)
	s.activity.Record(ctx, dog.ID, domain.ActivityTrainingScheduled,
		fmt.Sprintf("%s training for %s scheduled at %s", trainingType, dog.Name, training.ScheduledDate.Format(time.RFC3339)))
	return training, nil
}

// UpdateTraining applies patch to a session; only provided fields change.
func (s Service) UpdateTraining(ctx context.Context, id int64, patch domain.TrainingPatch) (*domain.Training, error) {
	current, err := s.trainings.GetTrainingByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "training")
	}
	if err := validatePatch(patch.ScheduledDate, patch.DurationMinutes, patch.Status); err != nil {
		return nil, err
	}
	if patch.TrainingType != nil && strings.TrimSpace(*patch.TrainingType) == "" {
		return nil, domain.Invalid("training_type", "must not be blank")
	}
	updated := patch.Apply(*current)
	if err := s.trainings.UpdateTraining(ctx, &updated); err != nil {
		return nil, notFound(err, "training")
	}
	s.logger.Info("training updated", "training_id", id, "status", updated.Status)
	s.activity.Record(ctx, updated.DogID, domain.ActivityTrainingUpdated, fmt.Sprintf("training %d is now %s", id, updated.Status))
	return &updated, nil
}

// DeleteTraining removes a training session.
func (s Service) DeleteTraining(ctx context.Context, id int64) error {
	training, err := s.trainings.GetTrainingByID(ctx, id)
	if err != nil {
		return notFound(err, "training")
	}
	if err := s.trainings.DeleteTraining(ctx, id); err != nil {
		return notFound(err, "training")
	}
	s.logger.Info("training deleted", "training_id", id)
	s.activity.Record(ctx, training.DogID, domain.ActivityTrainingDeleted, fmt.Sprintf("training %d was removed", id))
	return nil
}

func (s Service) requireDog(ctx context.Context, dogID int64) (*domain.Dog, error) {
	if dogID <= 0 {
		return nil, domain.Invalid("dog_id", "is required")
	}
	dog, err := s.dogs.GetDogByID(ctx, dogID)
	if err != nil {
		return nil, notFound(err, "dog")
	}
	return dog, nil
}

func normalizeBooking(when time.Time, duration *int, status *string) (int, string, error) {
	if when.IsZero() {
		return 0, "", domain.Invalid("scheduled_date", "is required")
	}
	minutes := domain.DefaultDurationMinutes
	if duration != nil {
		minutes = *duration
	}
	if minutes <= 0 {
		return 0, "", domain.Invalid("duration_minutes", "must be positive")
	}
	state := domain.StatusScheduled
	if status != nil {
		state = *status
	}
	if !domain.ValidStatus(state) {
		return 0, "", invalidStatus()
	}
	return minutes, state, nil
}

func validatePatch(when *time.Time, duration *int, status *string) error {
	if when != nil && when.IsZero() {
		return domain.Invalid("scheduled_date", "must not be empty")
	}
	if duration != nil && *duration <= 0 {
		return domain.Invalid("duration_minutes", "must be positive")
	}
	if status != nil && !domain.ValidStatus(*status) {
		return invalidStatus()
	}
	return nil
}

func invalidStatus() error {
	return domain.Invalid("status", fmt.Sprintf("must be one of %s, %s, %s, %s",
		domain.StatusScheduled, domain.StatusInProgress, domain.StatusCompleted, domain.StatusCancelled))
}

func notFound(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(resource)
	}
	return err
}
