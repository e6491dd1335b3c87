package dog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/repository"
	"github.com/PietroNozella/PetWalker/pkg/config"
	"github.com/PietroNozella/PetWalker/pkg/crypto"
)

const (
	accessCodeAttempts = 5
	// MaxAccessCodeLength bounds public lookups; longer inputs never match.
	MaxAccessCodeLength = 64
)

// Recorder receives activity entries for dog mutations.
type Recorder interface {
	Record(ctx context.Context, dogID int64, kind, message string)
}

// ObjectDeleter removes stored media objects.
type ObjectDeleter interface {
	Delete(ctx context.Context, location string) error
}

// Repositories groups the stores a dog profile is assembled from.
type Repositories struct {
	Dogs      repository.DogRepository
	Users     repository.UserRepository
	Walks     repository.WalkRepository
	Trainings repository.TrainingRepository
	Media     repository.MediaRepository
}

// Service manages dog profiles and their public access codes.
type Service struct {
	repos     Repositories
	objects   ObjectDeleter
	activity  Recorder
	logger    *slog.Logger
	codeBytes int
	newCode   func(int) (string, error)
}

// New constructs a dog service.
func New(repos Repositories, objects ObjectDeleter, activity Recorder, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{
		repos:     repos,
		objects:   objects,
		activity:  activity,
		logger:    logger,
		codeBytes: cfg.AccessCodeBytes,
		newCode:   crypto.RandomToken,
	}
}

// CreateInput describes a new dog.
type CreateInput struct {
	Name        string
	Breed       *string
	Age         *int
	WeightKg    *float64
	Description *string
	PhotoURL    *string
	OwnerID     int64
}

// List returns every dog ordered by id.
func (s Service) List(ctx context.Context) ([]domain.Dog, error) {
	return s.repos.Dogs.ListDogs(ctx)
}

// Create stores a new dog with a freshly generated access code.
func (s Service) Create(ctx context.Context, input CreateInput) (*domain.Dog, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	if err := validateMeasurements(input.Age, input.WeightKg); err != nil {
		return nil, err
	}
	if err := s.ensureOwner(ctx, input.OwnerID); err != nil {
		return nil, err
	}
	dog := &domain.Dog{
		Name:        name,
		Breed:       input.Breed,
		Age:         input.Age,
		WeightKg:    input.WeightKg,
		Description: input.Description,
		PhotoURL:    input.PhotoURL,
		OwnerID:     input.OwnerID,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.withFreshCode(func(code string) error {
		dog.AccessCode = code
		return s.repos.Dogs.CreateDog(ctx, dog)
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, domain.NotFound("owner")
		}
		return nil, fmt.Errorf("create dog: %w", err)
	}
	s.logger.Info("dog created", "dog_id", dog.ID, "owner_id", dog.OwnerID)
	s.activity.Record(ctx, dog.ID, domain.ActivityDogCreated, fmt.Sprintf("%s was added", dog.Name))
	return dog, nil
}

// Get returns a dog by id.
func (s Service) Get(ctx context.Context, id int64) (*domain.Dog, error) {
	dog, err := s.repos.Dogs.GetDogByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("dog")
		}
		return nil, err
	}
	return dog, nil
}

// Profile assembles the dog with its owner, schedule and media.
func (s Service) Profile(ctx context.Context, id int64) (*domain.DogProfile, error) {
	dog, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, dog)
}

// Resolve maps a public access code to its dog's profile without authentication.
func (s Service) Resolve(ctx context.Context, code string) (*domain.DogProfile, error) {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > MaxAccessCodeLength {
		return nil, domain.NotFound("profile")
	}
	dog, err := s.repos.Dogs.GetDogByAccessCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("profile")
		}
		return nil, err
	}
	return s.assemble(ctx, dog)
}

// Update applies patch to the dog; only provided fields change.
func (s Service) Update(ctx context.Context, id int64, patch domain.DogPatch) (*domain.Dog, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, domain.Invalid("name", "must not be blank")
	}
	if err := validateMeasurements(patch.Age, patch.WeightKg); err != nil {
		return nil, err
	}
	if patch.OwnerID != nil && *patch.OwnerID != current.OwnerID {
		if err := s.ensureOwner(ctx, *patch.OwnerID); err != nil {
			return nil, err
		}
	}
	updated := patch.Apply(*current)
	updated.Name = strings.TrimSpace(updated.Name)
	if err := s.repos.Dogs.UpdateDog(ctx, &updated); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.NotFound("dog")
		case errors.Is(err, repository.ErrInvalidReference):
			return nil, domain.NotFound("owner")
		}
		return nil, fmt.Errorf("update dog: %w", err)
	}
	s.logger.Info("dog updated", "dog_id", id)
	s.activity.Record(ctx, id, domain.ActivityDogUpdated, fmt.Sprintf("%s was updated", updated.Name))
	return &updated, nil
}

// Delete removes the dog; walks, trainings and media rows cascade and stored
// media objects are removed best-effort.
func (s Service) Delete(ctx context.Context, id int64) error {
	dog, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	media, err := s.repos.Media.ListMediaByDog(ctx, id)
	if err != nil {
		return fmt.Errorf("list media: %w", err)
	}
	if err := s.repos.Dogs.DeleteDog(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound("dog")
		}
		return fmt.Errorf("delete dog: %w", err)
	}
	if s.objects != nil {
		for _, m := range media {
			if err := s.objects.Delete(ctx, m.FilePath); err != nil {
				s.logger.Warn("failed to delete media object", "dog_id", id, "media_id", m.ID, "error", err)
			}
		}
	}
	s.logger.Info("dog deleted", "dog_id", id, "media_removed", len(media))
	s.activity.Record(ctx, id, domain.ActivityDogDeleted, fmt.Sprintf("%s was removed", dog.Name))
	return nil
}

// RotateAccessCode replaces the dog's access code, invalidating the old link.
func (s Service) RotateAccessCode(ctx context.Context, id int64) (*domain.Dog, error) {
	dog, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.withFreshCode(func(code string) error {
		if err := s.repos.Dogs.UpdateAccessCode(ctx, id, code); err != nil {
			return err
		}
		dog.AccessCode = code
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("dog")
		}
		return nil, fmt.Errorf("rotate access code: %w", err)
	}
	s.logger.Info("access code rotated", "dog_id", id)
	s.activity.Record(ctx, id, domain.ActivityAccessCodeRotated, fmt.Sprintf("public link for %s was regenerated", dog.Name))
	return dog, nil
}

// withFreshCode calls store with new codes until one is accepted or the
// attempts run out. Only unique violations are retried.
func (s Service) withFreshCode(store func(code string) error) error {
	var err error
	for attempt := 0; attempt < accessCodeAttempts; attempt++ {
		var code string
		code, err = s.newCode(s.codeBytes)
		if err != nil {
			return err
		}
		err = store(code)
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		s.logger.Warn("access code collision", "attempt", attempt+1)
	}
	return fmt.Errorf("exhausted access code attempts: %w", err)
}

func (s Service) ensureOwner(ctx context.Context, ownerID int64) error {
	if ownerID <= 0 {
		return domain.Invalid("owner_id", "is required")
	}
	if _, err := s.repos.Users.GetUserByID(ctx, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound("owner")
		}
		return fmt.Errorf("lookup owner: %w", err)
	}
	return nil
}

func (s Service) assemble(ctx context.Context, dog *domain.Dog) (*domain.DogProfile, error) {
	profile := &domain.DogProfile{Dog: *dog}
	owner, err := s.repos.Users.GetUserByID(ctx, dog.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}
	profile.Owner = *owner
	dogID := dog.ID
	if profile.Walks, err = s.repos.Walks.ListWalks(ctx, &dogID); err != nil {
		return nil, fmt.Errorf("load walks: %w", err)
	}
	if profile.Trainings, err = s.repos.Trainings.ListTrainings(ctx, &dogID); err != nil {
		return nil, fmt.Errorf("load trainings: %w", err)
	}
	if profile.Media, err = s.repos.Media.ListMediaByDog(ctx, dogID); err != nil {
		return nil, fmt.Errorf("load media: %w", err)
	}
	return profile, nil
}

func validateMeasurements(age *int, weightKg *float64) error {
	if age != nil && *age < 0 {
		return domain.Invalid("age", "must not be negative")
	}
	if weightKg != nil && *weightKg <= 0 {
		return domain.Invalid("weight", "must be positive")
	}
	return nil
}
