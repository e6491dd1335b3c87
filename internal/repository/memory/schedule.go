package memory

import (
	"context"
	"sort"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/repository"
)

// CreateWalk inserts a walk for an existing dog.
func (s *Store) CreateWalk(_ context.Context, walk *domain.Walk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dogs[walk.DogID]; !ok {
		return repository.ErrInvalidReference
	}
	walk.ID = s.nextID()
	s.walks[walk.ID] = *walk
	return nil
}

// GetWalkByID looks a walk up by id.
func (s *Store) GetWalkByID(_ context.Context, id int64) (*domain.Walk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.walks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

// ListWalks returns walks newest scheduled first, optionally for one dog.
func (s *Store) ListWalks(_ context.Context, dogID *int64) ([]domain.Walk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	walks := make([]domain.Walk, 0)
	for _, w := range s.walks {
		if dogID == nil || w.DogID == *dogID {
			walks = append(walks, w)
		}
	}
	sort.Slice(walks, func(i, j int) bool {
		if walks[i].ScheduledDate.Equal(walks[j].ScheduledDate) {
			return walks[i].ID > walks[j].ID
		}
		return walks[i].ScheduledDate.After(walks[j].ScheduledDate)
	})
	return walks, nil
}

// UpdateWalk replaces the mutable walk columns.
func (s *Store) UpdateWalk(_ context.Context, walk *domain.Walk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.walks[walk.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := *walk
	updated.DogID = current.DogID
	updated.CreatedAt = current.CreatedAt
	s.walks[walk.ID] = updated
	return nil
}

// DeleteWalk removes a walk.
func (s *Store) DeleteWalk(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.walks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.walks, id)
	return nil
}

// CreateTraining inserts a training session for an existing dog.
func (s *Store) CreateTraining(_ context.Context, training *domain.Training) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dogs[training.DogID]; !ok {
		return repository.ErrInvalidReference
	}
	training.ID = s.nextID()
	s.trainings[training.ID] = *training
	return nil
}

// GetTrainingByID looks a training session up by id.
func (s *Store) GetTrainingByID(_ context.Context, id int64) (*domain.Training, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trainings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

// ListTrainings returns sessions newest scheduled first, optionally for one dog.
func (s *Store) ListTrainings(_ context.Context, dogID *int64) ([]domain.Training, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trainings := make([]domain.Training, 0)
	for _, t := range s.trainings {
		if dogID == nil || t.DogID == *dogID {
			trainings = append(trainings, t)
		}
	}
	sort.Slice(trainings, func(i, j int) bool {
		if trainings[i].ScheduledDate.Equal(trainings[j].ScheduledDate) {
			return trainings[i].ID > trainings[j].ID
		}
		return trainings[i].ScheduledDate.After(trainings[j].ScheduledDate)
	})
	return trainings, nil
}

// UpdateTraining replaces the mutable training columns.
func (s *Store) UpdateTraining(_ context.Context, training *domain.Training) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.trainings[training.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := *training
	updated.DogID = current.DogID
	updated.CreatedAt = current.CreatedAt
	s.trainings[training.ID] = updated
	return nil
}

// DeleteTraining removes a training session.
func (s *Store) DeleteTraining(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trainings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.trainings, id)
	return nil
}

// CreateMedia inserts media metadata for an existing dog.
func (s *Store) CreateMedia(_ context.Context, media *domain.Media) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dogs[media.DogID]; !ok {
		return repository.ErrInvalidReference
	}
	media.ID = s.nextID()
	s.media[media.ID] = *media
	return nil
}

// GetMediaByID looks media up by id.
func (s *Store) GetMediaByID(_ context.Context, id int64) (*domain.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.media[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

// ListMediaByDog returns a dog's media in upload order.
func (s *Store) ListMediaByDog(_ context.Context, dogID int64) ([]domain.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]domain.Media, 0)
	for _, m := range s.media {
		if m.DogID == dogID {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// DeleteMedia removes media metadata.
func (s *Store) DeleteMedia(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.media[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.media, id)
	return nil
}

// AppendActivity stores a feed entry.
func (s *Store) AppendActivity(_ context.Context, activity *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity.ID = s.nextID()
	s.activity = append(s.activity, *activity)
	return nil
}

// ListActivity returns entries newest first, optionally for one dog.
func (s *Store) ListActivity(_ context.Context, dogID *int64, limit, offset int) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]domain.Activity, 0)
	for i := len(s.activity) - 1; i >= 0; i-- {
		a := s.activity[i]
		if dogID == nil || a.DogID == *dogID {
			entries = append(entries, a)
		}
	}
	if offset >= len(entries) {
		return []domain.Activity{}, nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

// Stats computes the dashboard counters.
func (s *Store) Stats(_ context.Context) (domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := domain.Stats{TotalDogs: len(s.dogs), TotalWalks: len(s.walks), TotalTrainings: len(s.trainings)}
	for _, u := range s.users {
		if !u.IsAdmin {
			stats.TotalOwners++
		}
	}
	for _, w := range s.walks {
		if w.Status == domain.StatusScheduled {
			stats.PendingWalks++
		}
	}
	for _, t := range s.trainings {
		if t.Status == domain.StatusScheduled {
			stats.PendingTrainings++
		}
	}
	return stats, nil
}
