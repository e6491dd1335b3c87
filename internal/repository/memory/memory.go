// Package memory provides an in-process implementation of every repository
// interface. It mirrors the PostgreSQL constraints (unique email and access
// code, owner and dog references, cascading deletes) and backs the service
// and HTTP tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/repository"
)

var (
	_ repository.UserRepository     = (*Store)(nil)
	_ repository.DogRepository      = (*Store)(nil)
	_ repository.WalkRepository     = (*Store)(nil)
	_ repository.TrainingRepository = (*Store)(nil)
	_ repository.MediaRepository    = (*Store)(nil)
	_ repository.ActivityRepository = (*Store)(nil)
	_ repository.StatsRepository    = (*Store)(nil)
)

// Store keeps every table in maps guarded by a single mutex.
type Store struct {
	mu        sync.Mutex
	seq       int64
	users     map[int64]domain.User
	dogs      map[int64]domain.Dog
	walks     map[int64]domain.Walk
	trainings map[int64]domain.Training
	media     map[int64]domain.Media
	activity  []domain.Activity
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:     make(map[int64]domain.User),
		dogs:      make(map[int64]domain.Dog),
		walks:     make(map[int64]domain.Walk),
		trainings: make(map[int64]domain.Training),
		media:     make(map[int64]domain.Media),
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// CreateUser inserts a user, rejecting case-insensitive duplicate emails.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.ID = s.nextID()
	s.users[user.ID] = *user
	return nil
}

// GetUserByEmail looks a user up case-insensitively.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.TrimSpace(email)
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetUserByID looks a user up by id.
func (s *Store) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// ListOwners returns non-admin users ordered by id.
func (s *Store) ListOwners(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owners := make([]domain.User, 0)
	for _, u := range s.users {
		if !u.IsAdmin {
			owners = append(owners, u)
		}
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].ID < owners[j].ID })
	return owners, nil
}

func (s *Store) codeTaken(code string, except int64) bool {
	for _, d := range s.dogs {
		if d.AccessCode == code && d.ID != except {
			return true
		}
	}
	return false
}

// CreateDog inserts a dog.
func (s *Store) CreateDog(_ context.Context, dog *domain.Dog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[dog.OwnerID]; !ok {
		return repository.ErrInvalidReference
	}
	if s.codeTaken(dog.AccessCode, 0) {
		return repository.ErrDuplicate
	}
	dog.ID = s.nextID()
	s.dogs[dog.ID] = *dog
	return nil
}

// GetDogByID looks a dog up by id.
func (s *Store) GetDogByID(_ context.Context, id int64) (*domain.Dog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dogs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

// GetDogByAccessCode performs an exact-match lookup.
func (s *Store) GetDogByAccessCode(_ context.Context, code string) (*domain.Dog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.dogs {
		if d.AccessCode == code {
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ListDogs returns every dog ordered by id.
func (s *Store) ListDogs(_ context.Context) ([]domain.Dog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dogs := make([]domain.Dog, 0, len(s.dogs))
	for _, d := range s.dogs {
		dogs = append(dogs, d)
	}
	sort.Slice(dogs, func(i, j int) bool { return dogs[i].ID < dogs[j].ID })
	return dogs, nil
}

// UpdateDog replaces the mutable dog columns.
func (s *Store) UpdateDog(_ context.Context, dog *domain.Dog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.dogs[dog.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.users[dog.OwnerID]; !ok {
		return repository.ErrInvalidReference
	}
	updated := *dog
	updated.AccessCode = current.AccessCode
	updated.CreatedAt = current.CreatedAt
	s.dogs[dog.ID] = updated
	return nil
}

// UpdateAccessCode replaces a dog's access code.
func (s *Store) UpdateAccessCode(_ context.Context, id int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dogs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if s.codeTaken(code, id) {
		return repository.ErrDuplicate
	}
	d.AccessCode = code
	s.dogs[id] = d
	return nil
}

// DeleteDog removes a dog and cascades to its walks, trainings and media.
func (s *Store) DeleteDog(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dogs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.dogs, id)
	for wid, w := range s.walks {
		if w.DogID == id {
			delete(s.walks, wid)
		}
	}
	for tid, t := range s.trainings {
		if t.DogID == id {
			delete(s.trainings, tid)
		}
	}
	for mid, m := range s.media {
		if m.DogID == id {
			delete(s.media, mid)
		}
	}
	return nil
}
