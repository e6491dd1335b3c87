package stats

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/repository"
)

// Service reports the dashboard counters.
type Service struct {
	repo   repository.StatsRepository
	logger *slog.Logger
}

// New constructs a stats service.
func New(repo repository.StatsRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger}
}

// Get returns dog, owner, walk and training totals plus pending bookings.
func (s Service) Get(ctx context.Context) (domain.Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("compute stats: %w", err)
	}
	s.logger.Debug("stats computed", "total_dogs", stats.TotalDogs, "pending_walks", stats.PendingWalks)
	return stats, nil
}
