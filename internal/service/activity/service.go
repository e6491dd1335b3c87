package activity

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"log/slog"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/repository"
	"github.com/PietroNozella/PetWalker/internal/ws"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Service handles activity persistence and streaming.
type Service struct {
	repo   repository.ActivityRepository
	hub    *ws.Hub
	logger *slog.Logger
	now    func() time.Time
}

// New constructs an activity service. hub may be nil when nothing streams.
func New(repo repository.ActivityRepository, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{repo: repo, hub: hub, logger: logger, now: time.Now}
}

// DogTopic names the hub topic carrying a single dog's events.
func DogTopic(dogID int64) string {
	return "dog:" + strconv.FormatInt(dogID, 10)
}

type actorKey struct{}

// WithActor tags ctx with the user performing the current mutation.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the user id stored by WithActor.
func ActorFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorKey{}).(int64)
	return id, ok
}

// Record stores and broadcasts an entry. Failures are logged and never
// returned: the mutation that triggered the entry has already committed.
func (s Service) Record(ctx context.Context, dogID int64, kind, message string) {
	if s.repo == nil {
		return
	}
	var actorID *int64
	if id, ok := ActorFrom(ctx); ok {
		actorID = &id
	}
	entry := domain.Activity{
		DogID:     dogID,
		ActorID:   actorID,
		Kind:      kind,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.AppendActivity(ctx, &entry); err != nil {
		s.logger.Warn("failed to record activity", "dog_id", dogID, "kind", kind, "error", err)
		return
	}
	s.broadcast(entry)
}

// List returns entries, newest first, optionally restricted to one dog.
func (s Service) List(ctx context.Context, dogID *int64, limit, offset int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListActivity(ctx, dogID, limit, offset)
}

func (s Service) broadcast(entry domain.Activity) {
	if s.hub == nil {
		return
	}
	data, err := MarshalEntry(entry)
	if err != nil {
		s.logger.Warn("failed to marshal activity payload", "error", err)
		return
	}
	s.hub.Broadcast(DogTopic(entry.DogID), data)
}

// Hub returns the websocket hub (useful for HTTP handlers).
func (s Service) Hub() *ws.Hub {
	return s.hub
}

// MarshalEntry formats an activity entry for streaming payloads.
func MarshalEntry(entry domain.Activity) ([]byte, error) {
	payload := map[string]any{
		"id":         entry.ID,
		"dog_id":     entry.DogID,
		"actor_id":   entry.ActorID,
		"kind":       entry.Kind,
		"message":    entry.Message,
		"created_at": entry.CreatedAt.Format(time.RFC3339Nano),
	}
	return json.Marshal(payload)
}
