package httpx

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/PietroNozella/PetWalker/internal/domain"
)

// timestamp accepts RFC 3339 instants as well as naive ISO date-times,
// which are read as UTC.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Invalid("scheduled_date", "must be a string")
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return domain.Invalid("scheduled_date", "must be an ISO 8601 date-time")
}

func (t *timestamp) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toUser(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func toUsers(users []domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	return out
}

type dogResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Breed       *string   `json:"breed"`
	Age         *int      `json:"age"`
	Weight      *float64  `json:"weight"`
	Description *string   `json:"description"`
	AccessCode  string    `json:"access_code"`
	PhotoURL    *string   `json:"photo_url"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func toDog(d domain.Dog) dogResponse {
	return dogResponse{
		ID:          d.ID,
		Name:        d.Name,
		Breed:       d.Breed,
		Age:         d.Age,
		Weight:      d.WeightKg,
		Description: d.Description,
		AccessCode:  d.AccessCode,
		PhotoURL:    d.PhotoURL,
		OwnerID:     d.OwnerID,
		CreatedAt:   d.CreatedAt,
	}
}

func toDogs(dogs []domain.Dog) []dogResponse {
	out := make([]dogResponse, 0, len(dogs))
	for _, d := range dogs {
		out = append(out, toDog(d))
	}
	return out
}

type walkResponse struct {
	ID              int64     `json:"id"`
	DogID           int64     `json:"dog_id"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Location        *string   `json:"location"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}

func toWalk(w domain.Walk) walkResponse {
	return walkResponse{
		ID:              w.ID,
		DogID:           w.DogID,
		ScheduledDate:   w.ScheduledDate,
		DurationMinutes: w.DurationMinutes,
		Status:          w.Status,
		Location:        w.Location,
		Notes:           w.Notes,
		CreatedAt:       w.CreatedAt,
	}
}

func toWalks(walks []domain.Walk) []walkResponse {
	out := make([]walkResponse, 0, len(walks))
	for _, w := range walks {
		out = append(out, toWalk(w))
	}
	return out
}

type trainingResponse struct {
	ID              int64     `json:"id"`
	DogID           int64     `json:"dog_id"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	DurationMinutes int       `json:"duration_minutes"`
	TrainingType    *string   `json:"training_type"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes"`
	ProgressReport  *string   `json:"progress_report"`
	CreatedAt       time.Time `json:"created_at"`
}

func toTraining(t domain.Training) trainingResponse {
	return trainingResponse{
		ID:              t.ID,
		DogID:           t.DogID,
		ScheduledDate:   t.ScheduledDate,
		DurationMinutes: t.DurationMinutes,
		TrainingType:    t.TrainingType,
		Status:          t.Status,
		Notes:           t.Notes,
		ProgressReport:  t.ProgressReport,
		CreatedAt:       t.CreatedAt,
	}
}

func toTrainings(trainings []domain.Training) []trainingResponse {
	out := make([]trainingResponse, 0, len(trainings))
	for _, t := range trainings {
		out = append(out, toTraining(t))
	}
	return out
}

type mediaResponse struct {
	ID         int64     `json:"id"`
	DogID      int64     `json:"dog_id"`
	FilePath   string    `json:"file_path"`
	FileType   string    `json:"file_type"`
	Caption    *string   `json:"caption"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func toMedia(m domain.Media) mediaResponse {
	return mediaResponse{
		ID:         m.ID,
		DogID:      m.DogID,
		FilePath:   m.FilePath,
		FileType:   m.FileType,
		Caption:    m.Caption,
		UploadedAt: m.UploadedAt,
	}
}

func toMediaList(items []domain.Media) []mediaResponse {
	out := make([]mediaResponse, 0, len(items))
	for _, m := range items {
		out = append(out, toMedia(m))
	}
	return out
}

type profileResponse struct {
	dogResponse
	Owner     *userResponse      `json:"owner"`
	Walks     []walkResponse     `json:"walks"`
	Trainings []trainingResponse `json:"trainings"`
	Media     []mediaResponse    `json:"media"`
}

func toProfile(p domain.DogProfile) profileResponse {
	owner := toUser(p.Owner)
	return profileResponse{
		dogResponse: toDog(p.Dog),
		Owner:       &owner,
		Walks:       toWalks(p.Walks),
		Trainings:   toTrainings(p.Trainings),
		Media:       toMediaList(p.Media),
	}
}

// toPublicProfile drops the owner's login email from anonymous responses.
func toPublicProfile(p domain.DogProfile) profileResponse {
	resp := toProfile(p)
	resp.Owner = &userResponse{ID: p.Owner.ID, Name: p.Owner.Name, Phone: p.Owner.Phone, CreatedAt: p.Owner.CreatedAt}
	return resp
}

type statsResponse struct {
	TotalDogs        int `json:"total_dogs"`
	TotalOwners      int `json:"total_owners"`
	TotalWalks       int `json:"total_walks"`
	PendingWalks     int `json:"pending_walks"`
	TotalTrainings   int `json:"total_trainings"`
	PendingTrainings int `json:"pending_trainings"`
}

func toStats(s domain.Stats) statsResponse {
	return statsResponse{
		TotalDogs:        s.TotalDogs,
		TotalOwners:      s.TotalOwners,
		TotalWalks:       s.TotalWalks,
		PendingWalks:     s.PendingWalks,
		TotalTrainings:   s.TotalTrainings,
		PendingTrainings: s.PendingTrainings,
	}
}

type activityResponse struct {
	ID        int64     `json:"id"`
	DogID     int64     `json:"dog_id"`
	ActorID   *int64    `json:"actor_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func toActivity(entries []domain.Activity) []activityResponse {
	out := make([]activityResponse, 0, len(entries))
	for _, a := range entries {
		out = append(out, activityResponse{
			ID:        a.ID,
			DogID:     a.DogID,
			ActorID:   a.ActorID,
			Kind:      a.Kind,
			Message:   a.Message,
			CreatedAt: a.CreatedAt,
		})
	}
	return out
}
