package domain

import "time"

// Appointment statuses shared by walks and trainings.
const (
	StatusScheduled  = "agendado"
	StatusInProgress = "em_andamento"
	StatusCompleted  = "concluido"
	StatusCancelled  = "cancelado"
)

// DefaultDurationMinutes applies when a booking omits its duration.
const DefaultDurationMinutes = 60

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Walk is a scheduled dog walk.
type Walk struct {
	ID              int64
	DogID           int64
	ScheduledDate   time.Time
	DurationMinutes int
	Status          string
	Notes           *string
	Location        *string
	CreatedAt       time.Time
}

// WalkPatch carries optional walk fields; nil means unchanged.
type WalkPatch struct {
	ScheduledDate   *time.Time
	DurationMinutes *int
	Status          *string
	Notes           *string
	Location        *string
}

// Apply returns a copy of w with the provided fields replaced.
func (p WalkPatch) Apply(w Walk) Walk {
	if p.ScheduledDate != nil {
		w.ScheduledDate = p.ScheduledDate.UTC()
	}
	if p.DurationMinutes != nil {
		w.DurationMinutes = *p.DurationMinutes
	}
	if p.Status != nil {
		w.Status = *p.Status
	}
	if p.Notes != nil {
		w.Notes = p.Notes
	}
	if p.Location != nil {
		w.Location = p.Location
	}
	return w
}

// Training is a scheduled training session.
type Training struct {
	ID              int64
	DogID           int64
	ScheduledDate   time.Time
	DurationMinutes int
	TrainingType    *string
	Status          string
	Notes           *string
	ProgressReport  *string
	CreatedAt       time.Time
}

// TrainingPatch carries optional training fields; nil means unchanged.
type TrainingPatch struct {
	ScheduledDate   *time.Time
	DurationMinutes *int
	TrainingType    *string
	Status          *string
	Notes           *string
	ProgressReport  *string
}

// Apply returns a copy of t with the provided fields replaced.
func (p TrainingPatch) Apply(t Training) Training {
	if p.ScheduledDate != nil {
		t.ScheduledDate = p.ScheduledDate.UTC()
	}
	if p.DurationMinutes != nil {
		t.DurationMinutes = *p.DurationMinutes
	}
	if p.TrainingType != nil {
		t.TrainingType = p.TrainingType
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Notes != nil {
		t.Notes = p.Notes
	}
	if p.ProgressReport != nil {
		t.ProgressReport = p.ProgressReport
	}
	return t
}
