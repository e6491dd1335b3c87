package domain

import "time"

// Activity kinds.
const (
	ActivityDogCreated        = "dog.created"
	ActivityDogUpdated        = "dog.updated"
	ActivityDogDeleted        = "dog.deleted"
	ActivityAccessCodeRotated = "dog.access_code_rotated"
	ActivityWalkScheduled     = "walk.scheduled"
	ActivityWalkUpdated       = "walk.updated"
	ActivityWalkDeleted       = "walk.deleted"
	ActivityTrainingScheduled = "training.scheduled"
	ActivityTrainingUpdated   = "training.updated"
	ActivityTrainingDeleted   = "training.deleted"
	ActivityMediaUploaded     = "media.uploaded"
	ActivityMediaDeleted      = "media.deleted"
)

// Activity is a feed entry describing a change to a dog's records.
type Activity struct {
	ID        int64
	DogID     int64
	ActorID   *int64
	Kind      string
	Message   string
	CreatedAt time.Time
}

// Stats summarises the dashboard counters.
type Stats struct {
	TotalDogs        int
	TotalOwners      int
	TotalWalks       int
	PendingWalks     int
	TotalTrainings   int
	PendingTrainings int
}
