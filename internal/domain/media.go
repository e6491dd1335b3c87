package domain

import "time"

// Media kinds.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Media is an uploaded photo or video attached to a dog.
type Media struct {
	ID         int64
	DogID      int64
	FilePath   string
	FileType   string
	Caption    *string
	UploadedAt time.Time
}
