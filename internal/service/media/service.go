package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/repository"
	"github.com/PietroNozella/PetWalker/internal/storage"
)

// ErrUnsupportedType is returned for uploads that are neither images nor videos.
var ErrUnsupportedType = errors.New("unsupported file type")

// Recorder receives activity entries for media mutations.
type Recorder interface {
	Record(ctx context.Context, dogID int64, kind, message string)
}

// Service stores dog photos and videos.
type Service struct {
	dogs     repository.DogRepository
	media    repository.MediaRepository
	store    storage.Store
	activity Recorder
	logger   *slog.Logger
	newName  func() string
}

// New constructs a media service.
func New(dogs repository.DogRepository, media repository.MediaRepository, store storage.Store, activity Recorder, logger *slog.Logger) Service {
	return Service{dogs: dogs, media: media, store: store, activity: activity, logger: logger, newName: uuid.NewString}
}

// Upload describes an incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Caption     *string
}

// Classify maps a content type to a media kind and storage folder.
func Classify(contentType string) (kind, folder string, err error) {
	mediaType, _, parseErr := mime.ParseMediaType(contentType)
	if parseErr != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return domain.MediaImage, "photos", nil
	case strings.HasPrefix(mediaType, "video/"):
		return domain.MediaVideo, "videos", nil
	}
	return "", "", ErrUnsupportedType
}

// Create stores the file and records its metadata against the dog.
func (s Service) Create(ctx context.Context, dogID int64, upload Upload) (*domain.Media, error) {
	kind, folder, err := Classify(upload.ContentType)
	if err != nil {
		return nil, domain.Invalid("file", "unsupported file type")
	}
	dog, err := s.dogs.GetDogByID(ctx, dogID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("dog")
		}
		return nil, err
	}

	key := path.Join(folder, s.newName()+extension(kind, upload.ContentType, upload.Filename))
	location, err := s.store.Put(ctx, key, upload.Body, upload.Size, upload.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store media: %w", err)
	}
	item := &domain.Media{
		DogID:      dog.ID,
		FilePath:   location,
		FileType:   kind,
		Caption:    upload.Caption,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.media.CreateMedia(ctx, item); err != nil {
		if delErr := s.store.Delete(ctx, location); delErr != nil {
			s.logger.Warn("failed to remove orphaned media object", "location", location, "error", delErr)
		}
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, domain.NotFound("dog")
		}
		return nil, fmt.Errorf("record media: %w", err)
	}
	s.logger.Info("media uploaded", "media_id", item.ID, "dog_id", dog.ID, "file_type", kind, "bytes", upload.Size)
	s.activity.Record(ctx, dog.ID, domain.ActivityMediaUploaded, fmt.Sprintf("new %s added for %s", kind, dog.Name))
	return item, nil
}

// List returns a dog's media in upload order.
func (s Service) List(ctx context.Context, dogID int64) ([]domain.Media, error) {
	if _, err := s.dogs.GetDogByID(ctx, dogID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("dog")
		}
		return nil, err
	}
	return s.media.ListMediaByDog(ctx, dogID)
}

// Delete removes the metadata row; the stored object is removed best-effort.
func (s Service) Delete(ctx context.Context, id int64) error {
	item, err := s.media.GetMediaByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound("media")
		}
		return err
	}
	if err := s.media.DeleteMedia(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound("media")
		}
		return fmt.Errorf("delete media: %w", err)
	}
	if err := s.store.Delete(ctx, item.FilePath); err != nil {
		s.logger.Warn("failed to delete media object", "media_id", id, "location", item.FilePath, "error", err)
	}
	s.logger.Info("media deleted", "media_id", id, "dog_id", item.DogID)
	s.activity.Record(ctx, item.DogID, domain.ActivityMediaDeleted, fmt.Sprintf("%s %d was removed", item.FileType, id))
	return nil
}

var (
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
		".webp": true, ".heic": true, ".heif": true, ".bmp": true,
	}
	videoExtensions = map[string]bool{
		".mp4": true, ".mov": true, ".webm": true, ".m4v": true,
		".avi": true, ".mkv": true, ".3gp": true,
	}
	canonicalExtensions = map[string]string{
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"image/heic":      ".heic",
		"image/bmp":       ".bmp",
		"video/mp4":       ".mp4",
		"video/webm":      ".webm",
		"video/quicktime": ".mov",
		"video/x-msvideo": ".avi",
	}
)

// extension picks the stored file suffix. The client's suffix is kept only
// when it belongs to the media kind; otherwise one is derived from the
// content type so uploads are never served under a foreign file type.
func extension(kind, contentType, filename string) string {
	allowed, fallback := imageExtensions, ".jpg"
	if kind == domain.MediaVideo {
		allowed, fallback = videoExtensions, ".mp4"
	}
	if ext := clientExtension(filename); allowed[ext] {
		return ext
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if ext, ok := canonicalExtensions[mediaType]; ok && allowed[ext] {
		return ext
	}
	return fallback
}

// clientExtension keeps a short alphanumeric suffix from the client filename.
func clientExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
