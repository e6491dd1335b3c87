package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/repository/memory"
	"github.com/PietroNozella/PetWalker/internal/storage"
)

type recorderStub struct {
	kinds []string
}

func (r *recorderStub) Record(_ context.Context, _ int64, kind, _ string) {
	r.kinds = append(r.kinds, kind)
}

type countingStore struct {
	storage.Store
	puts int
}

func (c *countingStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	c.puts++
	return c.Store.Put(ctx, key, body, size, contentType)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) (Service, *memory.Store, *domain.Dog, *countingStore, string) {
	t.Helper()
	repo := memory.New()
	owner := &domain.User{Email: "ana@example.com", Name: "Ana"}
	if err := repo.CreateUser(context.Background(), owner); err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	dog := &domain.Dog{Name: "Rex", OwnerID: owner.ID, AccessCode: "code"}
	if err := repo.CreateDog(context.Background(), dog); err != nil {
		t.Fatalf("seed dog: %v", err)
	}
	root := t.TempDir()
	local, err := storage.NewLocal(root, "/uploads")
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	store := &countingStore{Store: local}
	svc := New(repo, repo, store, &recorderStub{}, newLogger())
	svc.newName = func() string { return "fixed-name" }
	return svc, repo, dog, store, root
}

func TestClassify(t *testing.T) {
	cases := []struct {
		contentType string
		kind        string
		folder      string
	}{
		{"image/jpeg", domain.MediaImage, "photos"},
		{"IMAGE/PNG", domain.MediaImage, "photos"},
		{"video/mp4; codecs=avc1", domain.MediaVideo, "videos"},
	}
	for _, tc := range cases {
		kind, folder, err := Classify(tc.contentType)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.contentType, err)
		}
		if kind != tc.kind || folder != tc.folder {
			t.Fatalf("%s: expected %s/%s, got %s/%s", tc.contentType, tc.kind, tc.folder, kind, folder)
		}
	}
	for _, ct := range []string{"application/pdf", "text/plain", ""} {
		if _, _, err := Classify(ct); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("%q: expected ErrUnsupportedType, got %v", ct, err)
		}
	}
}

func TestCreateStoresImage(t *testing.T) {
	svc, _, dog, _, root := setup(t)
	caption := "at the beach"
	item, err := svc.Create(context.Background(), dog.ID, Upload{
		Filename:    "Beach.JPG",
		ContentType: "image/jpeg",
		Size:        5,
		Body:        strings.NewReader("bytes"),
		Caption:     &caption,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.FilePath != "/uploads/photos/fixed-name.jpg" {
		t.Fatalf("unexpected location %q", item.FilePath)
	}
	if item.FileType != domain.MediaImage {
		t.Fatalf("expected image, got %q", item.FileType)
	}
	data, err := os.ReadFile(filepath.Join(root, "photos", "fixed-name.jpg"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "bytes" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestCreateRejectsUnsupportedTypeBeforeStorage(t *testing.T) {
	svc, _, dog, store, _ := setup(t)
	_, err := svc.Create(context.Background(), dog.ID, Upload{Filename: "doc.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF")})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("expected storage untouched, got %d puts", store.puts)
	}
}

func TestCreateUnknownDog(t *testing.T) {
	svc, _, _, store, _ := setup(t)
	_, err := svc.Create(context.Background(), 999, Upload{Filename: "a.mp4", ContentType: "video/mp4", Body: strings.NewReader("v")})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected dog not found, got %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("expected storage untouched, got %d puts", store.puts)
	}
}

func TestDeleteRemovesRowAndFile(t *testing.T) {
	svc, repo, dog, _, root := setup(t)
	item, err := svc.Create(context.Background(), dog.ID, Upload{Filename: "clip.mp4", ContentType: "video/mp4", Body: strings.NewReader("v")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), item.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "videos", "fixed-name.mp4")); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, got %v", err)
	}
	items, err := repo.ListMediaByDog(context.Background(), dog.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no media rows, got %d", len(items))
	}
	if err := svc.Delete(context.Background(), item.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateDoesNotKeepForeignExtension(t *testing.T) {
	svc, _, dog, _, root := setup(t)
	item, err := svc.Create(context.Background(), dog.ID, Upload{Filename: "x.html", ContentType: "image/png", Body: strings.NewReader("<b>")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.FilePath != "/uploads/photos/fixed-name.png" {
		t.Fatalf("unexpected location %q", item.FilePath)
	}
	if _, err := os.Stat(filepath.Join(root, "photos", "fixed-name.png")); err != nil {
		t.Fatalf("expected stored file: %v", err)
	}
}

type failingDeleteRepo struct {
	*memory.Store
}

func (failingDeleteRepo) DeleteMedia(context.Context, int64) error {
	return errors.New("database unavailable")
}

func TestDeleteKeepsFileWhenRowDeleteFails(t *testing.T) {
	svc, repo, dog, _, root := setup(t)
	item, err := svc.Create(context.Background(), dog.ID, Upload{Filename: "clip.mp4", ContentType: "video/mp4", Body: strings.NewReader("v")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	svc.media = failingDeleteRepo{Store: repo}
	if err := svc.Delete(context.Background(), item.ID); err == nil {
		t.Fatalf("expected delete error")
	}
	if _, err := os.Stat(filepath.Join(root, "videos", "fixed-name.mp4")); err != nil {
		t.Fatalf("expected file kept while its row remains: %v", err)
	}
	got, err := repo.GetMediaByID(context.Background(), item.ID)
	if err != nil || got.FilePath != item.FilePath {
		t.Fatalf("expected media row intact, got %v %v", got, err)
	}
}

func TestExtension(t *testing.T) {
	cases := []struct {
		kind        string
		contentType string
		filename    string
		want        string
	}{
		{domain.MediaImage, "image/jpeg", "photo.JPG", ".jpg"},
		{domain.MediaImage, "image/png", "archive.tar.gz", ".png"},
		{domain.MediaImage, "image/png", "page.html", ".png"},
		{domain.MediaImage, "image/svg+xml", "logo.svg", ".jpg"},
		{domain.MediaImage, "image/webp", "noext", ".webp"},
		{domain.MediaImage, "image/jpeg", "weird.j p g", ".jpg"},
		{domain.MediaVideo, "video/quicktime", `C:\dir\movie.MOV`, ".mov"},
		{domain.MediaVideo, "video/mp4", "clip.png", ".mp4"},
		{domain.MediaVideo, "video/webm; codecs=vp9", "clip.htm", ".webm"},
		{domain.MediaVideo, "video/x-unknown", "clip", ".mp4"},
	}
	for _, tc := range cases {
		if got := extension(tc.kind, tc.contentType, tc.filename); got != tc.want {
			t.Fatalf("%s %q: expected %q, got %q", tc.contentType, tc.filename, tc.want, got)
		}
	}
}
