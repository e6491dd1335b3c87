package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/repository/memory"
	"github.com/PietroNozella/PetWalker/internal/service/activity"
	"github.com/PietroNozella/PetWalker/internal/service/auth"
	"github.com/PietroNozella/PetWalker/internal/service/dog"
	"github.com/PietroNozella/PetWalker/internal/service/media"
	"github.com/PietroNozella/PetWalker/internal/service/schedule"
	"github.com/PietroNozella/PetWalker/internal/service/stats"
	"github.com/PietroNozella/PetWalker/internal/storage"
	"github.com/PietroNozella/PetWalker/internal/ws"
	"github.com/PietroNozella/PetWalker/pkg/config"
	"github.com/PietroNozella/PetWalker/pkg/crypto"
	jwtpkg "github.com/PietroNozella/PetWalker/pkg/jwt"
)

type testEnv struct {
	router     *Router
	store      *memory.Store
	hub        *ws.Hub
	issuer     *jwtpkg.Issuer
	uploadsDir string
	adminToken string
	ownerToken string
	owner      *domain.User
}

type envOptions struct {
	limiter  RateLimiter
	dbHealth func(context.Context) error
	origins  []string
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	hub := ws.NewHub()
	t.Cleanup(hub.Close)

	issuer, err := jwtpkg.NewIssuer("test-secret", "petwalker", 0)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	hasher := crypto.NewHasher(bcrypt.MinCost)
	cfg := config.APIConfig{AccessTokenTTL: time.Hour, AccessCodeBytes: 16}

	uploadsDir := t.TempDir()
	local, err := storage.NewLocal(uploadsDir, "/uploads")
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>petwalker</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	activitySvc := activity.New(store, hub, logger)
	services := Services{
		Auth: auth.New(store, issuer, hasher, logger, cfg),
		Dogs: dog.New(dog.Repositories{
			Dogs:      store,
			Users:     store,
			Walks:     store,
			Trainings: store,
			Media:     store,
		}, local, activitySvc, logger, cfg),
		Schedule: schedule.New(store, store, store, activitySvc, logger),
		Media:    media.New(store, store, local, activitySvc, logger),
		Stats:    stats.New(store, logger),
		Activity: activitySvc,
	}
	limiter := opts.limiter
	if limiter == nil {
		limiter = newRateLimiterStub()
	}
	origins := opts.origins
	if origins == nil {
		origins = []string{"*"}
	}
	router := NewRouter(logger, services, Options{
		Limiter:     limiter,
		DBHealth:    opts.dbHealth,
		CORSOrigins: origins,
		StaticDir:   staticDir,
		UploadsDir:  uploadsDir,
	})
	t.Cleanup(router.Close)

	hash, err := hasher.Hash("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	admin := &domain.User{Email: "admin@petwalker.com", Name: "Admin", PasswordHash: hash, IsAdmin: true}
	if err := store.CreateUser(context.Background(), admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	owner := &domain.User{Email: "ana@example.com", Name: "Ana", PasswordHash: hash}
	if err := store.CreateUser(context.Background(), owner); err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	adminToken, err := issuer.Issue(admin.ID, time.Hour)
	if err != nil {
		t.Fatalf("issue admin token: %v", err)
	}
	ownerToken, err := issuer.Issue(owner.ID, time.Hour)
	if err != nil {
		t.Fatalf("issue owner token: %v", err)
	}
	return &testEnv{
		router:     router,
		store:      store,
		hub:        hub,
		issuer:     issuer,
		uploadsDir: uploadsDir,
		adminToken: adminToken,
		ownerToken: ownerToken,
		owner:      owner,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) createDog(t *testing.T, name string) map[string]any {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/dogs", e.adminToken, map[string]any{
		"name":     name,
		"breed":    "Vira-lata",
		"age":      3,
		"weight":   12.5,
		"owner_id": e.owner.ID,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create dog: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	return decodeObject(t, rr.Body.Bytes())
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rr := env.do(t, http.MethodGet, "/api/dogs", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	if msg := parseError(t, rr.Body.String()); msg != "authentication required" {
		t.Fatalf("unexpected error message %q", msg)
	}

	rr = env.do(t, http.MethodGet, "/api/dogs", "not-a-jwt", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rr.Code)
	}
	if msg := parseError(t, rr.Body.String()); msg != "authentication failed" {
		t.Fatalf("unexpected error message %q", msg)
	}

	rr = env.do(t, http.MethodGet, "/api/dogs", env.ownerToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for owner token, got %d", rr.Code)
	}
	if msg := parseError(t, rr.Body.String()); msg != "admin privileges required" {
		t.Fatalf("unexpected error message %q", msg)
	}

	rr = env.do(t, http.MethodGet, "/api/dogs", env.adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin token, got %d", rr.Code)
	}
}

func TestTokenForDeletedUserIsRejected(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	token, err := env.issuer.Issue(9999, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rr := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rr := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    " Bruno@Example.com ",
		"name":     "Bruno",
		"password": "s3cret",
		"is_admin": true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	user := decodeObject(t, rr.Body.Bytes())
	if user["email"] != "bruno@example.com" {
		t.Fatalf("expected normalised email, got %v", user["email"])
	}
	if user["is_admin"] != false {
		t.Fatalf("public registration must not create admins")
	}
	if _, ok := user["password_hash"]; ok {
		t.Fatalf("password hash must not be serialised")
	}

	rr = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "bruno@example.com", "name": "Other", "password": "x",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rr.Code)
	}
	if msg := parseError(t, rr.Body.String()); msg != "email already registered" {
		t.Fatalf("unexpected error message %q", msg)
	}

	rr = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "bruno@example.com", "password": "wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rr.Code)
	}
	wrongPassword := parseError(t, rr.Body.String())
	rr = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "nobody@example.com", "password": "wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", rr.Code)
	}
	if unknown := parseError(t, rr.Body.String()); unknown != wrongPassword || unknown != "invalid email or password" {
		t.Fatalf("login failures must be indistinguishable: %q vs %q", unknown, wrongPassword)
	}

	rr = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "bruno@example.com", "password": "s3cret"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	login := decodeObject(t, rr.Body.Bytes())
	if login["token_type"] != "bearer" {
		t.Fatalf("unexpected token type %v", login["token_type"])
	}
	if login["expires_in"] != float64(3600) {
		t.Fatalf("unexpected expires_in %v", login["expires_in"])
	}
	token, _ := login["access_token"].(string)

	rr = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from me, got %d", rr.Code)
	}
	if me := decodeObject(t, rr.Body.Bytes()); me["name"] != "Bruno" {
		t.Fatalf("unexpected me payload %v", me)
	}
}

func TestLoginRejectsPasswordExtendedPastBcryptLimit(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	password := strings.Repeat("p", 72)

	rr := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "long@example.com", "name": "Long", "password": password,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "long@example.com", "password": password + "WRONG"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for password with extra suffix, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "long@example.com", "password": password})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for exact password, got %d", rr.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rr := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{"email": "not-an-email", "name": "X", "password": "p"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if msg := parseError(t, rr.Body.String()); msg != "email: is not a valid address" {
		t.Fatalf("unexpected error message %q", msg)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/auth/register", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestOwnersEndpoint(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rr := env.do(t, http.MethodPost, "/api/users", env.adminToken, map[string]any{
		"email": "carla@example.com", "name": "Carla", "phone": "+55 11 99999-0000", "password": "pw",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/users", env.adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	owners := decodeArray(t, rr.Body.Bytes())
	if len(owners) != 2 {
		t.Fatalf("expected two owners, got %d", len(owners))
	}
	for _, o := range owners {
		if o["is_admin"] != false {
			t.Fatalf("owner listing leaked an admin: %v", o)
		}
	}
}

func TestDogLifecycleAndPublicProfile(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	created := env.createDog(t, "Rex")
	id := int64(created["id"].(float64))
	code, _ := created["access_code"].(string)
	if len(code) < 20 {
		t.Fatalf("expected generated access code, got %q", code)
	}
	dogPath := "/api/dogs/" + strconv.FormatInt(id, 10)

	rr := env.do(t, http.MethodPut, dogPath, env.adminToken, map[string]any{"description": "loves the park"})
	if rr.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	updated := decodeObject(t, rr.Body.Bytes())
	if updated["description"] != "loves the park" || updated["breed"] != "Vira-lata" || updated["weight"] != 12.5 {
		t.Fatalf("patch changed more than the provided fields: %v", updated)
	}

	rr = env.do(t, http.MethodPut, dogPath, env.adminToken, map[string]any{"owner_id": 4242})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown owner, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, dogPath, env.adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", rr.Code)
	}
	profile := decodeObject(t, rr.Body.Bytes())
	owner, _ := profile["owner"].(map[string]any)
	if owner["email"] != "ana@example.com" {
		t.Fatalf("admin profile should include owner email, got %v", owner)
	}
	for _, key := range []string{"walks", "trainings", "media"} {
		if _, ok := profile[key].([]any); !ok {
			t.Fatalf("expected %s array in profile", key)
		}
	}

	rr = env.do(t, http.MethodGet, "/api/public/dog/"+code, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("public: expected 200, got %d", rr.Code)
	}
	public := decodeObject(t, rr.Body.Bytes())
	if public["name"] != "Rex" {
		t.Fatalf("unexpected public profile %v", public)
	}
	if publicOwner, _ := public["owner"].(map[string]any); publicOwner["email"] != nil {
		t.Fatalf("public profile must not expose owner email")
	}

	rr = env.do(t, http.MethodPost, dogPath+"/access-code", env.adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("rotate: expected 200, got %d", rr.Code)
	}
	rotated := decodeObject(t, rr.Body.Bytes())
	if rotated["access_code"] == code {
		t.Fatalf("expected a new access code")
	}
	rr = env.do(t, http.MethodGet, "/api/public/dog/"+code, "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("old code should stop resolving, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodDelete, dogPath, env.adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, dogPath, env.adminToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
	if msg := parseError(t, rr.Body.String()); msg != "dog not found" {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestCreateDogValidation(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rr := env.do(t, http.MethodPost, "/api/dogs", env.adminToken, map[string]any{"name": "Rex", "owner_id": 999})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if msg := parseError(t, rr.Body.String()); msg != "owner not found" {
		t.Fatalf("unexpected error message %q", msg)
	}

	rr = env.do(t, http.MethodPost, "/api/dogs", env.adminToken, map[string]any{"name": "Rex", "owner_id": env.owner.ID, "age": -1})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative age, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/dogs/abc", env.adminToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %d", rr.Code)
	}
}

func TestPublicLookupUnknownCode(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rr := env.do(t, http.MethodGet, "/api/public/dog/does-not-exist", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if msg := parseError(t, rr.Body.String()); msg != "profile not found" {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestWalksAndTrainings(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	created := env.createDog(t, "Rex")
	dogID := int64(created["id"].(float64))

	rr := env.do(t, http.MethodPost, "/api/walks", env.adminToken, map[string]any{
		"dog_id":         dogID,
		"scheduled_date": "2025-03-01T09:30:00",
		"location":       "Ibirapuera",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create walk: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	walk := decodeObject(t, rr.Body.Bytes())
	if walk["status"] != domain.StatusScheduled || walk["duration_minutes"] != float64(60) {
		t.Fatalf("expected defaults, got %v", walk)
	}
	if walk["scheduled_date"] != "2025-03-01T09:30:00Z" {
		t.Fatalf("expected naive date read as UTC, got %v", walk["scheduled_date"])
	}
	walkPath := "/api/walks/" + strconv.FormatInt(int64(walk["id"].(float64)), 10)

	rr = env.do(t, http.MethodPut, walkPath, env.adminToken, map[string]any{"status": "finished"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodPut, walkPath, env.adminToken, map[string]any{"status": domain.StatusCompleted})
	if rr.Code != http.StatusOK {
		t.Fatalf("update walk: expected 200, got %d", rr.Code)
	}
	if updated := decodeObject(t, rr.Body.Bytes()); updated["location"] != "Ibirapuera" {
		t.Fatalf("patch dropped location: %v", updated)
	}

	rr = env.do(t, http.MethodPost, "/api/walks", env.adminToken, map[string]any{"dog_id": 999, "scheduled_date": "2025-03-01T09:30:00Z"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown dog, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodPost, "/api/walks", env.adminToken, map[string]any{"dog_id": dogID, "scheduled_date": "tomorrow"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/trainings", env.adminToken, map[string]any{
		"dog_id":         dogID,
		"scheduled_date": "2025-03-02T10:00:00-03:00",
		"training_type":  "obediência",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create training: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/walks?dog_id="+strconv.FormatInt(dogID, 10), env.adminToken, nil)
	if rr.Code != http.StatusOK || len(decodeArray(t, rr.Body.Bytes())) != 1 {
		t.Fatalf("expected one walk for dog, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodGet, "/api/trainings?dog_id=abc", env.adminToken, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed dog_id, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/stats", env.adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rr.Code)
	}
	stats := decodeObject(t, rr.Body.Bytes())
	if stats["total_dogs"] != float64(1) || stats["total_walks"] != float64(1) || stats["pending_walks"] != float64(0) || stats["pending_trainings"] != float64(1) {
		t.Fatalf("unexpected stats %v", stats)
	}

	rr = env.do(t, http.MethodDelete, walkPath, env.adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete walk: expected 200, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodDelete, walkPath, env.adminToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rr.Code)
	}
}

func TestMediaUploadAndServe(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	created := env.createDog(t, "Rex")
	mediaPath := "/api/dogs/" + strconv.FormatInt(int64(created["id"].(float64)), 10) + "/media"

	rr := env.upload(t, mediaPath, "notes.txt", "text/plain", "hello", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for text upload, got %d", rr.Code)
	}
	entries, err := os.ReadDir(env.uploadsDir)
	if err != nil {
		t.Fatalf("read uploads dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rejected upload touched storage: %v", entries)
	}

	rr = env.upload(t, mediaPath, "beach.PNG", "image/png", "png-bytes", "at the beach")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	item := decodeObject(t, rr.Body.Bytes())
	location, _ := item["file_path"].(string)
	if !strings.HasPrefix(location, "/uploads/photos/") || !strings.HasSuffix(location, ".png") {
		t.Fatalf("unexpected location %q", location)
	}
	if item["file_type"] != domain.MediaImage || item["caption"] != "at the beach" {
		t.Fatalf("unexpected media payload %v", item)
	}

	served := env.do(t, http.MethodGet, location, "", nil)
	if served.Code != http.StatusOK || served.Body.String() != "png-bytes" {
		t.Fatalf("expected stored file to be served, got %d %q", served.Code, served.Body.String())
	}
	if got := served.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff on uploads, got %q", got)
	}
	if got := served.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("expected image/png, got %q", got)
	}

	rr = env.do(t, http.MethodGet, mediaPath, env.adminToken, nil)
	if rr.Code != http.StatusOK || len(decodeArray(t, rr.Body.Bytes())) != 1 {
		t.Fatalf("expected one media item, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodDelete, "/api/media/"+strconv.FormatInt(int64(item["id"].(float64)), 10), env.adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete media: expected 200, got %d", rr.Code)
	}
	if served := env.do(t, http.MethodGet, location, "", nil); served.Code != http.StatusNotFound {
		t.Fatalf("expected deleted file to 404, got %d", served.Code)
	}
}

func TestUploadedMarkupIsNeverServedAsHTML(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	created := env.createDog(t, "Rex")
	mediaPath := "/api/dogs/" + strconv.FormatInt(int64(created["id"].(float64)), 10) + "/media"

	rr := env.upload(t, mediaPath, "x.html", "image/png", "<script>alert(1)</script>", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	location, _ := decodeObject(t, rr.Body.Bytes())["file_path"].(string)
	if !strings.HasSuffix(location, ".png") {
		t.Fatalf("expected extension derived from content type, got %q", location)
	}

	if err := os.MkdirAll(filepath.Join(env.uploadsDir, "photos"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(env.uploadsDir, "photos", "legacy.html"), []byte("<script>alert(1)</script>"), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}
	served := env.do(t, http.MethodGet, "/uploads/photos/legacy.html", "", nil)
	if served.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", served.Code)
	}
	if got := served.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Fatalf("expected opaque content type, got %q", got)
	}
	if got := served.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
}

func (e *testEnv) upload(t *testing.T, path, filename, contentType, content, caption string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			t.Fatalf("write caption: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.adminToken)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitedLoginReturns429(t *testing.T) {
	limiter := newRateLimiterStub()
	reset := time.Unix(1_950_000_000, 0)
	limiter.allowFn = func(key string, limit int, window time.Duration) rateDecision {
		return rateDecision{allowed: false, count: limit + 1, windowEnd: reset}
	}
	env := newTestEnv(t, envOptions{limiter: limiter})

	rr := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ana@example.com", "password": "admin123"})
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != strconv.Itoa(rateLimitLogin) {
		t.Fatalf("unexpected limit header %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("unexpected remaining header %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Reset"); got != "1950000000" {
		t.Fatalf("unexpected reset header %q", got)
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.calls) != 1 || !strings.HasPrefix(limiter.calls[0].key, "auth_login|ip:") {
		t.Fatalf("unexpected limiter calls %+v", limiter.calls)
	}
}

func TestMemoryRateLimiterWindow(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()
	for i := 1; i <= 3; i++ {
		if d := rl.Allow("k", 3, time.Minute); !d.allowed || d.count != i {
			t.Fatalf("request %d: unexpected decision %+v", i, d)
		}
	}
	if d := rl.Allow("k", 3, time.Minute); d.allowed {
		t.Fatalf("expected fourth request to be limited")
	}
	if d := rl.Allow("other", 3, time.Minute); !d.allowed {
		t.Fatalf("keys must not share buckets")
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, envOptions{origins: []string{"https://app.petwalker.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/dogs", nil)
	req.Header.Set("Origin", "https://app.petwalker.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.petwalker.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/dogs/1", nil)
	req.Header.Set("Origin", "https://app.petwalker.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for PATCH preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPatch) {
		t.Fatalf("expected PATCH in allowed methods, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/public/dog/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin for foreign site %q", got)
	}
}

func TestHealthzReportsDatabase(t *testing.T) {
	env := newTestEnv(t, envOptions{dbHealth: func(context.Context) error { return errors.New("connection refused") }})
	rr := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	payload := decodeObject(t, rr.Body.Bytes())
	if payload["status"] != "degraded" {
		t.Fatalf("unexpected status %v", payload["status"])
	}

	healthy := newTestEnv(t, envOptions{dbHealth: func(context.Context) error { return nil }})
	if rr := healthy.do(t, http.MethodGet, "/healthz", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rr := env.do(t, http.MethodGet, "/api/stats", env.adminToken, nil)
	if len(rr.Header().Get("X-Request-ID")) != 36 {
		t.Fatalf("expected generated uuid request id, got %q", rr.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	req.Header.Set("X-Request-ID", "trace-123")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "trace-123" {
		t.Fatalf("expected caller request id echoed, got %q", got)
	}
}

func TestFrontendAndFallback(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	for _, path := range []string{"/", "/pet/some-code"} {
		rr := env.do(t, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "petwalker") {
			t.Fatalf("%s: expected index page, got %d", path, rr.Code)
		}
	}
	rr := env.do(t, http.MethodGet, "/api/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if msg := parseError(t, rr.Body.String()); msg != "not found" {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestActivityFeedListsMutations(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	created := env.createDog(t, "Rex")
	dogID := strconv.FormatInt(int64(created["id"].(float64)), 10)

	rr := env.do(t, http.MethodGet, "/api/activity?dog_id="+dogID, env.adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	entries := decodeArray(t, rr.Body.Bytes())
	if len(entries) != 1 || entries[0]["kind"] != domain.ActivityDogCreated {
		t.Fatalf("unexpected activity %v", entries)
	}
	if entries[0]["actor_id"] == nil {
		t.Fatalf("expected the admin to be recorded as actor")
	}
}

func TestActivityStreamEmitsEvents(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/activity/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	recorder := newStreamRecorder()
	done := make(chan struct{})
	go func() {
		env.router.ServeHTTP(recorder, req)
		close(done)
	}()

	waitFor(t, 2*time.Second, func() bool { return env.hub.Subscribers(ws.TopicAll) == 1 })
	env.createDog(t, "Rex")
	waitFor(t, 2*time.Second, func() bool { return strings.Contains(recorder.body(), "data: ") })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("activity stream handler did not exit after context cancel")
	}

	if ct := recorder.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if recorder.flushCount() == 0 {
		t.Fatalf("expected flusher to be invoked")
	}
	payloads, err := extractSSEPayloads(recorder.body())
	if err != nil {
		t.Fatalf("extract sse payloads: %v", err)
	}
	if len(payloads) != 1 || payloads[0]["kind"] != domain.ActivityDogCreated {
		t.Fatalf("unexpected payloads %v", payloads)
	}
}

func TestActivityWebsocketAcceptsQueryToken(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	server := httptest.NewServer(env.router)
	defer server.Close()

	created := env.createDog(t, "Rex")
	dogID := strconv.FormatInt(int64(created["id"].(float64)), 10)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws/activity?dog_id=" + dogID + "&token=" + env.adminToken
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v (response %v)", err, resp)
	}
	defer conn.Close()

	topic := activity.DogTopic(int64(created["id"].(float64)))
	waitFor(t, 2*time.Second, func() bool { return env.hub.Subscribers(topic) == 1 })
	rr := env.do(t, http.MethodPut, "/api/dogs/"+dogID, env.adminToken, map[string]any{"name": "Rex II"})
	if rr.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rr.Code)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(message, &payload); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if payload["kind"] != domain.ActivityDogUpdated {
		t.Fatalf("unexpected event %v", payload)
	}

	_, resp, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/ws/activity", nil)
	if err == nil {
		t.Fatalf("expected handshake without token to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %v", resp)
	}
}

func decodeObject(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode object: %v (%s)", err, data)
	}
	return payload
}

func decodeArray(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var payload []map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode array: %v (%s)", err, data)
	}
	return payload
}

type rateLimiterStub struct {
	mu      sync.Mutex
	calls   []rateLimitCall
	allowFn func(key string, limit int, window time.Duration) rateDecision
}

type rateLimitCall struct {
	key    string
	limit  int
	window time.Duration
}

func newRateLimiterStub() *rateLimiterStub {
	return &rateLimiterStub{}
}

func (rl *rateLimiterStub) Allow(key string, limit int, window time.Duration) rateDecision {
	rl.mu.Lock()
	rl.calls = append(rl.calls, rateLimitCall{key: key, limit: limit, window: window})
	fn := rl.allowFn
	rl.mu.Unlock()
	if fn != nil {
		return fn(key, limit, window)
	}
	return rateDecision{allowed: true, count: 1, windowEnd: time.Now().Add(window)}
}

func (rl *rateLimiterStub) Close() {}

type streamRecorder struct {
	mu     sync.Mutex
	header http.Header
	status int
	buf    bytes.Buffer
	flush  int
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: make(http.Header)}
}

func (s *streamRecorder) Header() http.Header {
	return s.header
}

func (s *streamRecorder) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.buf.Write(b)
}

func (s *streamRecorder) WriteHeader(status int) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *streamRecorder) Flush() {
	s.mu.Lock()
	s.flush++
	s.mu.Unlock()
}

func (s *streamRecorder) body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *streamRecorder) flushCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func extractSSEPayloads(body string) ([]map[string]any, error) {
	lines := strings.Split(body, "\n")
	var payloads []map[string]any
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "data: ") {
			raw := strings.TrimPrefix(line, "data: ")
			var payload map[string]any
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				return nil, err
			}
			payloads = append(payloads, payload)
		}
	}
	return payloads, nil
}

func parseError(t *testing.T, body string) string {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	v, _ := payload["error"].(string)
	return v
}
