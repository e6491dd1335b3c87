package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8000"

// Client provides typed access to the PetWalker API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// BaseURL reports the normalised API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// Token is the bearer credential returned by login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// User reflects API user payloads.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Dog is a dog record as listed by the admin API.
type Dog struct {
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

// Walk is a scheduled walk.
type Walk struct {
	ID              int64     `json:"id"`
	DogID           int64     `json:"dog_id"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Location        *string   `json:"location"`
	Notes           *string   `json:"notes"`
}

// Training is a scheduled training session.
type Training struct {
	ID              int64     `json:"id"`
	DogID           int64     `json:"dog_id"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	DurationMinutes int       `json:"duration_minutes"`
	TrainingType    *string   `json:"training_type"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes"`
	ProgressReport  *string   `json:"progress_report"`
}

// Media is an uploaded photo or video.
type Media struct {
	ID         int64     `json:"id"`
	DogID      int64     `json:"dog_id"`
	FilePath   string    `json:"file_path"`
	FileType   string    `json:"file_type"`
	Caption    *string   `json:"caption"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Profile is a dog with its owner, schedule and media.
type Profile struct {
	Dog
	Owner     *User      `json:"owner"`
	Walks     []Walk     `json:"walks"`
	Trainings []Training `json:"trainings"`
	Media     []Media    `json:"media"`
}

// Stats aggregates dashboard counters.
type Stats struct {
	TotalDogs        int `json:"total_dogs"`
	TotalOwners      int `json:"total_owners"`
	TotalWalks       int `json:"total_walks"`
	PendingWalks     int `json:"pending_walks"`
	TotalTrainings   int `json:"total_trainings"`
	PendingTrainings int `json:"pending_trainings"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (Token, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp Token
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, "", &resp); err != nil {
		return Token{}, err
	}
	return resp, nil
}

// Me returns the account the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, token, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Stats fetches the admin dashboard counters.
func (c *Client) Stats(ctx context.Context, token string) (Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, token, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// ListOwners returns every non-admin account.
func (c *Client) ListOwners(ctx context.Context, token string) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, token, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListDogs returns every dog.
func (c *Client) ListDogs(ctx context.Context, token string) ([]Dog, error) {
	var dogs []Dog
	if err := c.do(ctx, http.MethodGet, "/api/dogs", nil, token, &dogs); err != nil {
		return nil, err
	}
	return dogs, nil
}

// GetDog fetches the full profile of a dog.
func (c *Client) GetDog(ctx context.Context, token string, id int64) (Profile, error) {
	var profile Profile
	path := "/api/dogs/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, token, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// RotateAccessCode issues a new public access code for a dog.
func (c *Client) RotateAccessCode(ctx context.Context, token string, id int64) (Dog, error) {
	var dog Dog
	path := fmt.Sprintf("/api/dogs/%d/access-code", id)
	if err := c.do(ctx, http.MethodPost, path, nil, token, &dog); err != nil {
		return Dog{}, err
	}
	return dog, nil
}

// PublicProfile resolves an access code without credentials.
func (c *Client) PublicProfile(ctx context.Context, code string) (Profile, error) {
	var profile Profile
	path := "/api/public/dog/" + url.PathEscape(code)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// PublicURL is the shareable page for an access code.
func (c *Client) PublicURL(code string) string {
	return c.baseURL + "/pet/" + url.PathEscape(code)
}
