// Package apiclient is the HTTP client used by the manasmitra terminal app.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/services/ai"
)

// defaultTimeout covers a generation request with all of its server-side retries.
const defaultTimeout = 2 * time.Minute

// ErrNoProfile is returned by profile-scoped calls made without a token.
var ErrNoProfile = errors.New("no profile token; run 'manasmitra profile' first")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, e.Kind)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Temporary reports whether retrying later may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusServiceUnavailable || e.Status == http.StatusGatewayTimeout || e.Status == http.StatusTooManyRequests
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// Client talks to the API server on behalf of one profile.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New creates a client. token may be empty until a profile has been created.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// Token returns the profile token in use.
func (c *Client) Token() string { return c.token }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Kind: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return &APIError{Status: resp.StatusCode, Kind: env.Error, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func (c *Client) scoped() error {
	if c.token == "" {
		return ErrNoProfile
	}
	return nil
}

// CreateProfile asks the server for a new anonymous profile and adopts its token.
func (c *Client) CreateProfile(ctx context.Context) (models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, http.MethodPost, "/api/v1/profiles", nil, nil, &p); err != nil {
		return models.Profile{}, err
	}
	c.token = p.Token
	return p, nil
}

// Submit sends a check-in. It satisfies wizard.Submitter.
func (c *Client) Submit(ctx context.Context, req models.CheckInRequest) (models.SubmittedCheckIn, error) {
	if err := c.scoped(); err != nil {
		return models.SubmittedCheckIn{}, err
	}
	var out models.SubmittedCheckIn
	err := c.do(ctx, http.MethodPost, "/api/v1/checkins", nil, req, &out)
	return out, err
}

// CheckIns returns the mood log, oldest first.
func (c *Client) CheckIns(ctx context.Context) ([]models.CheckIn, error) {
	if err := c.scoped(); err != nil {
		return nil, err
	}
	var out []models.CheckIn
	err := c.do(ctx, http.MethodGet, "/api/v1/checkins", nil, nil, &out)
	return out, err
}

// Trend returns the mood chart series.
func (c *Client) Trend(ctx context.Context) (models.MoodTrend, error) {
	if err := c.scoped(); err != nil {
		return models.MoodTrend{}, err
	}
	var out models.MoodTrend
	err := c.do(ctx, http.MethodGet, "/api/v1/checkins/trend", nil, nil, &out)
	return out, err
}

// Affirmation returns today's affirmation, optionally for a mood.
func (c *Client) Affirmation(ctx context.Context, mood models.Mood, refresh bool) (models.CachedAffirmation, error) {
	if err := c.scoped(); err != nil {
		return models.CachedAffirmation{}, err
	}
	q := url.Values{}
	if mood != "" {
		q.Set("mood", string(mood))
	}
	if refresh {
		q.Set("refresh", strconv.FormatBool(true))
	}
	var out models.CachedAffirmation
	err := c.do(ctx, http.MethodGet, "/api/v1/affirmation", q, nil, &out)
	return out, err
}

// CreateSession requests a personalized mindfulness session.
func (c *Client) CreateSession(ctx context.Context, in ai.MindfulnessSessionInput) (models.MindfulnessSession, error) {
	if err := c.scoped(); err != nil {
		return models.MindfulnessSession{}, err
	}
	var out models.MindfulnessSession
	err := c.do(ctx, http.MethodPost, "/api/v1/mindfulness/sessions", nil, in, &out)
	return out, err
}

// RecordSession stores a completed session.
func (c *Client) RecordSession(ctx context.Context, req models.SessionProgressRequest) (models.SessionProgress, error) {
	if err := c.scoped(); err != nil {
		return models.SessionProgress{}, err
	}
	var out models.SessionProgress
	err := c.do(ctx, http.MethodPost, "/api/v1/mindfulness/history", nil, req, &out)
	return out, err
}

// History returns completed sessions, newest first.
func (c *Client) History(ctx context.Context) ([]models.SessionProgress, error) {
	if err := c.scoped(); err != nil {
		return nil, err
	}
	var out []models.SessionProgress
	err := c.do(ctx, http.MethodGet, "/api/v1/mindfulness/history", nil, nil, &out)
	return out, err
}

// Stats returns the session summary.
func (c *Client) Stats(ctx context.Context) (models.SessionStats, error) {
	if err := c.scoped(); err != nil {
		return models.SessionStats{}, err
	}
	var out models.SessionStats
	err := c.do(ctx, http.MethodGet, "/api/v1/mindfulness/stats", nil, nil, &out)
	return out, err
}
