package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	ical "github.com/arran4/golang-ical"
	"golang.org/x/time/rate"

	"github.com/morywal/CalendarApp/internal/domain/types"
)

// maxErrorBody bounds how much of an error response is quoted.
const maxErrorBody = 512

// Client talks to the planner API.
type Client struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient creates a client with the given request timeout. A positive
// requestsPerSecond caps the request rate shared by all callers.
func NewClient(baseURL string, timeout time.Duration, requestsPerSecond float64) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), max(1, int(requestsPerSecond)))
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		limiter: limiter,
	}
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// StatusError reports an unexpected response status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// do sends body (if any) as JSON and decodes a response with status want
// into out (if any).
func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

func userPath(userID, suffix string) string {
	return "/users/" + url.PathEscape(userID) + suffix
}

// Health checks that the service answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

// CreateCommitment stores a commitment and returns it with its assigned ID.
func (c *Client) CreateCommitment(ctx context.Context, userID string, in types.Commitment) (types.Commitment, error) {
	var out types.Commitment
	err := c.do(ctx, http.MethodPost, userPath(userID, "/commitments"), in, http.StatusCreated, &out)
	return out, err
}

// CreateTask stores a task and returns it with its assigned ID.
func (c *Client) CreateTask(ctx context.Context, userID string, in types.Task) (types.Task, error) {
	var out types.Task
	err := c.do(ctx, http.MethodPost, userPath(userID, "/tasks"), in, http.StatusCreated, &out)
	return out, err
}

// Schedule runs the planner for userID and returns the committed plan.
func (c *Client) Schedule(ctx context.Context, userID string) (types.ScheduleResponse, error) {
	var out types.ScheduleResponse
	err := c.do(ctx, http.MethodPost, userPath(userID, "/schedule"), nil, http.StatusOK, &out)
	return out, err
}

// FreeBlocks previews userID's free time.
func (c *Client) FreeBlocks(ctx context.Context, userID string) (types.FreeBlocksResponse, error) {
	var out types.FreeBlocksResponse
	err := c.do(ctx, http.MethodGet, userPath(userID, "/free-blocks"), nil, http.StatusOK, &out)
	return out, err
}

// Preferences fetches userID's stored or default preferences.
func (c *Client) Preferences(ctx context.Context, userID string) (types.Preferences, error) {
	var out types.Preferences
	err := c.do(ctx, http.MethodGet, userPath(userID, "/preferences"), nil, http.StatusOK, &out)
	return out, err
}

// Calendar downloads and parses userID's iCalendar export.
func (c *Client) Calendar(ctx context.Context, userID string) (*ical.Calendar, error) {
	path := userPath(userID, "/calendar.ics")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Method: http.MethodGet, Path: path, Code: resp.StatusCode, Body: string(msg)}
	}
	cal, err := ical.ParseCalendar(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: failed to parse calendar: %w", path, err)
	}
	return cal, nil
}
