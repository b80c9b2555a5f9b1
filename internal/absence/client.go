package absence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/username/absence-clockin/pkg/dateutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	tokenHeader    = "x-vacationtoken"
	absencePage    = 100
)

// ClientOptions configures a Client
type ClientOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables pacing
	OverlapMessage    string
	TimezoneName      string
	PageSize          int // absences per query, default 100
}

// Client represents absence.io API client.
// It holds no session state; the auth token is passed per call.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	overlapMessage string
	timezoneName   string
	pageSize       int
	logger         *zap.Logger
}

// NewClient creates a new absence.io API client
func NewClient(baseURL string, opts ClientOptions, logger *zap.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = absencePage
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:        rate.NewLimiter(limit, 1),
		overlapMessage: opts.OverlapMessage,
		timezoneName:   opts.TimezoneName,
		pageSize:       pageSize,
		logger:         logger,
	}
}

// Login exchanges credentials for an auth token
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	req := LoginRequest{
		Email:    creds.Email,
		Password: creds.Password,
		Trace:    []string{},
	}

	var resp LoginResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return "", &AuthError{Op: "login", Err: err}
	}
	if resp.Token == "" {
		return "", &AuthError{Op: "login", Err: fmt.Errorf("response has no token")}
	}

	c.logger.Info("Logged in", zap.String("email", creds.Email))

	return resp.Token, nil
}

// GetUser resolves the identity behind a token, including national holidays
func (c *Client) GetUser(ctx context.Context, token string) (*User, error) {
	var user User
	path := "/auth/" + url.PathEscape(token)
	if err := c.doRequest(ctx, http.MethodGet, path, token, nil, &user); err != nil {
		return nil, &AuthError{Op: "identity", Err: err}
	}
	if user.ID == "" {
		return nil, &AuthError{Op: "identity", Err: fmt.Errorf("response has no user id")}
	}

	c.logger.Info("Current user identified",
		zap.String("id", user.ID.String()),
		zap.Int("holiday_dates", len(user.HolidayDates)))

	return &user, nil
}

// ListApprovedAbsences returns approved absences of userID starting on or after from,
// sorted by start ascending. Pages are requested until totalCount is reached.
func (c *Client) ListApprovedAbsences(ctx context.Context, token, userID string, from time.Time) ([]AbsenceRecord, error) {
	req := AbsenceQuery{
		Skip:  0,
		Limit: c.pageSize,
		Filter: AbsenceFilter{
			AssignedToID: userID,
			Status:       InFilter{In: []int{StatusApproved}},
			Start:        RangeFilter{Gte: from.Format("2006-01-02T15:04:05.000Z")},
		},
		SortBy: map[string]int{"start": 1},
	}

	var records []AbsenceRecord
	pages := 0
	for {
		req.Skip = len(records)

		var list AbsenceList
		if err := c.doRequest(ctx, http.MethodPost, "/v2/absences", token, req, &list); err != nil {
			return nil, fmt.Errorf("failed to list absences (skip %d): %w", req.Skip, err)
		}
		pages++
		records = append(records, list.Data...)

		if len(list.Data) == 0 || len(records) >= list.TotalCount {
			break
		}
	}

	c.logger.Info("Absences retrieved",
		zap.String("user", userID),
		zap.Time("from", from),
		zap.Int("count", len(records)),
		zap.Int("pages", pages))

	return records, nil
}

// CreateWorkTimespan records one work interval. Returns ErrOverlap
// (wrapped) when the service reports the span overlaps an existing one.
func (c *Client) CreateWorkTimespan(ctx context.Context, token, userID string, start, end time.Time) error {
	req := CreateTimespanRequest{
		UserID:       userID,
		ID:           "new",
		Timezone:     "+0000",
		TimezoneName: c.timezoneName,
		Type:         "work",
		Commentary:   "",
		Start:        dateutil.FormatTimespan(start),
		End:          dateutil.FormatTimespan(end),
		Trace:        []string{},
	}

	err := c.doRequest(ctx, http.MethodPost, "/v2/timespans/create", token, req, nil)
	if err != nil {
		if c.isOverlap(err) {
			return fmt.Errorf("%s - %s: %w", req.Start, req.End, ErrOverlap)
		}
		return err
	}

	c.logger.Debug("Timespan created",
		zap.String("start", req.Start),
		zap.String("end", req.End))

	return nil
}

func (c *Client) isOverlap(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.StatusCode != http.StatusPreconditionFailed {
		return false
	}
	if c.overlapMessage == "" {
		return true
	}
	return strings.Contains(apiErr.Body, c.overlapMessage)
}

// doRequest performs a single HTTP request. No retries: every failure is returned.
func (c *Client) doRequest(ctx context.Context, method, path, token string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("request pacing interrupted: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	// Read response
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	// Parse response
	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
