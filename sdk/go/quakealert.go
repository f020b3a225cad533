// Package sdk is a small client for the QuakeAlert HTTP API.
package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CycleResult mirrors the body returned by a check trigger.
type CycleResult struct {
	Success              bool   `json:"success"`
	Source               string `json:"source"`
	Message              string `json:"message"`
	EventsWithDeliveries int    `json:"eventsWithDeliveries"`
	TotalDelivered       int    `json:"totalDelivered"`
	TotalEventsFound     int    `json:"totalEventsFound"`
	CycleID              string `json:"cycleId,omitempty"`
	Error                string `json:"error,omitempty"`
}

// Notification is one delivered alert from a device's history.
type Notification struct {
	EarthquakeID     string    `json:"earthquake_id"`
	UserToken        string    `json:"user_token"`
	Location         string    `json:"location"`
	Magnitude        float64   `json:"magnitude"`
	Distance         float64   `json:"distance"`
	Timestamp        string    `json:"timestamp"`
	Source           string    `json:"source"`
	NotificationType string    `json:"notification_type"`
	SentAt           time.Time `json:"sent_at"`
}

// StatusError is returned for non-2xx responses. Result is set when the
// server still sent a cycle result, e.g. 409 for a cycle already in flight.
type StatusError struct {
	StatusCode int
	Result     *CycleResult
}

func (e *StatusError) Error() string {
	if e.Result != nil && e.Result.Error != "" {
		return fmt.Sprintf("quakealert: HTTP %d: %s", e.StatusCode, e.Result.Error)
	}
	return fmt.Sprintf("quakealert: HTTP %d", e.StatusCode)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{Timeout: 2 * time.Minute}}
}

// Check triggers one polling cycle for source (afad, kandilli or emsc).
func (c *Client) Check(ctx context.Context, source string) (*CycleResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/check/"+url.PathEscape(strings.ToLower(source)), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out CycleResult
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode/100 != 2 {
		se := &StatusError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			se.Result = &out
		}
		return nil, se
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode cycle result: %w", decodeErr)
	}
	return &out, nil
}

// Notifications lists the alerts delivered to token, newest first. A zero
// limit uses the server default.
func (c *Client) Notifications(ctx context.Context, token string, limit int) ([]Notification, error) {
	q := url.Values{"token": {token}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/notifications?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var out struct {
		Data []Notification `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return out.Data, nil
}
