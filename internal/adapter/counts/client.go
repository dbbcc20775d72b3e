// Package counts fetches derived engagement counts from the auxiliary
// collaborator services (participants, artifacts, activity). These services
// are optional: an unconfigured or failing collaborator yields nil counts,
// never an error that would block an engagement read or write.
package counts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/guildworks/engagements/internal/config"
)

// Client talks to the count collaborator services.
type Client struct {
	participantsURL string
	artifactsURL    string
	activityURL     string

	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client from the collaborator configuration.
func NewClient(cfg config.CountsConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		participantsURL: cfg.ParticipantsURL,
		artifactsURL:    cfg.ArtifactsURL,
		activityURL:     cfg.ActivityURL,
		httpClient:      &http.Client{Timeout: timeout},
		log:             logger.With("adapter", "counts"),
	}
}

// ParticipantCount returns the number of participants enrolled on an
// engagement, or nil when the collaborator is unconfigured or has no data.
func (c *Client) ParticipantCount(ctx context.Context, engagementUUID string) (*int, error) {
	return c.fetchCount(ctx, c.participantsURL, "/api/participants/engagements/count", engagementUUID)
}

// ArtifactCount returns the number of artifacts attached to an engagement,
// or nil when the collaborator is unconfigured or has no data.
func (c *Client) ArtifactCount(ctx context.Context, engagementUUID string) (*int, error) {
	return c.fetchCount(ctx, c.artifactsURL, "/api/artifacts/engagements/count", engagementUUID)
}

// LastActivity returns the most recent activity timestamp recorded for an
// engagement, or nil when none is known.
func (c *Client) LastActivity(ctx context.Context, engagementUUID string) (*time.Time, error) {
	if c.activityURL == "" {
		return nil, nil
	}

	reqURL := c.activityURL + "/api/activity/uuid/" + url.PathEscape(engagementUUID) + "/latest"

	var payload struct {
		Timestamp *time.Time `json:"timestamp"`
	}
	if err := c.get(ctx, reqURL, &payload); err != nil {
		return nil, err
	}
	return payload.Timestamp, nil
}

func (c *Client) fetchCount(ctx context.Context, baseURL, path, engagementUUID string) (*int, error) {
	if baseURL == "" {
		return nil, nil
	}

	reqURL := baseURL + path + "?engagementUuid=" + url.QueryEscape(engagementUUID)

	var payload struct {
		Count *int `json:"count"`
	}
	if err := c.get(ctx, reqURL, &payload); err != nil {
		return nil, err
	}
	return payload.Count, nil
}

// get performs a GET with a single retry on 5xx or network errors.
// A 404 means the collaborator knows nothing about the engagement: nil data.
func (c *Client) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("counts: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return fmt.Errorf("counts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("counts: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("counts: read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("counts: decode json: %w", err)
	}
	return nil
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry {
		return resp, err
	}
	if ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	c.log.WarnContext(ctx, "counts retry",
		slog.String("url", req.URL.Path),
		slog.String("reason", reason),
	)

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	time.Sleep(500 * time.Millisecond)

	return c.httpClient.Do(req.Clone(ctx))
}
