// Package gitlab is the mirror-store adapter. It speaks the GitLab v4 REST
// API: groups, projects, repository files, commits, hooks, and deploy keys.
// Absence (HTTP 404) is reported as nil results, not errors, because the
// sync engine treats a missing mirror object as a legitimate state.
package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guildworks/engagements/internal/config"
)

// GitError carries the mirror-store HTTP status for failed calls so callers
// can distinguish client mistakes from server faults.
type GitError struct {
	StatusCode int
	Reason     string
}

func (e *GitError) Error() string {
	return fmt.Sprintf("gitlab: status %d: %s", e.StatusCode, e.Reason)
}

// Client is the mirror-store API client.
type Client struct {
	baseURL     string
	token       string
	branch      string
	rootGroupID int
	deployKeyID int
	environment string

	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client from the mirror-store configuration.
func NewClient(cfg config.GitlabConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.Token,
		branch:      cfg.Branch,
		rootGroupID: cfg.RootGroupID,
		deployKeyID: cfg.DeployKeyID,
		environment: cfg.Environment,
		httpClient:  &http.Client{Timeout: timeout},
		log:         logger.With("adapter", "gitlab"),
	}
}

// Branch returns the branch every mirror commit targets.
func (c *Client) Branch() string { return c.branch }

// RootGroupID returns the group all customer groups nest under.
func (c *Client) RootGroupID() int { return c.rootGroupID }

// PathPrefix returns the environment path prefix ("" when unset), used to
// namespace group paths when several deployments share one mirror store.
func (c *Client) PathPrefix() string { return c.environment }

// do executes one API call. A nil out skips decoding. A 404 returns
// errNotFound so callers can translate absence into nil results.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	reqURL := c.baseURL + "/api/v4" + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gitlab: encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("gitlab: create request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		c.log.ErrorContext(ctx, "gitlab request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("gitlab: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &GitError{StatusCode: resp.StatusCode, Reason: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gitlab: read body: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gitlab: decode json: %w", err)
	}
	return nil
}

// errNotFound is internal; exported lookups translate it to nil results.
var errNotFound = &GitError{StatusCode: http.StatusNotFound, Reason: "not found"}

// doWithRetry executes the request with a single retry on 5xx or network errors.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	// Requests are replayed, so the body must be rewindable.
	resp, err := c.httpClient.Do(req)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry {
		return resp, err
	}

	// Don't retry if context is already cancelled.
	if ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	c.log.WarnContext(ctx, "gitlab retry",
		slog.String("path", req.URL.Path),
		slog.String("reason", reason),
	)

	// Close body from the failed attempt before retrying.
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	time.Sleep(500 * time.Millisecond)

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, bodyErr
		}
		retry.Body = body
	}

	return c.httpClient.Do(retry)
}

// isNotFound reports whether an error is the 404 marker.
func isNotFound(err error) bool {
	ge, ok := err.(*GitError)
	return ok && ge.StatusCode == http.StatusNotFound
}

func idPath(id int) string {
	return strconv.Itoa(id)
}
