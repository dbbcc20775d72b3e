// Package runtimecfg talks to the runtime-configuration collaborator, the
// authoritative source of webhook definitions and per-type runtime
// documents. The service pulls from it on change notifications and caches
// the result locally.
package runtimecfg

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
	"github.com/guildworks/engagements/internal/domain"
)

// Client fetches runtime configuration documents.
type Client struct {
	baseURL string
	token   string

	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client from the collaborator configuration.
func NewClient(cfg config.RuntimeConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("adapter", "runtimecfg"),
	}
}

type hookPayload struct {
	Name                   string `json:"name"`
	BaseURL                string `json:"base_url"`
	PushEvent              bool   `json:"push_event"`
	PushEventsBranchFilter string `json:"push_events_branch_filter"`
	Token                  string `json:"token"`
	EnabledAfterArchive    bool   `json:"enabled_after_archive"`
}

// Webhooks returns the current webhook definitions. An unconfigured
// collaborator yields an empty list.
func (c *Client) Webhooks(ctx context.Context) ([]domain.HookConfig, error) {
	if c.baseURL == "" {
		return []domain.HookConfig{}, nil
	}

	var payload struct {
		Webhooks []hookPayload `json:"webhooks"`
	}
	if err := c.get(ctx, c.baseURL+"/api/v1/configs/webhooks", &payload); err != nil {
		return nil, err
	}

	hooks := make([]domain.HookConfig, 0, len(payload.Webhooks))
	for _, h := range payload.Webhooks {
		hooks = append(hooks, domain.HookConfig{
			Name:                   h.Name,
			BaseURL:                h.BaseURL,
			PushEvent:              h.PushEvent,
			PushEventsBranchFilter: h.PushEventsBranchFilter,
			Token:                  h.Token,
			EnabledAfterArchive:    h.EnabledAfterArchive,
		})
	}
	return hooks, nil
}

// RuntimeDocument returns the raw runtime configuration for an engagement
// type, or nil when the collaborator has no document for it.
func (c *Client) RuntimeDocument(ctx context.Context, engagementType string) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, nil
	}

	reqURL := c.baseURL + "/api/v1/configs/runtime"
	if engagementType != "" {
		reqURL += "?type=" + url.QueryEscape(engagementType)
	}

	var payload json.RawMessage
	if err := c.get(ctx, reqURL, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("runtimecfg: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return fmt.Errorf("runtimecfg: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("runtimecfg: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("runtimecfg: read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("runtimecfg: decode json: %w", err)
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
	c.log.WarnContext(ctx, "runtimecfg retry",
		slog.String("url", req.URL.Path),
		slog.String("reason", reason),
	)

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	time.Sleep(500 * time.Millisecond)

	return c.httpClient.Do(req.Clone(ctx))
}
