package gitlab

import (
	"context"
)

// ProjectHook is a webhook installed on a mirror project.
type ProjectHook struct {
	ID                     int    `json:"id"`
	URL                    string `json:"url"`
	PushEvents             bool   `json:"push_events"`
	PushEventsBranchFilter string `json:"push_events_branch_filter"`
}

// ListProjectHooks returns the webhooks installed on a project. A missing
// project yields an empty list.
func (c *Client) ListProjectHooks(ctx context.Context, projectID int) ([]ProjectHook, error) {
	var hooks []ProjectHook
	err := c.do(ctx, "GET", "/projects/"+idPath(projectID)+"/hooks", nil, nil, &hooks)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return hooks, nil
}

type hookRequest struct {
	URL                    string `json:"url"`
	PushEvents             bool   `json:"push_events"`
	PushEventsBranchFilter string `json:"push_events_branch_filter,omitempty"`
	Token                  string `json:"token,omitempty"`
}

// CreateProjectHook installs a webhook on a project.
func (c *Client) CreateProjectHook(ctx context.Context, projectID int, url string, pushEvents bool, branchFilter, token string) (*ProjectHook, error) {
	req := hookRequest{URL: url, PushEvents: pushEvents, PushEventsBranchFilter: branchFilter, Token: token}

	var hook ProjectHook
	if err := c.do(ctx, "POST", "/projects/"+idPath(projectID)+"/hooks", nil, req, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

// DeleteProjectHook removes one webhook from a project. Deleting a hook
// that is already gone is not an error.
func (c *Client) DeleteProjectHook(ctx context.Context, projectID, hookID int) error {
	err := c.do(ctx, "DELETE", "/projects/"+idPath(projectID)+"/hooks/"+idPath(hookID), nil, nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}
