package gitlab

import (
	"context"
	"net/url"
	"strconv"
)

// Project is a mirror-store project holding one engagement's files. The
// description carries the owning engagement's uuid so snapshots can be
// matched back without reading files.
type Project struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	Path              string   `json:"path"`
	PathWithNamespace string   `json:"path_with_namespace"`
	DefaultBranch     string   `json:"default_branch"`
	Description       string   `json:"description"`
	TagList           []string `json:"tag_list"`
	Namespace         struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
		Path string `json:"path"`
	} `json:"namespace"`
}

// GetProject returns a project by id, or nil when it does not exist.
func (c *Client) GetProject(ctx context.Context, id int) (*Project, error) {
	var p Project
	err := c.do(ctx, "GET", "/projects/"+idPath(id), nil, nil, &p)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProjectByPath returns a project by its namespaced path, or nil when it
// does not exist.
func (c *Client) GetProjectByPath(ctx context.Context, pathWithNamespace string) (*Project, error) {
	var p Project
	err := c.do(ctx, "GET", "/projects/"+url.PathEscape(pathWithNamespace), nil, nil, &p)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type createProjectRequest struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	NamespaceID int      `json:"namespace_id"`
	Visibility  string   `json:"visibility"`
	Description string   `json:"description,omitempty"`
	TagList     []string `json:"tag_list,omitempty"`
}

// CreateProject creates a private project inside the given group.
func (c *Client) CreateProject(ctx context.Context, name, path string, namespaceID int, description string, tags []string) (*Project, error) {
	var p Project
	req := createProjectRequest{
		Name:        name,
		Path:        path,
		NamespaceID: namespaceID,
		Visibility:  "private",
		Description: description,
		TagList:     tags,
	}
	if err := c.do(ctx, "POST", "/projects", nil, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProjectTags replaces a project's tag list, used to advertise the
// engagement's lifecycle state on the mirror project.
func (c *Client) UpdateProjectTags(ctx context.Context, projectID int, tags []string) error {
	body := struct {
		TagList []string `json:"tag_list"`
	}{TagList: tags}
	return c.do(ctx, "PUT", "/projects/"+idPath(projectID), nil, body, nil)
}

// TransferProject moves a project into another group.
func (c *Client) TransferProject(ctx context.Context, projectID, groupID int) (*Project, error) {
	query := url.Values{"namespace": {strconv.Itoa(groupID)}}

	var p Project
	if err := c.do(ctx, "PUT", "/projects/"+idPath(projectID)+"/transfer", query, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject removes a project. Deleting a project that is already gone
// is not an error.
func (c *Client) DeleteProject(ctx context.Context, id int) error {
	err := c.do(ctx, "DELETE", "/projects/"+idPath(id), nil, nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// EnableDeployKey grants the configured deploy key access to a project.
// A zero key id means no deploy key is configured and the call is skipped.
func (c *Client) EnableDeployKey(ctx context.Context, projectID int) error {
	if c.deployKeyID == 0 {
		return nil
	}
	return c.do(ctx, "POST", "/projects/"+idPath(projectID)+"/deploy_keys/"+idPath(c.deployKeyID)+"/enable", nil, nil, nil)
}
