package gitlab

import (
	"context"
	"net/url"
	"strconv"
)

// Group is a mirror-store group (customer or engagement level).
type Group struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	FullPath string `json:"full_path"`
	ParentID int    `json:"parent_id"`
}

// GetGroup returns a group by id, or nil when it does not exist.
func (c *Client) GetGroup(ctx context.Context, id int) (*Group, error) {
	var g Group
	err := c.do(ctx, "GET", "/groups/"+idPath(id), nil, nil, &g)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGroupByFullPath returns a group by its full slash-separated path, or
// nil when it does not exist.
func (c *Client) GetGroupByFullPath(ctx context.Context, fullPath string) (*Group, error) {
	var g Group
	err := c.do(ctx, "GET", "/groups/"+url.PathEscape(fullPath), nil, nil, &g)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// listPageSize is the mirror store's per_page ceiling; listings walk pages
// of this size until a short page signals the end.
const listPageSize = 100

// ListSubgroups returns the direct child groups of a parent.
func (c *Client) ListSubgroups(ctx context.Context, parentID int) ([]Group, error) {
	var groups []Group
	for page := 1; ; page++ {
		query := url.Values{
			"per_page": {strconv.Itoa(listPageSize)},
			"page":     {strconv.Itoa(page)},
		}

		var batch []Group
		err := c.do(ctx, "GET", "/groups/"+idPath(parentID)+"/subgroups", query, nil, &batch)
		if isNotFound(err) {
			if page == 1 {
				return nil, nil
			}
			break
		}
		if err != nil {
			return nil, err
		}

		groups = append(groups, batch...)
		if len(batch) < listPageSize {
			break
		}
	}
	return groups, nil
}

// ListGroupProjects returns the projects inside a group, including those
// nested in subgroups.
func (c *Client) ListGroupProjects(ctx context.Context, groupID int) ([]Project, error) {
	var projects []Project
	for page := 1; ; page++ {
		query := url.Values{
			"per_page":          {strconv.Itoa(listPageSize)},
			"page":              {strconv.Itoa(page)},
			"include_subgroups": {"true"},
		}

		var batch []Project
		err := c.do(ctx, "GET", "/groups/"+idPath(groupID)+"/projects", query, nil, &batch)
		if isNotFound(err) {
			if page == 1 {
				return nil, nil
			}
			break
		}
		if err != nil {
			return nil, err
		}

		projects = append(projects, batch...)
		if len(batch) < listPageSize {
			break
		}
	}
	return projects, nil
}

type createGroupRequest struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	ParentID   int    `json:"parent_id"`
	Visibility string `json:"visibility"`
}

// CreateGroup creates a child group under the parent.
func (c *Client) CreateGroup(ctx context.Context, name, path string, parentID int) (*Group, error) {
	var g Group
	req := createGroupRequest{Name: name, Path: path, ParentID: parentID, Visibility: "private"}
	if err := c.do(ctx, "POST", "/groups", nil, req, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

type updateGroupRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// UpdateGroup renames a group in place, changing both display name and path.
func (c *Client) UpdateGroup(ctx context.Context, id int, name, path string) (*Group, error) {
	var g Group
	if err := c.do(ctx, "PUT", "/groups/"+idPath(id), nil, updateGroupRequest{Name: name, Path: path}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// DeleteGroup removes a group and everything nested under it. Deleting a
// group that is already gone is not an error.
func (c *Client) DeleteGroup(ctx context.Context, id int) error {
	err := c.do(ctx, "DELETE", "/groups/"+idPath(id), nil, nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}
