package gitlab

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
)

// RepositoryFile is one file fetched from a project repository.
type RepositoryFile struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Decoded returns the file content as plain bytes.
func (f *RepositoryFile) Decoded() ([]byte, error) {
	if f.Encoding != "base64" {
		return []byte(f.Content), nil
	}
	raw, err := base64.StdEncoding.DecodeString(f.Content)
	if err != nil {
		return nil, fmt.Errorf("gitlab: decode file %s: %w", f.FilePath, err)
	}
	return raw, nil
}

// GetFile returns a repository file at the configured branch, or nil when
// the file (or the project) does not exist.
func (c *Client) GetFile(ctx context.Context, projectID int, filePath string) (*RepositoryFile, error) {
	query := url.Values{"ref": {c.branch}}

	var f RepositoryFile
	err := c.do(ctx, "GET", "/projects/"+idPath(projectID)+"/repository/files/"+url.PathEscape(filePath), query, nil, &f)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Commit action verbs accepted by the commits API.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionMove   = "move"
)

// CommitAction is one file operation inside a commit.
type CommitAction struct {
	Action   string `json:"action"`
	FilePath string `json:"file_path"`
	Content  string `json:"content,omitempty"`
}

// Commit is the created commit returned by the API.
type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type createCommitRequest struct {
	Branch        string         `json:"branch"`
	CommitMessage string         `json:"commit_message"`
	AuthorName    string         `json:"author_name,omitempty"`
	AuthorEmail   string         `json:"author_email,omitempty"`
	Actions       []CommitAction `json:"actions"`
}

// CreateCommit commits a set of file actions to the configured branch,
// attributed to the given author.
func (c *Client) CreateCommit(ctx context.Context, projectID int, message, authorName, authorEmail string, actions []CommitAction) (*Commit, error) {
	req := createCommitRequest{
		Branch:        c.branch,
		CommitMessage: message,
		AuthorName:    authorName,
		AuthorEmail:   authorEmail,
		Actions:       actions,
	}

	var commit Commit
	if err := c.do(ctx, "POST", "/projects/"+idPath(projectID)+"/repository/commits", nil, req, &commit); err != nil {
		return nil, err
	}
	return &commit, nil
}
