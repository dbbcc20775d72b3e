package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guildworks/engagements/internal/adapter/gitlab"
	"github.com/guildworks/engagements/internal/domain"
)

// fakeGit is an in-memory mirror store. It enforces the same commit-action
// rules the real store does (create fails on an existing path, update on a
// missing one), so tests catch wrong action verbs.
type fakeGit struct {
	branch string
	rootID int
	prefix string

	nextID   int
	groups   map[int]*gitlab.Group
	projects map[int]*gitlab.Project
	files    map[int]map[string]string
	hooks    map[int][]gitlab.ProjectHook

	commits       map[int][]fakeCommit
	deletedGroups []int
	transfers     [][2]int
	tagUpdates    map[int][]string
	deployKeys    []int
	nextHookID    int
}

type fakeCommit struct {
	Message     string
	AuthorName  string
	AuthorEmail string
	Actions     []gitlab.CommitAction
}

func newFakeGit() *fakeGit {
	f := &fakeGit{
		branch:     "master",
		rootID:     1,
		nextID:     2,
		groups:     map[int]*gitlab.Group{},
		projects:   map[int]*gitlab.Project{},
		files:      map[int]map[string]string{},
		hooks:      map[int][]gitlab.ProjectHook{},
		commits:    map[int][]fakeCommit{},
		tagUpdates: map[int][]string{},
		nextHookID: 1,
	}
	f.groups[1] = &gitlab.Group{ID: 1, Name: "Guildworks", Path: "guildworks", FullPath: "guildworks"}
	return f
}

func (f *fakeGit) id() int {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeGit) Branch() string     { return f.branch }
func (f *fakeGit) RootGroupID() int   { return f.rootID }
func (f *fakeGit) PathPrefix() string { return f.prefix }

func (f *fakeGit) GetGroup(_ context.Context, id int) (*gitlab.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGit) GetGroupByFullPath(_ context.Context, fullPath string) (*gitlab.Group, error) {
	for _, g := range f.groups {
		if g.FullPath == fullPath {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeGit) ListSubgroups(_ context.Context, parentID int) ([]gitlab.Group, error) {
	var out []gitlab.Group
	for _, g := range f.groups {
		if g.ParentID == parentID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGit) ListGroupProjects(_ context.Context, groupID int) ([]gitlab.Project, error) {
	root, ok := f.groups[groupID]
	if !ok {
		return nil, nil
	}
	var out []gitlab.Project
	for _, p := range f.projects {
		if strings.HasPrefix(p.PathWithNamespace, root.FullPath+"/") {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeGit) CreateGroup(_ context.Context, name, path string, parentID int) (*gitlab.Group, error) {
	parent, ok := f.groups[parentID]
	if !ok {
		return nil, fmt.Errorf("fake: parent group %d missing", parentID)
	}
	g := &gitlab.Group{
		ID:       f.id(),
		Name:     name,
		Path:     path,
		FullPath: parent.FullPath + "/" + path,
		ParentID: parentID,
	}
	f.groups[g.ID] = g
	cp := *g
	return &cp, nil
}

func (f *fakeGit) UpdateGroup(_ context.Context, id int, name, path string) (*gitlab.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, fmt.Errorf("fake: group %d missing", id)
	}
	old := g.FullPath
	g.Name = name
	g.Path = path
	if parent, ok := f.groups[g.ParentID]; ok {
		g.FullPath = parent.FullPath + "/" + path
	} else {
		g.FullPath = path
	}
	// Cascade the path change to nested groups and projects.
	for _, child := range f.groups {
		if child.ID != g.ID && strings.HasPrefix(child.FullPath, old+"/") {
			child.FullPath = g.FullPath + strings.TrimPrefix(child.FullPath, old)
		}
	}
	for _, p := range f.projects {
		if strings.HasPrefix(p.PathWithNamespace, old+"/") {
			p.PathWithNamespace = g.FullPath + strings.TrimPrefix(p.PathWithNamespace, old)
		}
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGit) DeleteGroup(_ context.Context, id int) error {
	g, ok := f.groups[id]
	if !ok {
		return nil
	}
	f.deletedGroups = append(f.deletedGroups, id)
	for cid, child := range f.groups {
		if strings.HasPrefix(child.FullPath, g.FullPath+"/") {
			delete(f.groups, cid)
		}
	}
	for pid, p := range f.projects {
		if strings.HasPrefix(p.PathWithNamespace, g.FullPath+"/") {
			delete(f.projects, pid)
		}
	}
	delete(f.groups, id)
	return nil
}

func (f *fakeGit) GetProject(_ context.Context, id int) (*gitlab.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeGit) GetProjectByPath(_ context.Context, pathWithNamespace string) (*gitlab.Project, error) {
	for _, p := range f.projects {
		if p.PathWithNamespace == pathWithNamespace {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeGit) CreateProject(_ context.Context, name, path string, namespaceID int, description string, tags []string) (*gitlab.Project, error) {
	group, ok := f.groups[namespaceID]
	if !ok {
		return nil, fmt.Errorf("fake: namespace %d missing", namespaceID)
	}
	p := &gitlab.Project{
		ID:                f.id(),
		Name:              name,
		Path:              path,
		PathWithNamespace: group.FullPath + "/" + path,
		Description:       description,
		TagList:           tags,
	}
	p.Namespace.ID = group.ID
	p.Namespace.Name = group.Name
	p.Namespace.Path = group.Path
	f.projects[p.ID] = p
	f.files[p.ID] = map[string]string{}
	cp := *p
	return &cp, nil
}

func (f *fakeGit) UpdateProjectTags(_ context.Context, projectID int, tags []string) error {
	p, ok := f.projects[projectID]
	if !ok {
		return fmt.Errorf("fake: project %d missing", projectID)
	}
	p.TagList = tags
	f.tagUpdates[projectID] = tags
	return nil
}

func (f *fakeGit) TransferProject(_ context.Context, projectID, groupID int) (*gitlab.Project, error) {
	p, ok := f.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("fake: project %d missing", projectID)
	}
	group, ok := f.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("fake: group %d missing", groupID)
	}
	p.PathWithNamespace = group.FullPath + "/" + p.Path
	p.Namespace.ID = group.ID
	p.Namespace.Name = group.Name
	p.Namespace.Path = group.Path
	f.transfers = append(f.transfers, [2]int{projectID, groupID})
	cp := *p
	return &cp, nil
}

func (f *fakeGit) EnableDeployKey(_ context.Context, projectID int) error {
	f.deployKeys = append(f.deployKeys, projectID)
	return nil
}

func (f *fakeGit) GetFile(_ context.Context, projectID int, filePath string) (*gitlab.RepositoryFile, error) {
	files, ok := f.files[projectID]
	if !ok {
		return nil, nil
	}
	content, ok := files[filePath]
	if !ok {
		return nil, nil
	}
	return &gitlab.RepositoryFile{FilePath: filePath, Content: content}, nil
}

func (f *fakeGit) CreateCommit(_ context.Context, projectID int, message, authorName, authorEmail string, actions []gitlab.CommitAction) (*gitlab.Commit, error) {
	files, ok := f.files[projectID]
	if !ok {
		return nil, fmt.Errorf("fake: project %d missing", projectID)
	}
	for _, a := range actions {
		_, exists := files[a.FilePath]
		switch a.Action {
		case gitlab.ActionCreate:
			if exists {
				return nil, fmt.Errorf("fake: create on existing file %s", a.FilePath)
			}
			files[a.FilePath] = a.Content
		case gitlab.ActionUpdate:
			if !exists {
				return nil, fmt.Errorf("fake: update on missing file %s", a.FilePath)
			}
			files[a.FilePath] = a.Content
		case gitlab.ActionDelete:
			delete(files, a.FilePath)
		default:
			return nil, fmt.Errorf("fake: unknown action %q", a.Action)
		}
	}
	f.commits[projectID] = append(f.commits[projectID], fakeCommit{
		Message:     message,
		AuthorName:  authorName,
		AuthorEmail: authorEmail,
		Actions:     actions,
	})
	return &gitlab.Commit{ID: fmt.Sprintf("c%d", len(f.commits[projectID])), Message: message}, nil
}

func (f *fakeGit) ListProjectHooks(_ context.Context, projectID int) ([]gitlab.ProjectHook, error) {
	return append([]gitlab.ProjectHook(nil), f.hooks[projectID]...), nil
}

func (f *fakeGit) CreateProjectHook(_ context.Context, projectID int, url string, pushEvents bool, branchFilter, token string) (*gitlab.ProjectHook, error) {
	h := gitlab.ProjectHook{ID: f.nextHookID, URL: url, PushEvents: pushEvents, PushEventsBranchFilter: branchFilter}
	f.nextHookID++
	f.hooks[projectID] = append(f.hooks[projectID], h)
	return &h, nil
}

func (f *fakeGit) DeleteProjectHook(_ context.Context, projectID, hookID int) error {
	hooks := f.hooks[projectID]
	for i, h := range hooks {
		if h.ID == hookID {
			f.hooks[projectID] = append(hooks[:i], hooks[i+1:]...)
			return nil
		}
	}
	return nil
}

// seedFile plants a file directly, bypassing commit-action checks.
func (f *fakeGit) seedFile(projectID int, path string, content any) {
	raw, err := json.Marshal(content)
	if err != nil {
		panic(err)
	}
	if f.files[projectID] == nil {
		f.files[projectID] = map[string]string{}
	}
	f.files[projectID][path] = string(raw)
}

// Collaborator mocks. A nil function means the test does not expect the
// call; invoking it panics.

type recorderMock struct {
	UpdateProjectIDFunc  func(ctx context.Context, uuid string, projectID int) error
	FindFunc             func(ctx context.Context, f domain.EngagementFilter) ([]*domain.Engagement, error)
	UpdateProjectIDCalls []struct {
		UUID      string
		ProjectID int
	}
}

func (m *recorderMock) UpdateProjectID(ctx context.Context, uuid string, projectID int) error {
	m.UpdateProjectIDCalls = append(m.UpdateProjectIDCalls, struct {
		UUID      string
		ProjectID int
	}{uuid, projectID})
	if m.UpdateProjectIDFunc == nil {
		return nil
	}
	return m.UpdateProjectIDFunc(ctx, uuid, projectID)
}

func (m *recorderMock) Find(ctx context.Context, f domain.EngagementFilter) ([]*domain.Engagement, error) {
	if m.FindFunc == nil {
		panic("recorderMock.Find: unexpected call")
	}
	return m.FindFunc(ctx, f)
}

type categoryReaderMock struct {
	ListByEngagementFunc func(ctx context.Context, engagementUUID string) ([]domain.Category, error)
}

func (m *categoryReaderMock) ListByEngagement(ctx context.Context, engagementUUID string) ([]domain.Category, error) {
	if m.ListByEngagementFunc == nil {
		return nil, nil
	}
	return m.ListByEngagementFunc(ctx, engagementUUID)
}

type configProviderMock struct {
	GetFunc             func(ctx context.Context) ([]domain.HookConfig, error)
	RuntimeDocumentFunc func(ctx context.Context, engagementType string) (json.RawMessage, error)
}

func (m *configProviderMock) Get(ctx context.Context) ([]domain.HookConfig, error) {
	if m.GetFunc == nil {
		return nil, nil
	}
	return m.GetFunc(ctx)
}

func (m *configProviderMock) RuntimeDocument(ctx context.Context, engagementType string) (json.RawMessage, error) {
	if m.RuntimeDocumentFunc == nil {
		return nil, nil
	}
	return m.RuntimeDocumentFunc(ctx, engagementType)
}
