package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/response"
)

var (
	errProjectNotFound = response.NewNotFound("Project not found")
	errAlreadyAssigned = response.NewConflict("User is already assigned to this project")
	errInvalidStatus   = response.NewBadRequest("Invalid status")
)

const deadlineLayout = "2006-01-02"

type ProjectService struct {
	projects store.ProjectRepository
	users    store.UserRepository
	events   *EventHub
}

func NewProjectService(projects store.ProjectRepository, users store.UserRepository, events *EventHub) *ProjectService {
	return &ProjectService{projects: projects, users: users, events: events}
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
}

type CreateProjectResponse struct {
	Message   string `json:"message"`
	ProjectID string `json:"projectId"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AssignRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// parseDeadline accepts a calendar date or an RFC 3339 timestamp.
func parseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(deadlineLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

// List returns the projects visible to id, newest first.
func (s *ProjectService) List(ctx context.Context, id models.Identity) ([]models.ProjectView, error) {
	filter, ok := projectScope(id)
	if !ok {
		return []models.ProjectView{}, nil
	}
	projects, err := s.projects.ListProjects(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return s.populate(ctx, projects)
}

func (s *ProjectService) Create(ctx context.Context, id models.Identity, req *CreateProjectRequest) (*CreateProjectResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, response.NewBadRequest("Project name is required")
	}
	if utf8.RuneCountInString(name) > models.MaxProjectNameLen {
		return nil, response.NewBadRequest(fmt.Sprintf("Project name must be at most %d characters", models.MaxProjectNameLen))
	}
	description := strings.TrimSpace(req.Description)
	if utf8.RuneCountInString(description) > models.MaxProjectDescriptionLen {
		return nil, response.NewBadRequest(fmt.Sprintf("Description must be at most %d characters", models.MaxProjectDescriptionLen))
	}
	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		return nil, response.NewBadRequest("Invalid deadline")
	}

	p := &models.Project{
		Name:        name,
		Description: description,
		Deadline:    deadline,
		Status:      models.ProjectActive,
		CreatedBy:   id.ID,
	}
	if err := s.projects.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.events.Publish(Event{Type: EventProjectCreated, ProjectID: p.ID}, p)
	return &CreateProjectResponse{Message: "Project created successfully", ProjectID: p.ID}, nil
}

func (s *ProjectService) UpdateStatus(ctx context.Context, projectID string, req *UpdateStatusRequest) error {
	status := models.ProjectStatus(req.Status)
	if !status.Valid() {
		return errInvalidStatus
	}
	if err := s.projects.UpdateProjectStatus(ctx, projectID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errProjectNotFound
		}
		return fmt.Errorf("update status: %w", err)
	}

	if p, err := s.projects.GetProject(ctx, projectID); err == nil {
		s.events.Publish(Event{Type: EventProjectStatus, ProjectID: p.ID, Status: string(status)}, p)
	}
	return nil
}

// Detail populates a project already loaded by the access gate.
func (s *ProjectService) Detail(ctx context.Context, p *models.Project) (*models.ProjectView, error) {
	views, err := s.populate(ctx, []models.Project{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Members returns the public projection of each project member.
func (s *ProjectService) Members(ctx context.Context, p *models.Project) ([]models.UserRef, error) {
	users, err := s.users.GetUsersByIDs(ctx, p.Members)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	return orderedRefs(p.Members, indexUsers(users)), nil
}

func (s *ProjectService) Assign(ctx context.Context, p *models.Project, req *AssignRequest) error {
	userID := strings.TrimSpace(req.UserID)
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := s.projects.AddMember(ctx, p.ID, userID); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyMember):
			return errAlreadyAssigned
		case errors.Is(err, store.ErrNotFound):
			return errProjectNotFound
		}
		return fmt.Errorf("add member: %w", err)
	}

	updated := *p
	updated.Members = append(append([]string{}, p.Members...), userID)
	s.events.Publish(Event{Type: EventMemberAssigned, ProjectID: p.ID, UserID: userID}, &updated)
	return nil
}

// Unassign removes userID from the project. Removing a non-member succeeds.
func (s *ProjectService) Unassign(ctx context.Context, projectID, userID string) error {
	if err := s.projects.RemoveMember(ctx, projectID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errProjectNotFound
		}
		return fmt.Errorf("remove member: %w", err)
	}

	if p, err := s.projects.GetProject(ctx, projectID); err == nil {
		s.events.Publish(Event{Type: EventMemberRemoved, ProjectID: projectID, UserID: userID}, p, userID)
	}
	return nil
}

// populate resolves creators and members with a single user lookup.
func (s *ProjectService) populate(ctx context.Context, projects []models.Project) ([]models.ProjectView, error) {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for i := range projects {
		add(projects[i].CreatedBy)
		for _, m := range projects[i].Members {
			add(m)
		}
	}

	users := map[string]*models.User{}
	if len(ids) > 0 {
		found, err := s.users.GetUsersByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load users: %w", err)
		}
		users = indexUsers(found)
	}

	views := make([]models.ProjectView, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		v := models.ProjectView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Deadline:    p.Deadline,
			Status:      p.Status,
			TeamMembers: orderedRefs(p.Members, users),
			TeamSize:    p.TeamSize(),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
		if u, ok := users[p.CreatedBy]; ok {
			ref := u.Ref()
			v.CreatedBy = &ref
			v.CreatedByName = u.Username
		}
		views = append(views, v)
	}
	return views, nil
}

func indexUsers(users []models.User) map[string]*models.User {
	m := make(map[string]*models.User, len(users))
	for i := range users {
		m[users[i].ID] = &users[i]
	}
	return m
}

// orderedRefs keeps member order and skips ids with no matching user.
func orderedRefs(ids []string, users map[string]*models.User) []models.UserRef {
	refs := make([]models.UserRef, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			refs = append(refs, u.Ref())
		}
	}
	return refs
}
