package models

import (
	"slices"
	"time"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectCompleted
}

const (
	MaxProjectNameLen        = 100
	MaxProjectDescriptionLen = 1000
)

// Project is a unit of work with a creator and a set of member user ids.
// CreatedBy never changes after creation.
type Project struct {
	ID          string
	Name        string
	Description string
	Deadline    *time.Time
	Status      ProjectStatus
	CreatedBy   string
	Members     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Project) HasMember(userID string) bool {
	return slices.Contains(p.Members, userID)
}

func (p *Project) TeamSize() int { return len(p.Members) }

// ProjectView is the populated representation returned to clients.
type ProjectView struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Deadline      *time.Time    `json:"deadline"`
	Status        ProjectStatus `json:"status"`
	CreatedBy     *UserRef      `json:"created_by"`
	CreatedByName string        `json:"created_by_name"`
	TeamMembers   []UserRef     `json:"team_members"`
	TeamSize      int           `json:"team_size"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
