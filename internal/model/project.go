package model

import "time"

const DefaultProjectImage = "https://res.cloudinary.com/dql7wn1ej/image/upload/v1544052695/bvkbewq3ir7yqv3uxa01.png"

type CollaborationDecision string

const (
	DecisionAccept CollaborationDecision = "accept"
	DecisionReject CollaborationDecision = "reject"
)

type Project struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Skills               []string  `json:"skills"`
	Created              time.Time `json:"created"`
	OnGoing              bool      `json:"onGoing"`
	MaxMembers           int       `json:"maxMembers"`
	CurrentMembers       int       `json:"currentMembers"`
	Owner                string    `json:"owner"`
	Collaborators        []string  `json:"collaborators"`
	PendingCollaborators []string  `json:"pendingCollaborators"`
	ProjectImage         string    `json:"projectImage"`
	Location             string    `json:"location"`
	ProjectURL           string    `json:"projectUrl,omitempty"`
}

type NewProject struct {
	Name        string
	Description string
	Skills      []string
	MaxMembers  int
	Location    string
	ProjectURL  string
}

// ProjectView is a filter result: the public fields of a project annotated
// with the viewer's saved projects.
type ProjectView struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	ProjectImage        string   `json:"projectImage"`
	Skills              []string `json:"skills"`
	Location            string   `json:"location"`
	Collaborators       []string `json:"collaborators"`
	Owner               string   `json:"owner"`
	ViewerSavedProjects []string `json:"viewerSavedProjects"`
}

// ProjectInfo is the detail page of a project.
type ProjectInfo struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	Skills               []string       `json:"skills"`
	Created              time.Time      `json:"created"`
	OnGoing              bool           `json:"onGoing"`
	MaxMembers           int            `json:"maxMembers"`
	CurrentMembers       int            `json:"currentMembers"`
	Owner                *UserSummary   `json:"owner"`
	Collaborators        []*UserSummary `json:"collaborators"`
	PendingCollaborators []*UserSummary `json:"pendingCollaborators"`
	ProjectImage         string         `json:"projectImage"`
	Location             string         `json:"location"`
	ProjectURL           string         `json:"projectUrl,omitempty"`
	ViewerSkills         []string       `json:"viewerSkills"`
	ViewerSavedProjects  []string       `json:"viewerSavedProjects"`
}

// PendingProject is an owned project with collaborators waiting for a decision.
type PendingProject struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	ProjectImage         string         `json:"projectImage"`
	Skills               []string       `json:"skills"`
	Location             string         `json:"location"`
	PendingCollaborators []*UserSummary `json:"pendingCollaborators"`
}
