package models

import "time"

// Project event types published on the message broker.
const (
	EventProjectCreated = "project.created"
	EventProjectUpdated = "project.updated"
	EventProjectDeleted = "project.deleted"
)

// ProjectEvent describes a change to a project for downstream consumers.
type ProjectEvent struct {
	Type       string    `json:"type"`
	ProjectID  string    `json:"project_id"`
	OwnerID    string    `json:"owner_id"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewProjectEvent builds an event of the given type for p.
func NewProjectEvent(eventType string, p *Project) ProjectEvent {
	return ProjectEvent{
		Type:       eventType,
		ProjectID:  p.ID,
		OwnerID:    p.OwnerID,
		Name:       p.Name,
		OccurredAt: time.Now().UTC(),
	}
}
