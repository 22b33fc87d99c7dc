package models

import "time"

// Audit actor types
const (
	ActorSession = "session"
	ActorCLI     = "cli"
	ActorSystem  = "system"
)

// Audit actions
const (
	AuditCampaignCreated = "campaign_created"
	AuditCampaignDeleted = "campaign_deleted"
)

// Actor identifies who triggered a mutating operation.
type Actor struct {
	Type string
	ID   string
}

// AuditID returns the actor id for an audit row, nil when anonymous.
func (a Actor) AuditID() *string {
	if a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}

type AuditLog struct {
	ID         int64     `json:"id"`
	ActorType  string    `json:"actor_type"` // session/cli/system
	ActorID    *string   `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   *int64    `json:"entity_id,omitempty"`
	Meta       any       `json:"meta,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
