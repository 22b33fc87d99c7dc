package events

import "context"

// Event types
const (
	EventCampaignCreated = "campaign_created"
	EventCampaignDeleted = "campaign_deleted"
)

// StreamCampaigns carries campaign lifecycle events.
const StreamCampaigns = "events:campaign"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

func CampaignCreated(id int64, name string, contacts int) Event {
	return Event{Type: EventCampaignCreated, Payload: map[string]any{
		"campaign_id": id,
		"name":        name,
		"contacts":    contacts,
	}}
}

func CampaignDeleted(id int64) Event {
	return Event{Type: EventCampaignDeleted, Payload: map[string]any{"campaign_id": id}}
}
