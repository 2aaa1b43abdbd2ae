package events

import "time"

const (
	TypeMessageCreated = "message.created"
)

// Event defines the contract for events pushed to connected clients.
type Event interface {
	// EventType returns the unique code for this event (e.g., "message.created").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurredAt"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Envelope is the wire shape sent to sockets.
func Envelope(e Event) BaseEvent {
	return BaseEvent{Type: e.EventType(), Data: e.Payload(), OccurredAt: e.Timestamp()}
}

// MessageCreated announces an assistant reply stored for a chatroom.
func MessageCreated(chatroomId, messageId, replyToId, content string, isFallback bool, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeMessageCreated,
		Data: map[string]interface{}{
			"chatroomId": chatroomId,
			"messageId":  messageId,
			"replyToId":  replyToId,
			"content":    content,
			"isFallback": isFallback,
		},
		OccurredAt: at,
	}
}
