package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeGroupCreated        MessageType = "group.created"
	TypeGroupUpdated        MessageType = "group.updated"
	TypeGroupDeleted        MessageType = "group.deleted"
	TypeAccessStatusChanged MessageType = "group.access_changed"
	TypeSettingsUpdated     MessageType = "settings.updated"
	TypeNotification        MessageType = "notification"

	// Client -> Server command types
	TypeSubscribe   MessageType = "subscribe"
	TypeUnsubscribe MessageType = "unsubscribe"
	TypePing        MessageType = "ping"

	// Server -> Client response types
	TypeSubscribeAck MessageType = "subscribe.ack"
	TypePong         MessageType = "pong"
	TypeError        MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// GroupEventPayload is the payload for group.created and group.updated
// events.
type GroupEventPayload struct {
	GroupID     string `json:"group_id"`
	Name        string `json:"name"`
	WindowCount int    `json:"window_count"`
	MemberCount int    `json:"member_count"`
}

// GroupDeletedPayload is the payload for group.deleted events.
type GroupDeletedPayload struct {
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
}

// AccessStatusPayload is the payload for group.access_changed events.
type AccessStatusPayload struct {
	GroupID         string `json:"group_id"`
	GroupName       string `json:"group_name"`
	PreviousStatus  string `json:"previous_status"`
	NewStatus       string `json:"new_status"`
	NextAllowedTime string `json:"next_allowed_time,omitempty"`
}

// SettingsUpdatedPayload is the payload for settings.updated events.
type SettingsUpdatedPayload struct {
	Settings map[string]string `json:"settings"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string              `json:"level"` // info, warning, error, success
	Title       string              `json:"title"`
	Message     string              `json:"message"`
	Action      *NotificationAction `json:"action,omitempty"`
	Dismissible bool                `json:"dismissible"`
}

// NotificationAction is an optional action button for notifications.
type NotificationAction struct {
	Type  string `json:"type"` // "link"
	Label string `json:"label"`
	URL   string `json:"url"`
}

// SubscribePayload is the payload clients send with subscribe and
// unsubscribe commands.
type SubscribePayload struct {
	Topics []string `json:"topics"`
}

// SubscribeAckPayload is the payload for subscribe.ack responses. Topics
// lists the client's full subscription set after the change.
type SubscribeAckPayload struct {
	Topics []string `json:"topics"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
