package websocket

import (
	"log"

	"github.com/promptgate/backend/internal/storage/models"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastGroupCreated sends a group.created event.
func (b *EventBroadcaster) BroadcastGroupCreated(group *models.GroupWithMembers) {
	b.broadcastGroupEvent(TypeGroupCreated, group)
}

// BroadcastGroupUpdated sends a group.updated event.
func (b *EventBroadcaster) BroadcastGroupUpdated(group *models.GroupWithMembers) {
	b.broadcastGroupEvent(TypeGroupUpdated, group)
}

func (b *EventBroadcaster) broadcastGroupEvent(msgType MessageType, group *models.GroupWithMembers) {
	payload := GroupEventPayload{
		GroupID:     group.ID,
		Name:        group.Name,
		WindowCount: len(group.TimeWindows),
		MemberCount: len(group.MemberIDs),
	}

	msg := NewMessage(msgType, payload)
	b.broadcast(msg)
}

// BroadcastGroupDeleted sends a group.deleted event.
func (b *EventBroadcaster) BroadcastGroupDeleted(groupID, name string) {
	payload := GroupDeletedPayload{
		GroupID: groupID,
		Name:    name,
	}

	msg := NewMessage(TypeGroupDeleted, payload)
	b.broadcast(msg)
}

// BroadcastAccessStatusChanged sends a group.access_changed event.
// nextAllowedTime is an already-formatted instant, or empty when no
// upcoming window exists.
func (b *EventBroadcaster) BroadcastAccessStatusChanged(groupID, groupName, previousStatus, newStatus, nextAllowedTime string) {
	payload := AccessStatusPayload{
		GroupID:         groupID,
		GroupName:       groupName,
		PreviousStatus:  previousStatus,
		NewStatus:       newStatus,
		NextAllowedTime: nextAllowedTime,
	}

	msg := NewMessage(TypeAccessStatusChanged, payload)
	b.broadcast(msg)
}

// BroadcastSettingsUpdated sends a settings.updated event.
func (b *EventBroadcaster) BroadcastSettingsUpdated(settings map[string]string) {
	msg := NewMessage(TypeSettingsUpdated, SettingsUpdatedPayload{Settings: settings})
	b.broadcast(msg)
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	payload := NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}

	msg := NewMessage(TypeNotification, payload)
	b.broadcast(msg)
}

// broadcast sends a message to the clients subscribed to its type.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}

	b.hub.BroadcastEvent(msg.Type, data)
}
