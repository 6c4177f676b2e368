package websocket

import (
	"reflect"
	"testing"
)

func TestClientWants(t *testing.T) {
	client := NewClient(NewHub())

	// No subscriptions means receive everything.
	if !client.wants(TypeGroupCreated) || !client.wants(TypeNotification) {
		t.Error("unsubscribed client should receive all messages")
	}

	client.Subscribe([]string{"group.access_changed"})
	if !client.wants(TypeAccessStatusChanged) {
		t.Error("exact topic should match")
	}
	if client.wants(TypeGroupCreated) {
		t.Error("non-subscribed type should not match")
	}

	// A category subscription covers every event under it.
	client.Subscribe([]string{"group"})
	if !client.wants(TypeGroupCreated) || !client.wants(TypeGroupDeleted) {
		t.Error("category subscription should match group.* events")
	}
	if client.wants(TypeSettingsUpdated) {
		t.Error("settings events are outside the group category")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	client := NewClient(NewHub())

	topics := client.Subscribe([]string{"group", "settings", ""})
	if !reflect.DeepEqual(topics, []string{"group", "settings"}) {
		t.Fatalf("topics = %v, want [group settings]", topics)
	}

	topics = client.Unsubscribe([]string{"group", "never-subscribed"})
	if !reflect.DeepEqual(topics, []string{"settings"}) {
		t.Fatalf("topics = %v, want [settings]", topics)
	}
}
