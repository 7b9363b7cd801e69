package events

import (
	"context"

	"github.com/serroba/opsportal/internal/ws"
)

// HubNotifier pushes events to the WebSocket clients watching the folders
// an event touches.
type HubNotifier struct {
	hub *ws.Hub
}

// NewHubNotifier creates a notifier over hub.
func NewHubNotifier(hub *ws.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// Notify broadcasts e without waiting for delivery.
func (n *HubNotifier) Notify(_ context.Context, e Event) {
	n.hub.Broadcast(ws.Message{Type: ws.MessageTypeDriveEvent, Payload: e}, Topics(e)...)
}

// Topics returns the hub topics that must see e.
func Topics(e Event) []string {
	var topics []string

	add := func(id *int64) {
		topic := ws.FolderTopic(id)
		for _, t := range topics {
			if t == topic {
				return
			}
		}

		topics = append(topics, topic)
	}

	if e.IsFolderEvent() {
		// Viewers of the parent see the entry change; viewers inside the
		// folder see their breadcrumb change.
		add(e.ParentID)

		if e.FolderID != nil {
			add(e.FolderID)
		}
	} else {
		add(e.FolderID)
	}

	if e.Type == FolderMoved || e.Type == FileMoved {
		add(e.PreviousID)
	}

	return topics
}
